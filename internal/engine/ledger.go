package engine

import (
	"slices"
	"time"
)

type Entry struct {
	ParticipantID string    `json:"participant_id"`
	Action        Action    `json:"action"`
	ItemID        string    `json:"item_id"`
	Phase         Phase     `json:"phase"`
	Forced        bool      `json:"forced,omitempty"`
	At            time.Time `json:"at"`
}

// Ledger tracks the fixed rotation, whose turn it is and the append-only
// history of accepted actions.
type Ledger struct {
	Rotation     []string  `json:"rotation"`
	TurnIndex    int       `json:"turn_index"`
	TurnDeadline time.Time `json:"turn_deadline"`
	History      []Entry   `json:"history"`
}

func NewLedger(rotation []string) *Ledger {
	return &Ledger{
		Rotation: slices.Clone(rotation),
		History:  []Entry{},
	}
}

func (l *Ledger) CurrentParticipant() (string, bool) {
	if l == nil || len(l.Rotation) == 0 {
		return "", false
	}
	return l.Rotation[l.TurnIndex], true
}

// RecordAction appends to history and is the only place an entry gets its
// timestamp. at is the coordinator's clock reading carried on the command;
// Apply itself never reads a clock. Legality is the caller's problem.
func (l *Ledger) RecordAction(participantID string, action Action, itemID string, phase Phase, forced bool, at time.Time) {
	l.History = append(l.History, Entry{
		ParticipantID: participantID,
		Action:        action,
		ItemID:        itemID,
		Phase:         phase,
		Forced:        forced,
		At:            at,
	})
}

func (l *Ledger) AdvanceTurn(now time.Time, limit time.Duration) {
	l.TurnIndex = (l.TurnIndex + 1) % len(l.Rotation)
	l.ResetDeadline(now, limit)
}

func (l *Ledger) ResetDeadline(now time.Time, limit time.Duration) {
	l.TurnDeadline = now.Add(limit)
}

func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	return &Ledger{
		Rotation:     slices.Clone(l.Rotation),
		TurnIndex:    l.TurnIndex,
		TurnDeadline: l.TurnDeadline,
		History:      slices.Clone(l.History),
	}
}
