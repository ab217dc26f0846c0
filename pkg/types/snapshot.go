package types

import (
	"time"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

// Snapshot is the full session state as clients render it.
type Snapshot struct {
	RoomID             string          `json:"room_id"`
	Version            int             `json:"version"`
	Status             string          `json:"status"`
	Phase              string          `json:"phase"`
	Rules              Rules           `json:"rules"`
	Participants       []Participant   `json:"participants"`
	Rotation           []string        `json:"rotation,omitempty"`
	CurrentParticipant string          `json:"current_participant,omitempty"`
	TurnDeadline       *time.Time      `json:"turn_deadline,omitempty"`
	RemainingMs        int64           `json:"remaining_ms"`
	Progress           []PhaseProgress `json:"progress,omitempty"`
	Available          []Item          `json:"available"`
	Banned             []Item          `json:"banned"`
	Picked             []Item          `json:"picked"`
	History            []HistoryEntry  `json:"history"`
}

type Rules struct {
	Capacity          int  `json:"capacity"`
	DraftBanQuota     int  `json:"draft_ban_quota"`
	DraftPickQuota    int  `json:"draft_pick_quota"`
	GroupBanQuota     int  `json:"group_ban_quota"`
	GroupPickQuota    int  `json:"group_pick_quota"`
	DraftTurnLimitSec int  `json:"draft_turn_limit_sec"`
	GroupTurnLimitSec int  `json:"group_turn_limit_sec"`
	EnforceTimer      bool `json:"enforce_timer"`
}

type Participant struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Ready       bool     `json:"ready"`
	Banned      []string `json:"banned"`
	Picked      []string `json:"picked"`
}

type PhaseProgress struct {
	Phase  string `json:"phase"`
	Action string `json:"action"`
	Count  int    `json:"count"`
	Quota  int    `json:"quota"`
}

type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Tier     int      `json:"tier"`
	Category string   `json:"category"`
	Tags     []string `json:"tags,omitempty"`
}

type HistoryEntry struct {
	ParticipantID string    `json:"participant_id"`
	Action        string    `json:"action"`
	ItemID        string    `json:"item_id"`
	Phase         string    `json:"phase"`
	Forced        bool      `json:"forced,omitempty"`
	At            time.Time `json:"at"`
}

// NewSnapshot renders s at version as seen at now.
func NewSnapshot(s engine.Session, version int, now time.Time) Snapshot {
	snap := Snapshot{
		RoomID:    s.ID,
		Version:   version,
		Status:    string(s.Status),
		Phase:     string(s.Phase),
		Rules:     newRules(s.Rules),
		Available: []Item{},
		Banned:    []Item{},
		Picked:    []Item{},
		History:   []HistoryEntry{},
	}

	snap.Participants = make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		snap.Participants = append(snap.Participants, Participant{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Ready:       p.Ready,
			Banned:      append([]string{}, p.Banned...),
			Picked:      append([]string{}, p.Picked...),
		})
	}

	if s.Pool != nil {
		snap.Available = items(s.Pool, s.Pool.Available)
		snap.Banned = items(s.Pool, s.Pool.Banned)
		snap.Picked = items(s.Pool, s.Pool.Picked)
		for _, ph := range engine.DraftPhases {
			snap.Progress = append(snap.Progress, PhaseProgress{
				Phase:  string(ph),
				Action: string(ph.Action()),
				Count:  s.Pool.Count(ph),
				Quota:  s.Rules.Quota(ph),
			})
		}
	}

	if s.Ledger != nil {
		snap.Rotation = append([]string{}, s.Ledger.Rotation...)
		snap.CurrentParticipant = s.CurrentParticipant()
		if !s.Ledger.TurnDeadline.IsZero() {
			d := s.Ledger.TurnDeadline
			snap.TurnDeadline = &d
			snap.RemainingMs = max(d.Sub(now).Milliseconds(), 0)
		}
		for _, e := range s.Ledger.History {
			snap.History = append(snap.History, HistoryEntry{
				ParticipantID: e.ParticipantID,
				Action:        string(e.Action),
				ItemID:        e.ItemID,
				Phase:         string(e.Phase),
				Forced:        e.Forced,
				At:            e.At,
			})
		}
	}
	return snap
}

func newRules(r engine.Rules) Rules {
	return Rules{
		Capacity:          r.Capacity,
		DraftBanQuota:     r.DraftBanQuota,
		DraftPickQuota:    r.DraftPickQuota,
		GroupBanQuota:     r.GroupBanQuota,
		GroupPickQuota:    r.GroupPickQuota,
		DraftTurnLimitSec: int(r.DraftTurnLimit / time.Second),
		GroupTurnLimitSec: int(r.GroupTurnLimit / time.Second),
		EnforceTimer:      r.EnforceTimer,
	}
}

func items(p *engine.Pool, ids []string) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		it, ok := p.Item(id)
		if !ok {
			continue
		}
		out = append(out, Item{
			ID:       it.ID,
			Name:     it.Name,
			Tier:     it.Tier,
			Category: string(it.Category),
			Tags:     it.Tags,
		})
	}
	return out
}
