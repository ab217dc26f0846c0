package engine

import (
	"errors"
	"slices"
	"time"
)

var ErrNotAuthorized = errors.New("not a participant of this session")
var ErrSessionNotActive = errors.New("session is not active")
var ErrAlreadyStarted = errors.New("session already started")
var ErrInsufficientParticipants = errors.New("not enough participants to start")
var ErrNotReady = errors.New("not every participant is ready")
var ErrNotYourTurn = errors.New("not your turn")
var ErrWrongActionForPhase = errors.New("action not allowed in current phase")
var ErrItemNotAvailable = errors.New("item not available")
var ErrSessionFull = errors.New("session is full")
var ErrAlreadyJoined = errors.New("already a participant")
var ErrCatalogTooSmall = errors.New("catalog smaller than total quota")
var ErrTurnNotExpired = errors.New("turn has not expired")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

type Participant struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	Ready       bool     `json:"ready"`
	Banned      []string `json:"banned"`
	Picked      []string `json:"picked"`
}

// Session is the aggregate root for one room. Pool and Ledger are nil until
// the draft starts.
type Session struct {
	ID           string        `json:"id"`
	Rules        Rules         `json:"rules"`
	Participants []Participant `json:"participants"`
	Status       Status        `json:"status"`
	Phase        Phase         `json:"phase"`
	Pool         *Pool         `json:"pool,omitempty"`
	Ledger       *Ledger       `json:"ledger,omitempty"`
}

type CommandType string

const (
	CmdJoin     CommandType = "Join"
	CmdLeave    CommandType = "Leave"
	CmdSetReady CommandType = "SetReady"
	CmdStart    CommandType = "Start"
	CmdBan      CommandType = "Ban"
	CmdPick     CommandType = "Pick"
	CmdTimeout  CommandType = "Timeout"
)

/*
	CmdJoin     -> EvtParticipantJoined
	CmdLeave    -> EvtParticipantLeft -> EvtDraftReset (if active) | EvtSessionClosed (if empty)
	CmdSetReady -> EvtReadyChanged
	CmdStart    -> EvtDraftStarted -> EvtTurnChanged
	CmdBan      -> EvtItemBanned -> EvtTurnChanged | EvtPhaseChanged (-> EvtDraftCompleted)
	CmdPick     -> EvtItemPicked -> EvtTurnChanged | EvtPhaseChanged (-> EvtDraftCompleted)
	CmdTimeout  -> EvtTimerExpired -> same tail as Ban/Pick with a random item
*/

// Command is an intent against one session. At is stamped by the caller;
// Catalog is only read by CmdStart.
type Command struct {
	Type          CommandType
	ParticipantID string
	DisplayName   string
	ItemID        string
	Ready         bool
	At            time.Time
	Catalog       []Item
}

type EventType string

const (
	EvtParticipantJoined EventType = "ParticipantJoined"
	EvtParticipantLeft   EventType = "ParticipantLeft"
	EvtReadyChanged      EventType = "ReadyChanged"
	EvtDraftStarted      EventType = "DraftStarted"
	EvtItemBanned        EventType = "ItemBanned"
	EvtItemPicked        EventType = "ItemPicked"
	EvtTurnChanged       EventType = "TurnChanged"
	EvtPhaseChanged      EventType = "PhaseChanged"
	EvtTimerExpired      EventType = "TimerExpired"
	EvtDraftCompleted    EventType = "DraftCompleted"
	EvtDraftReset        EventType = "DraftReset"
	EvtSessionClosed     EventType = "SessionClosed"
)

type Event struct {
	Type          EventType
	ParticipantID string
	ItemID        string
	Phase         Phase
	Ready         bool
	Forced        bool
	Deadline      time.Time
}

// Apply validates cmd against s and returns the emitted events and the next
// state. s is never modified; on error the returned state is s itself.
func Apply(s Session, cmd Command) ([]Event, Session, error) {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(s, cmd)
	case CmdLeave:
		return applyLeave(s, cmd)
	case CmdSetReady:
		return applySetReady(s, cmd)
	case CmdStart:
		return applyStart(s, cmd)
	case CmdBan:
		return applyAct(s, cmd, ActionBan)
	case CmdPick:
		return applyAct(s, cmd, ActionPick)
	case CmdTimeout:
		return applyTimeout(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyJoin(s Session, cmd Command) ([]Event, Session, error) {
	if s.HasParticipant(cmd.ParticipantID) {
		return nil, s, ErrAlreadyJoined
	}
	if s.Status != StatusWaiting {
		return nil, s, ErrAlreadyStarted
	}
	if len(s.Participants) >= s.Rules.Capacity {
		return nil, s, ErrSessionFull
	}

	next := s.Clone()
	next.Participants = append(next.Participants, Participant{
		ID:          cmd.ParticipantID,
		DisplayName: cmd.DisplayName,
		Banned:      []string{},
		Picked:      []string{},
	})
	return []Event{{Type: EvtParticipantJoined, ParticipantID: cmd.ParticipantID}}, next, nil
}

func applyLeave(s Session, cmd Command) ([]Event, Session, error) {
	idx := s.participantIndex(cmd.ParticipantID)
	if idx < 0 {
		return nil, s, ErrNotAuthorized
	}

	next := s.Clone()
	next.Participants = slices.Delete(next.Participants, idx, idx+1)
	events := []Event{{Type: EvtParticipantLeft, ParticipantID: cmd.ParticipantID}}

	// An abandoned draft cannot be resumed: the rotation it was built on is gone.
	if next.Status == StatusActive {
		next.resetDraft()
		events = append(events, Event{Type: EvtDraftReset, Phase: PhaseWaiting})
	}

	if len(next.Participants) == 0 {
		events = append(events, Event{Type: EvtSessionClosed})
	}
	return events, next, nil
}

func applySetReady(s Session, cmd Command) ([]Event, Session, error) {
	idx := s.participantIndex(cmd.ParticipantID)
	if idx < 0 {
		return nil, s, ErrNotAuthorized
	}
	if s.Status != StatusWaiting || s.Participants[idx].Ready == cmd.Ready {
		return nil, s, nil
	}

	next := s.Clone()
	next.Participants[idx].Ready = cmd.Ready
	return []Event{{Type: EvtReadyChanged, ParticipantID: cmd.ParticipantID, Ready: cmd.Ready}}, next, nil
}

func applyStart(s Session, cmd Command) ([]Event, Session, error) {
	if !s.HasParticipant(cmd.ParticipantID) {
		return nil, s, ErrNotAuthorized
	}
	if s.Status != StatusWaiting {
		return nil, s, ErrAlreadyStarted
	}
	if len(s.Participants) < s.Rules.Capacity {
		return nil, s, ErrInsufficientParticipants
	}
	for _, p := range s.Participants {
		if !p.Ready {
			return nil, s, ErrNotReady
		}
	}
	if len(cmd.Catalog) < s.Rules.TotalQuota() {
		return nil, s, ErrCatalogTooSmall
	}

	next := s.Clone()
	rotation := make([]string, 0, len(next.Participants))
	for _, p := range next.Participants {
		rotation = append(rotation, p.ID)
	}

	next.Pool = NewPool(cmd.Catalog)
	next.Phase = PhaseWaiting.Next()
	next.Ledger = NewLedger(rotation)
	next.Ledger.ResetDeadline(cmd.At, next.Rules.TurnLimit(next.Phase))
	next.Status = StatusActive

	current, _ := next.Ledger.CurrentParticipant()
	events := []Event{
		{Type: EvtDraftStarted, Phase: next.Phase},
		{Type: EvtTurnChanged, ParticipantID: current, Phase: next.Phase, Deadline: next.Ledger.TurnDeadline},
	}
	return events, next, nil
}

func applyAct(s Session, cmd Command, action Action) ([]Event, Session, error) {
	if !s.HasParticipant(cmd.ParticipantID) {
		return nil, s, ErrNotAuthorized
	}
	if s.Status != StatusActive {
		return nil, s, ErrSessionNotActive
	}
	// Availability is checked first so a repeated ban/pick of the same item
	// always reports ItemNotAvailable, whoever sends it.
	if !s.Pool.IsAvailable(cmd.ItemID) {
		return nil, s, ErrItemNotAvailable
	}
	if current, _ := s.Ledger.CurrentParticipant(); current != cmd.ParticipantID {
		return nil, s, ErrNotYourTurn
	}
	if !s.Phase.Allows(action) {
		return nil, s, ErrWrongActionForPhase
	}

	next := s.Clone()
	events, err := next.commit(cmd.ParticipantID, action, cmd.ItemID, false, cmd.At)
	if err != nil {
		return nil, s, err
	}
	return events, next, nil
}

func applyTimeout(s Session, cmd Command) ([]Event, Session, error) {
	if s.Status != StatusActive {
		return nil, s, ErrSessionNotActive
	}
	if cmd.At.Before(s.Ledger.TurnDeadline) {
		return nil, s, ErrTurnNotExpired
	}

	action := s.Phase.Action()
	itemID, ok := chooseRandomAvailable(s.Pool)
	if !ok {
		return nil, s, ErrItemNotAvailable
	}
	current, _ := s.Ledger.CurrentParticipant()

	next := s.Clone()
	events, err := next.commit(current, action, itemID, true, cmd.At)
	if err != nil {
		return nil, s, err
	}
	events = append([]Event{{Type: EvtTimerExpired, ParticipantID: current, Phase: s.Phase}}, events...)
	return events, next, nil
}

// commit applies an already validated ban/pick to s in place. It is the one
// path every accepted action goes through, forced or not.
func (s *Session) commit(participantID string, action Action, itemID string, forced bool, at time.Time) ([]Event, error) {
	var evtType EventType
	switch action {
	case ActionBan:
		if err := s.Pool.Ban(itemID, s.Phase); err != nil {
			return nil, err
		}
		evtType = EvtItemBanned
	case ActionPick:
		if err := s.Pool.Pick(itemID, s.Phase); err != nil {
			return nil, err
		}
		evtType = EvtItemPicked
	default:
		return nil, ErrWrongActionForPhase
	}

	s.Ledger.RecordAction(participantID, action, itemID, s.Phase, forced, at)
	p := &s.Participants[s.participantIndex(participantID)]
	if action == ActionBan {
		p.Banned = append(p.Banned, itemID)
	} else {
		p.Picked = append(p.Picked, itemID)
	}

	events := []Event{{Type: evtType, ParticipantID: participantID, ItemID: itemID, Phase: s.Phase, Forced: forced}}

	step := NextStep(s.Rules, s.Phase, s.Pool.Count(s.Phase))
	if step.Advanced {
		s.Phase = step.Phase
		events = append(events, Event{Type: EvtPhaseChanged, Phase: s.Phase})
		if step.Phase == PhaseCompleted {
			s.Status = StatusCompleted
			s.Ledger.TurnDeadline = time.Time{}
			return append(events, Event{Type: EvtDraftCompleted, Phase: s.Phase}), nil
		}
		// The participant who closed the phase also opens the next one.
		s.Ledger.ResetDeadline(at, s.Rules.TurnLimit(s.Phase))
	} else {
		s.Ledger.AdvanceTurn(at, s.Rules.TurnLimit(s.Phase))
	}

	current, _ := s.Ledger.CurrentParticipant()
	events = append(events, Event{Type: EvtTurnChanged, ParticipantID: current, Phase: s.Phase, Deadline: s.Ledger.TurnDeadline})
	return events, nil
}
