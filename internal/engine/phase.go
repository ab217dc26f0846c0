package engine

import (
	"fmt"
	"time"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseDraftBan  Phase = "draft-ban"
	PhaseDraftPick Phase = "draft-pick"
	PhaseGroupBan  Phase = "group-ban"
	PhaseGroupPick Phase = "group-pick"
	PhaseCompleted Phase = "completed"
)

// PhaseOrder is the only legal sequence. No skipping, no re-entry.
var PhaseOrder = []Phase{
	PhaseWaiting,
	PhaseDraftBan,
	PhaseDraftPick,
	PhaseGroupBan,
	PhaseGroupPick,
	PhaseCompleted,
}

// DraftPhases are the four quota-bearing phases, in order.
var DraftPhases = PhaseOrder[1:5]

func (p Phase) index() int {
	for i, ph := range PhaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}

// Next returns the phase after p. Completed (and anything unknown) maps to
// Completed.
func (p Phase) Next() Phase {
	i := p.index()
	if i < 0 || i >= len(PhaseOrder)-1 {
		return PhaseCompleted
	}
	return PhaseOrder[i+1]
}

// Before reports whether p comes strictly earlier than other.
func (p Phase) Before(other Phase) bool {
	return p.index() < other.index()
}

// Action is the action a phase accepts, or "" for waiting/completed.
func (p Phase) Action() Action {
	switch p {
	case PhaseDraftBan, PhaseGroupBan:
		return ActionBan
	case PhaseDraftPick, PhaseGroupPick:
		return ActionPick
	default:
		return ""
	}
}

func (p Phase) Allows(a Action) bool {
	return a != "" && p.Action() == a
}

// IsGroup reports whether p uses the group turn limit.
func (p Phase) IsGroup() bool {
	return p == PhaseGroupBan || p == PhaseGroupPick
}

type Rules struct {
	Capacity       int           `json:"capacity"`
	DraftBanQuota  int           `json:"draft_ban_quota"`
	DraftPickQuota int           `json:"draft_pick_quota"`
	GroupBanQuota  int           `json:"group_ban_quota"`
	GroupPickQuota int           `json:"group_pick_quota"`
	DraftTurnLimit time.Duration `json:"draft_turn_limit"`
	GroupTurnLimit time.Duration `json:"group_turn_limit"`
	EnforceTimer   bool          `json:"enforce_timer"`
}

func (r Rules) Quota(p Phase) int {
	switch p {
	case PhaseDraftBan:
		return r.DraftBanQuota
	case PhaseDraftPick:
		return r.DraftPickQuota
	case PhaseGroupBan:
		return r.GroupBanQuota
	case PhaseGroupPick:
		return r.GroupPickQuota
	default:
		return 0
	}
}

func (r Rules) TotalQuota() int {
	return r.DraftBanQuota + r.DraftPickQuota + r.GroupBanQuota + r.GroupPickQuota
}

func (r Rules) TurnLimit(p Phase) time.Duration {
	if p.IsGroup() {
		return r.GroupTurnLimit
	}
	return r.DraftTurnLimit
}

// Step is the outcome of one accepted action: either the phase advances
// (and the turn stays put) or the turn rotates within the same phase.
type Step struct {
	Phase    Phase
	Advanced bool
}

// NextStep is the single transition function for the phase machine. done is
// the number of actions recorded in phase, including the one just accepted.
// A call advances at most one phase.
func NextStep(r Rules, phase Phase, done int) Step {
	quota := r.Quota(phase)
	if quota > 0 && done >= quota {
		return Step{Phase: phase.Next(), Advanced: true}
	}
	return Step{Phase: phase}
}

const MaxCapacity = 8

func (r Rules) Validate() error {
	if r.Capacity < 2 || r.Capacity > MaxCapacity {
		return fmt.Errorf("capacity %d outside 2-%d", r.Capacity, MaxCapacity)
	}
	for _, p := range DraftPhases {
		if r.Quota(p) < 1 {
			return fmt.Errorf("%s quota must be at least 1", p)
		}
	}
	if r.DraftTurnLimit <= 0 || r.GroupTurnLimit <= 0 {
		return fmt.Errorf("turn limits must be positive")
	}
	return nil
}
