package engine

import (
	"math/rand/v2"
	"slices"
	"time"
)

func DefaultRules() Rules {
	return Rules{
		Capacity:       2,
		DraftBanQuota:  4,
		DraftPickQuota: 4,
		GroupBanQuota:  4,
		GroupPickQuota: 4,
		DraftTurnLimit: 20 * time.Second,
		GroupTurnLimit: 20 * time.Second,
		EnforceTimer:   true,
	}
}

func NewSession(id string, rules Rules) Session {
	return Session{
		ID:           id,
		Rules:        rules,
		Participants: []Participant{},
		Status:       StatusWaiting,
		Phase:        PhaseWaiting,
	}
}

func (s Session) Clone() Session {
	c := s
	c.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		p.Banned = slices.Clone(p.Banned)
		p.Picked = slices.Clone(p.Picked)
		c.Participants[i] = p
	}
	c.Pool = s.Pool.Clone()
	c.Ledger = s.Ledger.Clone()
	return c
}

func (s Session) HasParticipant(id string) bool {
	return s.participantIndex(id) >= 0
}

func (s Session) Participant(id string) (Participant, bool) {
	i := s.participantIndex(id)
	if i < 0 {
		return Participant{}, false
	}
	return s.Participants[i], true
}

func (s Session) participantIndex(id string) int {
	return slices.IndexFunc(s.Participants, func(p Participant) bool { return p.ID == id })
}

// CurrentParticipant is empty unless the session is active.
func (s Session) CurrentParticipant() string {
	if s.Status != StatusActive {
		return ""
	}
	id, _ := s.Ledger.CurrentParticipant()
	return id
}

func (s *Session) resetDraft() {
	s.Status = StatusWaiting
	s.Phase = PhaseWaiting
	s.Pool = nil
	s.Ledger = nil
	for i := range s.Participants {
		s.Participants[i].Ready = false
		s.Participants[i].Banned = []string{}
		s.Participants[i].Picked = []string{}
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// chooseRandomAvailable picks the item forced on a participant whose turn
// expired. Tests swap it for a deterministic choice.
var chooseRandomAvailable = func(p *Pool) (string, bool) {
	if p == nil || len(p.Available) == 0 {
		return "", false
	}
	return p.Available[rand.IntN(len(p.Available))], true
}
