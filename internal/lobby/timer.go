package lobby

import (
	"time"

	"github.com/DoyleJ11/banpick-backend/internal/engine"
)

// armTimer schedules a forced turn at the current deadline. Every call bumps
// the generation, so fires from earlier turns are ignored by the loop.
func (l *Lobby) armTimer() {
	l.stopTimer()
	l.timerGen++

	s := l.state
	if s.Status != engine.StatusActive || !s.Rules.EnforceTimer || s.Ledger == nil {
		return
	}

	d := s.Ledger.TurnDeadline.Sub(l.cfg.Clock.Now())
	if d < 0 {
		d = 0
	}
	l.schedule(l.timerGen, d)
}

// retryForcedTurn re-runs a forced turn that could not be saved once
// RetryDelay has passed.
func (l *Lobby) retryForcedTurn() {
	l.stopTimer()
	l.timerGen++
	l.schedule(l.timerGen, l.cfg.RetryDelay)
}

func (l *Lobby) schedule(gen int, d time.Duration) {
	l.timer = time.AfterFunc(d, func() {
		select {
		case l.inbox <- TimerFired{Gen: gen}:
		case <-l.ctx.Done():
		}
	})
}

func (l *Lobby) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
