package scheduler

import (
	"context"
	"time"

	"github.com/DoyleJ11/tier-auction/internal/lobby"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Scheduler is the only source of time-driven mutation. It never touches
// auction state itself: it feeds a Tick into the lobby inbox every interval
// and the lobby compares the clock against the phase deadline.
type Scheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	inbox    chan<- lobby.Msg
	log      *zap.Logger
}

func New(clock clockwork.Clock, interval time.Duration, inbox chan<- lobby.Msg, logger *zap.Logger) *Scheduler {
	return &Scheduler{clock: clock, interval: interval, inbox: inbox, log: logger}
}

// Run ticks until ctx is cancelled. Ticks that fire while the lobby is busy
// are coalesced by the ticker.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.Chan():
			select {
			case s.inbox <- lobby.Tick{}:
			case <-ctx.Done():
				s.log.Info("scheduler stopped")
				return nil
			}
		}
	}
}
