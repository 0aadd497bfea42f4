package session

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically expires stale claims. It is the only time-driven
// source of state change: no request needs to arrive for a stuck claim
// to clear.
type Sweeper struct {
	coordinator *Coordinator
	clock       clockwork.Clock
}

// NewSweeper creates a sweeper over the coordinator. It shares the
// coordinator's clock so fake-clock tests drive both together.
func NewSweeper(coordinator *Coordinator, clock clockwork.Clock) *Sweeper {
	return &Sweeper{
		coordinator: coordinator,
		clock:       clock,
	}
}

// Run sweeps at the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.coordinator.Config().SweepInterval
	log.Info().Dur("interval", interval).Msg("expiry sweeper started")

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiry sweeper shutting down")
			return nil
		case <-ticker.Chan():
			s.coordinator.ExpireIfStale(ctx, s.clock.Now())
		}
	}
}
