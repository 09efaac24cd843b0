// README: Background sweep that auto-assigns drivers to pending quotes.
package dispatch

import (
	"context"
	"errors"
	"log"
	"time"

	"charter/internal/config"
)

// RunPendingQuoteSweep processes pending quotes one at a time with a fixed
// small delay between items so downstream services are not flooded. A failure
// on one quote is logged and the sweep moves on; there is no retry queue and
// no rollback of partial side effects.
func (s *Service) RunPendingQuoteSweep(ctx context.Context, cfg config.SweepConfig) {
	tick := time.Duration(cfg.TickSeconds) * time.Second
	delay := time.Duration(cfg.ItemDelayMillis) * time.Millisecond

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx, delay)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context, delay time.Duration) {
	pending, err := s.quotes.ListPendingAssignment(ctx)
	if err != nil {
		log.Printf("sweep: list pending quotes: %v", err)
		return
	}
	for _, q := range pending {
		driverID, err := s.AutoAssign(ctx, q)
		switch {
		case errors.Is(err, ErrNoDriver):
			log.Printf("sweep: quote %s: no assignable driver", q.ID)
		case err != nil:
			log.Printf("sweep: quote %s: %v", q.ID, err)
		default:
			log.Printf("sweep: quote %s assigned driver %s", q.ID, driverID)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
