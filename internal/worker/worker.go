// Package worker runs the periodic background jobs: expiring unpaid
// reservations and relaying outbox events to the broker.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one pass of a periodic worker.
type Job interface {
	RunOnce(ctx context.Context) error
}

// Run calls job every interval until ctx is cancelled. Each pass gets its own
// timeout so a stuck database call cannot stall the loop.
func Run(ctx context.Context, name string, interval, timeout time.Duration, job Job, logger zerolog.Logger) {
	log := logger.With().Str("worker", name).Logger()
	if interval <= 0 {
		log.Info().Msg("worker disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("worker started")
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			err := job.RunOnce(runCtx)
			cancel()
			if err != nil {
				log.Error().Err(err).Msg("worker pass failed")
			}
		case <-ctx.Done():
			log.Info().Msg("worker stopped")
			return
		}
	}
}
