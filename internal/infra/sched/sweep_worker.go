package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// SweepWorker periodically retires expired short-term codes via the use case.
// The pass is idempotent and safe to run alongside live redemptions: the
// retirement conditions are re-checked inside the store.
type SweepWorker struct {
	interval time.Duration
	codes    sweeper
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, codes sweeper, logger *zerolog.Logger) *SweepWorker {
	swLog := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		codes:    codes,
		log:      &swLog,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.codes.SweepExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("sweep worker error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired codes retired")
			}
		}
	}
}
