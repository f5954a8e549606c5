package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/model"
)

// SessionTicker is the part of the session service the countdown needs.
type SessionTicker interface {
	TickAll(ctx context.Context, elapsedSeconds int) ([]model.Session, error)
}

// CountdownWorker counts every open session down on a fixed interval.
type CountdownWorker struct {
	sessions SessionTicker
	interval time.Duration
	log      zerolog.Logger
}

func NewCountdownWorker(sessions SessionTicker, interval time.Duration, log zerolog.Logger) *CountdownWorker {
	if interval < time.Second {
		interval = time.Second
	}
	return &CountdownWorker{
		sessions: sessions,
		interval: interval,
		log:      log.With().Str("component", "countdown_worker").Logger(),
	}
}

func (w *CountdownWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("CountdownWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CountdownWorker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *CountdownWorker) tick(ctx context.Context) {
	ended, err := w.sessions.TickAll(ctx, int(w.interval/time.Second))
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Countdown tick failed")
		}
		return
	}
	if len(ended) > 0 {
		w.log.Debug().Int("ended", len(ended)).Msg("Countdown ended sessions")
	}
}
