package recurrence

import (
	"context"
	"log/slog"
	"time"

	"github.com/itsthekvd/kushlapp-engine/pkg/panicerr"
)

// Sweeper runs Sweep on a fixed interval. It stops cleanly when its context
// is cancelled; an in-flight sweep iteration finishes before the loop exits.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("recurrence sweeper started", "interval", s.interval)
	sweep := panicerr.SafeContext(func(ctx context.Context) error {
		return s.service.Sweep(ctx, time.Now())
	})

	for {
		select {
		case <-ctx.Done():
			slog.Info("recurrence sweeper stopped")
			return nil
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				slog.Error("recurrence sweep failed", "error", err)
			}
		}
	}
}
