package ingest

import (
	"context"
	"log/slog"
	"time"
)

// SweepFunc fails documents stuck in processing longer than olderThan and
// reports how many it moved. Service.SweepAbandoned satisfies it.
type SweepFunc func(ctx context.Context, olderThan time.Duration) (int64, error)

// Sweeper periodically fails abandoned ingestion attempts. A document stuck
// in processing past the window had its worker die mid-attempt; moving it
// to error lets the owner re-trigger analysis.
type Sweeper struct {
	sweep    SweepFunc
	interval time.Duration
	window   time.Duration
}

func NewSweeper(sweep SweepFunc, interval, window time.Duration) *Sweeper {
	return &Sweeper{sweep: sweep, interval: interval, window: window}
}

// Run sweeps on every tick until ctx is cancelled. A failed sweep is
// logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sweep(ctx, s.window)
			if err != nil {
				slog.Error("sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Warn("swept abandoned documents", "count", n)
			}
		}
	}
}
