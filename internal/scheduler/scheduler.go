// Package scheduler runs the pipeline once a day at a configured wall-clock
// time.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Scheduler struct {
	parseAt string // "HH:MM"
	run     func(ctx context.Context) error

	// runMu guarantees one cycle at a time even if a run overlaps the next
	// tick.
	runMu sync.Mutex
}

func New(parseAt string, run func(ctx context.Context) error) *Scheduler {
	return &Scheduler{parseAt: parseAt, run: run}
}

// Start blocks until ctx is cancelled. When immediately is set, one cycle
// runs before the first scheduled tick.
func (s *Scheduler) Start(ctx context.Context, immediately bool) {
	if immediately {
		s.runOnce(ctx)
	}

	for {
		next := nextRunAfter(time.Now(), s.parseAt)
		slog.Info("next cycle scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("scheduler stopped")
			return
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.runMu.TryLock() {
		slog.Warn("previous cycle still running, skipping tick")
		return
	}
	defer s.runMu.Unlock()

	if err := s.run(ctx); err != nil {
		slog.Error("cycle failed", "error", err)
	}
}

// nextRunAfter returns the next occurrence of the HH:MM wall-clock time
// strictly after now, in now's location. parseAt is validated at config
// load, so a parse failure here falls back to one hour ahead.
func nextRunAfter(now time.Time, parseAt string) time.Time {
	at, err := time.Parse("15:04", parseAt)
	if err != nil {
		return now.Add(time.Hour)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
