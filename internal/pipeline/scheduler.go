package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Scheduler fires the pipeline once per day at a fixed local wall-clock
// time, processing the previous calendar day for every facility.
type Scheduler struct {
	pipeline   *Pipeline
	facilities []string
	at         string // "HH:MM"
	logger     *slog.Logger

	// now is swapped in tests.
	now func() time.Time
}

// NewScheduler creates a daily scheduler. at must be "HH:MM".
func NewScheduler(p *Pipeline, facilities []string, at string, logger *slog.Logger) (*Scheduler, error) {
	if _, err := time.Parse("15:04", at); err != nil {
		return nil, fmt.Errorf("schedule time %q is not HH:MM", at)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pipeline:   p,
		facilities: facilities,
		at:         at,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// nextTrigger returns the next occurrence of the trigger time strictly
// after now.
func nextTrigger(now time.Time, at string) time.Time {
	hhmm, _ := time.Parse("15:04", at)
	next := time.Date(now.Year(), now.Month(), now.Day(),
		hhmm.Hour(), hhmm.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until the context is cancelled, firing the pipeline for
// yesterday's date at every trigger. A failed run is logged and the loop
// keeps going; the next trigger retries nothing, it processes its own day.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		next := nextTrigger(now, s.at)
		s.logger.Info("next batch trigger scheduled",
			"at", next.Format(time.RFC3339), "facilities", len(s.facilities))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case fired := <-timer.C:
			day := fired.AddDate(0, 0, -1)
			day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
			if err := s.pipeline.RunFacilities(ctx, s.facilities, day); err != nil {
				s.logger.Error("scheduled batch failed",
					"date", day.Format("2006-01-02"), "error", err)
			}
		}
	}
}
