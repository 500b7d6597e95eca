package usecase

import (
	"context"
	"log/slog"
	"time"

	"RelatedPosts/internal/ports"
)

// Scheduler wires the cron-like driver with the cache warmer.
type Scheduler struct {
	driver ports.Scheduler
	warmer *Warmer
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring warm-ups.
func NewScheduler(driver ports.Scheduler, warmer *Warmer, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, warmer: warmer, logger: log}
}

// Start registers the warmer with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.warmer == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.warmer.Warm(ctx); err != nil && s.logger != nil {
			s.logger.Error("scheduled warm-up failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
