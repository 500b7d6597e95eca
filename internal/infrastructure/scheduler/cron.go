package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"RelatedPosts/internal/ports"
)

// CronScheduler runs a job on a standard five-field cron expression.
type CronScheduler struct {
	spec     string
	location *time.Location

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler for spec evaluated in loc (UTC when nil).
func NewCronScheduler(spec string, loc *time.Location) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &CronScheduler{spec: spec, location: loc}
}

// Start registers job and begins ticking; a second Start is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.location))
	if _, err := runner.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}

	runner.Start()
	c.cron = runner
	return nil
}

// Stop halts the scheduler and waits for a running job or ctx, whichever ends first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports when the expression fires after t.
func (c *CronScheduler) Next(t time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", c.spec, err)
	}
	return schedule.Next(t.In(c.location)), nil
}
