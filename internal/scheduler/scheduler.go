// Package scheduler runs the feed refresh on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/logger"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. Its context is canceled when the run exceeds
// the scheduler timeout or the scheduler stops.
type Job func(ctx context.Context)

// Scheduler triggers a Job on a schedule. A run that is still going when the
// next one is due causes that next run to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses a standard five-field cron spec (or a descriptor such as
// @weekly) evaluated in loc.
func New(spec string, loc *time.Location, timeout time.Duration, job Job) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	return NewWithSchedule(schedule, loc, timeout, job), nil
}

// NewWithSchedule creates a Scheduler from an already built schedule.
func NewWithSchedule(schedule cron.Schedule, loc *time.Location, timeout time.Duration, job Job) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}

	cronLog := logger.NewCronLogger(nil)
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		timeout: timeout,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.entry = s.cron.Schedule(schedule, cron.FuncJob(func() {
		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		logger.Info("Scheduled refresh starting", nil)
		job(ctx)
	}))

	return s
}

// Start begins triggering the job in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started", logger.Fields{"next_run": s.Next().Format(time.RFC3339)})
}

// Stop halts the schedule, cancels a running job and waits for it to return
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled job: %w", ctx.Err())
	}
}

// Next returns the time of the next run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}
