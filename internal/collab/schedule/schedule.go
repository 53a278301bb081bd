// Package schedule triggers periodic re-optimization runs: a recurring GEPA
// run against the same tool inventory, so description quality keeps pace
// with drifting query patterns without a human re-triggering it by hand.
// Grounded on the teacher's internal/tasks.Scheduler config-with-defaults
// shape and internal/cron's use of robfig/cron/v3 for expression parsing.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts both the standard 5-field form and an optional leading
// seconds field, matching what operators typically paste from crontab.guru.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// RunFunc performs one re-optimization run. Errors are logged, never fatal
// to the schedule: a single bad run should not stop future ones.
type RunFunc func(ctx context.Context) error

// Config configures a recurring trigger.
type Config struct {
	// CronExpr is a standard or seconds-optional cron expression, e.g.
	// "0 0 * * *" for daily at midnight.
	CronExpr string

	// Logger receives start/error/complete notices. Defaults to slog.Default().
	Logger *slog.Logger
}

// Trigger runs a RunFunc on a cron schedule until its context is cancelled.
type Trigger struct {
	schedule cron.Schedule
	run      RunFunc
	logger   *slog.Logger
}

// New validates cfg.CronExpr and binds it to run.
func New(cfg Config, run RunFunc) (*Trigger, error) {
	if strings.TrimSpace(cfg.CronExpr) == "" {
		return nil, fmt.Errorf("schedule: cron expression is required")
	}
	sched, err := cronParser.Parse(cfg.CronExpr)
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid cron expression %q: %w", cfg.CronExpr, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if run == nil {
		return nil, fmt.Errorf("schedule: run function is required")
	}
	return &Trigger{schedule: sched, run: run, logger: logger}, nil
}

// Run blocks, firing t.run at every scheduled time until ctx is done.
func (t *Trigger) Run(ctx context.Context) {
	now := time.Now()
	next := t.schedule.Next(now)

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fireTime := <-timer.C:
			t.fire(ctx)
			next = t.schedule.Next(fireTime)
		}
	}
}

func (t *Trigger) fire(ctx context.Context) {
	t.logger.Info("schedule: triggering re-optimization run")
	if err := t.run(ctx); err != nil {
		t.logger.Error("schedule: re-optimization run failed", "error", err)
		return
	}
	t.logger.Info("schedule: re-optimization run complete")
}
