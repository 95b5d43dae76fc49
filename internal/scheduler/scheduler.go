package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/amishk599/jobradar/internal/poller"
)

// Cycle is one discovery run.
type Cycle interface {
	Poll(ctx context.Context) (poller.Report, error)
}

var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Every fires a fixed duration after the previous cycle finished. Unlike
// cron's "@every" it allows sub-second intervals.
type Every time.Duration

// Next implements cron.Schedule.
func (e Every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// ParseSchedule returns the schedule for expr (a 5-field cron expression or a
// descriptor such as "@hourly" or "@every 30m"). An empty expr falls back to a
// fixed interval.
func ParseSchedule(expr string, interval time.Duration) (cronlib.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		if interval <= 0 {
			return nil, fmt.Errorf("check interval must be positive, got %v", interval)
		}
		return Every(interval), nil
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Scheduler owns the main loop: one immediate cycle, then one cycle at each
// scheduled time. Cycles never overlap.
type Scheduler struct {
	cycle    Cycle
	schedule cronlib.Schedule
	logger   *slog.Logger
}

// NewScheduler creates a scheduler running cycle on schedule.
func NewScheduler(cycle Cycle, schedule cronlib.Schedule, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycle:    cycle,
		schedule: schedule,
		logger:   logger,
	}
}

// Run starts the loop. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "first_run", "now")

	s.runCycle(ctx)

	for {
		next := s.schedule.Next(time.Now())
		s.logger.Info("next cycle scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("shutting down scheduler")
			return nil
		case <-timer.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle runs one cycle. Errors and panics are logged so the loop survives.
func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", "panic", r)
		}
	}()

	start := time.Now()
	report, err := s.cycle.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("cycle interrupted", "error", err)
			return
		}
		s.logger.Error("cycle failed", "error", err, "new", report.New)
		return
	}
	s.logger.Info("cycle finished",
		"scraped", report.Scraped,
		"new", report.New,
		"delivered", report.Delivered,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}
