package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tbanks7/applyflow/internal/config"
)

// RunFunc is one pipeline cycle. Errors are logged, not propagated: a bad
// day must not stop tomorrow's run.
type RunFunc func(ctx context.Context) error

// Daily fires a RunFunc once a day at a fixed local time. Runs are strictly
// sequential; if a run is still going when the next trigger arrives, the
// trigger waits for it.
type Daily struct {
	sched  cron.Schedule
	run    RunFunc
	logger *slog.Logger

	now func() time.Time
}

// New builds a daily runner from an "HH:MM" trigger time.
func New(runAt string, run RunFunc, logger *slog.Logger) (*Daily, error) {
	hour, minute, err := config.ParseRunAt(runAt)
	if err != nil {
		return nil, fmt.Errorf("parsing run_at: %w", err)
	}

	sched, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return nil, fmt.Errorf("building schedule: %w", err)
	}

	return &Daily{
		sched:  sched,
		run:    run,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start blocks until ctx is canceled, firing the run at each trigger.
func (d *Daily) Start(ctx context.Context) error {
	for {
		next := d.sched.Next(d.now())
		d.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(next.Sub(d.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := d.run(ctx); err != nil {
			d.logger.Error("scheduled run failed", "error", err)
		}
	}
}

// NextAfter reports when the runner would fire next after t.
func (d *Daily) NextAfter(t time.Time) time.Time {
	return d.sched.Next(t)
}
