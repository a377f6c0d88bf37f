package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/simple-uow/pkg/core"
)

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly" or "@every 30s".
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Sweep abandons runs that have been running longer than the configured
// stale duration and emits RunsReleased when any were released.
func (w *Worker) Sweep(ctx context.Context) (int64, error) {
	if w.config.Ledger == nil {
		return 0, nil
	}

	var released int64
	err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
		n, err := w.config.Ledger.ReleaseStaleRuns(ctx, w.config.StaleAfter)
		released = n
		return err
	})
	if err != nil {
		return 0, err
	}

	if released > 0 {
		w.logger.Warn("released stale runs", "count", released, "stale_after", w.config.StaleAfter)
		w.Emit(&core.RunsReleased{Count: released, Timestamp: time.Now()})
	}
	return released, nil
}

// RunPurger deletes finished runs. *storage.GormStorage implements it.
type RunPurger interface {
	PurgeRuns(ctx context.Context, status core.RunStatus, olderThan time.Duration) (int64, error)
}

// Purge deletes completed, failed and abandoned runs that finished more than
// the configured retention ago. It does nothing without a retention or when
// the ledger cannot purge.
func (w *Worker) Purge(ctx context.Context) (int64, error) {
	purger, ok := w.config.Ledger.(RunPurger)
	if !ok || w.config.RunRetention <= 0 {
		return 0, nil
	}

	var total int64
	for _, status := range []core.RunStatus{core.RunCompleted, core.RunFailed, core.RunAbandoned} {
		var n int64
		err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
			var err error
			n, err = purger.PurgeRuns(ctx, status, w.config.RunRetention)
			return err
		})
		if err != nil {
			return total, fmt.Errorf("purge %s runs: %w", status, err)
		}
		total += n
	}

	if total > 0 {
		w.logger.Info("purged finished runs", "count", total, "retention", w.config.RunRetention)
	}
	return total, nil
}

// runSweeper calls Sweep and Purge on every tick of sched until ctx is done.
func (w *Worker) runSweeper(ctx context.Context, sched cron.Schedule) {
	for {
		next := sched.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("failed to release stale runs", "error", err)
			}
			if _, err := w.Purge(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("failed to purge finished runs", "error", err)
			}
		}
	}
}
