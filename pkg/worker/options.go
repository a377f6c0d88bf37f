package worker

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/security"
)

// DefaultSweepSchedule releases stale runs once a minute.
const DefaultSweepSchedule = "@every 1m"

// WorkerOption configures a Worker.
type WorkerOption interface {
	ApplyWorker(*WorkerConfig)
}

type workerOptionFunc func(*WorkerConfig)

func (f workerOptionFunc) ApplyWorker(c *WorkerConfig) { f(c) }

// WorkerConfig holds worker configuration.
type WorkerConfig struct {
	Concurrency int
	WorkerID    string
	JobTimeout  time.Duration

	// RateLimit caps jobs started per second. Zero disables limiting.
	RateLimit rate.Limit
	RateBurst int

	StorageRetry *RetryConfig

	Ledger        core.RunLedger
	SweepSchedule string
	StaleAfter    time.Duration
	// RunRetention is how long finished runs are kept. Zero keeps them forever.
	RunRetention time.Duration

	Logger *slog.Logger
}

// Concurrency sets how many jobs run at once.
// Values are clamped to [1, MaxConcurrency].
func Concurrency(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.Concurrency = security.ClampConcurrency(n)
	})
}

// WithWorkerID sets the ID recorded on runs and exposed to handlers.
func WithWorkerID(id string) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if id != "" {
			c.WorkerID = id
		}
	})
}

// WithJobTimeout bounds each job's context. Zero means no timeout.
func WithJobTimeout(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.JobTimeout = d
	})
}

// WithRateLimit caps job starts at perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.RateLimit = rate.Limit(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.RateBurst = burst
	})
}

// WithStorageRetry sets the retry policy for metadata and ledger writes.
func WithStorageRetry(cfg RetryConfig) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.StorageRetry = &cfg
	})
}

// WithRetryAttempts sets the attempt count, keeping default backoff values.
func WithRetryAttempts(n int) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		cfg := DefaultRetryConfig()
		cfg.MaxAttempts = n
		c.StorageRetry = &cfg
	})
}

// DisableRetry makes storage writes single-shot.
func DisableRetry() WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		cfg := DefaultRetryConfig()
		cfg.MaxAttempts = 1
		c.StorageRetry = &cfg
	})
}

// WithRunLedger records every run in l.
func WithRunLedger(l core.RunLedger) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.Ledger = l
	})
}

// WithSweeper enables the stale-run sweeper. schedule is a cron expression
// or descriptor such as "@every 30s"; runs still running after staleAfter
// are abandoned. It has no effect without a run ledger.
func WithSweeper(schedule string, staleAfter time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if schedule == "" {
			schedule = DefaultSweepSchedule
		}
		c.SweepSchedule = schedule
		c.StaleAfter = staleAfter
	})
}

// WithRunRetention makes the sweeper delete finished runs older than d.
// It needs a run ledger that implements RunPurger.
func WithRunRetention(d time.Duration) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		c.RunRetention = d
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WorkerOption {
	return workerOptionFunc(func(c *WorkerConfig) {
		if l != nil {
			c.Logger = l
		}
	})
}
