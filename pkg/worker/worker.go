package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/jobctx"
	"github.com/jdziat/simple-uow/pkg/runner"
)

// DefaultStaleAfter is how long a run may stay running before the sweeper
// abandons it.
const DefaultStaleAfter = 30 * time.Minute

// ErrNoResult is returned when the runner finishes a job without a result,
// which happens when a worker is wired to an asynchronous runner.
var ErrNoResult = fmt.Errorf("%w: runner returned no result", core.ErrInvalidResult)

// Worker consumes jobs and applies their results.
type Worker struct {
	sub      core.Subscriber
	runner   runner.Runner
	metadata core.Metadata
	config   WorkerConfig
	logger   *slog.Logger
	limiter  *rate.Limiter

	mu         sync.RWMutex
	onStart    []func(context.Context, core.Job)
	onComplete []func(context.Context, core.Job, *core.Result)
	onFail     []func(context.Context, core.Job, error)
	eventSubs  []chan core.Event
}

// NewWorker creates a worker reading from sub, executing jobs with r and
// writing results to md.
func NewWorker(sub core.Subscriber, r runner.Runner, md core.Metadata, opts ...WorkerOption) *Worker {
	config := WorkerConfig{
		Concurrency: 10,
		WorkerID:    uuid.New().String(),
		StaleAfter:  DefaultStaleAfter,
		Logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt.ApplyWorker(&config)
	}

	if config.StorageRetry == nil {
		defaultCfg := DefaultRetryConfig()
		config.StorageRetry = &defaultCfg
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}

	w := &Worker{
		sub:      sub,
		runner:   r,
		metadata: md,
		config:   config,
		logger:   config.Logger.With("worker_id", config.WorkerID),
	}
	if config.RateLimit > 0 {
		w.limiter = rate.NewLimiter(config.RateLimit, config.RateBurst)
	}
	return w
}

// ID returns the worker's ID.
func (w *Worker) ID() string {
	return w.config.WorkerID
}

// Config returns a copy of the worker's configuration.
func (w *Worker) Config() WorkerConfig {
	return w.config
}

// Start consumes jobs until ctx is cancelled or the subscription ends, then
// waits for in-flight jobs. It returns the subscription's error, which is
// ctx.Err() on cancellation.
func (w *Worker) Start(ctx context.Context) error {
	if w.config.SweepSchedule != "" && w.config.Ledger != nil {
		sched, err := ParseSchedule(w.config.SweepSchedule)
		if err != nil {
			return err
		}
		sweepCtx, stopSweeper := context.WithCancel(ctx)
		defer stopSweeper()
		go w.runSweeper(sweepCtx, sched)
	}

	jobs := make(chan core.Job)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.config.Concurrency; i++ {
		g.Go(func() error {
			for job := range jobs {
				w.processJob(gctx, job)
			}
			return nil
		})
	}

	w.logger.Info("worker started", "concurrency", w.config.Concurrency)
	err := w.sub.Subscribe(ctx, func(ctx context.Context, job core.Job) error {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		select {
		case jobs <- job:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	close(jobs)
	_ = g.Wait()
	w.logger.Info("worker stopped")
	return err
}

// Process runs a single job through the full pipeline: hooks, run
// tracking, execution and result application.
func (w *Worker) Process(ctx context.Context, job core.Job) error {
	return w.processJob(ctx, job)
}

func (w *Worker) processJob(ctx context.Context, job core.Job) error {
	startTime := time.Now()
	log := w.logger.With("job_id", job.JobID, "uow", job.UoW)

	w.callStartHooks(ctx, job)
	w.Emit(&core.JobStarted{Job: job, Timestamp: startTime})

	if w.config.Ledger != nil {
		err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
			return w.config.Ledger.StartRun(ctx, job, w.config.WorkerID)
		})
		if err != nil {
			log.Warn("failed to record run start", "error", err)
		}
	}

	res, err := w.execute(ctx, job)
	if err == nil {
		err = w.Apply(ctx, res)
	}
	if err != nil {
		w.handleError(ctx, job, err)
		return err
	}

	if w.config.Ledger != nil {
		err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
			return w.config.Ledger.CompleteRun(ctx, job.JobID)
		})
		if err != nil {
			log.Warn("failed to record run completion", "error", err)
		}
	}

	duration := time.Since(startTime)
	log.Info("job completed", "duration", duration, "artifacts", len(res.Artifacts))
	w.callCompleteHooks(ctx, job, res)
	w.Emit(&core.JobCompleted{Job: job, Result: res, Duration: duration, Timestamp: time.Now()})
	return nil
}

// execute runs the job, converting a panic into an error.
func (w *Worker) execute(ctx context.Context, job core.Job) (res *core.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if w.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.JobTimeout)
		defer cancel()
	}
	ctx = jobctx.WithJob(ctx, job, w.config.WorkerID)

	res, err = w.runner.Run(ctx, job)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, ErrNoResult
	}
	return res, nil
}

// Apply validates res and writes its attribute patch and artifacts to the
// worker's metadata store. Each write is retried with backoff.
func (w *Worker) Apply(ctx context.Context, res *core.Result) error {
	if err := res.Validate(); err != nil {
		return err
	}

	if len(res.AttributesPatch) > 0 {
		err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
			return w.metadata.UpdateFileAttributes(ctx, res.FileID, res.AttributesPatch)
		})
		if err != nil {
			return fmt.Errorf("update attributes for file %s: %w", res.FileID, err)
		}
	}

	for _, artifact := range res.Artifacts {
		err := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
			return w.metadata.CreateArtifact(ctx, res.FileID, artifact)
		})
		if err != nil {
			return fmt.Errorf("create %s artifact for file %s: %w", artifact.Kind, res.FileID, err)
		}
	}
	return nil
}

func (w *Worker) handleError(ctx context.Context, job core.Job, err error) {
	w.logger.Error("job failed", "job_id", job.JobID, "uow", job.UoW, "error", err)

	if w.config.Ledger != nil {
		failErr := retryWithBackoff(ctx, *w.config.StorageRetry, func() error {
			return w.config.Ledger.FailRun(ctx, job.JobID, err.Error())
		})
		if failErr != nil && !errors.Is(failErr, core.ErrRunNotFound) {
			w.logger.Error("failed to record run failure after retries", "job_id", job.JobID, "error", failErr)
		}
	}

	w.callFailHooks(ctx, job, err)
	w.Emit(&core.JobFailed{Job: job, Error: err, Timestamp: time.Now()})
}
