// Package jobctx provides public access to job context for handlers.
package jobctx

import (
	"context"

	"github.com/jdziat/simple-uow/pkg/core"
	intctx "github.com/jdziat/simple-uow/pkg/internal/context"
)

// WithJob returns a context carrying job. Runners call this before invoking
// an entrypoint so handlers can reach the typed job for logging.
func WithJob(ctx context.Context, job core.Job, workerID string) context.Context {
	return intctx.WithJobContext(ctx, &intctx.JobContext{Job: &job, WorkerID: workerID})
}

// WithAttempt records the attempt number on the job context in ctx, if any.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return ctx
	}
	next := *jc
	next.Attempt = attempt
	return intctx.WithJobContext(ctx, &next)
}

// JobFromContext returns the current Job from context, or nil if not in a job handler.
// Use this to get the job ID for logging or progress tracking.
func JobFromContext(ctx context.Context) *core.Job {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return nil
	}
	return jc.Job
}

// JobIDFromContext returns the current job ID from context, or empty string if not in a job handler.
func JobIDFromContext(ctx context.Context) string {
	job := JobFromContext(ctx)
	if job == nil {
		return ""
	}
	return job.JobID
}

// WorkerIDFromContext returns the ID of the worker running the current job.
func WorkerIDFromContext(ctx context.Context) string {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return ""
	}
	return jc.WorkerID
}

// AttemptFromContext returns the attempt number, starting at 1, or 0 outside a job.
func AttemptFromContext(ctx context.Context) int {
	jc := intctx.GetJobContext(ctx)
	if jc == nil {
		return 0
	}
	return jc.Attempt
}
