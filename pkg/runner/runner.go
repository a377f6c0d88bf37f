package runner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/jobctx"
)

// tracerName is the instrumentation scope name for runner spans.
const tracerName = "github.com/jdziat/simple-uow"

// Runner executes a job.
type Runner interface {
	Run(ctx context.Context, job core.Job) (*core.Result, error)
}

// Dispatcher routes a wire job payload to a unit of work.
// *registry.Registry implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload string) (string, error)
}

// SyncRunner executes jobs in the calling goroutine.
type SyncRunner struct {
	dispatcher Dispatcher
	tracer     trace.Tracer
	workerID   string
}

// Option configures a SyncRunner.
type Option interface {
	apply(*SyncRunner)
}

type optionFunc func(*SyncRunner)

func (f optionFunc) apply(r *SyncRunner) { f(r) }

// WithTracer sets the tracer used for run spans.
// Defaults to the global provider's tracer, a no-op unless one is installed.
func WithTracer(t trace.Tracer) Option {
	return optionFunc(func(r *SyncRunner) {
		if t != nil {
			r.tracer = t
		}
	})
}

// WithWorkerID sets the worker ID exposed to handlers through jobctx.
// Without it the worker ID already carried by the context is kept.
func WithWorkerID(id string) Option {
	return optionFunc(func(r *SyncRunner) {
		r.workerID = id
	})
}

// NewSyncRunner creates a SyncRunner dispatching through d.
func NewSyncRunner(d Dispatcher, opts ...Option) *SyncRunner {
	r := &SyncRunner{
		dispatcher: d,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt.apply(r)
	}
	return r
}

// Run encodes job, dispatches it and decodes the result payload.
func (r *SyncRunner) Run(ctx context.Context, job core.Job) (*core.Result, error) {
	ctx, span := r.tracer.Start(ctx, "uow.run",
		trace.WithAttributes(
			attribute.String("uow.job.id", job.JobID),
			attribute.String("uow.name", job.UoW),
			attribute.String("uow.file.id", job.File.ID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	workerID := r.workerID
	if workerID == "" {
		workerID = jobctx.WorkerIDFromContext(ctx)
	}
	jctx := jobctx.WithAttempt(jobctx.WithJob(ctx, job, workerID), jobctx.AttemptFromContext(ctx))

	result, err := r.run(jctx, job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (r *SyncRunner) run(ctx context.Context, job core.Job) (*core.Result, error) {
	payload, err := codec.EncodeJob(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	out, err := r.dispatcher.Dispatch(ctx, payload)
	if err != nil {
		return nil, err
	}

	return codec.DecodeResult(out)
}

// AsyncRunner hands jobs to a bus for remote execution.
type AsyncRunner struct {
	bus core.Bus
}

// NewAsyncRunner creates an AsyncRunner publishing to bus.
func NewAsyncRunner(bus core.Bus) *AsyncRunner {
	return &AsyncRunner{bus: bus}
}

// Run publishes job. It does not wait for the unit of work and returns a nil
// result on success.
func (r *AsyncRunner) Run(ctx context.Context, job core.Job) (*core.Result, error) {
	if job.JobID == "" {
		return nil, core.ErrMissingJobID
	}
	if err := r.bus.Publish(ctx, job); err != nil {
		return nil, fmt.Errorf("publish job %s: %w", job.JobID, err)
	}
	return nil, nil
}
