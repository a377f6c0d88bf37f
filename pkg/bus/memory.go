package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jdziat/simple-uow/pkg/core"
)

// MemoryBus is an in-process bus for examples and tests.
type MemoryBus struct {
	jobs      chan core.Job
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewMemoryBus creates a MemoryBus with the given channel buffer size.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = 1
	}
	return &MemoryBus{
		jobs:   make(chan core.Job, buffer),
		done:   make(chan struct{}),
		logger: slog.Default(),
	}
}

// Publish enqueues job, blocking while the buffer is full.
// It returns ctx.Err() on cancellation and core.ErrBusClosed after Close.
func (b *MemoryBus) Publish(ctx context.Context, job core.Job) error {
	select {
	case <-b.done:
		return core.ErrBusClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return core.ErrBusClosed
	case b.jobs <- job:
		return nil
	}
}

// Subscribe feeds published jobs to fn. After Close, jobs still buffered are
// delivered before Subscribe returns nil.
func (b *MemoryBus) Subscribe(ctx context.Context, fn func(context.Context, core.Job) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-b.jobs:
			b.handle(ctx, job, fn)
		case <-b.done:
			for {
				select {
				case job := <-b.jobs:
					b.handle(ctx, job, fn)
				default:
					return nil
				}
			}
		}
	}
}

func (b *MemoryBus) handle(ctx context.Context, job core.Job, fn func(context.Context, core.Job) error) {
	if err := fn(ctx, job); err != nil {
		b.logger.Error("job handler failed", "transport", "memory", "job_id", job.JobID, "uow", job.UoW, "error", err)
	}
}

// Len returns the number of buffered jobs.
func (b *MemoryBus) Len() int {
	return len(b.jobs)
}

// Close stops the bus. It is safe to call more than once.
func (b *MemoryBus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
