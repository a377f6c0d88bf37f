package worker

import (
	"context"

	"github.com/jdziat/simple-uow/pkg/core"
)

// OnJobStart registers a hook called when a job is picked up.
func (w *Worker) OnJobStart(fn func(context.Context, core.Job)) {
	w.mu.Lock()
	w.onStart = append(w.onStart, fn)
	w.mu.Unlock()
}

// OnJobComplete registers a hook called after a job's result is applied.
func (w *Worker) OnJobComplete(fn func(context.Context, core.Job, *core.Result)) {
	w.mu.Lock()
	w.onComplete = append(w.onComplete, fn)
	w.mu.Unlock()
}

// OnJobFail registers a hook called when a job fails.
func (w *Worker) OnJobFail(fn func(context.Context, core.Job, error)) {
	w.mu.Lock()
	w.onFail = append(w.onFail, fn)
	w.mu.Unlock()
}

// Events returns a channel receiving worker events. Events are dropped
// when the channel's buffer is full.
func (w *Worker) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	w.mu.Lock()
	w.eventSubs = append(w.eventSubs, ch)
	w.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to a channel returned by Events.
func (w *Worker) Unsubscribe(ch <-chan core.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.eventSubs {
		if sub == ch {
			w.eventSubs = append(w.eventSubs[:i], w.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit sends e to every subscriber without blocking.
func (w *Worker) Emit(e core.Event) {
	w.mu.RLock()
	subs := make([]chan core.Event, len(w.eventSubs))
	copy(subs, w.eventSubs)
	w.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (w *Worker) callStartHooks(ctx context.Context, job core.Job) {
	w.mu.RLock()
	hooks := make([]func(context.Context, core.Job), len(w.onStart))
	copy(hooks, w.onStart)
	w.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job)
	}
}

func (w *Worker) callCompleteHooks(ctx context.Context, job core.Job, res *core.Result) {
	w.mu.RLock()
	hooks := make([]func(context.Context, core.Job, *core.Result), len(w.onComplete))
	copy(hooks, w.onComplete)
	w.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job, res)
	}
}

func (w *Worker) callFailHooks(ctx context.Context, job core.Job, err error) {
	w.mu.RLock()
	hooks := make([]func(context.Context, core.Job, error), len(w.onFail))
	copy(hooks, w.onFail)
	w.mu.RUnlock()

	for _, fn := range hooks {
		fn(ctx, job, err)
	}
}
