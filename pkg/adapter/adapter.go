package adapter

import (
	"context"
	"fmt"

	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
	"github.com/jdziat/simple-uow/pkg/internal/handler"
	"github.com/jdziat/simple-uow/pkg/security"
)

// Handler transforms one job into one result.
type Handler interface {
	Handle(ctx context.Context, job core.JobRecord) (core.ResultRecord, error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error)

// Handle calls f(ctx, job).
func (f HandlerFunc) Handle(ctx context.Context, job core.JobRecord) (core.ResultRecord, error) {
	return f(ctx, job)
}

// Entrypoint is the wire-level callable of a unit of work. Its name is fixed
// when it is created and cannot change afterwards; copies share nothing
// mutable.
type Entrypoint struct {
	name    string
	handler Handler
}

// Register wraps h into an Entrypoint named name.
// An empty name fails with core.ErrInvalidName. h is not inspected here; a
// nil handler surfaces as core.ErrNilHandler when the entrypoint is invoked.
func Register(name string, h Handler) (Entrypoint, error) {
	if err := security.ValidateUoWName(name); err != nil {
		return Entrypoint{}, err
	}
	return Entrypoint{name: name, handler: h}, nil
}

// MustRegister is like Register but panics on an invalid name.
func MustRegister(name string, h Handler) Entrypoint {
	ep, err := Register(name, h)
	if err != nil {
		panic(fmt.Sprintf("uow: invalid unit of work name %q: %v", name, err))
	}
	return ep
}

// RegisterFunc registers a record-level handler function.
func RegisterFunc(name string, fn func(ctx context.Context, job core.JobRecord) (core.ResultRecord, error)) (Entrypoint, error) {
	if fn == nil {
		return Register(name, nil)
	}
	return Register(name, HandlerFunc(fn))
}

// RegisterTyped registers a handler over typed jobs and results. The job
// record is converted to J through JSON and the returned R back into a
// record; a nil R is treated as the absent result.
func RegisterTyped[J, R any](name string, fn func(ctx context.Context, job J) (R, error)) (Entrypoint, error) {
	if fn == nil {
		return Register(name, nil)
	}
	return Register(name, HandlerFunc(handler.Typed(fn)))
}

// Name returns the name the entrypoint was registered under.
func (e Entrypoint) Name() string {
	return e.name
}

// Invoke decodes payload, calls the handler exactly once and encodes its
// result. ctx is handed to the handler as-is.
func (e Entrypoint) Invoke(ctx context.Context, payload string) (string, error) {
	job, err := codec.DecodeJob(payload)
	if err != nil {
		return "", err
	}

	if !e.hasHandler() {
		return "", core.ErrNilHandler
	}

	result, err := e.handler.Handle(ctx, job)
	if err != nil {
		return "", err
	}

	return codec.EncodeResult(result)
}

func (e Entrypoint) hasHandler() bool {
	if e.handler == nil {
		return false
	}
	if f, ok := e.handler.(HandlerFunc); ok && f == nil {
		return false
	}
	return true
}

// Call is Invoke with a background context, the plain (text) -> text form.
func (e Entrypoint) Call(payload string) (string, error) {
	return e.Invoke(context.Background(), payload)
}

// Func returns the entrypoint as a bare function value.
func (e Entrypoint) Func() func(payload string) (string, error) {
	return e.Call
}
