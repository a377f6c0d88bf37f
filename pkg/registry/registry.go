package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jdziat/simple-uow/pkg/adapter"
	"github.com/jdziat/simple-uow/pkg/codec"
	"github.com/jdziat/simple-uow/pkg/core"
)

// Registry holds entrypoints by name. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	entrypoints map[string]adapter.Entrypoint
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entrypoints: make(map[string]adapter.Entrypoint)}
}

// Add stores ep under its name. A second entrypoint with the same name fails
// with core.ErrDuplicateUoW.
func (r *Registry) Add(ep adapter.Entrypoint) error {
	name := ep.Name()
	if name == "" {
		return core.ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entrypoints[name]; exists {
		return fmt.Errorf("%w: %q", core.ErrDuplicateUoW, name)
	}
	r.entrypoints[name] = ep
	return nil
}

// MustAdd is like Add but panics on error.
func (r *Registry) MustAdd(ep adapter.Entrypoint) {
	if err := r.Add(ep); err != nil {
		panic(fmt.Sprintf("uow: %v", err))
	}
}

// Register creates an entrypoint for h and adds it.
func (r *Registry) Register(name string, h adapter.Handler) (adapter.Entrypoint, error) {
	ep, err := adapter.Register(name, h)
	if err != nil {
		return adapter.Entrypoint{}, err
	}
	if err := r.Add(ep); err != nil {
		return adapter.Entrypoint{}, err
	}
	return ep, nil
}

// Get returns the entrypoint registered under name.
func (r *Registry) Get(name string) (adapter.Entrypoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.entrypoints[name]
	return ep, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entrypoints))
	for name := range r.entrypoints {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Dispatch routes payload to the entrypoint named by its "uow" field.
func (r *Registry) Dispatch(ctx context.Context, payload string) (string, error) {
	job, err := codec.DecodeJob(payload)
	if err != nil {
		return "", err
	}

	name := job.UoW()
	ep, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownUoW, name)
	}
	return ep.Invoke(ctx, payload)
}
