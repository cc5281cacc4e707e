package provider

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps provider kinds to their factories. It is filled once at
// startup and read by every connector when it first needs a handle.
type Registry[T any] struct {
	mu    sync.RWMutex
	kinds map[string]Factory[T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{kinds: make(map[string]Factory[T])}
}

// RegisterFactory makes kind available to connectors. A second factory for
// the same kind replaces the first.
func (r *Registry[T]) RegisterFactory(kind string, f Factory[T]) {
	r.mu.Lock()
	r.kinds[kind] = f
	r.mu.Unlock()
}

// Has reports whether kind can be built.
func (r *Registry[T]) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[kind]
	return ok
}

// Create builds a handle of kind for spec.Connector.
func (r *Registry[T]) Create(kind string, spec Spec) (T, error) {
	r.mu.RLock()
	f, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("connector %q: no provider of kind %q", spec.Connector, kind)
	}
	return f(spec)
}

// Bind defers Create until a connector first asks for its handle.
func (r *Registry[T]) Bind(kind string, spec Spec) func() (T, error) {
	return func() (T, error) { return r.Create(kind, spec) }
}

// List returns the registered kinds, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.kinds))
}
