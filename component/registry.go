package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/authconnect/logger"
)

const (
	defaultStopTimeout   = 10 * time.Second
	defaultHealthTimeout = 5 * time.Second
)

// Registry owns the daemon's components. They start in registration order
// and stop in reverse, so the event hub registered first outlives the
// connectors that publish into it.
type Registry struct {
	stopTimeout   time.Duration
	healthTimeout time.Duration

	mu      sync.RWMutex
	order   []Component
	started map[string]bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStopTimeout bounds each component's Stop. Defaults to 10s.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.stopTimeout = d }
}

// WithHealthTimeout bounds each component's Health. Defaults to 5s.
func WithHealthTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.healthTimeout = d }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		stopTimeout:   defaultStopTimeout,
		healthTimeout: defaultHealthTimeout,
		started:       make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.ContainsFunc(r.order, func(o Component) bool { return o.Name() == c.Name() }) {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.order = append(r.order, c)
	return nil
}

// Start starts every component that is not running yet. When one fails,
// the ones started by this call are stopped again before the error is
// returned.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var fresh []Component
	for _, c := range r.order {
		if r.started[c.Name()] {
			continue
		}
		if err := c.Start(ctx); err != nil {
			logger.Error("Component start failed", logger.Fields("component", c.Name(), logger.FieldError, err.Error()))
			startErr := fmt.Errorf("start %s: %w", c.Name(), err)
			slices.Reverse(fresh)
			return stderrors.Join(startErr, r.stopLocked(ctx, fresh))
		}
		r.started[c.Name()] = true
		fresh = append(fresh, c)

		d := Describe(c)
		logger.Info("Component started", logger.Fields("component", d.Name, "type", d.Type, "details", d.Details))
	}
	return nil
}

// Stop stops the running components in reverse registration order. Every
// component gets its own timeout; failures are joined.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	running := make([]Component, 0, len(r.order))
	for _, c := range slices.Backward(r.order) {
		if r.started[c.Name()] {
			running = append(running, c)
		}
	}
	return r.stopLocked(ctx, running)
}

func (r *Registry) stopLocked(ctx context.Context, cs []Component) error {
	var errs []error
	for _, c := range cs {
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		delete(r.started, c.Name())
		if err != nil {
			logger.Error("Component stop failed", logger.Fields("component", c.Name(), logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
			continue
		}
		logger.Debug("Component stopped", logger.Fields("component", c.Name()))
	}
	return stderrors.Join(errs...)
}

// Health checks every component concurrently and returns the reports in
// registration order. A check that outlives the health timeout is reported
// unhealthy.
func (r *Registry) Health(ctx context.Context) []Health {
	cs := r.All()
	out := make([]Health, len(cs))
	var g errgroup.Group
	for i, c := range cs {
		g.Go(func() error {
			out[i] = r.check(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Registry) check(ctx context.Context, c Component) Health {
	ctx, cancel := context.WithTimeout(ctx, r.healthTimeout)
	defer cancel()

	done := make(chan Health, 1)
	go func() { done <- c.Health(ctx) }()
	select {
	case h := <-done:
		return h
	case <-ctx.Done():
		return Health{Name: c.Name(), Status: StatusUnhealthy, Message: "health check timed out"}
	}
}

// Get returns the component registered under name.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.order, func(c Component) bool { return c.Name() == name })
	if i < 0 {
		return nil, false
	}
	return r.order[i], true
}

// Running reports whether name has been started and not stopped since.
func (r *Registry) Running(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started[name]
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
