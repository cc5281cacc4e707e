package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
)

// LazyState is the observable phase of a Lazy slot.
type LazyState int32

const (
	LazyIdle LazyState = iota
	LazyInFlight
	LazyDone
)

// String returns the lowercase name of the state.
func (s LazyState) String() string {
	switch s {
	case LazyIdle:
		return "idle"
	case LazyInFlight:
		return "in_flight"
	case LazyDone:
		return "done"
	default:
		return fmt.Sprintf("LazyState(%d)", int32(s))
	}
}

// Lazy runs an initializer at most once successfully.
//
// The run is detached from the caller that triggered it and bounded by the
// configured timeout instead, so a caller giving up does not fail the others
// waiting on the same run. Each caller still returns as soon as its own
// context is done.
type Lazy struct {
	name    string
	timeout time.Duration
	init    func(ctx context.Context) error

	group singleflight.Group
	state atomic.Int32
	runs  atomic.Int64
}

// LazyOption configures a Lazy.
type LazyOption func(*Lazy)

// WithTimeout bounds a single initializer run. Zero disables the bound.
func WithTimeout(d time.Duration) LazyOption {
	return func(l *Lazy) { l.timeout = d }
}

// NewLazy creates a Lazy slot for init.
func NewLazy(name string, init func(ctx context.Context) error, opts ...LazyOption) *Lazy {
	l := &Lazy{name: name, init: init}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name returns the slot name.
func (l *Lazy) Name() string { return l.name }

// State reports the current phase.
func (l *Lazy) State() LazyState { return LazyState(l.state.Load()) }

// Done reports whether the initializer has succeeded.
func (l *Lazy) Done() bool { return l.State() == LazyDone }

// Runs returns how many times the initializer has been started.
func (l *Lazy) Runs() int64 { return l.runs.Load() }

// Do runs the initializer unless it already succeeded, joining any run in
// flight. It returns the shared outcome, a TIMEOUT AppError when the run
// exceeded its bound, or ctx.Err() when the caller stopped waiting first.
func (l *Lazy) Do(ctx context.Context) error {
	if l.Done() {
		return nil
	}
	if l.init == nil {
		return fmt.Errorf("no initializer for %s", l.name)
	}

	ch := l.group.DoChan(l.name, func() (interface{}, error) {
		if l.Done() {
			return nil, nil
		}
		return nil, l.run(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Lazy) run(parent context.Context) error {
	l.state.Store(int32(LazyInFlight))
	l.runs.Add(1)
	start := time.Now()

	ctx := parent
	cancel := context.CancelFunc(func() {})
	if l.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, l.timeout)
	}
	defer cancel()

	logger.Debug("Initializing lazy component", map[string]interface{}{
		"component": l.name,
	})

	result := make(chan error, 1)
	go func() { result <- l.init(ctx) }()

	var err error
	select {
	case err = <-result:
		if err != nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.IsAppError(err) {
			err = errors.Timeout("initialize " + l.name).WithCause(err)
		}
	case <-ctx.Done():
		// A late result from the abandoned run is discarded.
		err = errors.Timeout("initialize " + l.name).WithCause(ctx.Err())
	}

	if err != nil {
		l.state.Store(int32(LazyIdle))
		logger.Warn("Lazy component initialization failed", map[string]interface{}{
			"component": l.name,
			"error":     err.Error(),
		})
		return err
	}

	l.state.Store(int32(LazyDone))
	logger.Debug("Lazy component initialized", logger.DurationFields(l.name, time.Since(start)))
	return nil
}
