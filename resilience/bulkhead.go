package resilience

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kbukum/authconnect/errors"
)

// Causes of a rejected Bulkhead.Do.
var (
	ErrBulkheadFull    = stderrors.New("too many activations in flight")
	ErrBulkheadTimeout = stderrors.New("timed out waiting for an activation slot")
)

// BulkheadConfig caps concurrent activations of one connector.
type BulkheadConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long a caller queues for a slot. Zero rejects at once.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// ApplyDefaults fills unset fields. A zero MaxWait is kept.
func (c *BulkheadConfig) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
}

// Bulkhead is a weighted semaphore with a bounded wait.
type Bulkhead struct {
	name     string
	cfg      BulkheadConfig
	sem      *semaphore.Weighted
	inUse    atomic.Int64
	onReject func(name string, cause error)
}

// NewBulkhead creates the bulkhead of the connector called name. onReject
// may be nil.
func NewBulkhead(name string, cfg BulkheadConfig, onReject func(name string, cause error)) *Bulkhead {
	cfg.ApplyDefaults()
	return &Bulkhead{
		name:     name,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		onReject: onReject,
	}
}

// Do runs fn once a slot is free. A caller that cannot get one within
// MaxWait gets SERVICE_UNAVAILABLE; a caller whose ctx ends first gets the
// context error.
func (b *Bulkhead) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if b.onReject != nil {
			b.onReject(b.name, err)
		}
		return errors.ServiceUnavailable(b.name).WithCause(err)
	}
	b.inUse.Add(1)
	defer func() {
		b.inUse.Add(-1)
		b.sem.Release(1)
	}()
	return fn(ctx)
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}
	wctx, cancel := context.WithTimeout(ctx, b.cfg.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(wctx, 1); err != nil {
		return ErrBulkheadTimeout
	}
	return nil
}

// InUse returns the number of running calls.
func (b *Bulkhead) InUse() int { return int(b.inUse.Load()) }

// Capacity returns MaxConcurrent.
func (b *Bulkhead) Capacity() int { return b.cfg.MaxConcurrent }
