package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds how a connector retries a backend call.
type RetryConfig struct {
	// MaxAttempts counts the first call. 1 disables retries.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialInterval is the wait after the first failure.
	InitialInterval time.Duration `yaml:"initial_interval" mapstructure:"initial_interval"`
	// MaxInterval caps the exponential growth.
	MaxInterval time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
}

// ApplyDefaults fills unset fields.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
}

// RetryNotify is told about every failed attempt that will be retried.
type RetryNotify func(attempt int, err error, wait time.Duration)

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1)), ctx)
}

// Retry calls op until it succeeds, fails with an error Retryable rejects,
// the attempts run out or ctx ends. The last error is returned as is.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func() (T, error), notify RetryNotify) (T, error) {
	cfg.ApplyDefaults()
	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && !Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, cfg.backOff(ctx), func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
}
