package resilience

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/authconnect/errors"
)

// Policy is the resilience configuration of one connector.
type Policy struct {
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Breaker  BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
	Bulkhead BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// DefaultPolicy returns a Policy with every default applied.
func DefaultPolicy() Policy {
	var p Policy
	p.ApplyDefaults()
	return p
}

// ApplyDefaults fills unset fields of every section.
func (p *Policy) ApplyDefaults() {
	p.Retry.ApplyDefaults()
	p.Breaker.ApplyDefaults()
	p.Bulkhead.ApplyDefaults()
}

// Validate rejects negative limits. Call it after ApplyDefaults.
func (p Policy) Validate() error {
	switch {
	case p.Retry.MaxAttempts < 1:
		return fmt.Errorf("retry.max_attempts must be at least 1")
	case p.Retry.MaxInterval < p.Retry.InitialInterval:
		return fmt.Errorf("retry.max_interval must not be below retry.initial_interval")
	case p.Breaker.FailureThreshold < 1:
		return fmt.Errorf("breaker.failure_threshold must be at least 1")
	case p.Bulkhead.MaxConcurrent < 1:
		return fmt.Errorf("bulkhead.max_concurrent must be at least 1")
	case p.Bulkhead.MaxWait < 0:
		return fmt.Errorf("bulkhead.max_wait must not be negative")
	}
	return nil
}

// Retryable reports whether err describes the backend rather than the
// request. Context errors and AppErrors marked non-retryable (NO_SESSION,
// LOGIN_FAILED, INVALID_INPUT, ...) are final; anything else may be retried
// and counts against a breaker.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}
