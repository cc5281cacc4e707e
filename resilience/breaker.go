package resilience

import (
	stderrors "errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kbukum/authconnect/errors"
)

// BreakerConfig configures the circuit in front of a connector's backend.
type BreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that opens the circuit.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"`
	// HalfOpenRequests is the number of probes let through while half-open.
	HalfOpenRequests int `yaml:"half_open_requests" mapstructure:"half_open_requests"`
}

// ApplyDefaults fills unset fields.
func (c *BreakerConfig) ApplyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenRequests <= 0 {
		c.HalfOpenRequests = 1
	}
}

// Circuit states as reported by Breaker.State.
const (
	CircuitClosed   = "closed"
	CircuitHalfOpen = "half-open"
	CircuitOpen     = "open"
)

// Breaker fails fast while a backend is unhealthy. Only errors Retryable
// accepts count as failures.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// BreakerOption configures a Breaker.
type BreakerOption func(*gobreaker.Settings)

// OnStateChange is called with the connector name on every transition.
func OnStateChange(fn func(name, from, to string)) BreakerOption {
	return func(s *gobreaker.Settings) {
		s.OnStateChange = func(name string, from, to gobreaker.State) {
			fn(name, from.String(), to.String())
		}
	}
}

// NewBreaker creates the circuit for the connector called name.
func NewBreaker(name string, cfg BreakerConfig, opts ...BreakerOption) *Breaker {
	cfg.ApplyDefaults()
	threshold := uint32(cfg.FailureThreshold)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.HalfOpenRequests),
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !Retryable(err)
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Do runs fn through the circuit. While the circuit is open, or its
// half-open probes are taken, it returns SERVICE_UNAVAILABLE without
// calling fn.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.ServiceUnavailable(b.name).WithCause(err).WithDetail("circuit", b.State())
	}
	return err
}

// State returns CircuitClosed, CircuitHalfOpen or CircuitOpen.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Open reports whether calls are currently being refused.
func (b *Breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}
