package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/security"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client for one auth backend.
type Config struct {
	// Service names the backend in errors, e.g. "social-auth".
	Service string
	// BaseURL is prepended to every relative request path.
	BaseURL string
	// Timeout bounds a single attempt. Defaults to 30s.
	Timeout time.Duration
	TLS     *security.TLSConfig
	// Headers are sent with every request.
	Headers   map[string]string
	UserAgent string
	// Cookies keeps the backend's session cookie between calls.
	Cookies bool
	// Retry re-sends GET requests that failed for a retryable reason.
	// Requests with other methods are never retried. Nil disables it.
	Retry *resilience.RetryConfig
	// Breaker wraps every attempt. Nil disables it.
	Breaker *resilience.Breaker
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Service == "" {
		c.Service = "backend"
	}
}

// Validate checks the TLS block and the timeout.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return c.TLS.Validate()
}
