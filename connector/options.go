package connector

import (
	"time"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/provider"
)

// Options carries activation hints to the provider, e.g. the preferred
// login method. They are passed through unvalidated.
type Options = provider.LoginOptions

// DefaultInitTimeout bounds provider initialization when no timeout is set.
const DefaultInitTimeout = 30 * time.Second

// Option configures a Connector.
type Option func(*Connector)

// WithLogger sets the connector logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Connector) {
		if log != nil {
			c.log = log
		}
	}
}

// WithErrorHandler sets the callback receiving errors that have no caller
// to return to: disconnect payloads, malformed events and provider
// disconnect failures.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Connector) { c.onError = fn }
}

// WithDefaultChainID sets the chain reported for handles that cannot report
// one themselves. Zero keeps chain.DefaultChainID.
func WithDefaultChainID(id uint64) Option {
	return func(c *Connector) {
		if id != 0 {
			c.defaultChainID = id
		}
	}
}

// WithInitTimeout bounds a single initialization run. Zero or negative
// disables the bound.
func WithInitTimeout(d time.Duration) Option {
	return func(c *Connector) { c.initTimeout = d }
}

// WithMetrics records operation and event metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Connector) { c.metrics = m }
}

func defaults(c *Connector) {
	c.log = logger.NewNop()
	c.defaultChainID = chain.DefaultChainID
	c.initTimeout = DefaultInitTimeout
}
