package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/resilience"
)

// RateLimitConfig bounds how fast one client may drive one connector.
type RateLimitConfig struct {
	// Rate is the sustained requests per second for a client on a connector.
	Rate  float64 `yaml:"rate" mapstructure:"rate"`
	Burst int     `yaml:"burst" mapstructure:"burst"`
	// IdleTTL forgets a bucket after this long without requests.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	// KeyFunc overrides ConnectorClientKey.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// Enabled reports whether a rate was configured.
func (c RateLimitConfig) Enabled() bool { return c.Rate > 0 }

// RateLimit answers RATE_LIMITED (429, Retry-After) once a key has spent
// its burst. The error scope is the connector when the route names one.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	key := cfg.KeyFunc
	if key == nil {
		key = ConnectorClientKey
	}
	buckets := resilience.NewKeyedLimiter(resilience.LimitConfig{
		Rate:  cfg.Rate,
		Burst: cfg.Burst,
		TTL:   cfg.IdleTTL,
	})

	return func(c *gin.Context) {
		if buckets.Allow(key(c)) {
			c.Next()
			return
		}
		scope := c.Param("name")
		if scope == "" {
			scope = c.FullPath()
		}
		Abort(c, errors.RateLimited(scope))
	}
}

// ConnectorClientKey buckets by client IP and the :name route parameter, so
// a client retrying one connector does not lock itself out of the others.
func ConnectorClientKey(c *gin.Context) string {
	if name := c.Param("name"); name != "" {
		return c.ClientIP() + "/" + name
	}
	return c.ClientIP()
}
