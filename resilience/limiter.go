package resilience

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimitConfig configures per-client token buckets.
type LimitConfig struct {
	// Rate is the sustained number of requests per second per key.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size. Defaults to Rate rounded up.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// TTL drops a key's bucket after this long without requests.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// Enabled reports whether a rate was configured.
func (c LimitConfig) Enabled() bool { return c.Rate > 0 }

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key. Buckets idle for longer than
// TTL are dropped on a later call, so no cleanup goroutine is needed.
type KeyedLimiter struct {
	cfg LimitConfig
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewKeyedLimiter creates a limiter from cfg.
func NewKeyedLimiter(cfg LimitConfig) *KeyedLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.Rate + 0.999)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &KeyedLimiter{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}
}

// Allow takes a token from key's bucket.
func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	now := k.now()
	k.sweep(now)
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(k.cfg.Rate), k.cfg.Burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	k.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Len returns the number of live buckets.
func (k *KeyedLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

func (k *KeyedLimiter) sweep(now time.Time) {
	if now.Sub(k.lastSweep) < k.cfg.TTL {
		return
	}
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) > k.cfg.TTL {
			delete(k.buckets, key)
		}
	}
	k.lastSweep = now
}
