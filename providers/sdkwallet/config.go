package sdkwallet

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/authconnect/provider"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/security"
)

// Kind is the provider kind this package registers under.
const Kind = "sdkwallet"

// Config configures the wallet host connection.
type Config struct {
	// URL is the host websocket endpoint (ws:// or wss://).
	URL string `mapstructure:"url" validate:"required,url"`
	// AppID is sent as X-App-Id during the handshake.
	AppID string `mapstructure:"app_id"`
	// DialTimeout bounds one handshake attempt.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// DialAttempts is the number of handshake attempts per connect.
	DialAttempts int `mapstructure:"dial_attempts" validate:"gte=0"`
	// RequestTimeout bounds calls made without a context deadline.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// PingInterval sends keepalive pings; zero disables them.
	PingInterval time.Duration `mapstructure:"ping_interval"`

	TLS *security.TLSConfig `mapstructure:"tls"`

	// Connector is the registry name used in logs.
	Connector string `mapstructure:"-"`
	// Retry paces handshake attempts. DialAttempts, when set, overrides its
	// MaxAttempts.
	Retry resilience.RetryConfig `mapstructure:"-"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	c.Retry.ApplyDefaults()
	if c.DialAttempts <= 0 {
		c.DialAttempts = c.Retry.MaxAttempts
	}
	if c.Connector == "" {
		c.Connector = Kind
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// DecodeConfig decodes the options of spec. The connector name and retry
// policy come from spec itself.
func DecodeConfig(spec provider.Spec) (Config, error) {
	cfg := Config{Connector: spec.Connector, Retry: spec.Resilience.Retry}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(spec.Options); err != nil {
		return cfg, fmt.Errorf("sdkwallet: decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
