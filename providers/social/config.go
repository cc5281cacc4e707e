package social

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/provider"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/security"
)

// Kind is the provider kind this package registers under.
const Kind = "social"

// Config configures the social provider.
type Config struct {
	// BaseURL is the auth backend root.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// ProjectID and ClientKey identify this deployment to the backend.
	ProjectID string `mapstructure:"project_id" validate:"required"`
	ClientKey string `mapstructure:"client_key"`
	// TokenSecret verifies HS256 ID tokens. Empty skips signature checks.
	TokenSecret string `mapstructure:"token_secret"`
	// TokenIssuer, when set, must match the token's iss claim.
	TokenIssuer string `mapstructure:"token_issuer"`
	// ChainID is used when the backend does not report one.
	ChainID uint64 `mapstructure:"chain_id" validate:"omitempty,chain_id"`
	// Timeout bounds each backend call.
	Timeout time.Duration `mapstructure:"timeout"`
	// RefreshInterval polls the backend session; zero disables polling.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	TLS *security.TLSConfig `mapstructure:"tls"`

	// Connector is the registry name; it labels the circuit and the logs.
	Connector string `mapstructure:"-"`
	// Resilience is the connector's policy. Its breaker guards every backend
	// call and its retry settings apply to GET requests.
	Resilience resilience.Policy `mapstructure:"-"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChainID == 0 {
		c.ChainID = chain.DefaultChainID
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Connector == "" {
		c.Connector = Kind
	}
	c.Resilience.ApplyDefaults()
}

// DecodeConfig decodes the options of spec and carries over its connector
// name and resilience policy.
func DecodeConfig(spec provider.Spec) (Config, error) {
	cfg := Config{Connector: spec.Connector, Resilience: spec.Resilience}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(spec.Options); err != nil {
		return cfg, fmt.Errorf("social: decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
