package registry

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kbukum/authconnect/config"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/resilience"
	"github.com/kbukum/authconnect/server"
	"github.com/kbukum/authconnect/validation"
)

var connectorName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ConnectorConfig configures one connector.
type ConnectorConfig struct {
	// Kind selects the provider factory, e.g. "social" or "sdkwallet".
	Kind string `yaml:"kind" mapstructure:"kind" validate:"required"`
	// InitTimeout bounds provider initialization. Zero means no bound.
	InitTimeout time.Duration `yaml:"init_timeout" mapstructure:"init_timeout"`
	// DefaultChainID is reported for providers that do not know their chain.
	DefaultChainID uint64 `yaml:"default_chain_id" mapstructure:"default_chain_id" validate:"omitempty,chain_id"`
	// SkipEager disables the eager connection attempt at startup.
	SkipEager bool `yaml:"skip_eager" mapstructure:"skip_eager"`
	// Options are passed to the provider factory untouched.
	Options map[string]any `yaml:"options" mapstructure:"options"`
	// Resilience guards the connector's backend and caps its concurrent
	// activations.
	Resilience resilience.Policy `yaml:"resilience" mapstructure:"resilience"`
}

// Config is the connectord configuration file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Connectors    map[string]ConnectorConfig `yaml:"connectors" mapstructure:"connectors"`
	Server        server.Config              `yaml:"server" mapstructure:"server"`
	Observability observability.Config       `yaml:"observability" mapstructure:"observability"`

	// SessionDir keeps provider sessions on disk so eager connection works
	// across restarts. Empty keeps them in memory.
	SessionDir string `yaml:"session_dir" mapstructure:"session_dir"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	for name, cc := range c.Connectors {
		if cc.InitTimeout <= 0 {
			cc.InitTimeout = 30 * time.Second
		}
		cc.Resilience.ApplyDefaults()
		c.Connectors[name] = cc
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	if len(c.Connectors) == 0 {
		return fmt.Errorf("connectors: at least one connector is required")
	}
	for name, cc := range c.Connectors {
		if !connectorName.MatchString(name) {
			return fmt.Errorf("connectors: invalid name %q", name)
		}
		if err := validation.Validate(cc); err != nil {
			return fmt.Errorf("connectors.%s: %w", name, err)
		}
		if err := cc.Resilience.Validate(); err != nil {
			return fmt.Errorf("connectors.%s.resilience: %w", name, err)
		}
	}
	return nil
}
