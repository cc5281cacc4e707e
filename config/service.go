package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/authconnect/logger"
)

// DefaultServiceName names the daemon when the config does not.
const DefaultServiceName = "connectord"

// Environments a deployment may declare.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig is the part of the connectord config that identifies the
// deployment. It is squashed into the daemon config so its keys sit at the
// top level:
//
//	name: connectord
//	environment: production
//	logging:
//	  level: info
//	  connectors:
//	    sdkwallet: debug
type ServiceConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	// Debug lowers the default log level to debug. It is on in development.
	Debug   bool          `yaml:"debug" mapstructure:"debug"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig gives bootstrap access to the squashed fields.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults fills name and environment, then derives the logging
// defaults from them. An explicit logging.level wins over Debug.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = DefaultServiceName
	}
	if c.Environment == "" {
		c.Environment = Environments[0]
	}
	if c.Environment == Environments[0] {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the deployment identity and the logging section.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(Environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", Environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.%w", err)
	}
	return nil
}
