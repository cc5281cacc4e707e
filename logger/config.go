package logger

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config is the logging section of the daemon configuration.
type Config struct {
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Level       string `yaml:"level" mapstructure:"level"`
	// Format is json or console.
	Format string `yaml:"format" mapstructure:"format"`
	// Output is stdout or stderr.
	Output  string `yaml:"output" mapstructure:"output"`
	NoColor bool   `yaml:"no_color" mapstructure:"no_color"`
	Caller  bool   `yaml:"caller" mapstructure:"caller"`
	// Connectors overrides Level for the records of individual connectors,
	// e.g. {"sdkwallet": "trace"} while chasing a relay problem.
	Connectors map[string]string `yaml:"connectors" mapstructure:"connectors"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = zerolog.InfoLevel.String()
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// Validate checks levels, format and output.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	for name, lvl := range c.Connectors {
		if _, err := parseLevel(lvl); err != nil {
			return fmt.Errorf("logging.connectors.%s: %w", name, err)
		}
	}
	if !slices.Contains([]string{FormatJSON, FormatConsole}, strings.ToLower(c.Format)) {
		return fmt.Errorf("logging.format must be json or console (got: %s)", c.Format)
	}
	if !slices.Contains([]string{"stdout", "stderr"}, strings.ToLower(c.Output)) {
		return fmt.Errorf("logging.output must be stdout or stderr (got: %s)", c.Output)
	}
	return nil
}

func parseLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown level %q", s)
	}
	return lvl, nil
}
