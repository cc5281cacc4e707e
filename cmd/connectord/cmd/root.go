package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/authconnect/config"
	"github.com/kbukum/authconnect/registry"
)

const serviceName = "connectord"

var (
	configFile string
	envFile    string

	rootCmd = &cobra.Command{
		Use:           serviceName,
		Short:         "Wallet connector daemon",
		Long:          "connectord keeps wallet and social-login connectors in sync and serves their state over HTTP and SSE.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: config.yml in the working directory or ./config)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file with overrides")
	rootCmd.AddCommand(serveCmd, checkCmd, versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func loadConfig() (*registry.Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	return config.Load[registry.Config](serviceName, opts...)
}
