package cmd

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/registry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and list the connectors",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// Building the registry resolves every provider kind without
		// touching any backend.
		if _, err := registry.New(*cfg, registry.WithLogger(logger.NewNop())); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tCHAIN\tEAGER\tINIT TIMEOUT\tATTEMPTS\tBREAKER\tSLOTS")
		for _, name := range sortedNames(cfg) {
			cc := cfg.Connectors[name]
			chain := "-"
			if cc.DefaultChainID != 0 {
				chain = fmt.Sprint(cc.DefaultChainID)
			}
			rp := cc.Resilience
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%d\t%d/%s\t%d\n", name, cc.Kind, chain, !cc.SkipEager, cc.InitTimeout,
				rp.Retry.MaxAttempts, rp.Breaker.FailureThreshold, rp.Breaker.OpenTimeout, rp.Bulkhead.MaxConcurrent)
		}
		return w.Flush()
	},
}

func sortedNames(cfg *registry.Config) []string {
	return slices.Sorted(maps.Keys(cfg.Connectors))
}
