package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/duration"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration file with environment overrides and report
whether it is valid, along with the effective limiter defaults.

Examples:
  windowlimit validate --config config.yaml
  WINDOWLIMIT_LIMITER_LIMIT=0 windowlimit validate`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	ms, err := duration.ParseString(cfg.Limiter.Duration)
	if err != nil {
		return err
	}

	source := cfgFile
	if source == "" {
		source = "defaults"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", source)
	fmt.Fprintf(out, "  API listen:   %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(out, "  Coordinators: %s\n", strings.Join(cfg.Coordinator.Nodes, ", "))
	fmt.Fprintf(out, "  Node store:   %s on %s\n", cfg.Node.Store, cfg.Node.ListenAddress)
	fmt.Fprintf(out, "  Limiter:      %d per %s (%dms) in %q, async=%t\n",
		cfg.Limiter.Limit, cfg.Limiter.Duration, ms, cfg.Limiter.Namespace, cfg.Limiter.Async)
	fmt.Fprintf(out, "  Cache:        %s\n", cfg.Cache.Backend)
	return nil
}
