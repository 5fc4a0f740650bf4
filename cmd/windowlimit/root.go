package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "windowlimit",
	Short: "Windowlimit - distributed fixed-window rate limiting",
	Long: `Windowlimit answers "may this identifier do this now?" for fixed time
windows shared across many processes.

Each check is counted in a window of limit requests per duration. API servers
keep a local cache of window counters and forward counting to coordinator
nodes, either waiting for the answer (sync) or answering from the cache and
reconciling in the background (async).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}
