package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
	"mercator-hq/windowlimit/pkg/duration"
)

var durationFlags struct {
	format string
}

var durationCmd = &cobra.Command{
	Use:   "duration <value>...",
	Short: "Convert window durations to milliseconds",
	Long: `Parse window durations the way the limiter does and print them in
milliseconds.

Examples:
  windowlimit duration 10s "90 m" 2d
  windowlimit duration "1 m" --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDuration,
}

func init() {
	rootCmd.AddCommand(durationCmd)

	durationCmd.Flags().StringVarP(&durationFlags.format, "format", "f", "text", "output format: text, json, csv")
}

func runDuration(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(durationFlags.format)
	if err != nil {
		return err
	}

	table := &cli.Table{Headers: []string{"input", "milliseconds"}}
	for _, arg := range args {
		ms, err := duration.ParseString(arg)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", arg, err)
		}
		table.AddRow(arg, ms)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
}
