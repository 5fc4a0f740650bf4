package main

import (
	"runtime"

	"mercator-hq/windowlimit/pkg/cli"

	"github.com/spf13/cobra"
)

// Build metadata, overridden with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "output format: text, json, csv")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	format, err := cli.ParseFormat(versionFormat)
	if err != nil {
		return err
	}

	table := &cli.Table{Headers: []string{"field", "value"}}
	table.AddRow("version", Version)
	table.AddRow("commit", GitCommit)
	table.AddRow("built", BuildDate)
	table.AddRow("go", runtime.Version())
	table.AddRow("platform", runtime.GOOS+"/"+runtime.GOARCH)

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
}
