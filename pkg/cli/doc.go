/*
Package cli provides command-line helpers for the windowlimit command.

Output Formatting:

Check and benchmark results can be rendered as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

A Table renders as aligned columns in text mode and as rows in CSV mode.

Progress Reporting:

Bursts of checks report admitted and rejected counts as they complete:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(count))
	progress.Record(resp.Success)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	for range cli.ReloadSignals() {
		// re-read configuration
	}

Exit Codes:

ExitCode maps command errors to process exit codes so scripts can tell a
rejected check (2) from a failure (1).
*/
package cli
