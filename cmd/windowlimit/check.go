package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
	"mercator-hq/windowlimit/pkg/duration"
	"mercator-hq/windowlimit/pkg/ratelimit"
	"mercator-hq/windowlimit/pkg/ratelimiter"
)

var checkFlags struct {
	url       string
	namespace string
	limit     int64
	duration  string
	cost      int64
	async     bool
	shard     string
	count     int
	timeout   time.Duration
	format    string
}

var checkCmd = &cobra.Command{
	Use:   "check <identifier>",
	Short: "Check a rate limit against a running API",
	Long: `Send one or more checks for an identifier to a running windowlimit API and
print the results.

The command exits with status 2 when the last check is rejected, so it can
guard shell scripts.

Examples:
  # One check with the server's defaults
  windowlimit check user-42

  # Ten requests per minute, sent five times
  windowlimit check user-42 --limit 10 --duration 1m --count 5

  # JSON output
  windowlimit check user-42 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.url, "url", "http://127.0.0.1:8080", "windowlimit API base URL")
	checkCmd.Flags().StringVarP(&checkFlags.namespace, "namespace", "n", "", "limit namespace (server default when empty)")
	checkCmd.Flags().Int64Var(&checkFlags.limit, "limit", 0, "window capacity (server default when zero)")
	checkCmd.Flags().StringVarP(&checkFlags.duration, "duration", "d", "", "window length such as 10s or \"1 m\" (server default when empty)")
	checkCmd.Flags().Int64Var(&checkFlags.cost, "cost", 1, "units consumed per check")
	checkCmd.Flags().BoolVar(&checkFlags.async, "async", false, "use the async mode")
	checkCmd.Flags().StringVar(&checkFlags.shard, "shard", "", "counter shard")
	checkCmd.Flags().IntVar(&checkFlags.count, "count", 1, "number of checks to send")
	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", 10*time.Second, "per-check HTTP timeout")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format: text, json, csv")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}
	if checkFlags.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	body, err := checkBody(args[0])
	if err != nil {
		return err
	}

	backend, err := ratelimiter.NewHTTPBackend(checkFlags.url, nil)
	if err != nil {
		return err
	}

	table := &cli.Table{Headers: []string{"#", "identifier", "success", "limit", "remaining", "current", "reset", "triggered"}}
	var last ratelimit.Response
	for i := 1; i <= checkFlags.count; i++ {
		ctx, cancel := contextWithTimeout(cmd, checkFlags.timeout)
		resp, err := backend.Send(ctx, body)
		cancel()
		if err != nil {
			return cli.NewCommandError("check", err)
		}

		last = resp
		table.AddRow(i, body.Identifier, resp.Passed, resp.Limit, resp.Remaining, resp.Current,
			time.UnixMilli(resp.Reset).UTC().Format(time.RFC3339), resp.Triggered)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table); err != nil {
		return err
	}

	if !last.Passed {
		return &cli.RejectedError{Identifier: body.Identifier, Triggered: last.Triggered, Reset: last.Reset}
	}
	return nil
}

// checkBody builds the request body from flags. Limit and duration may be
// left unset for the server to fill.
func checkBody(identifier string) (ratelimiter.LimitRequestBody, error) {
	body := ratelimiter.LimitRequestBody{
		Identifier: identifier,
		Namespace:  checkFlags.namespace,
		Limit:      checkFlags.limit,
		Cost:       checkFlags.cost,
		Shard:      checkFlags.shard,
	}
	if checkFlags.duration != "" {
		ms, err := duration.ParseString(checkFlags.duration)
		if err != nil {
			return body, fmt.Errorf("invalid --duration: %w", err)
		}
		body.Duration = ms
	}
	if checkFlags.async {
		async := true
		body.Async = &async
	}
	return body, nil
}
