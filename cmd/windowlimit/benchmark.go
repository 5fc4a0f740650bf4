package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
	"mercator-hq/windowlimit/pkg/ratelimiter"
)

var benchmarkFlags struct {
	url         string
	count       int
	concurrency int
	identifiers int
	limit       int64
	duration    string
	async       bool
	format      string
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Load test a running API",
	Long: `Send a burst of checks to a running windowlimit API and report
throughput, latency percentiles and how many checks were admitted.

Checks are spread round robin over --identifiers identifiers, so with a
limit of L per window at most identifiers*L checks should pass.

Examples:
  # 1000 checks from 10 workers
  windowlimit benchmark --count 1000 --concurrency 10

  # Compare async mode
  windowlimit benchmark --count 1000 --async`,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)

	benchmarkCmd.Flags().StringVar(&benchmarkFlags.url, "url", "http://127.0.0.1:8080", "windowlimit API base URL")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.count, "count", 1000, "total checks")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.concurrency, "concurrency", 10, "concurrent workers")
	benchmarkCmd.Flags().IntVar(&benchmarkFlags.identifiers, "identifiers", 1, "distinct identifiers")
	benchmarkCmd.Flags().Int64Var(&benchmarkFlags.limit, "limit", 100, "window capacity")
	benchmarkCmd.Flags().StringVar(&benchmarkFlags.duration, "duration", "1m", "window length")
	benchmarkCmd.Flags().BoolVar(&benchmarkFlags.async, "async", false, "use the async mode")
	benchmarkCmd.Flags().StringVarP(&benchmarkFlags.format, "format", "f", "text", "output format: text, json, csv")
}

type benchmarkResults struct {
	total     int
	passed    int64
	rejected  int64
	failed    int64
	elapsed   time.Duration
	latencies []time.Duration
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(benchmarkFlags.format)
	if err != nil {
		return err
	}
	if benchmarkFlags.count < 1 || benchmarkFlags.concurrency < 1 || benchmarkFlags.identifiers < 1 {
		return fmt.Errorf("--count, --concurrency and --identifiers must be positive")
	}

	limiter, err := benchmarkLimiter()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(contextOf(cmd))
	defer stop()

	progress := cli.NewProgressReporter(cmd.ErrOrStderr())
	results := runLoad(ctx, limiter, progress)

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results.table())
}

func benchmarkLimiter() (*ratelimiter.Ratelimiter, error) {
	backend, err := ratelimiter.NewHTTPBackend(benchmarkFlags.url, nil)
	if err != nil {
		return nil, err
	}
	return ratelimiter.New(backend, ratelimiter.Options{
		Limit:     benchmarkFlags.limit,
		Duration:  benchmarkFlags.duration,
		Namespace: "benchmark",
		Async:     benchmarkFlags.async,
		Timeout:   ratelimiter.NoTimeout(),
	})
}

// runLoad sends benchmarkFlags.count checks from a fixed worker pool.
func runLoad(ctx context.Context, limiter *ratelimiter.Ratelimiter, progress *cli.SimpleProgress) *benchmarkResults {
	total := benchmarkFlags.count
	jobs := make(chan int)
	latencies := make([]time.Duration, total)

	progress.Start(int64(total))
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < benchmarkFlags.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				identifier := fmt.Sprintf("bench-%d", i%benchmarkFlags.identifiers)
				reqStart := time.Now()
				resp, err := limiter.Limit(ctx, identifier)
				latencies[i] = time.Since(reqStart)
				if err != nil {
					progress.Error(err)
					continue
				}
				progress.Record(resp.Success)
			}
		}()
	}

	sent := 0
send:
	for ; sent < total; sent++ {
		select {
		case <-ctx.Done():
			break send
		case jobs <- sent:
		}
	}
	close(jobs)
	wg.Wait()
	progress.Finish()

	passed, rejected, failed := progress.Counts()
	return &benchmarkResults{
		total:     sent,
		passed:    passed,
		rejected:  rejected,
		failed:    failed,
		elapsed:   time.Since(start),
		latencies: latencies[:sent],
	}
}

func (r *benchmarkResults) table() *cli.Table {
	t := &cli.Table{Headers: []string{"metric", "value"}}
	t.AddRow("checks", r.total)
	t.AddRow("passed", r.passed)
	t.AddRow("rejected", r.rejected)
	t.AddRow("errors", r.failed)
	t.AddRow("elapsed", r.elapsed.Round(time.Millisecond))
	if secs := r.elapsed.Seconds(); secs > 0 {
		t.AddRow("throughput_rps", fmt.Sprintf("%.1f", float64(r.total)/secs))
	}

	p := percentiles(r.latencies)
	for _, name := range []string{"min", "p50", "p95", "p99", "max"} {
		t.AddRow("latency_"+name, p[name].Round(time.Microsecond))
	}
	return t
}

func percentiles(latencies []time.Duration) map[string]time.Duration {
	out := make(map[string]time.Duration, 5)
	if len(latencies) == 0 {
		return out
	}

	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(q float64) time.Duration {
		idx := int(q * float64(len(sorted)-1))
		return sorted[idx]
	}
	out["min"] = sorted[0]
	out["p50"] = at(0.50)
	out["p95"] = at(0.95)
	out["p99"] = at(0.99)
	out["max"] = sorted[len(sorted)-1]
	return out
}
