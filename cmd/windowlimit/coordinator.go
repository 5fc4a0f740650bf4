package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
	"mercator-hq/windowlimit/pkg/config"
	"mercator-hq/windowlimit/pkg/coordinator"
	"mercator-hq/windowlimit/pkg/coordinator/node"
	"mercator-hq/windowlimit/pkg/janitor"
	"mercator-hq/windowlimit/pkg/server"
	"mercator-hq/windowlimit/pkg/telemetry/health"
	"mercator-hq/windowlimit/pkg/telemetry/logging"
	"mercator-hq/windowlimit/pkg/telemetry/metrics"
	"mercator-hq/windowlimit/pkg/telemetry/tracing"
)

var coordinatorFlags struct {
	listenAddress string
	store         string
}

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Start a reference coordinator node",
	Long: `Start a coordinator node that owns authoritative window counters.

The node serves POST /limit with the X-Window-Key and Idempotency-Key
headers. Counters live in memory, Redis or SQLite and expired windows are
swept on the configured schedule.

Examples:
  # In-memory node on the default address
  windowlimit coordinator

  # Redis-backed node
  windowlimit coordinator --store redis

  # SQLite-backed node on another port
  windowlimit coordinator --store sqlite --listen 127.0.0.1:9091`,
	RunE: runCoordinator,
}

func init() {
	rootCmd.AddCommand(coordinatorCmd)

	coordinatorCmd.Flags().StringVarP(&coordinatorFlags.listenAddress, "listen", "l", "", "override node listen address")
	coordinatorCmd.Flags().StringVar(&coordinatorFlags.store, "store", "", "override counter store (memory, redis, sqlite)")
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	if coordinatorFlags.listenAddress != "" {
		cfg.Node.ListenAddress = coordinatorFlags.listenAddress
	}
	if coordinatorFlags.store != "" {
		cfg.Node.Store = coordinatorFlags.store
	}

	logger, err := newLogger(cfg.Telemetry.Logging, verbose)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(contextOf(cmd))
	defer stop()

	app, err := buildNode(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("coordinator", err)
	}
	defer app.janitor.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Coordinator store: %s\n", cfg.Node.Store)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", cfg.Node.ListenAddress)

	if err := app.server.Start(ctx); err != nil {
		return cli.NewCommandError("coordinator", err)
	}
	return nil
}

type nodeApp struct {
	server  *server.Server
	store   node.Store
	janitor *janitor.Janitor
}

// buildNode opens the store, wires the node handler and starts the
// sweeper. The server is returned unstarted; closing the store is one of
// its shutdown hooks.
func buildNode(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*nodeApp, error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, err
	}
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	store, err := newStore(ctx, cfg.Node, logger.Logger)
	if err != nil {
		return nil, err
	}

	handler := node.NewHandler(node.Instrument(store, cfg.Node.Store, collector), logger.Logger)

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.Register("store", health.PingCheck(store))

	mux := server.MuxConfig{
		Routes: []server.Route{
			{Method: http.MethodPost, Path: coordinator.LimitPath, Handler: handler},
		},
		Health: checker,
		HealthConfig: config.HealthConfig{
			LivenessPath:  "/health",
			ReadinessPath: cfg.Telemetry.Health.ReadinessPath,
		},
		Recorder: collector,
		Tracer:   tracer.Tracer(),
		Logger:   logger.Logger,
		Version:  Version,
	}
	if cfg.Telemetry.Metrics.Enabled {
		mux.Metrics = collector.Handler()
		mux.MetricsPath = cfg.Telemetry.Metrics.Path
	}

	serverCfg := cfg.Server
	serverCfg.ListenAddress = cfg.Node.ListenAddress
	srv := server.New(serverCfg, server.NewMux(mux), logger.Logger)
	srv.OnShutdown(tracer.Shutdown)
	srv.OnShutdown(func(context.Context) error { return store.Close() })

	j, err := janitor.New(janitor.Config{
		Schedule: cfg.Node.SweepSchedule,
		Logger:   logger.Logger,
		OnSweep:  collector.RecordSweep,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	j.Register("store", store)
	if err := j.Start(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &nodeApp{server: srv, store: store, janitor: j}, nil
}
