package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
	"mercator-hq/windowlimit/pkg/config"
	"mercator-hq/windowlimit/pkg/coordinator"
	"mercator-hq/windowlimit/pkg/janitor"
	"mercator-hq/windowlimit/pkg/ratelimit"
	"mercator-hq/windowlimit/pkg/ratelimiter"
	"mercator-hq/windowlimit/pkg/server"
	"mercator-hq/windowlimit/pkg/telemetry/health"
	"mercator-hq/windowlimit/pkg/telemetry/logging"
	"mercator-hq/windowlimit/pkg/telemetry/metrics"
	"mercator-hq/windowlimit/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the rate limit API server",
	Long: `Start the rate limit API server.

The server answers POST /v1/ratelimits.limit and /v1/ratelimits.multiLimit,
keeping a local window cache and forwarding counting to the configured
coordinator nodes. Limiter defaults and the log level are reloaded when the
config file changes or on SIGHUP.

Examples:
  # Start with defaults (coordinator on 127.0.0.1:8081)
  windowlimit run

  # Start with a config file
  windowlimit run --config /etc/windowlimit/config.yaml

  # Validate configuration without starting
  windowlimit run --config config.yaml --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	config.SetConfig(cfg)

	logger, err := newLogger(cfg.Telemetry.Logging, verbose)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(contextOf(cmd))
	defer stop()

	app, err := buildAPI(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer app.janitor.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "windowlimit %s\n", Version)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Coordinator nodes: %v\n", cfg.Coordinator.Nodes)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", cfg.Server.ListenAddress)

	reload := &reloader{path: cfgFile, limiter: app.limiter, logger: logger}
	defer config.OnReload(reload.apply)()
	if cfgFile != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{Path: cfgFile, Logger: logger.Logger})
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := watcher.Watch(ctx, reload.reload); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}
	go reloadOnSignal(ctx, reload, logger.Logger)

	if err := app.server.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// apiApp is the wired API server.
type apiApp struct {
	server  *server.Server
	limiter *ratelimiter.Ratelimiter
	client  *ratelimit.Client
	janitor *janitor.Janitor
	tracer  *tracing.Tracer
	metrics *metrics.Collector
}

// buildAPI wires the rate limit stack from cfg and starts the cache
// janitor. The server is returned unstarted.
func buildAPI(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*apiApp, error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	localCache, err := newCache(cfg.Cache, collector)
	if err != nil {
		return nil, err
	}

	router, err := coordinator.NewRouter(cfg.Coordinator.Nodes)
	if err != nil {
		return nil, err
	}
	httpClient := coordinatorHTTPClient(cfg.Coordinator)

	transport, err := coordinator.NewHTTPTransport(coordinator.HTTPTransportConfig{
		Router:         router,
		Client:         httpClient,
		AttemptTimeout: cfg.Coordinator.AttemptTimeout,
		Logger:         logger.Logger,
		Tracer:         tracer.Tracer(),
		Recorder:       collector,
	})
	if err != nil {
		return nil, err
	}

	client, err := ratelimit.New(ratelimit.Config{
		Coordinator: transport,
		Cache:       localCache,
		Sink:        ratelimit.MultiSink{collector, ratelimit.LogSink{Logger: logger.Logger}},
		Background:  ratelimit.NewTaskGroup(logger.Logger),
		Logger:      logger.Logger,
		Tracer:      tracer.Tracer(),
	})
	if err != nil {
		return nil, err
	}

	limiter, err := ratelimiter.New(client, limiterOptions(cfg.Limiter, logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("invalid limiter configuration: %w", err)
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.Register("coordinator", health.CoordinatorCheck(cfg.Coordinator.Nodes, httpClient))

	mux := server.MuxConfig{
		Routes:       server.NewAPI(limiter, logger.Logger).Routes(),
		Health:       checker,
		HealthConfig: cfg.Telemetry.Health,
		Recorder:     collector,
		Tracer:       tracer.Tracer(),
		Logger:       logger.Logger,
		Version:      Version,
	}
	if cfg.Telemetry.Metrics.Enabled {
		mux.Metrics = collector.Handler()
		mux.MetricsPath = cfg.Telemetry.Metrics.Path
	}

	srv := server.New(cfg.Server, server.NewMux(mux), logger.Logger)
	srv.OnShutdown(client.Flush)
	srv.OnShutdown(tracer.Shutdown)

	j, err := janitor.New(janitor.Config{
		Schedule: cfg.Cache.SweepSchedule,
		Logger:   logger.Logger,
		OnSweep: func(target string, removed int) {
			collector.RecordSweep(target, removed)
			collector.UpdateCacheSize(localCache.Len())
		},
	})
	if err != nil {
		return nil, err
	}
	j.Register("cache", localCache)
	if err := j.Start(ctx); err != nil {
		return nil, err
	}

	return &apiApp{
		server:  srv,
		limiter: limiter,
		client:  client,
		janitor: j,
		tracer:  tracer,
		metrics: collector,
	}, nil
}

// reloader re-reads the config file and applies it to the running process.
// Only the limiter defaults and the log level are reloadable.
type reloader struct {
	path    string
	limiter *ratelimiter.Ratelimiter
	logger  *logging.Logger
}

func (r *reloader) reload() error {
	if r.path == "" {
		return nil
	}
	return config.ReloadConfig(r.path)
}

// apply is registered with config.OnReload.
func (r *reloader) apply(cfg *config.Config) error {
	if err := r.limiter.Update(limiterOptions(cfg.Limiter, r.logger.Logger)); err != nil {
		return fmt.Errorf("failed to apply limiter configuration: %w", err)
	}
	if !verbose && runFlags.logLevel == "" {
		if err := r.logger.SetLevel(cfg.Telemetry.Logging.Level); err != nil {
			return err
		}
	}

	r.logger.Info("configuration reloaded",
		"path", r.path,
		"limit", cfg.Limiter.Limit,
		"duration", cfg.Limiter.Duration,
		"log_level", cfg.Telemetry.Logging.Level,
	)
	return nil
}

func reloadOnSignal(ctx context.Context, r *reloader, logger *slog.Logger) {
	signals := cli.ReloadSignals()
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			start := time.Now()
			if err := r.reload(); err != nil {
				logger.Error("configuration reload failed", "error", err)
				continue
			}
			logger.Debug("reload complete", "duration", time.Since(start))
		}
	}
}
