package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"mercator-hq/windowlimit/pkg/cli"
	"mercator-hq/windowlimit/pkg/config"
	"mercator-hq/windowlimit/pkg/coordinator/node"
	"mercator-hq/windowlimit/pkg/ratelimit/cache"
	"mercator-hq/windowlimit/pkg/ratelimiter"
	"mercator-hq/windowlimit/pkg/telemetry/logging"
	"mercator-hq/windowlimit/pkg/telemetry/metrics"
)

// loadConfig reads path with environment overrides, or starts from
// defaults when no file is given. Environment overrides apply either way.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadConfigWithEnvOverrides(path)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, cli.NewConfigError(path, err)
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(cfg config.LoggingConfig, debug bool) (*logging.Logger, error) {
	lc := logging.Config{
		Level:             cfg.Level,
		Format:            cfg.Format,
		AddSource:         cfg.AddSource,
		RedactIdentifiers: cfg.RedactIdentifiers,
		Writer:            os.Stderr,
	}
	if debug {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}

// newCache builds the local window counter cache.
func newCache(cfg config.CacheConfig, collector *metrics.Collector) (cache.Cache, error) {
	opts := []cache.Option{cache.WithObserver(collector), cache.WithShards(cfg.Shards)}
	switch cfg.Backend {
	case "memory":
		return cache.NewMemory(opts...), nil
	case "freecache":
		return cache.NewFreeCache(cfg.SizeBytes, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

// newStore opens the coordinator node's counter store.
func newStore(ctx context.Context, cfg config.NodeConfig, logger *slog.Logger) (node.Store, error) {
	switch cfg.Store {
	case "memory":
		return node.NewMemoryStore(time.Now), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		store := node.NewRedisStore(client, node.WithKeyPrefix(cfg.Redis.KeyPrefix))
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Address, err)
		}
		return store, nil

	case "sqlite":
		return node.NewSQLiteStore(node.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
			Logger:      logger,
		})

	default:
		return nil, fmt.Errorf("unsupported coordinator store: %s", cfg.Store)
	}
}

// limiterOptions maps limiter configuration onto facade options.
func limiterOptions(cfg config.LimiterConfig, logger *slog.Logger) ratelimiter.Options {
	opts := ratelimiter.Options{
		Limit:     cfg.Limit,
		Duration:  cfg.Duration,
		Namespace: cfg.Namespace,
		Async:     cfg.Async,
		Logger:    logger,
		Timeout: &ratelimiter.TimeoutPolicy{
			Disabled: cfg.Timeout.Disabled,
			Duration: cfg.Timeout.Duration,
		},
	}
	if fb := cfg.Timeout.Fallback; fb != nil {
		opts.Timeout.Fallback = &ratelimiter.Response{
			Success:   fb.Success,
			Limit:     fb.Limit,
			Remaining: fb.Remaining,
			Reset:     fb.Reset,
		}
	}
	return opts
}

// coordinatorHTTPClient is shared by the transport and the readiness probe.
func coordinatorHTTPClient(cfg config.CoordinatorConfig) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// contextOf returns the command's context, which is nil when a command
// function is called directly.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := contextOf(cmd)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
