package config

import (
	"time"

	"mercator-hq/windowlimit/pkg/janitor"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Coordinator defaults
	DefaultCoordinatorNode           = "http://127.0.0.1:8081"
	DefaultCoordinatorAttemptTimeout = 2 * time.Second
	DefaultCoordinatorMaxIdlePerHost = 20

	// Node defaults
	DefaultNodeListenAddress = "127.0.0.1:8081"
	DefaultNodeStore         = "memory"
	DefaultRedisAddress      = "localhost:6379"
	DefaultRedisKeyPrefix    = "windowlimit:"
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultSQLitePath        = "data/coordinator.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultSweepSchedule     = janitor.DefaultSchedule

	// Limiter defaults
	DefaultLimiterNamespace = "default"
	DefaultLimiterLimit     = int64(100)
	DefaultLimiterDuration  = "60s"
	DefaultLimiterTimeout   = 5 * time.Second

	// Cache defaults
	DefaultCacheBackend   = "memory"
	DefaultCacheShards    = 64
	DefaultCacheSizeBytes = 32 * 1024 * 1024

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "windowlimit"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingService     = "windowlimit"
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// DefaultDurationBuckets are latency buckets in seconds.
var DefaultDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Default returns a configuration with every default applied, including
// booleans that default to true.
func Default() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Coordinator defaults
	if len(cfg.Coordinator.Nodes) == 0 {
		cfg.Coordinator.Nodes = []string{DefaultCoordinatorNode}
	}
	if cfg.Coordinator.AttemptTimeout == 0 {
		cfg.Coordinator.AttemptTimeout = DefaultCoordinatorAttemptTimeout
	}
	if cfg.Coordinator.MaxIdleConnsPerHost == 0 {
		cfg.Coordinator.MaxIdleConnsPerHost = DefaultCoordinatorMaxIdlePerHost
	}

	// Node defaults
	if cfg.Node.ListenAddress == "" {
		cfg.Node.ListenAddress = DefaultNodeListenAddress
	}
	if cfg.Node.Store == "" {
		cfg.Node.Store = DefaultNodeStore
	}
	if cfg.Node.Redis.Address == "" {
		cfg.Node.Redis.Address = DefaultRedisAddress
	}
	if cfg.Node.Redis.KeyPrefix == "" {
		cfg.Node.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Node.Redis.DialTimeout == 0 {
		cfg.Node.Redis.DialTimeout = DefaultRedisDialTimeout
	}
	if cfg.Node.SQLite.Path == "" {
		cfg.Node.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Node.SQLite.BusyTimeout == 0 {
		cfg.Node.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Node.SweepSchedule == "" {
		cfg.Node.SweepSchedule = DefaultSweepSchedule
	}

	// Limiter defaults
	if cfg.Limiter.Namespace == "" {
		cfg.Limiter.Namespace = DefaultLimiterNamespace
	}
	if cfg.Limiter.Limit == 0 {
		cfg.Limiter.Limit = DefaultLimiterLimit
	}
	if cfg.Limiter.Duration == "" {
		cfg.Limiter.Duration = DefaultLimiterDuration
	}
	if cfg.Limiter.Timeout.Duration == 0 {
		cfg.Limiter.Timeout.Duration = DefaultLimiterTimeout
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.Shards == 0 {
		cfg.Cache.Shards = DefaultCacheShards
	}
	if cfg.Cache.SizeBytes == 0 {
		cfg.Cache.SizeBytes = DefaultCacheSizeBytes
	}
	if cfg.Cache.SweepSchedule == "" {
		cfg.Cache.SweepSchedule = DefaultSweepSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
