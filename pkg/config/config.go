package config

import "time"

// Config is the root configuration.
type Config struct {
	// Server configures the rate limit API server (windowlimit run).
	Server ServerConfig `yaml:"server"`

	// Coordinator configures how the API server reaches coordinator nodes.
	Coordinator CoordinatorConfig `yaml:"coordinator"`

	// Node configures the reference coordinator (windowlimit coordinator).
	Node NodeConfig `yaml:"node"`

	// Limiter holds the default limit applied by the API server and CLI.
	Limiter LimiterConfig `yaml:"limiter"`

	// Cache configures the local window cache.
	Cache CacheConfig `yaml:"cache"`

	// Telemetry configures logging, metrics, tracing and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown, including pending
	// background reconciliation.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// CoordinatorConfig configures the coordinator transport.
type CoordinatorConfig struct {
	// Nodes are the coordinator base URLs or domains. Bare domains use
	// https. With more than one node, window keys are spread by rendezvous
	// hashing.
	// Default: ["http://127.0.0.1:8081"]
	Nodes []string `yaml:"nodes"`

	// AttemptTimeout bounds each HTTP attempt.
	// Default: 2s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// MaxIdleConnsPerHost controls connection reuse per node.
	// Default: 20
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`
}

// NodeConfig configures the reference coordinator.
type NodeConfig struct {
	// ListenAddress is the coordinator's address.
	// Default: "127.0.0.1:8081"
	ListenAddress string `yaml:"listen_address"`

	// Store selects the counter store.
	// Options: "memory", "redis", "sqlite"
	// Default: "memory"
	Store string `yaml:"store"`

	// Redis configures the redis store.
	Redis RedisConfig `yaml:"redis"`

	// SQLite configures the sqlite store.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SweepSchedule is the cron schedule for removing expired windows.
	// Default: "@every 30s"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// RedisConfig configures a Redis connection.
type RedisConfig struct {
	// Address is host:port.
	// Default: "localhost:6379"
	Address string `yaml:"address"`

	// Password for AUTH. Optional.
	Password string `yaml:"password"`

	// DB is the database number.
	// Default: 0
	DB int `yaml:"db"`

	// KeyPrefix is prepended to every key.
	// Default: "windowlimit:"
	KeyPrefix string `yaml:"key_prefix"`

	// DialTimeout bounds connection setup.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// SQLiteConfig configures a SQLite database.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/coordinator.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LimiterConfig holds limiter defaults.
type LimiterConfig struct {
	// Namespace is the default namespace.
	// Default: "default"
	Namespace string `yaml:"namespace"`

	// Limit is the default window capacity.
	// Default: 100
	Limit int64 `yaml:"limit"`

	// Duration is the default window length in the duration grammar
	// ("10s", "1 m", "1h").
	// Default: "60s"
	Duration string `yaml:"duration"`

	// Async makes fast mode the default.
	// Default: false
	Async bool `yaml:"async"`

	// Timeout bounds each check.
	Timeout TimeoutConfig `yaml:"timeout"`
}

// TimeoutConfig configures the limiter timeout.
type TimeoutConfig struct {
	// Disabled turns the timeout off.
	// Default: false
	Disabled bool `yaml:"disabled"`

	// Duration is the bound.
	// Default: 5s
	Duration time.Duration `yaml:"duration"`

	// Fallback is the response returned on timeout. When unset the check
	// fails closed with reset set to the current time.
	Fallback *FallbackConfig `yaml:"fallback"`
}

// FallbackConfig is a fixed fallback response.
type FallbackConfig struct {
	Success   bool  `yaml:"success"`
	Limit     int64 `yaml:"limit"`
	Remaining int64 `yaml:"remaining"`
	Reset     int64 `yaml:"reset"`
}

// CacheConfig configures the local window cache.
type CacheConfig struct {
	// Backend selects the cache implementation.
	// Options: "memory", "freecache"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Shards is the number of lock shards.
	// Default: 64
	Shards int `yaml:"shards"`

	// SizeBytes bounds the freecache backend.
	// Default: 33554432 (32MB)
	SizeBytes int `yaml:"size_bytes"`

	// SweepSchedule is the cron schedule for evicting expired windows
	// from the memory backend.
	// Default: "@every 30s"
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactIdentifiers replaces rate limit identifiers in logs with a
	// stable hash. Identifiers are often IP addresses or user IDs.
	// Default: false
	RedactIdentifiers bool `yaml:"redact_identifiers"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "windowlimit"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name. Optional.
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets for check latency (seconds).
	// Default: [0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP/gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "windowlimit"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
