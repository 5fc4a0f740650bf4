package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "WINDOWLIMIT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML over the default configuration. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables take precedence over
// the file.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	return withEnvOverrides(cfg)
}

// LoadFromEnv builds a configuration from defaults and environment
// variables alone.
func LoadFromEnv() (*Config, error) {
	return withEnvOverrides(Default())
}

func withEnvOverrides(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies WINDOWLIMIT_* variables to cfg. A variable that
// is set but cannot be parsed is an error.
func applyEnvOverrides(cfg *Config) error {
	e := &envReader{}

	// Server
	e.str("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	e.duration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.duration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	e.duration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Coordinator
	if v := os.Getenv(EnvPrefix + "COORDINATOR_NODES"); v != "" {
		cfg.Coordinator.Nodes = splitList(v)
	}
	e.duration("COORDINATOR_ATTEMPT_TIMEOUT", &cfg.Coordinator.AttemptTimeout)

	// Node
	e.str("NODE_LISTEN_ADDRESS", &cfg.Node.ListenAddress)
	e.str("NODE_STORE", &cfg.Node.Store)
	e.str("NODE_REDIS_ADDRESS", &cfg.Node.Redis.Address)
	e.str("NODE_REDIS_PASSWORD", &cfg.Node.Redis.Password)
	e.integer("NODE_REDIS_DB", &cfg.Node.Redis.DB)
	e.str("NODE_REDIS_KEY_PREFIX", &cfg.Node.Redis.KeyPrefix)
	e.str("NODE_SQLITE_PATH", &cfg.Node.SQLite.Path)
	e.str("NODE_SWEEP_SCHEDULE", &cfg.Node.SweepSchedule)

	// Limiter
	e.str("LIMITER_NAMESPACE", &cfg.Limiter.Namespace)
	e.int64("LIMITER_LIMIT", &cfg.Limiter.Limit)
	e.str("LIMITER_DURATION", &cfg.Limiter.Duration)
	e.boolean("LIMITER_ASYNC", &cfg.Limiter.Async)
	e.boolean("LIMITER_TIMEOUT_DISABLED", &cfg.Limiter.Timeout.Disabled)
	e.duration("LIMITER_TIMEOUT_DURATION", &cfg.Limiter.Timeout.Duration)

	// Cache
	e.str("CACHE_BACKEND", &cfg.Cache.Backend)
	e.integer("CACHE_SIZE_BYTES", &cfg.Cache.SizeBytes)

	// Telemetry
	e.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	e.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	e.boolean("TELEMETRY_LOGGING_REDACT_IDENTIFIERS", &cfg.Telemetry.Logging.RedactIdentifiers)
	e.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	e.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	e.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	e.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	if len(e.errs) > 0 {
		return &ValidationError{Errors: e.errs}
	}
	return nil
}

type envReader struct {
	errs []FieldError
}

func (e *envReader) lookup(name string) (string, bool) {
	v := os.Getenv(EnvPrefix + name)
	return v, v != ""
}

func (e *envReader) fail(name, format string, args ...any) {
	e.errs = append(e.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf(format, args...),
	})
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.lookup(name); ok {
		*dst = v
	}
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, "invalid integer %q", v)
		return
	}
	*dst = n
}

func (e *envReader) int64(name string, dst *int64) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.fail(name, "invalid integer %q", v)
		return
	}
	*dst = n
}

func (e *envReader) float(name string, dst *float64) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(name, "invalid number %q", v)
		return
	}
	*dst = f
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, "invalid boolean %q", v)
		return
	}
	*dst = b
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.lookup(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, "invalid duration %q", v)
		return
	}
	*dst = d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
