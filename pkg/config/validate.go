package config

import (
	"fmt"
	"net"
	"strings"

	"mercator-hq/windowlimit/pkg/duration"
	"mercator-hq/windowlimit/pkg/janitor"
	"mercator-hq/windowlimit/pkg/ratelimit/cache"
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every invalid field found in one pass.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Errors[0].Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Validate checks cfg and returns a *ValidationError listing every problem.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCoordinator(&cfg.Coordinator)...)
	errs = append(errs, validateNode(&cfg.Node)...)
	errs = append(errs, validateLimiter(&cfg.Limiter)...)
	errs = append(errs, validateCache(&cfg.Cache)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if err := validateAddress(cfg.ListenAddress); err != "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: err})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must not be negative"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "must not be negative"})
	}

	return errs
}

func validateCoordinator(cfg *CoordinatorConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Nodes) == 0 {
		errs = append(errs, FieldError{Field: "coordinator.nodes", Message: "at least one node is required"})
	}
	for i, n := range cfg.Nodes {
		if strings.TrimSpace(n) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("coordinator.nodes[%d]", i), Message: "must not be empty"})
		}
	}
	if cfg.AttemptTimeout <= 0 {
		errs = append(errs, FieldError{Field: "coordinator.attempt_timeout", Message: "must be positive"})
	}

	return errs
}

func validateNode(cfg *NodeConfig) []FieldError {
	var errs []FieldError

	if err := validateAddress(cfg.ListenAddress); err != "" {
		errs = append(errs, FieldError{Field: "node.listen_address", Message: err})
	}

	switch cfg.Store {
	case "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			errs = append(errs, FieldError{Field: "node.redis.address", Message: "required when store is redis"})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{Field: "node.redis.db", Message: "must not be negative"})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "node.sqlite.path", Message: "required when store is sqlite"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "node.store",
			Message: fmt.Sprintf("invalid store %q (must be memory, redis or sqlite)", cfg.Store),
		})
	}

	if err := janitor.ValidateSchedule(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{Field: "node.sweep_schedule", Message: err.Error()})
	}

	return errs
}

func validateLimiter(cfg *LimiterConfig) []FieldError {
	var errs []FieldError

	if cfg.Limit <= 0 {
		errs = append(errs, FieldError{Field: "limiter.limit", Message: "must be positive"})
	}
	if d, err := duration.ParseString(cfg.Duration); err != nil {
		errs = append(errs, FieldError{Field: "limiter.duration", Message: err.Error()})
	} else if d <= 0 {
		errs = append(errs, FieldError{Field: "limiter.duration", Message: "must be positive"})
	}
	if !cfg.Timeout.Disabled && cfg.Timeout.Duration <= 0 {
		errs = append(errs, FieldError{Field: "limiter.timeout.duration", Message: "must be positive"})
	}
	if fb := cfg.Timeout.Fallback; fb != nil {
		if fb.Limit < 0 || fb.Remaining < 0 {
			errs = append(errs, FieldError{Field: "limiter.timeout.fallback", Message: "limit and remaining must not be negative"})
		}
	}

	return errs
}

func validateCache(cfg *CacheConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
		if cfg.Shards <= 0 {
			errs = append(errs, FieldError{Field: "cache.shards", Message: "must be positive"})
		}
	case "freecache":
		if cfg.SizeBytes < cache.MinFreeCacheSize {
			errs = append(errs, FieldError{Field: "cache.size_bytes", Message: fmt.Sprintf("must be at least %d", cache.MinFreeCacheSize)})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "cache.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or freecache)", cfg.Backend),
		})
	}

	if err := janitor.ValidateSchedule(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{Field: "cache.sweep_schedule", Message: err.Error()})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "must be strictly increasing"})
			break
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "required when tracing is enabled"})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.liveness_path", Message: "must start with /"})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{Field: "telemetry.health.readiness_path", Message: "must start with /"})
	}

	return errs
}

// validateAddress returns a message when addr is not host:port.
func validateAddress(addr string) string {
	if addr == "" {
		return "listen address is required"
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Sprintf("invalid address %q: %v", addr, err)
	}
	return ""
}
