package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:      "bad listen address",
			modify:    func(c *Config) { c.Server.ListenAddress = "localhost" },
			wantField: "server.listen_address",
		},
		{
			name:      "empty node",
			modify:    func(c *Config) { c.Coordinator.Nodes = []string{"http://a", " "} },
			wantField: "coordinator.nodes[1]",
		},
		{
			name:      "no nodes",
			modify:    func(c *Config) { c.Coordinator.Nodes = nil },
			wantField: "coordinator.nodes",
		},
		{
			name:      "zero attempt timeout",
			modify:    func(c *Config) { c.Coordinator.AttemptTimeout = 0 },
			wantField: "coordinator.attempt_timeout",
		},
		{
			name:      "redis without address",
			modify:    func(c *Config) { c.Node.Store = "redis"; c.Node.Redis.Address = "" },
			wantField: "node.redis.address",
		},
		{
			name:      "non-positive limit",
			modify:    func(c *Config) { c.Limiter.Limit = -1 },
			wantField: "limiter.limit",
		},
		{
			name:      "zero duration",
			modify:    func(c *Config) { c.Limiter.Duration = "0s" },
			wantField: "limiter.duration",
		},
		{
			name: "disabled timeout skips duration check",
			modify: func(c *Config) {
				c.Limiter.Timeout.Disabled = true
				c.Limiter.Timeout.Duration = 0
			},
		},
		{
			name:      "negative fallback",
			modify:    func(c *Config) { c.Limiter.Timeout.Fallback = &FallbackConfig{Remaining: -1} },
			wantField: "limiter.timeout.fallback",
		},
		{
			name:      "unknown cache backend",
			modify:    func(c *Config) { c.Cache.Backend = "ristretto" },
			wantField: "cache.backend",
		},
		{
			name: "freecache too small",
			modify: func(c *Config) {
				c.Cache.Backend = "freecache"
				c.Cache.SizeBytes = 1024
			},
			wantField: "cache.size_bytes",
		},
		{
			name:      "bad log level",
			modify:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "tracing without endpoint",
			modify:    func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			wantField: "telemetry.tracing.endpoint",
		},
		{
			name:      "sample ratio out of range",
			modify:    func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "unsorted buckets",
			modify:    func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{0.1, 0.01} },
			wantField: "telemetry.metrics.duration_buckets",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want field %q", verr.Errors, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	single := &ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "validation failed: a: bad" {
		t.Errorf("Error() = %q", got)
	}

	multi := &ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	got := multi.Error()
	if !strings.HasPrefix(got, "validation failed with 2 errors:") || !strings.Contains(got, "\n  - b: worse") {
		t.Errorf("Error() = %q", got)
	}
}
