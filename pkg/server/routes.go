package server

import (
	"log/slog"
	"net/http"

	"mercator-hq/windowlimit/pkg/config"
	"mercator-hq/windowlimit/pkg/telemetry/health"
	"mercator-hq/windowlimit/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

// Route is one traced and instrumented endpoint.
type Route struct {
	// Method is the HTTP method.
	Method string

	// Path is the URL path, also used as the span and metric route label.
	Path string

	Handler http.Handler
}

// MuxConfig describes everything mounted on a mux.
type MuxConfig struct {
	Routes []Route

	// Health mounts liveness and readiness probes when set.
	Health       *health.Checker
	HealthConfig config.HealthConfig

	// Metrics is mounted at MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string

	Recorder HTTPRecorder
	Tracer   trace.Tracer
	Logger   *slog.Logger
	Version  string
}

// NewMux builds the handler tree with the standard middleware chain.
func NewMux(cfg MuxConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	for _, route := range cfg.Routes {
		h := Instrument(cfg.Recorder, route.Path, route.Handler)
		h = tracing.HTTPMiddleware(cfg.Tracer, route.Path, h)
		mux.Handle(route.Method+" "+route.Path, h)
	}

	if cfg.Health != nil {
		hc := cfg.HealthConfig
		if hc.LivenessPath == "" {
			hc.LivenessPath = config.DefaultLivenessPath
		}
		if hc.ReadinessPath == "" {
			hc.ReadinessPath = config.DefaultReadinessPath
		}
		cfg.Health.Mount(mux, hc.LivenessPath, hc.ReadinessPath, cfg.Version)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		mux.Handle("GET "+path, cfg.Metrics)
	}

	var handler http.Handler = mux
	handler = Logging(logger, handler)
	handler = RequestID(handler)
	handler = Recovery(logger, handler)
	return handler
}
