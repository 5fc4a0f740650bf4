// Package telemetry groups the observability packages used by windowlimit:
//
//   - logging: slog loggers with context fields and identifier redaction
//   - metrics: Prometheus collector for limits, cache, coordinator and nodes
//   - tracing: OpenTelemetry setup and HTTP propagation
//   - health: liveness and readiness probes
package telemetry
