// Package metrics provides Prometheus metrics collection for windowlimit.
//
// # Overview
//
// A single Collector owns a registry and plugs into the rest of the system
// through small interfaces:
//
//   - ratelimit.Sink: limit outcomes, latency and async accuracy
//   - cache.Observer: local cache hits, misses and evictions
//   - coordinator.AttemptRecorder: every HTTP attempt to a coordinator node
//   - node increments and janitor sweeps on the coordinator side
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	client, _ := ratelimit.New(ratelimit.Config{Sink: collector, ...})
//	mux.Handle("/metrics", collector.Handler())
//
// # Metrics
//
//	windowlimit_limit_requests_total{mode,outcome}
//	windowlimit_limit_duration_seconds{mode}
//	windowlimit_limit_fast_rejects_total
//	windowlimit_limit_accuracy_total{match}
//	windowlimit_limit_errors_total{stage}
//	windowlimit_cache_hits_total / cache_misses_total / cache_evictions_total
//	windowlimit_cache_entries
//	windowlimit_coordinator_attempts_total{node,outcome}
//	windowlimit_coordinator_attempt_duration_seconds{node}
//	windowlimit_node_increments_total{store,outcome}
//	windowlimit_node_increment_duration_seconds{store}
//	windowlimit_sweep_removed_total{target}
//	windowlimit_http_requests_total{route,code}
//
// Identifiers are never used as labels.
package metrics
