package metrics

import (
	"context"
	"time"

	"mercator-hq/windowlimit/pkg/config"
	"mercator-hq/windowlimit/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the entry point for every metric in windowlimit.
//
// When metrics are disabled in the configuration, every Record method is a
// no-op but the Collector still satisfies its interfaces, so callers never
// need to branch.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	limitMetrics       *LimitMetrics
	cacheMetrics       *CacheMetrics
	coordinatorMetrics *CoordinatorMetrics
	nodeMetrics        *NodeMetrics
}

// NewCollector creates a collector and registers its metrics. If registry
// is nil a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		limitMetrics:       NewLimitMetrics(cfg, registry),
		cacheMetrics:       NewCacheMetrics(cfg, registry),
		coordinatorMetrics: NewCoordinatorMetrics(cfg, registry),
		nodeMetrics:        NewNodeMetrics(cfg, registry),
	}
}

// Emit implements ratelimit.Sink.
func (c *Collector) Emit(e ratelimit.Event) {
	if !c.config.Enabled {
		return
	}

	switch ev := e.(type) {
	case ratelimit.LatencyEvent:
		c.limitMetrics.RecordLimit(ev.Mode, ev.Outcome, ev.Latency, ev.FastReject)
	case ratelimit.AccuracyEvent:
		c.limitMetrics.RecordAccuracy(ev.Match())
	case ratelimit.ErrorEvent:
		c.limitMetrics.RecordError(ev.Stage)
	}
}

// Flush implements ratelimit.Sink. Prometheus is pull based so there is
// nothing to send.
func (c *Collector) Flush(context.Context) error { return nil }

// CacheHit implements cache.Observer.
func (c *Collector) CacheHit() {
	if c.config.Enabled {
		c.cacheMetrics.RecordHit()
	}
}

// CacheMiss implements cache.Observer.
func (c *Collector) CacheMiss() {
	if c.config.Enabled {
		c.cacheMetrics.RecordMiss()
	}
}

// CacheEvicted implements cache.Observer.
func (c *Collector) CacheEvicted(n int) {
	if c.config.Enabled {
		c.cacheMetrics.RecordEvictions(n)
	}
}

// UpdateCacheSize sets the current number of cached windows.
func (c *Collector) UpdateCacheSize(size int) {
	if c.config.Enabled {
		c.cacheMetrics.UpdateSize(size)
	}
}

// RecordCoordinatorAttempt implements coordinator.AttemptRecorder.
func (c *Collector) RecordCoordinatorAttempt(node, outcome string, d time.Duration) {
	if c.config.Enabled {
		c.coordinatorMetrics.RecordAttempt(node, outcome, d)
	}
}

// RecordNodeIncrement records one counter increment on a coordinator node.
func (c *Collector) RecordNodeIncrement(store, outcome string, d time.Duration) {
	if c.config.Enabled {
		c.nodeMetrics.RecordIncrement(store, outcome, d)
	}
}

// RecordSweep records windows removed by the janitor. It matches the
// janitor's OnSweep signature.
func (c *Collector) RecordSweep(target string, removed int) {
	if c.config.Enabled {
		c.nodeMetrics.RecordSweep(target, removed)
	}
}

// RecordHTTPRequest records a served HTTP request.
func (c *Collector) RecordHTTPRequest(route string, code int, d time.Duration) {
	if c.config.Enabled {
		c.nodeMetrics.RecordHTTP(route, code, d)
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
