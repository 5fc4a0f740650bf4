package metrics

import (
	"mercator-hq/windowlimit/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the local window cache: hits, misses, evictions after
// a window resets, and the number of windows currently held.
type CacheMetrics struct {
	hitsTotal      prometheus.Counter
	missesTotal    prometheus.Counter
	evictionsTotal prometheus.Counter
	entries        prometheus.Gauge
}

func cacheOpts(cfg *config.MetricsConfig, name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "cache_" + name,
		Help:      help,
	}
}

// NewCacheMetrics registers the cache series on registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal:      prometheus.NewCounter(prometheus.CounterOpts(cacheOpts(cfg, "hits_total", "Window lookups answered from the local cache"))),
		missesTotal:    prometheus.NewCounter(prometheus.CounterOpts(cacheOpts(cfg, "misses_total", "Window lookups with no live cached entry"))),
		evictionsTotal: prometheus.NewCounter(prometheus.CounterOpts(cacheOpts(cfg, "evictions_total", "Cached windows dropped after their reset time"))),
		entries:        prometheus.NewGauge(prometheus.GaugeOpts(cacheOpts(cfg, "entries", "Windows currently held in the local cache"))),
	}
	registry.MustRegister(cm.hitsTotal, cm.missesTotal, cm.evictionsTotal, cm.entries)
	return cm
}

func (cm *CacheMetrics) RecordHit()  { cm.hitsTotal.Inc() }
func (cm *CacheMetrics) RecordMiss() { cm.missesTotal.Inc() }

// RecordEvictions ignores non-positive counts.
func (cm *CacheMetrics) RecordEvictions(n int) {
	if n <= 0 {
		return
	}
	cm.evictionsTotal.Add(float64(n))
}

func (cm *CacheMetrics) UpdateSize(size int) { cm.entries.Set(float64(size)) }
