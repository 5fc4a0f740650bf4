package metrics

import (
	"strconv"
	"time"

	"mercator-hq/windowlimit/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// NodeMetrics tracks server side work: coordinator increments, janitor
// sweeps and served HTTP requests.
type NodeMetrics struct {
	incrementsTotal   *prometheus.CounterVec
	incrementDuration *prometheus.HistogramVec
	sweepRemoved      *prometheus.CounterVec
	httpTotal         *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewNodeMetrics creates and registers node metrics.
func NewNodeMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *NodeMetrics {
	nm := &NodeMetrics{
		incrementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "node_increments_total",
				Help:      "Counter increments handled by the coordinator by store and outcome",
			},
			[]string{"store", "outcome"},
		),

		incrementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "node_increment_duration_seconds",
				Help:      "Duration of store increments in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"store"},
		),

		sweepRemoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sweep_removed_total",
				Help:      "Expired windows removed by the janitor",
			},
			[]string{"target"},
		),

		httpTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by route and status code",
			},
			[]string{"route", "code"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of served HTTP requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		nm.incrementsTotal,
		nm.incrementDuration,
		nm.sweepRemoved,
		nm.httpTotal,
		nm.httpDuration,
	)

	return nm
}

// RecordIncrement records one store increment.
func (nm *NodeMetrics) RecordIncrement(store, outcome string, d time.Duration) {
	nm.incrementsTotal.WithLabelValues(store, outcome).Inc()
	nm.incrementDuration.WithLabelValues(store).Observe(d.Seconds())
}

// RecordSweep adds removed windows for target.
func (nm *NodeMetrics) RecordSweep(target string, removed int) {
	if removed > 0 {
		nm.sweepRemoved.WithLabelValues(target).Add(float64(removed))
	}
}

// RecordHTTP records one served request.
func (nm *NodeMetrics) RecordHTTP(route string, code int, d time.Duration) {
	nm.httpTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	nm.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
