package metrics

import (
	"time"

	"mercator-hq/windowlimit/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CoordinatorMetrics tracks HTTP attempts against coordinator nodes.
type CoordinatorMetrics struct {
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
}

// NewCoordinatorMetrics creates and registers coordinator metrics.
func NewCoordinatorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CoordinatorMetrics {
	cm := &CoordinatorMetrics{
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "coordinator_attempts_total",
				Help:      "HTTP attempts to coordinator nodes by outcome",
			},
			[]string{"node", "outcome"},
		),

		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "coordinator_attempt_duration_seconds",
				Help:      "Duration of coordinator attempts in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"node"},
		),
	}

	registry.MustRegister(cm.attemptsTotal, cm.attemptDuration)

	return cm
}

// RecordAttempt records one attempt.
func (cm *CoordinatorMetrics) RecordAttempt(node, outcome string, d time.Duration) {
	cm.attemptsTotal.WithLabelValues(node, outcome).Inc()
	cm.attemptDuration.WithLabelValues(node).Observe(d.Seconds())
}
