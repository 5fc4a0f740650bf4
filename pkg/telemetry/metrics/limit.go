package metrics

import (
	"strconv"
	"time"

	"mercator-hq/windowlimit/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// LimitMetrics tracks limit checks made by the client.
type LimitMetrics struct {
	requestsTotal *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	fastRejects   prometheus.Counter
	accuracyTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// NewLimitMetrics creates and registers limit metrics with the provided registry.
func NewLimitMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LimitMetrics {
	lm := &LimitMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limit_requests_total",
				Help:      "Total number of limit checks by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limit_duration_seconds",
				Help:      "Duration of limit checks in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"mode"},
		),

		fastRejects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limit_fast_rejects_total",
				Help:      "Checks rejected from the local cache without contacting a coordinator",
			},
		),

		accuracyTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limit_accuracy_total",
				Help:      "Async decisions compared with the coordinator's answer",
			},
			[]string{"match"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limit_errors_total",
				Help:      "Errors raised while checking limits, by stage",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(
		lm.requestsTotal,
		lm.duration,
		lm.fastRejects,
		lm.accuracyTotal,
		lm.errorsTotal,
	)

	return lm
}

// RecordLimit records one completed check.
func (lm *LimitMetrics) RecordLimit(mode, outcome string, latency time.Duration, fastReject bool) {
	lm.requestsTotal.WithLabelValues(mode, outcome).Inc()
	lm.duration.WithLabelValues(mode).Observe(latency.Seconds())
	if fastReject {
		lm.fastRejects.Inc()
	}
}

// RecordAccuracy records whether an async decision matched the coordinator.
func (lm *LimitMetrics) RecordAccuracy(match bool) {
	lm.accuracyTotal.WithLabelValues(strconv.FormatBool(match)).Inc()
}

// RecordError records an error at the given stage.
func (lm *LimitMetrics) RecordError(stage string) {
	lm.errorsTotal.WithLabelValues(stage).Inc()
}
