package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Sync Metrics
var (
	EntitiesSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameEntitiesSynced,
			Help: HelpTextEntitiesSynced,
		},
		[]string{LabelType, LabelResult},
	)

	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJobsEnqueued,
			Help: HelpTextJobsEnqueued,
		},
		[]string{LabelOperation},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJobsCompleted,
			Help: HelpTextJobsCompleted,
		},
		[]string{LabelOperation},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJobsFailed,
			Help: HelpTextJobsFailed,
		},
		[]string{LabelOperation},
	)

	JobsRescheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameJobsRescheduled,
			Help: HelpTextJobsRescheduled,
		},
		[]string{LabelOperation},
	)

	MappingConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameMappingConflicts,
			Help: HelpTextMappingConflicts,
		},
	)

	RateLimitDeferrals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameRateLimitDeferrals,
			Help: HelpTextRateLimitDeferrals,
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: MetricNameQueueDepth,
			Help: HelpTextQueueDepth,
		},
		[]string{LabelStatus},
	)
)

// RecordReport feeds a chunk's per-entity outcomes into the sync counters.
func RecordReport(entityType string, succeeded, skipped, failed int) {
	if succeeded > 0 {
		EntitiesSynced.WithLabelValues(entityType, ResultSucceeded).Add(float64(succeeded))
	}
	if skipped > 0 {
		EntitiesSynced.WithLabelValues(entityType, ResultSkipped).Add(float64(skipped))
	}
	if failed > 0 {
		EntitiesSynced.WithLabelValues(entityType, ResultFailed).Add(float64(failed))
	}
}
