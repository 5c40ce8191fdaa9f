package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"

	MetricNameEntitiesSynced     = "entities_synced_total"
	MetricNameJobsEnqueued       = "sync_jobs_enqueued_total"
	MetricNameJobsCompleted      = "sync_jobs_completed_total"
	MetricNameJobsFailed         = "sync_jobs_failed_total"
	MetricNameJobsRescheduled    = "sync_jobs_rescheduled_total"
	MetricNameMappingConflicts   = "mapping_conflicts_total"
	MetricNameRateLimitDeferrals = "rate_limit_deferrals_total"
	MetricNameQueueDepth         = "sync_queue_depth"
)

// Metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"

	HelpTextEntitiesSynced     = "Total number of entities processed by sync jobs, by outcome"
	HelpTextJobsEnqueued       = "Total number of sync jobs enqueued"
	HelpTextJobsCompleted      = "Total number of sync jobs completed"
	HelpTextJobsFailed         = "Total number of sync jobs failed"
	HelpTextJobsRescheduled    = "Total number of sync jobs pushed back by remote backpressure"
	HelpTextMappingConflicts   = "Total number of uniqueness conflicts hit while creating remote records"
	HelpTextRateLimitDeferrals = "Total number of remote calls deferred by the rate tracker"
	HelpTextQueueDepth         = "Current number of sync jobs by status"
)

// Label names
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelType      = "type"
	LabelResult    = "result"
	LabelOperation = "operation"
)

// Entity outcome label values, matching the batch report fields.
const (
	ResultSucceeded = "succeeded"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
// in seconds, from 1ms to 10s.
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
