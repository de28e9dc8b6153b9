// Package metrics exposes Prometheus counters for pipeline throughput and
// failures. Metrics are registered on the default registry and served by the
// daemon's metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recap_jobs_completed_total",
		Help: "Total number of jobs that reached the completed status",
	})

	jobsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recap_processing_failures_total",
		Help: "Total number of job failures by pipeline stage",
	}, []string{"stage"})

	chunksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recap_chunks_processed_total",
		Help: "Per-chunk stage outcomes by stage and status",
	}, []string{"stage", "status"}) // status=success|failed|skipped

	providerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recap_provider_retries_total",
		Help: "Transient provider failures that triggered a retry, by stage",
	}, []string{"stage"})

	notificationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recap_notification_failures_total",
		Help: "Notifications that could not be delivered",
	})

	jobProcessingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recap_job_processing_duration_seconds",
		Help:    "End-to-end wall-clock duration of completed jobs",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)

func IncJobCompleted()              { jobsCompletedTotal.Inc() }
func IncJobFailed(stage string)     { jobsFailedTotal.WithLabelValues(stage).Inc() }
func IncProviderRetry(stage string) { providerRetriesTotal.WithLabelValues(stage).Inc() }
func IncNotificationFailure()       { notificationFailuresTotal.Inc() }

func IncChunkProcessed(stage, status string) {
	chunksProcessedTotal.WithLabelValues(stage, status).Inc()
}

func ObserveJobDuration(seconds float64) {
	jobProcessingDurationSeconds.Observe(seconds)
}
