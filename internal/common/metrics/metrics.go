// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvpipeline_jobs_submitted_total",
			Help: "Jobs accepted for processing",
		},
		[]string{"job_type"},
	)

	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvpipeline_jobs_completed_total",
			Help: "Total number of jobs completed per job type",
		},
		[]string{"job_type"},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvpipeline_jobs_failed_total",
			Help: "Total number of jobs marked failed",
		},
		[]string{"job_type", "error_code"},
	)

	JobRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvpipeline_job_retries_total",
			Help: "Total number of retried job attempts",
		},
		[]string{"job_type", "error_code"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvpipeline_job_duration_seconds",
			Help:    "Duration of one job attempt in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job_type", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cvpipeline_stage_duration_seconds",
			Help:    "Duration of a pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job_type", "stage"},
	)

	JobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cvpipeline_jobs_active",
			Help: "Number of deliveries currently being processed",
		},
		[]string{"job_type"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cvpipeline_queue_depth",
			Help: "Waiting plus delayed deliveries per job type",
		},
		[]string{"job_type"},
	)

	FallbackActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvpipeline_fallback_activations_total",
			Help: "Times a stage substituted a documented default",
		},
		[]string{"job_type", "fallback"},
	)

	JobsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cvpipeline_jobs_evicted_total",
			Help: "Terminal jobs removed by the retention janitor",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvpipeline_events_published_total",
			Help: "Job events delivered to a sink",
		},
		[]string{"sink", "event", "status"},
	)
)
