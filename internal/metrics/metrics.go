// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GradeSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subcourse_grade_sync_total",
			Help: "Grade synchronization runs by result",
		},
		[]string{"result"},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subcourse_job_items_total",
			Help: "Activities processed by scheduled jobs",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "subcourse_job_duration_seconds",
			Help:    "Scheduled job sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)

	ViewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subcourse_views_total",
			Help: "Activity views by outcome",
		},
		[]string{"outcome"},
	)

	EnrolmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "subcourse_auto_enrolments_total",
			Help: "Users auto-enrolled into referenced courses",
		},
	)

	ProgressHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subcourse_progress_percent",
			Help:    "Distribution of referenced course progress shown on view",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
