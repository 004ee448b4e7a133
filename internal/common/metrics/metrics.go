// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_jobs_completed_total",
			Help: "Total number of matcher jobs that reached Completed",
		},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_jobs_failed_total",
			Help: "Total number of matcher jobs that reached Failed",
		},
		[]string{"error_code"},
	)

	RowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matcher_row_duration_seconds",
			Help: "Duration of per-row processing in seconds",
		},
	)

	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_rows_processed_total",
			Help: "Total number of rows processed, labeled by terminal status",
		},
		[]string{"status"},
	)

	ProviderSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matcher_provider_search_duration_seconds",
			Help: "Duration of provider search calls in seconds",
		},
		[]string{"provider"},
	)

	ProviderSearchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_provider_search_errors_total",
			Help: "Total number of provider search errors",
		},
		[]string{"provider", "kind"},
	)
)
