// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncBatchesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_batches_completed_total",
			Help: "Total number of sync batches completed by task type",
		},
		[]string{"task_type", "trading_partner"},
	)

	SyncBatchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_batches_failed_total",
			Help: "Total number of sync batches failed by task type",
		},
		[]string{"task_type", "trading_partner", "error_code"},
	)

	SyncRowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_rows_processed_total",
			Help: "Per-row outcomes inside sync batches",
		},
		[]string{"task_type", "outcome"},
	)

	SyncBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sync_batch_duration_seconds",
			Help: "Duration of sync batch processing in seconds",
		},
		[]string{"task_type"},
	)
)
