package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "esremap"

// Remap outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeRolledBack = "rolled_back"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
)

// Copy directions.
const (
	DirectionForward = "forward"
	DirectionReverse = "reverse"
)

// Remap Prometheus metrics.
var (
	RemapTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remap_total",
			Help:      "Total number of remaps by outcome",
		},
		[]string{"index", "outcome"},
	)

	RemapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remap_duration_seconds",
			Help:      "Remap duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"index"},
	)

	RemapDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remap_documents_total",
			Help:      "Documents copied during remaps",
		},
		[]string{"index", "direction"}, // "forward" / "reverse"
	)

	RemapReconciledDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remap_reconciled_deletes_total",
			Help:      "Documents removed from the new index because they were deleted during the copy",
		},
		[]string{"index"},
	)

	RemapBulkItemFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remap_bulk_item_failures_total",
			Help:      "Bulk items that failed during remaps",
		},
		[]string{"index"},
	)

	DeleteRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_retries_total",
			Help:      "Retries of old index deletion after a recoverable error",
		},
		[]string{"index"},
	)
)

var remapMetricsRegistered bool

// RegisterRemapMetrics registers Prometheus remap metrics. Must be called once from main.
func RegisterRemapMetrics() {
	if remapMetricsRegistered {
		return
	}
	prometheus.MustRegister(RemapTotal)
	prometheus.MustRegister(RemapDuration)
	prometheus.MustRegister(RemapDocumentsTotal)
	prometheus.MustRegister(RemapReconciledDeletesTotal)
	prometheus.MustRegister(RemapBulkItemFailuresTotal)
	prometheus.MustRegister(DeleteRetriesTotal)
	remapMetricsRegistered = true
}

// ObserveRemap records one finished remap.
func ObserveRemap(index, outcome string, d time.Duration) {
	RemapTotal.WithLabelValues(index, outcome).Inc()
	RemapDuration.WithLabelValues(index).Observe(d.Seconds())
}
