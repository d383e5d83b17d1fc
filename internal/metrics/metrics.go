package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsApplied counts successful operation applications by
	// operation id and resulting preservation level.
	OperationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridops_operations_applied_total",
			Help: "Total number of operations applied to a grid",
		},
		[]string{"operation", "preservation"},
	)
	// OperationErrors counts failed applications by error kind.
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridops_operation_errors_total",
			Help: "Total number of failed operation applications",
		},
		[]string{"operation", "kind"},
	)
	// ApplyDuration is the latency of a full operation application.
	ApplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gridops_apply_duration_seconds",
			Help:    "Operation application latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	PartitionsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridops_changedata_partitions_computed_total",
		Help: "Change data partitions computed by a mapper",
	})
	PartitionsRestored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridops_changedata_partitions_restored_total",
		Help: "Change data partitions read back from storage",
	})
	PartitionsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridops_changedata_partitions_persisted_total",
		Help: "Change data partitions written to storage",
	})
	RowsMapped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gridops_rows_mapped_total",
		Help: "Rows passed through a row or record mapper",
	})
)

// Handler exposes the default registry for scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
