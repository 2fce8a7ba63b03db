// Package metrics provides Prometheus metrics for storage backend operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend operation metrics
	BackendOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storages_backend_ops_total",
			Help: "Total number of storage backend operations",
		},
		[]string{"backend_type", "operation"},
	)

	BackendOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storages_backend_op_duration_seconds",
			Help:    "Storage backend operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend_type", "operation"},
	)

	BackendOpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storages_backend_op_errors_total",
			Help: "Total number of failed storage backend operations",
		},
		[]string{"backend_type", "operation"},
	)

	SuspiciousOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storages_suspicious_operations_total",
			Help: "Total number of rejected path traversal or escape attempts",
		},
		[]string{"backend_type"},
	)
)

// ObserveBackendOp records one completed backend operation. Callers invoke
// it as `defer metrics.ObserveBackendOp(backend, op, time.Now(), &err)`.
func ObserveBackendOp(backendType, operation string, start time.Time, err *error) {
	BackendOpsTotal.WithLabelValues(backendType, operation).Inc()
	BackendOpDuration.WithLabelValues(backendType, operation).Observe(time.Since(start).Seconds())
	if err != nil && *err != nil {
		BackendOpErrorsTotal.WithLabelValues(backendType, operation).Inc()
	}
}
