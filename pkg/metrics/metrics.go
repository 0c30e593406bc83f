package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Per-task reconciliation outcomes of a sync run.
	SyncTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_tasks_total",
			Help: "Total number of task reconciliations attempted, by outcome",
		},
		[]string{"status"}, // status: ok, error
	)

	// External task source call latency (milliseconds).
	ExternalCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_call_latency_ms",
			Help:    "External task source call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"endpoint", "status"},
	)

	// Database query latency (seconds).
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP request latency (seconds).
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// Weekly progress rows touched by the metrics recompute pass.
	ProgressRowsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_rows_updated_total",
			Help: "Total number of project_progress rows updated by recompute passes",
		},
	)
)

func RecordSyncTask(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	SyncTasksTotal.WithLabelValues(status).Inc()
}

func RecordExternalCall(endpoint, status string, d time.Duration) {
	ExternalCallLatency.WithLabelValues(endpoint, status).Observe(float64(d.Milliseconds()))
}

func RecordDBQuery(operation, table string, d time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(d.Seconds())
}

func RecordHTTPRequest(method, path string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}
