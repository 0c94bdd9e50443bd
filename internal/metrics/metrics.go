// Package metrics provides Prometheus metrics for the EventDrop server and
// worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdrop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventdrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	uploadBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdrop_upload_batches_total",
			Help: "Upload batches by outcome",
		},
		[]string{"result"},
	)

	uploadFilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventdrop_upload_files_total",
			Help: "Files committed to metadata",
		},
	)

	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventdrop_upload_bytes_total",
			Help: "Bytes written to the storage backend",
		},
	)

	compensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdrop_compensations_total",
			Help: "Compensating removals of written objects",
		},
		[]string{"result"},
	)

	exportEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdrop_export_entries_total",
			Help: "Archive entries by outcome",
		},
		[]string{"result"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdrop_exports_total",
			Help: "Archive exports by outcome",
		},
		[]string{"result"},
	)

	auditObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventdrop_audit_objects_total",
			Help: "Objects checked by the storage audit",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUploadBatch records the outcome of one ingest call.
func RecordUploadBatch(result string, files int, bytes int64) {
	uploadBatchesTotal.WithLabelValues(result).Inc()
	if result == "accepted" {
		uploadFilesTotal.Add(float64(files))
		uploadBytesTotal.Add(float64(bytes))
	}
}

// RecordCompensation records one compensating removal.
func RecordCompensation(success bool) {
	compensationsTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordExportEntry records one archive entry; result is "written",
// "skipped" or "failed".
func RecordExportEntry(result string) {
	exportEntriesTotal.WithLabelValues(result).Inc()
}

// RecordExport records a finished or aborted export.
func RecordExport(success bool) {
	exportsTotal.WithLabelValues(outcome(success)).Inc()
}

// RecordAuditObject records one object checked by the audit worker.
func RecordAuditObject(present bool) {
	result := "present"
	if !present {
		result = "missing"
	}
	auditObjectsTotal.WithLabelValues(result).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
