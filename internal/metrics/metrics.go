package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics
var (
	// UploadsTotal tracks processed uploads by source format and outcome.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_uploads_total",
			Help: "Total number of processed uploads by source tag and status",
		},
		[]string{"source_tag", "status"},
	)

	// UploadDuration tracks end-to-end processing time per upload.
	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_upload_duration_seconds",
			Help:    "Upload processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source_tag"},
	)

	// RowsProcessedTotal tracks rows that passed mapping.
	RowsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_processed_total",
			Help: "Total number of successfully processed rows",
		},
		[]string{"source_tag"},
	)

	// RowErrorsTotal tracks rows rejected during mapping.
	RowErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_row_errors_total",
			Help: "Total number of rows rejected during mapping",
		},
		[]string{"source_tag"},
	)

	// DuplicateUploadsTotal tracks byte-identical re-uploads.
	DuplicateUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_duplicate_uploads_total",
			Help: "Total number of uploads whose checksum was seen recently",
		},
		[]string{"source_tag"},
	)
)

// Reconciliation metrics
var (
	// ReconcileOutcomesTotal tracks reconciliation outcomes per record family.
	ReconcileOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_outcomes_total",
			Help: "Total reconciliation outcomes (inserted, updated, refreshed) by record family",
		},
		[]string{"family", "outcome"},
	)

	// ReconcileDuration tracks per-row reconciliation latency.
	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Per-row reconciliation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"family"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Background job metrics
var (
	// JobsTotal tracks background jobs by type and status.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_total",
			Help: "Total number of background jobs by type and status",
		},
		[]string{"type", "status"},
	)

	// RetentionDeletedTotal tracks rows removed by the retention sweep.
	RetentionDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_deleted_total",
			Help: "Total number of rows removed by the retention sweep",
		},
		[]string{"family"},
	)
)
