package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawcat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Catalog database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_db_queries_total",
			Help: "Total number of catalog queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawcat_db_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBLockRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_db_lock_retries_total",
			Help: "Number of catalog writes retried because the database was locked",
		},
		[]string{"operation"},
	)

	DBLockFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_db_lock_failures_total",
			Help: "Number of catalog writes abandoned after exhausting lock retries",
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawcat_db_transaction_duration_seconds",
			Help:    "Duration of catalog batch transactions in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"type"}, // "commit", "rollback"
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rawcat_db_size_bytes",
			Help: "Size of SQLite catalog files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Scan run metrics
var (
	ScanRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawcat_scan_runs_total",
			Help: "Total number of scan runs",
		},
	)

	ScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)

	ScanLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_scan_last_run_timestamp",
			Help: "Unix timestamp of the last scan completion",
		},
	)

	ScanLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_scan_last_run_duration_seconds",
			Help: "Duration of the last scan in seconds",
		},
	)

	ScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_scan_files_total",
			Help: "Total number of RAW files handled by outcome",
		},
		[]string{"outcome"},
	)

	ScanLastRunFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rawcat_scan_last_run_files",
			Help: "Number of RAW files in the last scan by outcome",
		},
		[]string{"outcome"},
	)
)

// Preview rendering metrics
var (
	PreviewGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_preview_generations_total",
			Help: "Total number of preview generations",
		},
		[]string{"status"},
	)

	PreviewPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawcat_preview_phase_duration_seconds",
			Help:    "Preview generation duration in seconds by phase",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"phase"}, // "decode", "resize", "encode", "write"
	)

	PreviewDecodeBySource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_preview_decode_total",
			Help: "RAW decode attempts by pixel source and status",
		},
		[]string{"source", "status"},
	)

	PreviewBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawcat_preview_bytes_written_total",
			Help: "Total bytes of preview JPEG written",
		},
	)

	MetadataExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_metadata_extractions_total",
			Help: "Total number of metadata extractions by status",
		},
		[]string{"status"}, // "success", "failed"
	)
)

// Scanner metrics
var (
	ScannerFilesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawcat_scanner_files_found_total",
			Help: "Total number of RAW files discovered by the scanner",
		},
	)

	ScannerWalkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rawcat_scanner_walk_duration_seconds",
			Help:    "Directory walk duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ScannerWatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_scanner_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	ScannerWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawcat_scanner_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	ScannerWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_scanner_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_filesystem_retry_attempts_total",
			Help: "Filesystem operations retried after a stale file handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation"},
	)

	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawcat_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)
)

// Search metrics
var (
	SearchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rawcat_search_queries_total",
			Help: "Search queries by catalog origin and status",
		},
		[]string{"origin", "status"},
	)

	SearchResultsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rawcat_search_results_returned",
			Help:    "Number of results returned per catalog search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"origin"},
	)
)

// Catalog content metrics, refreshed by the Collector
var (
	CatalogPhotosTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_catalog_photos_total",
			Help: "Number of RAW photos in the catalog",
		},
	)

	CatalogPhotosWithGPS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_catalog_photos_with_gps",
			Help: "Number of cataloged RAW photos with GPS coordinates",
		},
	)

	CatalogClientsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_catalog_clients_total",
			Help: "Number of distinct clients in the catalog",
		},
	)

	CatalogPreviewBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_catalog_preview_bytes",
			Help: "Total size of previews recorded in the catalog",
		},
	)
)

// Memory backpressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryDecodePaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rawcat_memory_decode_paused",
			Help: "1 while RAW decoding is paused for memory pressure",
		},
	)

	MemoryDecodePausesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rawcat_memory_decode_pauses_total",
			Help: "Number of times RAW decoding was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rawcat_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text exposition format, for pickup by node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
