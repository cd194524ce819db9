package metrics

// Scan outcomes used as the "outcome" label.
var scanOutcomes = []string{"skipped", "converted", "failed_conversion", "failed_catalog", "reconciled"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range scanOutcomes {
		ScanFilesTotal.WithLabelValues(outcome)
		ScanLastRunFiles.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error"} {
		PreviewGenerationsTotal.WithLabelValues(status)
	}
	for _, phase := range []string{"decode", "resize", "encode", "write"} {
		PreviewPhaseDuration.WithLabelValues(phase)
	}
	for _, source := range []string{"dcraw", "vips", "embedded"} {
		PreviewDecodeBySource.WithLabelValues(source, "success")
		PreviewDecodeBySource.WithLabelValues(source, "error")
	}
	for _, status := range []string{"success", "failed"} {
		MetadataExtractionsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"ensure_schema", "upsert_photo", "has_photo", "get_photo", "search", "count",
		"stats", "begin_transaction", "commit", "rollback", "get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
	DBLockRetries.WithLabelValues("upsert_photo")
	DBLockFailures.WithLabelValues("upsert_photo")
	DBLockFailures.WithLabelValues("commit")
	for _, t := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(t)
	}
	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"stat", "write"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemOperationDuration.WithLabelValues(op)
	}

	for _, origin := range []string{"RAW", "JPG"} {
		SearchQueriesTotal.WithLabelValues(origin, "success")
		SearchQueriesTotal.WithLabelValues(origin, "error")
		SearchQueriesTotal.WithLabelValues(origin, "missing")
		SearchResultsReturned.WithLabelValues(origin)
	}
}
