package metrics

import "raw-catalog/internal/filesystem"

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem metrics
// into the counters and histograms declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveOperation(operation string, durationSeconds float64) {
	FilesystemOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

func (o *filesystemObserver) ObserveRetryAttempt(operation string) {
	FilesystemRetryAttempts.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(operation string) {
	FilesystemRetrySuccess.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(operation string) {
	FilesystemRetryFailures.WithLabelValues(operation).Inc()
}

func (o *filesystemObserver) ObserveStaleError(operation string) {
	FilesystemStaleErrors.WithLabelValues(operation).Inc()
}
