package indexer

import (
	"context"
	"database/sql"
	"time"

	"raw-catalog/internal/database"
	"raw-catalog/internal/filesystem"
	"raw-catalog/internal/logging"
	"raw-catalog/internal/media"
	"raw-catalog/internal/metrics"
	"raw-catalog/internal/pathinfo"
)

// fileResult is a worker's verdict on one RAW file. When row is set the
// outcome only holds once the row is stored.
type fileResult struct {
	rawPath string
	outcome Outcome
	row     *database.RawPhoto
	err     error
}

// processFile decides what to do with rawPath and does the decode/render
// work. It never touches the catalog for writing.
func (idx *Indexer) processFile(ctx context.Context, rawPath string) fileResult {
	previewPath := media.PreviewPath(rawPath)

	exists, err := filesystem.Exists(previewPath, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Could not check preview %s, regenerating: %v", previewPath, err)
		exists = false
	}

	if exists && !idx.opts.Regenerate {
		if idx.opts.Reconcile && idx.catalog != nil {
			return idx.reconcile(ctx, rawPath, previewPath)
		}
		return fileResult{rawPath: rawPath, outcome: OutcomeSkipped}
	}

	img, err := idx.decoder.Decode(ctx, rawPath)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return idx.conversionFailed(rawPath, err)
	}

	size, err := idx.renderer.Render(img, previewPath)
	if err != nil {
		metrics.PreviewGenerationsTotal.WithLabelValues("error").Inc()
		return idx.conversionFailed(rawPath, err)
	}
	metrics.PreviewGenerationsTotal.WithLabelValues("success").Inc()
	logging.Debug("Generated %s (%d bytes)", previewPath, size)

	if idx.catalog == nil {
		return fileResult{rawPath: rawPath, outcome: OutcomeConverted}
	}
	return fileResult{
		rawPath: rawPath,
		outcome: OutcomeConverted,
		row:     idx.buildRow(ctx, rawPath, previewPath, size),
	}
}

func (idx *Indexer) conversionFailed(rawPath string, err error) fileResult {
	logging.Error("Failed: %s: %v", rawPath, err)
	return fileResult{rawPath: rawPath, outcome: OutcomeFailedConversion, err: err}
}

// reconcile restores the catalog row for a preview that exists on disk
// but was never recorded, e.g. after an interrupted run.
func (idx *Indexer) reconcile(ctx context.Context, rawPath, previewPath string) fileResult {
	skipped := fileResult{rawPath: rawPath, outcome: OutcomeSkipped}

	has, err := idx.catalog.HasPhoto(ctx, rawPath)
	if err != nil {
		logging.Warn("Could not check catalog for %s: %v", rawPath, err)
		return skipped
	}
	if has {
		return skipped
	}

	info, err := filesystem.StatWithRetry(previewPath, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Warn("Could not stat preview %s: %v", previewPath, err)
		return skipped
	}

	logging.Debug("Reconciling catalog row for %s", rawPath)
	return fileResult{
		rawPath: rawPath,
		outcome: OutcomeReconciled,
		row:     idx.buildRow(ctx, rawPath, previewPath, info.Size()),
	}
}

// buildRow assembles the catalog row from the path convention, the file
// sizes and whatever metadata could be read.
func (idx *Indexer) buildRow(ctx context.Context, rawPath, previewPath string, previewBytes int64) *database.RawPhoto {
	info := pathinfo.Parse(rawPath)
	meta := idx.decoder.Metadata(ctx, rawPath)

	var rawBytes int64
	if fi, err := filesystem.StatWithRetry(rawPath, filesystem.DefaultRetryConfig()); err == nil {
		rawBytes = fi.Size()
	} else {
		logging.Warn("Could not stat %s: %v", rawPath, err)
	}

	return &database.RawPhoto{
		FilePath:      rawPath,
		PreviewPath:   previewPath,
		ClientName:    info.Client,
		Date:          info.Date,
		CameraMake:    meta.CameraMake,
		CameraModel:   meta.CameraModel,
		LensModel:     meta.LensModel,
		ISO:           meta.ISO,
		Aperture:      meta.Aperture,
		ShutterSpeed:  meta.ShutterSpeed,
		FocalLength:   meta.FocalLength,
		CaptureTime:   meta.CaptureTime,
		GPSLatitude:   meta.GPSLatitude,
		GPSLongitude:  meta.GPSLongitude,
		RawSizeMB:     float64(rawBytes) / (1024 * 1024),
		PreviewSizeKB: float64(previewBytes) / 1024,
		IndexedAt:     idx.now(),
	}
}

// batchWriter is the single goroutine that owns catalog writes. Rows go
// into a transaction that is committed every size converted files.
type batchWriter struct {
	ctx     context.Context
	catalog Catalog
	size    int
	result  *Result

	tx          *sql.Tx
	pending     []fileResult
	sinceCommit int
}

func newBatchWriter(ctx context.Context, catalog Catalog, size int, result *Result) *batchWriter {
	return &batchWriter{ctx: ctx, catalog: catalog, size: size, result: result}
}

func (w *batchWriter) handle(r fileResult) {
	if r.row == nil || w.catalog == nil {
		w.record(r)
		if r.outcome == OutcomeConverted {
			w.converted()
		}
		return
	}

	var q database.Querier
	if tx := w.begin(); tx != nil {
		q = tx
	}

	if err := w.catalog.UpsertPhoto(w.ctx, q, r.row); err != nil {
		logging.Error("Database error for %s: %v", r.rawPath, err)
		w.record(fileResult{rawPath: r.rawPath, outcome: OutcomeFailedCatalog, err: err})
	} else {
		w.record(r)
		if q != nil {
			w.pending = append(w.pending, r)
		}
	}

	if r.outcome == OutcomeConverted {
		w.converted()
	}
}

func (w *batchWriter) record(r fileResult) {
	w.result.count(r.outcome)
	if r.err != nil {
		w.result.Failures = append(w.result.Failures, FileError{Path: r.rawPath, Outcome: r.outcome, Err: r.err})
	}
}

func (w *batchWriter) converted() {
	w.sinceCommit++
	if w.sinceCommit >= w.size {
		w.commit()
	}
}

// begin returns the open transaction, starting one if needed. On failure
// rows are written without a batch.
func (w *batchWriter) begin() *sql.Tx {
	if w.tx != nil {
		return w.tx
	}
	tx, err := w.catalog.BeginBatch(w.ctx)
	if err != nil {
		logging.Error("Failed to begin catalog batch, writing rows individually: %v", err)
		return nil
	}
	w.tx = tx
	return tx
}

func (w *batchWriter) commit() {
	w.sinceCommit = 0
	if w.tx == nil {
		return
	}

	tx, pending := w.tx, w.pending
	w.tx, w.pending = nil, nil

	start := time.Now()
	if err := w.catalog.EndBatch(tx, nil); err != nil {
		logging.Error("Batch commit failed, %d rows not stored: %v", len(pending), err)
		for _, r := range pending {
			w.result.uncount(r.outcome)
			w.record(fileResult{rawPath: r.rawPath, outcome: OutcomeFailedCatalog, err: err})
		}
		return
	}
	logging.Debug("Committed %d catalog rows in %v", len(pending), time.Since(start))
}

func (w *batchWriter) flush() {
	w.commit()
}
