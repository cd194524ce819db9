package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"raw-catalog/internal/database"
	"raw-catalog/internal/logging"
	"raw-catalog/internal/media"
	"raw-catalog/internal/metrics"
	"raw-catalog/internal/workers"
)

// DefaultBatchSize is the number of converted files per catalog commit.
const DefaultBatchSize = 50

// ErrScanInProgress is returned by Run while another run is active.
var ErrScanInProgress = errors.New("scan already in progress")

// Decoder turns a RAW file into pixels and capture metadata.
type Decoder interface {
	Decode(ctx context.Context, path string) (image.Image, error)
	Metadata(ctx context.Context, path string) media.Metadata
}

// Renderer writes a preview for decoded pixels and returns its size.
type Renderer interface {
	Render(img image.Image, dest string) (int64, error)
}

// Catalog is the subset of *database.Database the scan writes to.
type Catalog interface {
	BeginBatch(ctx context.Context) (*sql.Tx, error)
	EndBatch(tx *sql.Tx, err error) error
	UpsertPhoto(ctx context.Context, q database.Querier, p *database.RawPhoto) error
	HasPhoto(ctx context.Context, path string) (bool, error)
	RecordScanRun(ctx context.Context, run database.ScanRun) error
}

// Throttle holds decode workers back, e.g. under memory pressure.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Options controls a scan.
type Options struct {
	// Regenerate re-renders previews that already exist.
	Regenerate bool
	// Reconcile adds catalog rows for existing previews that have none.
	// Ignored without a catalog.
	Reconcile bool
	// Limit caps the number of RAW files considered. Zero means no limit.
	Limit int
	// BatchSize is the number of converted files per commit.
	BatchSize int
	// Workers is the number of concurrent decoders. Zero picks a default.
	Workers int
	// Progress receives a live "Processing i/N" line when it is a terminal.
	Progress io.Writer
	// Throttle, when set, is consulted before each file is taken up.
	Throttle Throttle
}

// Indexer drives a scan: find RAW files, render missing previews, and
// record each one in the catalog.
type Indexer struct {
	decoder  Decoder
	renderer Renderer
	catalog  Catalog
	opts     Options
	now      func() time.Time

	runMu   sync.Mutex
	running bool
	lastRun *Result
}

// New creates an Indexer. catalog may be nil, in which case previews are
// generated but nothing is recorded.
func New(decoder Decoder, renderer Renderer, catalog Catalog, opts Options) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	opts.Workers = workers.ForDecode(opts.Workers)

	return &Indexer{
		decoder:  decoder,
		renderer: renderer,
		catalog:  catalog,
		opts:     opts,
		now:      time.Now,
	}
}

// Options returns the effective options.
func (idx *Indexer) Options() Options {
	return idx.opts
}

// LastRun returns the result of the most recent completed run, if any.
func (idx *Indexer) LastRun() (Result, bool) {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	if idx.lastRun == nil {
		return Result{}, false
	}
	return *idx.lastRun, true
}

func (idx *Indexer) tryStart() bool {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	if idx.running {
		return false
	}
	idx.running = true
	return true
}

func (idx *Indexer) finish(result Result) {
	idx.runMu.Lock()
	defer idx.runMu.Unlock()
	idx.running = false
	idx.lastRun = &result
}

// Run scans root once. Per-file failures are counted in the Result and
// never abort the run. If ctx is cancelled the rows gathered so far are
// committed and ctx's error is returned with the partial Result.
func (idx *Indexer) Run(ctx context.Context, root string) (Result, error) {
	if !idx.tryStart() {
		logging.Info("Scan already in progress, skipping...")
		return Result{}, ErrScanInProgress
	}

	result := Result{
		RunID:     uuid.NewString(),
		Root:      root,
		StartedAt: idx.now(),
	}
	defer func() { idx.finish(result) }()

	metrics.ScanRunning.Set(1)
	defer metrics.ScanRunning.Set(0)
	metrics.ScanRunsTotal.Inc()

	logging.Info("Starting scan %s of %s (workers: %d, batch: %d, regenerate: %v, reconcile: %v)",
		result.RunID, root, idx.opts.Workers, idx.opts.BatchSize, idx.opts.Regenerate, idx.opts.Reconcile && idx.catalog != nil)

	scanner := media.NewScanner(root, idx.opts.Limit)
	paths, err := scanner.Collect(ctx)
	if err != nil {
		result.Duration = time.Since(result.StartedAt)
		return result, fmt.Errorf("scan %s: %w", root, err)
	}
	result.Found = len(paths)
	logging.Info("Found %d RAW files", result.Found)

	bar := newProgress(idx.opts.Progress, len(paths))
	runErr := idx.process(ctx, paths, &result, bar)
	bar.done()

	result.Duration = time.Since(result.StartedAt)
	idx.recordRun(ctx, result)

	logging.Info("Scan %s complete in %v: %d generated, %d skipped, %d reconciled, %d failed",
		result.RunID, result.Duration.Round(time.Millisecond), result.Processed(), result.Skipped, result.Reconciled, result.Failed())

	return result, runErr
}

// process fans paths out to decode workers and funnels their results
// through a single catalog writer.
func (idx *Indexer) process(ctx context.Context, paths []string, result *Result, bar *progress) error {
	jobs := make(chan string)
	results := make(chan fileResult, idx.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < idx.opts.Workers; i++ {
		g.Go(func() error {
			for p := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				if idx.opts.Throttle != nil {
					if err := idx.opts.Throttle.Wait(gctx); err != nil {
						return err
					}
				}
				// The writer drains until close, so this send never blocks forever.
				results <- idx.processFile(gctx, p)
			}
			return nil
		})
	}

	var waitErr error
	go func() {
		waitErr = g.Wait()
		close(results)
	}()

	// Rows already converted are still committed after cancellation.
	w := newBatchWriter(context.WithoutCancel(ctx), idx.catalog, idx.opts.BatchSize, result)
	for r := range results {
		bar.step()
		w.handle(r)
	}
	w.flush()

	if waitErr != nil {
		return waitErr
	}
	return ctx.Err()
}

// ProcessFile handles a single RAW file outside a batch, as the watcher
// does for newly arrived files.
func (idx *Indexer) ProcessFile(ctx context.Context, rawPath string) (Outcome, error) {
	r := idx.processFile(ctx, rawPath)
	outcome := r.outcome

	if r.row != nil && idx.catalog != nil {
		if err := idx.catalog.UpsertPhoto(ctx, nil, r.row); err != nil {
			outcome = OutcomeFailedCatalog
			r.err = err
		}
	}

	metrics.ScanFilesTotal.WithLabelValues(outcome.String()).Inc()
	if r.err != nil {
		logging.Error("Failed: %s: %v", rawPath, r.err)
	}
	return outcome, r.err
}

// Watch runs an initial scan of root and then processes RAW files as they
// appear, until ctx is cancelled.
func (idx *Indexer) Watch(ctx context.Context, root string, debounce time.Duration) error {
	if _, err := idx.Run(ctx, root); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	scanner := media.NewScanner(root, 0)
	if debounce > 0 {
		scanner.SetWatchDebounce(debounce)
	}

	err := scanner.Watch(ctx, func(path string) {
		outcome, err := idx.ProcessFile(ctx, path)
		if err == nil {
			logging.Info("%s: %s", outcome, path)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (idx *Indexer) recordRun(ctx context.Context, result Result) {
	for _, o := range []Outcome{OutcomeSkipped, OutcomeConverted, OutcomeFailedConversion, OutcomeFailedCatalog, OutcomeReconciled} {
		n := outcomeCount(result, o)
		metrics.ScanFilesTotal.WithLabelValues(o.String()).Add(float64(n))
		metrics.ScanLastRunFiles.WithLabelValues(o.String()).Set(float64(n))
	}
	metrics.ScanLastRunDuration.Set(result.Duration.Seconds())
	metrics.ScanLastRunTimestamp.Set(float64(idx.now().Unix()))

	if idx.catalog == nil {
		return
	}
	err := idx.catalog.RecordScanRun(context.WithoutCancel(ctx), database.ScanRun{
		ID:               result.RunID,
		Root:             result.Root,
		StartedAt:        result.StartedAt,
		Duration:         result.Duration,
		Found:            result.Found,
		Converted:        result.Converted,
		Skipped:          result.Skipped,
		Reconciled:       result.Reconciled,
		FailedConversion: result.FailedConversion,
		FailedCatalog:    result.FailedCatalog,
	})
	if err != nil {
		logging.Warn("Failed to record scan run %s: %v", result.RunID, err)
	}
}

func outcomeCount(r Result, o Outcome) int {
	switch o {
	case OutcomeSkipped:
		return r.Skipped
	case OutcomeConverted:
		return r.Converted
	case OutcomeFailedConversion:
		return r.FailedConversion
	case OutcomeFailedCatalog:
		return r.FailedCatalog
	case OutcomeReconciled:
		return r.Reconciled
	}
	return 0
}
