package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"raw-catalog/internal/database"
	"raw-catalog/internal/filesystem"
	"raw-catalog/internal/indexer"
	"raw-catalog/internal/logging"
	"raw-catalog/internal/media"
	"raw-catalog/internal/metrics"
	"raw-catalog/internal/startup"
)

type scanFlags struct {
	noDB       bool
	regenerate bool
	reconcile  bool
	watch      bool
	limit      int
}

// ScanCommand creates the scan subcommand.
func ScanCommand(app *App) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan <directory>",
		Short: "Generate previews for RAW files and catalog them",
		Long: "Walks a directory for RAW files, writes a <name>_preview.jpg next to each one " +
			"that lacks a preview, and records every converted file in the RAW catalog.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), app.Config, flags, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&flags.noDB, "no-db", false, "Generate previews without updating the catalog")
	cmd.Flags().BoolVar(&flags.regenerate, "regenerate", false, "Regenerate previews that already exist")
	cmd.Flags().BoolVar(&flags.reconcile, "reconcile", false, "Add catalog rows for existing previews that have none")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Keep running and process RAW files as they appear")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Limit the number of RAW files considered (for testing)")
	cmd.Flags().Int("workers", 0, "Concurrent decoders (default: based on CPU count)")
	cmd.Flags().Int("batch-size", 0, "Converted files per catalog commit")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file when the scan ends")
	cmd.Flags().StringSlice("decoders", nil, "Pixel sources in order: dcraw, vips, embedded")

	app.bind(cmd, startup.KeyWorkers, "workers")
	app.bind(cmd, startup.KeyBatchSize, "batch-size")
	app.bind(cmd, startup.KeyMetricsFile, "metrics-file")
	app.bind(cmd, startup.KeyDecoders, "decoders")

	return cmd
}

func runScan(ctx context.Context, cfg *startup.Config, flags scanFlags, dir string, out io.Writer) error {
	startup.Begin(cfg)

	root, err := startup.CheckScanRoot(dir)
	if err != nil {
		return err
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				logging.Warn("Failed to write metrics textfile: %v", err)
			}
		}()
	}

	monitor := cfg.ApplyMemoryLimit()
	defer monitor.Stop()

	decoder, err := newDecoder(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := decoder.Close(); err != nil {
			logging.Warn("Failed to stop exiftool: %v", err)
		}
	}()
	defer media.ShutdownVips()
	renderer := media.NewPreviewRenderer(cfg.PreviewConfig())

	var catalog indexer.Catalog
	if !flags.noDB {
		if err := startup.PrepareCatalogDir(cfg.DatabasePath); err != nil {
			return err
		}
		start := time.Now()
		db, err := database.New(ctx, cfg.DatabasePath, cfg.DatabaseOptions())
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Warn("Failed to close catalog: %v", err)
			}
		}()
		startup.LogDatabaseInit(time.Since(start))
		catalog = db
	}

	opts := cfg.IndexerOptions()
	opts.Regenerate = flags.regenerate
	opts.Reconcile = flags.reconcile
	opts.Limit = flags.limit
	opts.Progress = out
	opts.Throttle = monitor

	idx := indexer.New(decoder, renderer, catalog, opts)
	startup.LogIndexerInit(root, idx.Options().Workers, idx.Options().BatchSize, flags.watch)

	if flags.watch {
		return idx.Watch(ctx, root, cfg.WatchDebounce)
	}

	fmt.Fprintf(out, "\nScanning: %s\n", root)
	result, err := idx.Run(ctx, root)
	if result.Found == 0 && err == nil {
		fmt.Fprintln(out, "No RAW files found!")
		return nil
	}
	if werr := result.WriteSummary(out); werr != nil {
		logging.Warn("Failed to write summary: %v", werr)
	}
	if errors.Is(err, context.Canceled) {
		logging.Warn("Scan interrupted, %d files handled before shutdown", result.Handled())
		return nil
	}
	return err
}

// newDecoder builds the RAW decoder from the configured pixel sources.
// A host with none of them available is a startup error.
func newDecoder(cfg *startup.Config) (*media.RawDecoder, error) {
	if slices.Contains(cfg.Decoders, "vips") || slices.Contains(cfg.Decoders, "libvips") {
		if err := media.InitVips(max(cfg.Workers, 1)); err != nil {
			logging.Warn("libvips unavailable: %v", err)
		}
	}

	exif := media.NewExifTool(cfg.ExifToolPath)
	sources, err := media.BuildSources(cfg.Decoders, cfg.DcrawPath, exif)
	if err != nil {
		return nil, err
	}

	var meta media.MetadataReader
	if exif.Available() {
		meta = exif
	}
	decoder, err := media.NewRawDecoder(sources, meta)
	if err != nil {
		return nil, fmt.Errorf("no RAW decoder available, install dcraw, libvips or exiftool: %w", err)
	}

	startup.LogDecoderInit(decoder.Sources(), exif.Available(), media.IsVipsAvailable())
	return decoder, nil
}
