package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"raw-catalog/internal/database"
	"raw-catalog/internal/filesystem"
	"raw-catalog/internal/handlers"
	"raw-catalog/internal/logging"
	"raw-catalog/internal/metrics"
	"raw-catalog/internal/search"
	"raw-catalog/internal/startup"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand creates the serve subcommand.
func ServeCommand(app *App) *cobra.Command {
	var logHealthChecks bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), app.Config, logHealthChecks)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: :8080)")
	cmd.Flags().String("jpg-db", "", "Path to the JPG catalog (default: photos_full.db)")
	cmd.Flags().Duration("cache-ttl", 0, "How long stats and counts are cached (default: 30s)")
	cmd.Flags().BoolVar(&logHealthChecks, "log-health-checks", false, "Log /health and /livez requests")
	app.bind(cmd, startup.KeyServeAddr, "addr")
	app.bind(cmd, startup.KeyJPGDatabasePath, "jpg-db")
	app.bind(cmd, startup.KeyStatsCacheTTL, "cache-ttl")

	return cmd
}

func runServe(ctx context.Context, cfg *startup.Config, logHealthChecks bool) error {
	startTime := time.Now()
	startup.Begin(cfg)

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	svc := search.NewService(
		search.NewJPGSource(cfg.JPGDatabasePath),
		search.NewRawSource(cfg.DatabasePath),
	)
	defer func() { _ = svc.Close() }()

	// The stats endpoint reads the RAW catalog directly. It is optional:
	// search keeps working over the JPG catalog without it.
	var catalog handlers.CatalogReader
	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DatabasePath, &database.Options{ReadOnly: true})
	if err != nil {
		logging.Warn("RAW catalog unavailable, /api/stats disabled: %v", err)
	} else {
		defer func() { _ = db.Close() }()
		startup.LogDatabaseInit(time.Since(dbStart))
		catalog = db

		collector := metrics.NewCollector(db, cfg.DatabasePath, time.Minute)
		collector.Start()
		defer collector.Stop()
	}

	h := handlers.New(svc, catalog, cfg.StatsCacheTTL)
	router := handlers.NewRouter(h, logHealthChecks)
	startup.LogHTTPRoutes(router, logHealthChecks)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Addr:            cfg.Addr,
		StartupDuration: time.Since(startTime),
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	startup.LogShutdownInitiated(context.Cause(ctx).Error())
	startup.LogShutdownStep("Stopping HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
	startup.LogShutdownComplete()
	return nil
}
