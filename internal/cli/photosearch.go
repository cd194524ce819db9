package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"raw-catalog/internal/search"
	"raw-catalog/internal/startup"
)

type photoSearchFlags struct {
	filterFlags
	count  bool
	simple bool
}

// PhotoSearchCommand creates the photosearch command, which searches the
// JPG and RAW catalogs together. A positional query is a client name.
func PhotoSearchCommand(app *App) *cobra.Command {
	var flags photoSearchFlags

	cmd := &cobra.Command{
		Use:           "photosearch [query]",
		Short:         "Search all photos (JPG + RAW)",
		Version:       startup.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.client = args[0]
			}
			svc := search.NewService(
				search.NewJPGSource(app.Config.JPGDatabasePath),
				search.NewRawSource(app.Config.DatabasePath),
			)
			defer func() { _ = svc.Close() }()
			return runPhotoSearch(cmd.Context(), svc, flags, cmd.OutOrStdout())
		},
	}

	app.setupGlobalFlags(cmd)
	addFilterFlags(cmd, &flags.filterFlags)
	cmd.Flags().BoolVar(&flags.count, "count", false, "Just count results")
	cmd.Flags().BoolVar(&flags.simple, "simple", false, "Simple output (paths only)")
	cmd.Flags().String("jpg-db", "", "Path to the JPG catalog (default: photos_full.db)")
	cmd.Flags().String("raw-db", "", "Path to the RAW catalog (default: raw_photos.db)")
	app.bind(cmd, startup.KeyJPGDatabasePath, "jpg-db")
	app.bind(cmd, startup.KeyDatabasePath, "raw-db")

	return cmd
}

// runPhotoSearch prints matches in detailed form, as paths only with
// --simple, or as per-catalog totals with --count.
func runPhotoSearch(ctx context.Context, svc *search.Service, flags photoSearchFlags, out io.Writer) error {
	f := flags.filter()

	if flags.count {
		counts, err := svc.Count(ctx, f)
		if err != nil {
			return err
		}
		return search.WriteCounts(out, counts)
	}

	results, err := svc.Search(ctx, f, flags.limit)
	if err != nil {
		return err
	}
	if flags.simple {
		return search.WriteSimple(out, results)
	}
	return search.WriteDetailed(out, results)
}
