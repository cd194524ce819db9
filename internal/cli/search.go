package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"raw-catalog/internal/database"
	"raw-catalog/internal/search"
)

type filterFlags struct {
	client   string
	date     string
	camera   string
	location bool
	limit    int
}

func (f filterFlags) filter() search.Filter {
	return search.Filter{
		Client:     f.client,
		Date:       f.date,
		Camera:     f.camera,
		RequireGPS: f.location,
	}
}

func addFilterFlags(cmd *cobra.Command, f *filterFlags) {
	cmd.Flags().StringVar(&f.client, "client", "", "Client name (substring match)")
	cmd.Flags().StringVar(&f.date, "date", "", "Shoot date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.camera, "camera", "", "Camera model (substring match)")
	cmd.Flags().BoolVar(&f.location, "location", false, "Only photos with GPS coordinates")
	cmd.Flags().IntVar(&f.limit, "limit", search.DefaultLimit, "Max results")
}

// SearchCommand creates the search subcommand, which lists RAW catalog
// rows with both the RAW and preview paths.
func SearchCommand(app *App) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the RAW catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), app.Config.DatabasePath, flags, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &flags)

	return cmd
}

func runSearch(ctx context.Context, dbPath string, flags filterFlags, out io.Writer) error {
	db, err := database.New(ctx, dbPath, &database.Options{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = db.Close() }()

	photos, err := db.Query(ctx, flags.filter(), flags.limit)
	if err != nil {
		return fmt.Errorf("search catalog: %w", err)
	}

	for _, p := range photos {
		fmt.Fprintf(out, "%s | %s | %s\n  RAW: %s\n  Preview: %s\n",
			orUnknown(p.Date), orUnknown(p.ClientName), orUnknown(p.CameraModel), p.FilePath, p.PreviewPath)
	}
	return nil
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}
