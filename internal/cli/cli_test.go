package cli

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raw-catalog/internal/database"
	"raw-catalog/internal/startup"
)

func strPtr(s string) *string {
	return &s
}

// isolate keeps stray config files and RAWCAT_* variables out of a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func seedRawCatalog(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows := []database.RawPhoto{
		{
			FilePath:    "/shoots/2024-06-01 Smith Wedding/IMG_0001.CR2",
			PreviewPath: "/shoots/2024-06-01 Smith Wedding/IMG_0001_preview.jpg",
			ClientName:  strPtr("Smith Wedding"),
			Date:        strPtr("2024-06-01"),
			CameraModel: strPtr("Canon EOS R5"),
		},
		{
			FilePath:    "/shoots/2024-05-12/DSC_0042.NEF",
			PreviewPath: "/shoots/2024-05-12/DSC_0042_preview.jpg",
			Date:        strPtr("2024-05-12"),
		},
	}
	for i := range rows {
		require.NoError(t, db.UpsertPhoto(ctx, nil, &rows[i]))
	}
}

func seedJPGCatalog(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open(database.DriverName, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE photos (
		filepath TEXT UNIQUE,
		client_name TEXT,
		date TEXT,
		camera_model TEXT,
		gps_latitude REAL,
		gps_longitude REAL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO photos VALUES
		('/jpg/smith/a.jpg', 'Smith Wedding', '2024-06-01', 'X-T5', 52.1, 4.3),
		('/jpg/jones/b.jpg', 'Jones', '2024-04-02', 'X-T5', NULL, NULL)`)
	require.NoError(t, err)
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := RootCommand(NewApp())

	for _, name := range []string{"scan", "search", "serve"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	scan, _, err := root.Find([]string{"scan"})
	require.NoError(t, err)
	for _, flag := range []string{"no-db", "regenerate", "reconcile", "watch", "limit", "workers", "metrics-file"} {
		assert.NotNil(t, scan.Flags().Lookup(flag), flag)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("db"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestSearchCommandPrintsRawAndPreview(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "raw.db")
	seedRawCatalog(t, dbPath)

	out, err := execute(t, RootCommand(NewApp()), "--db", dbPath, "search", "--client", "smith")
	require.NoError(t, err)

	want := "2024-06-01 | Smith Wedding | Canon EOS R5\n" +
		"  RAW: /shoots/2024-06-01 Smith Wedding/IMG_0001.CR2\n" +
		"  Preview: /shoots/2024-06-01 Smith Wedding/IMG_0001_preview.jpg\n"
	assert.Equal(t, want, out)
}

func TestSearchCommandUnknownFields(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "raw.db")
	seedRawCatalog(t, dbPath)

	out, err := execute(t, RootCommand(NewApp()), "--db", dbPath, "search", "--date", "2024-05-12")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "2024-05-12 | unknown | unknown\n"), out)
}

func TestSearchCommandMissingCatalog(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, RootCommand(NewApp()), "--db", filepath.Join(dir, "none.db"), "search")
	assert.Error(t, err)
}

func TestSearchCommandRejectsArgs(t *testing.T) {
	isolate(t)
	_, err := execute(t, RootCommand(NewApp()), "search", "smith")
	assert.Error(t, err)
}

func TestScanCommandRequiresDirectory(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, RootCommand(NewApp()), "scan")
	assert.Error(t, err)

	_, err = execute(t, RootCommand(NewApp()), "scan", filepath.Join(dir, "missing"), "--no-db")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	isolate(t)
	t.Setenv("RAWCAT_PREVIEW_QUALITY", "0")

	_, err := execute(t, RootCommand(NewApp()), "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preview quality")
}

func TestPhotoSearchDetailed(t *testing.T) {
	dir := isolate(t)
	rawPath := filepath.Join(dir, "raw.db")
	jpgPath := filepath.Join(dir, "jpg.db")
	seedRawCatalog(t, rawPath)
	seedJPGCatalog(t, jpgPath)

	out, err := execute(t, PhotoSearchCommand(NewApp()), "smith", "--raw-db", rawPath, "--jpg-db", jpgPath)
	require.NoError(t, err)

	want := "\nFound 2 photos:\n\n" +
		"[JPG] 2024-06-01 | Smith Wedding | X-T5\n  /jpg/smith/a.jpg\n\n" +
		"[RAW] 2024-06-01 | Smith Wedding | Canon EOS R5\n  /shoots/2024-06-01 Smith Wedding/IMG_0001_preview.jpg\n\n"
	assert.Equal(t, want, out)
}

func TestPhotoSearchSimpleAndLocation(t *testing.T) {
	dir := isolate(t)
	rawPath := filepath.Join(dir, "raw.db")
	jpgPath := filepath.Join(dir, "jpg.db")
	seedRawCatalog(t, rawPath)
	seedJPGCatalog(t, jpgPath)

	out, err := execute(t, PhotoSearchCommand(NewApp()), "--location", "--simple", "--raw-db", rawPath, "--jpg-db", jpgPath)
	require.NoError(t, err)
	assert.Equal(t, "/jpg/smith/a.jpg\n", out)
}

func TestPhotoSearchCount(t *testing.T) {
	dir := isolate(t)
	rawPath := filepath.Join(dir, "raw.db")
	jpgPath := filepath.Join(dir, "jpg.db")
	seedRawCatalog(t, rawPath)
	seedJPGCatalog(t, jpgPath)

	out, err := execute(t, PhotoSearchCommand(NewApp()), "--count", "--limit", "1", "--raw-db", rawPath, "--jpg-db", jpgPath)
	require.NoError(t, err)
	assert.Equal(t, "Total photos found: 4\n  JPG: 2\n  RAW previews: 2\n", out)
}

func TestPhotoSearchMissingCatalogsIsEmpty(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, PhotoSearchCommand(NewApp()),
		"--raw-db", filepath.Join(dir, "a.db"), "--jpg-db", filepath.Join(dir, "b.db"))
	require.NoError(t, err)
	assert.Equal(t, "\nFound 0 photos:\n\n", out)
}

func TestPhotoSearchEnvConfig(t *testing.T) {
	dir := isolate(t)
	rawPath := filepath.Join(dir, "raw.db")
	seedRawCatalog(t, rawPath)
	t.Setenv("RAWCAT_DATABASE_PATH", rawPath)
	t.Setenv("RAWCAT_DATABASE_JPG_PATH", filepath.Join(dir, "none.db"))

	app := NewApp()
	out, err := execute(t, PhotoSearchCommand(app), "--simple")
	require.NoError(t, err)
	assert.Equal(t, rawPath, app.Config.DatabasePath)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestAppBindUnknownFlagPanics(t *testing.T) {
	app := NewApp()
	cmd := &cobra.Command{Use: "x"}
	assert.Panics(t, func() { app.bind(cmd, startup.KeyWorkers, "nope") })
}
