package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raw-catalog/internal/database"
)

func strPtr(s string) *string {
	return &s
}

// newRawCatalog writes n RAW rows for client into a fresh catalog.
func newRawCatalog(t *testing.T, dir, client string, n int) string {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(dir, "raw_catalog.db")
	db, err := database.New(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for i := 0; i < n; i++ {
		require.NoError(t, db.UpsertPhoto(ctx, nil, &database.RawPhoto{
			FilePath:    fmt.Sprintf("/raw/%s/IMG_%04d.CR2", client, i),
			PreviewPath: fmt.Sprintf("/raw/%s/IMG_%04d_preview.jpg", client, i),
			ClientName:  strPtr(client),
			Date:        strPtr(fmt.Sprintf("2024-06-%02d", i+1)),
			CameraModel: strPtr("Canon EOS R5"),
		}))
	}
	return path
}

// newJPGCatalog creates the external JPG catalog schema with n rows.
func newJPGCatalog(t *testing.T, dir, client string, n int) string {
	t.Helper()

	path := filepath.Join(dir, "photos.db")
	db, err := sql.Open(database.DriverName, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.Exec(`CREATE TABLE photos (
		id INTEGER PRIMARY KEY,
		filepath TEXT UNIQUE,
		client_name TEXT,
		date TEXT,
		camera_model TEXT,
		gps_latitude REAL,
		gps_longitude REAL
	)`)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		_, err = db.Exec("INSERT INTO photos (filepath, client_name, date, camera_model) VALUES (?, ?, ?, ?)",
			fmt.Sprintf("/jpg/%s/DSC_%04d.jpg", client, i), client, "2024-05-01", "X-T5")
		require.NoError(t, err)
	}
	return path
}

func TestServiceSearchOrdersJPGBeforeRAW(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(
		NewJPGSource(newJPGCatalog(t, dir, "Smith", 2)),
		NewRawSource(newRawCatalog(t, dir, "Smith", 2)),
	)
	defer func() { _ = svc.Close() }()

	results, err := svc.Search(context.Background(), Filter{Client: "smith"}, 50)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, OriginJPG, results[0].Origin)
	assert.Equal(t, OriginJPG, results[1].Origin)
	assert.Equal(t, OriginRAW, results[2].Origin)
	assert.Equal(t, OriginRAW, results[3].Origin)

	// RAW results point at previews, newest first.
	assert.Equal(t, "/raw/Smith/IMG_0001_preview.jpg", results[2].Path)
	assert.Equal(t, "2024-06-02", *results[2].Date)
}

func TestServiceSearchLimitIsPerSource(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(
		NewJPGSource(newJPGCatalog(t, dir, "Smith", 5)),
		NewRawSource(newRawCatalog(t, dir, "Smith", 5)),
	)
	defer func() { _ = svc.Close() }()

	results, err := svc.Search(context.Background(), Filter{}, 3)
	require.NoError(t, err)

	counts := CountsOf(results)
	assert.Equal(t, 6, counts.Total)
	assert.Equal(t, 3, counts.ByOrigin[OriginJPG])
	assert.Equal(t, 3, counts.ByOrigin[OriginRAW])
}

func TestServiceCountIsNotCappedByLimit(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(
		NewJPGSource(newJPGCatalog(t, dir, "Smith", 7)),
		NewRawSource(newRawCatalog(t, dir, "Smith", 60)),
	)
	defer func() { _ = svc.Close() }()

	counts, err := svc.Count(context.Background(), Filter{Client: "smith"})
	require.NoError(t, err)
	assert.Equal(t, 67, counts.Total)
	assert.Equal(t, 7, counts.ByOrigin[OriginJPG])
	assert.Equal(t, 60, counts.ByOrigin[OriginRAW])
	assert.Equal(t, "total=67 jpg=7 raw=60", counts.String())
}

func TestServiceMissingCatalogIsSkipped(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(
		NewJPGSource(filepath.Join(dir, "does-not-exist.db")),
		NewRawSource(newRawCatalog(t, dir, "Jones", 2)),
	)
	defer func() { _ = svc.Close() }()

	results, err := svc.Search(context.Background(), Filter{}, 50)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, OriginRAW, r.Origin)
	}

	counts, err := svc.Count(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Total)
	_, hasJPG := counts.ByOrigin[OriginJPG]
	assert.False(t, hasJPG)
}

func TestSQLSourceMissingCatalog(t *testing.T) {
	src := NewRawSource(filepath.Join(t.TempDir(), "nope.db"))

	_, err := src.Search(context.Background(), Filter{}, 10)
	assert.ErrorIs(t, err, ErrCatalogMissing)

	_, err = src.Count(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrCatalogMissing)

	assert.NoError(t, src.Close())
}

func TestRawSourceSkipsRowsWithoutPreview(t *testing.T) {
	dir := t.TempDir()
	path := newRawCatalog(t, dir, "Smith", 3)

	db, err := sql.Open(database.DriverName, path)
	require.NoError(t, err)
	_, err = db.Exec("UPDATE raw_photos SET preview_path = NULL WHERE filepath LIKE '%IMG_0000%'")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src := NewRawSource(path)
	defer func() { _ = src.Close() }()

	results, err := src.Search(context.Background(), Filter{}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	n, err := src.Count(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

type failingSource struct {
	origin Origin
	err    error
}

func (f failingSource) Origin() Origin { return f.origin }

func (f failingSource) Search(context.Context, Filter, int) ([]Result, error) {
	return nil, f.err
}

func (f failingSource) Count(context.Context, Filter) (int, error) {
	return 0, f.err
}

func (f failingSource) Close() error { return f.err }

func TestServiceFailingSourceIsSkipped(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("database disk image is malformed")
	raw := NewRawSource(newRawCatalog(t, dir, "Smith", 1))
	defer func() { _ = raw.Close() }()

	svc := NewService(failingSource{origin: OriginJPG, err: boom}, raw)

	results, err := svc.Search(context.Background(), Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OriginRAW, results[0].Origin)

	assert.ErrorIs(t, svc.Close(), boom)
}

func TestServiceSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(failingSource{origin: OriginJPG})
	_, err := svc.Search(ctx, Filter{}, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
