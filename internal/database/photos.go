package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"raw-catalog/internal/metrics"
)

const upsertPhotoQuery = `
	INSERT OR REPLACE INTO raw_photos (
		filepath, preview_path, client_name, date,
		camera_make, camera_model, lens_model,
		iso, aperture, shutter_speed, focal_length,
		datetime, gps_latitude, gps_longitude,
		size_mb, preview_size_kb, indexed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const photoColumns = `filepath, preview_path, client_name, date,
	camera_make, camera_model, lens_model,
	iso, aperture, shutter_speed, focal_length,
	datetime, gps_latitude, gps_longitude,
	size_mb, preview_size_kb, indexed_at`

// UpsertPhoto inserts the row for p.FilePath, replacing any existing row
// entirely. q is either the database or a batch transaction from
// BeginBatch; nil means the database. Lock errors are retried according to
// the catalog's RetryPolicy, and any failure is returned as a *WriteError.
func (d *Database) UpsertPhoto(ctx context.Context, q Querier, p *RawPhoto) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_photo", start, err) }()

	if p == nil || p.FilePath == "" {
		err = &WriteError{Err: errors.New("photo has no file path")}
		return err
	}
	if d.readOnly {
		err = &WriteError{Path: p.FilePath, Err: errors.New("catalog is read-only")}
		return err
	}
	if q == nil {
		q = d.db
	}

	indexedAt := p.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	args := []any{
		p.FilePath, p.PreviewPath, p.ClientName, p.Date,
		p.CameraMake, p.CameraModel, p.LensModel,
		p.ISO, p.Aperture, p.ShutterSpeed, p.FocalLength,
		formatTime(p.CaptureTime), p.GPSLatitude, p.GPSLongitude,
		p.RawSizeMB, p.PreviewSizeKB, indexedAt.UTC().Format(time.RFC3339),
	}

	attempts, execErr := withLockRetry(ctx, d.retry, d.sleep, "upsert_photo", func() error {
		_, e := q.ExecContext(ctx, upsertPhotoQuery, args...)
		return e
	})
	if execErr != nil {
		err = &WriteError{Path: p.FilePath, Attempts: attempts, Err: execErr}
		return err
	}
	return nil
}

// HasPhoto reports whether a row exists for path.
func (d *Database) HasPhoto(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("has_photo", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var exists bool
	err = d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM raw_photos WHERE filepath = ?)", path).Scan(&exists)
	return exists, err
}

// GetPhoto returns the row for path, or sql.ErrNoRows.
func (d *Database) GetPhoto(ctx context.Context, path string) (*RawPhoto, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_photo", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := d.db.QueryRowContext(ctx, "SELECT "+photoColumns+" FROM raw_photos WHERE filepath = ?", path)
	photo, err := scanPhoto(row)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// Query returns full catalog rows matching f, newest date first. A limit
// of zero or less returns every match.
func (d *Database) Query(ctx context.Context, f Filter, limit int) ([]RawPhoto, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("search", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	where, args := f.Where()
	query := "SELECT " + photoColumns + " FROM raw_photos" + where + " ORDER BY date DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var photos []RawPhoto
	for rows.Next() {
		var photo *RawPhoto
		photo, err = scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *photo)
	}
	err = rows.Err()
	return photos, err
}

// Count returns the number of catalog rows matching f.
func (d *Database) Count(ctx context.Context, f Filter) (int, error) {
	return d.CountRows(ctx, Table{Name: "raw_photos"}, f)
}

// Select runs a filtered search against any photo table sharing the
// catalog's filter columns, newest date first.
func (d *Database) Select(ctx context.Context, t Table, f Filter, limit int) ([]Row, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("search", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	where, args := f.Where(t.Condition)
	query := fmt.Sprintf("SELECT %s, client_name, date, camera_model FROM %s%s ORDER BY date DESC",
		t.PathColumn, t.Name, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var (
			path                 sql.NullString
			client, date, camera sql.NullString
		)
		if err = rows.Scan(&path, &client, &date, &camera); err != nil {
			return nil, err
		}
		out = append(out, Row{
			Path:   path.String,
			Client: nullString(client),
			Date:   nullString(date),
			Camera: nullString(camera),
		})
	}
	err = rows.Err()
	return out, err
}

// CountRows returns COUNT(*) of rows in t matching f.
func (d *Database) CountRows(ctx context.Context, t Table, f Filter) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	where, args := f.Where(t.Condition)
	var n int
	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t.Name+where, args...).Scan(&n)
	return n, err
}

// Stats summarizes the catalog.
func (d *Database) Stats(ctx context.Context) (CatalogStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var (
		stats       CatalogStats
		previewKB   sql.NullFloat64
		rawMB       sql.NullFloat64
		lastIndexed sql.NullString
	)
	err = d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN gps_latitude IS NOT NULL AND gps_longitude IS NOT NULL THEN 1 END),
			COUNT(DISTINCT client_name),
			SUM(preview_size_kb),
			SUM(size_mb),
			MAX(indexed_at)
		FROM raw_photos
	`).Scan(&stats.TotalPhotos, &stats.PhotosWithGPS, &stats.TotalClients, &previewKB, &rawMB, &lastIndexed)
	if err != nil {
		return CatalogStats{}, err
	}

	stats.PreviewBytes = int64(previewKB.Float64 * 1024)
	stats.RawBytes = int64(rawMB.Float64 * 1024 * 1024)
	stats.LastIndexed = parseTime(lastIndexed)
	return stats, nil
}

// GetStats adapts Stats for the metrics collector.
func (d *Database) GetStats(ctx context.Context) (metrics.Stats, error) {
	s, err := d.Stats(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}
	return metrics.Stats{
		TotalPhotos:   s.TotalPhotos,
		PhotosWithGPS: s.PhotosWithGPS,
		TotalClients:  s.TotalClients,
		PreviewBytes:  s.PreviewBytes,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*RawPhoto, error) {
	var (
		p                                  RawPhoto
		preview                            sql.NullString
		client, date, camMake, model, lens sql.NullString
		aperture, shutter, focal, captured sql.NullString
		iso                                sql.NullInt64
		lat, lon, sizeMB, previewKB        sql.NullFloat64
		indexedAt                          sql.NullString
	)
	err := row.Scan(
		&p.FilePath, &preview, &client, &date,
		&camMake, &model, &lens,
		&iso, &aperture, &shutter, &focal,
		&captured, &lat, &lon,
		&sizeMB, &previewKB, &indexedAt,
	)
	if err != nil {
		return nil, err
	}

	p.PreviewPath = preview.String
	p.ClientName = nullString(client)
	p.Date = nullString(date)
	p.CameraMake = nullString(camMake)
	p.CameraModel = nullString(model)
	p.LensModel = nullString(lens)
	if iso.Valid {
		v := int(iso.Int64)
		p.ISO = &v
	}
	p.Aperture = nullString(aperture)
	p.ShutterSpeed = nullString(shutter)
	p.FocalLength = nullString(focal)
	p.CaptureTime = parseTime(captured)
	p.GPSLatitude = nullFloat(lat)
	p.GPSLongitude = nullFloat(lon)
	p.RawSizeMB = sizeMB.Float64
	p.PreviewSizeKB = previewKB.Float64
	if t := parseTime(indexedAt); t != nil {
		p.IndexedAt = *t
	}
	return &p, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

// parseTime accepts RFC3339 and the naive ISO form older catalogs used.
func parseTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006:01:02 15:04:05"} {
		if t, err := time.Parse(layout, s.String); err == nil {
			return &t
		}
	}
	return nil
}
