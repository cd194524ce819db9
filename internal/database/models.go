package database

import (
	"context"
	"database/sql"
	"time"
)

// RawPhoto is one catalog row, keyed by the RAW file path.
type RawPhoto struct {
	FilePath      string     `json:"filePath"`
	PreviewPath   string     `json:"previewPath"`
	ClientName    *string    `json:"clientName,omitempty"`
	Date          *string    `json:"date,omitempty"`
	CameraMake    *string    `json:"cameraMake,omitempty"`
	CameraModel   *string    `json:"cameraModel,omitempty"`
	LensModel     *string    `json:"lensModel,omitempty"`
	ISO           *int       `json:"iso,omitempty"`
	Aperture      *string    `json:"aperture,omitempty"`
	ShutterSpeed  *string    `json:"shutterSpeed,omitempty"`
	FocalLength   *string    `json:"focalLength,omitempty"`
	CaptureTime   *time.Time `json:"captureTime,omitempty"`
	GPSLatitude   *float64   `json:"gpsLatitude,omitempty"`
	GPSLongitude  *float64   `json:"gpsLongitude,omitempty"`
	RawSizeMB     float64    `json:"rawSizeMb"`
	PreviewSizeKB float64    `json:"previewSizeKb"`
	IndexedAt     time.Time  `json:"indexedAt"`
}

// HasGPS reports whether both coordinates are present.
func (p *RawPhoto) HasGPS() bool {
	return p.GPSLatitude != nil && p.GPSLongitude != nil
}

// Querier is satisfied by *sql.DB and *sql.Tx, so writes can go either
// straight to the database or into an open batch.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table describes a photo table that can be searched with a Filter.
// Both the RAW catalog and the external JPG catalog share the filter
// columns (client_name, date, camera_model, gps_latitude, gps_longitude).
type Table struct {
	Name       string
	PathColumn string
	// Condition is an extra predicate ANDed into every query.
	Condition string
}

var (
	// RawPhotosTable selects previews from this tool's catalog.
	RawPhotosTable = Table{Name: "raw_photos", PathColumn: "preview_path", Condition: "preview_path IS NOT NULL"}

	// JPGPhotosTable selects originals from the external JPG catalog.
	JPGPhotosTable = Table{Name: "photos", PathColumn: "filepath"}
)

// Row is the projection returned by Select.
type Row struct {
	Path   string
	Client *string
	Date   *string
	Camera *string
}

// CatalogStats summarizes the RAW catalog.
type CatalogStats struct {
	TotalPhotos   int        `json:"totalPhotos"`
	PhotosWithGPS int        `json:"photosWithGps"`
	TotalClients  int        `json:"totalClients"`
	PreviewBytes  int64      `json:"previewBytes"`
	RawBytes      int64      `json:"rawBytes"`
	LastIndexed   *time.Time `json:"lastIndexed,omitempty"`
}

// ScanRun records a completed scan in the metadata table.
type ScanRun struct {
	ID               string        `json:"id"`
	Root             string        `json:"root"`
	StartedAt        time.Time     `json:"startedAt"`
	Duration         time.Duration `json:"duration"`
	Found            int           `json:"found"`
	Converted        int           `json:"converted"`
	Skipped          int           `json:"skipped"`
	Reconciled       int           `json:"reconciled"`
	FailedConversion int           `json:"failedConversion"`
	FailedCatalog    int           `json:"failedCatalog"`
}
