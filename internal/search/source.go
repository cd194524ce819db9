package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"raw-catalog/internal/database"
	"raw-catalog/internal/filesystem"
)

// Origin identifies which catalog a result came from.
type Origin string

const (
	OriginJPG Origin = "JPG"
	OriginRAW Origin = "RAW"
)

// Filter is shared with the catalog so the same clause runs against both
// tables.
type Filter = database.Filter

// Result is one search hit. Path is the original JPG for JPG results and
// the generated preview for RAW results.
type Result struct {
	Origin Origin  `json:"origin"`
	Path   string  `json:"path"`
	Client *string `json:"client,omitempty"`
	Date   *string `json:"date,omitempty"`
	Camera *string `json:"camera,omitempty"`
}

// ErrCatalogMissing is returned by a Source whose catalog file does not
// exist.
var ErrCatalogMissing = errors.New("catalog not found")

// Source is a searchable photo catalog.
type Source interface {
	Origin() Origin
	Search(ctx context.Context, f Filter, limit int) ([]Result, error)
	Count(ctx context.Context, f Filter) (int, error)
	Close() error
}

// SQLSource searches one table of a SQLite catalog. The catalog is opened
// read-only on first use.
type SQLSource struct {
	origin Origin
	path   string
	table  database.Table

	mu sync.Mutex
	db *database.Database
}

// NewSQLSource returns a source over table in the catalog at path.
func NewSQLSource(origin Origin, path string, table database.Table) *SQLSource {
	return &SQLSource{origin: origin, path: path, table: table}
}

// NewRawSource searches RAW previews in this tool's catalog.
func NewRawSource(path string) *SQLSource {
	return NewSQLSource(OriginRAW, path, database.RawPhotosTable)
}

// NewJPGSource searches the external JPG catalog.
func NewJPGSource(path string) *SQLSource {
	return NewSQLSource(OriginJPG, path, database.JPGPhotosTable)
}

func (s *SQLSource) Origin() Origin { return s.origin }

// Path returns the catalog file path.
func (s *SQLSource) Path() string { return s.path }

func (s *SQLSource) open(ctx context.Context) (*database.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	exists, err := filesystem.Exists(s.path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%s catalog %s: %w", s.origin, s.path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s catalog %s: %w", s.origin, s.path, ErrCatalogMissing)
	}

	db, err := database.New(ctx, s.path, &database.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open %s catalog: %w", s.origin, err)
	}
	s.db = db
	return db, nil
}

// Search returns up to limit matching rows tagged with this source's
// origin, newest date first.
func (s *SQLSource) Search(ctx context.Context, f Filter, limit int) ([]Result, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.Select(ctx, s.table, f, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s catalog: %w", s.origin, err)
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, Result{
			Origin: s.origin,
			Path:   r.Path,
			Client: r.Client,
			Date:   r.Date,
			Camera: r.Camera,
		})
	}
	return results, nil
}

// Count returns the total number of matching rows, ignoring any limit.
func (s *SQLSource) Count(ctx context.Context, f Filter) (int, error) {
	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}

	n, err := db.CountRows(ctx, s.table, f)
	if err != nil {
		return 0, fmt.Errorf("count %s catalog: %w", s.origin, err)
	}
	return n, nil
}

// Close releases the catalog connection if one was opened.
func (s *SQLSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
