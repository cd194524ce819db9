package handlers

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"raw-catalog/internal/database"
	"raw-catalog/internal/search"
)

// Searcher runs filtered searches across catalogs.
type Searcher interface {
	Search(ctx context.Context, f search.Filter, limit int) ([]search.Result, error)
	Count(ctx context.Context, f search.Filter) (search.Counts, error)
}

// CatalogReader exposes the RAW catalog summary.
type CatalogReader interface {
	Stats(ctx context.Context) (database.CatalogStats, error)
	LastScanRun(ctx context.Context) (*database.ScanRun, error)
}

type Handlers struct {
	search  Searcher
	catalog CatalogReader
	cache   *cache.Cache
	started time.Time
}

// New creates the API handlers. catalog may be nil when no RAW catalog
// exists yet. Stats and counts are cached for cacheTTL; zero disables
// caching.
func New(svc Searcher, catalog CatalogReader, cacheTTL time.Duration) *Handlers {
	h := &Handlers{
		search:  svc,
		catalog: catalog,
		started: time.Now(),
	}
	if cacheTTL > 0 {
		h.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return h
}

// cached returns the value stored under key, computing and storing it
// with fn on a miss. Errors are never cached.
func (h *Handlers) cached(key string, fn func() (any, error)) (any, error) {
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			return v, nil
		}
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		h.cache.Set(key, v, cache.DefaultExpiration)
	}
	return v, nil
}
