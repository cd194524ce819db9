package search

import (
	"context"
	"errors"
	"strconv"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/metrics"
)

// DefaultLimit is the per-catalog result cap when none is given.
const DefaultLimit = 50

// Counts holds match totals per origin.
type Counts struct {
	Total    int            `json:"total"`
	ByOrigin map[Origin]int `json:"byOrigin"`
}

// Service searches several catalogs and merges their results.
type Service struct {
	sources []Source
}

// NewService queries sources in the order given.
func NewService(sources ...Source) *Service {
	return &Service{sources: sources}
}

// Sources returns the configured sources in query order.
func (s *Service) Sources() []Source {
	return s.sources
}

// Search runs f against every source, applying limit per source, and
// concatenates the results in source order without re-sorting. A source
// that is missing or fails is logged and skipped.
func (s *Service) Search(ctx context.Context, f Filter, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var all []Result
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		results, err := src.Search(ctx, f, limit)
		if err != nil {
			s.skip(src, err)
			continue
		}

		metrics.SearchQueriesTotal.WithLabelValues(string(src.Origin()), "success").Inc()
		metrics.SearchResultsReturned.WithLabelValues(string(src.Origin())).Observe(float64(len(results)))
		all = append(all, results...)
	}
	return all, nil
}

// Count returns the full number of matches per source (not capped by any
// limit). Missing or failing sources are logged and left out.
func (s *Service) Count(ctx context.Context, f Filter) (Counts, error) {
	counts := Counts{ByOrigin: make(map[Origin]int, len(s.sources))}

	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		n, err := src.Count(ctx, f)
		if err != nil {
			s.skip(src, err)
			continue
		}

		metrics.SearchQueriesTotal.WithLabelValues(string(src.Origin()), "success").Inc()
		counts.ByOrigin[src.Origin()] += n
		counts.Total += n
	}
	return counts, nil
}

func (s *Service) skip(src Source, err error) {
	status := "error"
	if errors.Is(err, ErrCatalogMissing) {
		status = "missing"
	}
	metrics.SearchQueriesTotal.WithLabelValues(string(src.Origin()), status).Inc()
	logging.Warn("Could not search %s database: %v", src.Origin(), err)
}

// Close closes every source.
func (s *Service) Close() error {
	var errs []error
	for _, src := range s.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CountsOf tallies results already fetched, per origin.
func CountsOf(results []Result) Counts {
	counts := Counts{ByOrigin: map[Origin]int{}}
	for _, r := range results {
		counts.ByOrigin[r.Origin]++
		counts.Total++
	}
	return counts
}

func (c Counts) String() string {
	return "total=" + strconv.Itoa(c.Total) +
		" jpg=" + strconv.Itoa(c.ByOrigin[OriginJPG]) +
		" raw=" + strconv.Itoa(c.ByOrigin[OriginRAW])
}
