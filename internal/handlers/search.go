package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/search"
)

// maxLimit caps the per-catalog limit a client may request.
const maxLimit = 1000

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Results []search.Result `json:"results"`
	Counts  search.Counts   `json:"counts"`
	Limit   int             `json:"limit"`
}

// parseFilter reads client, date, camera, location and limit from the
// query string.
func parseFilter(r *http.Request) (search.Filter, int, error) {
	q := r.URL.Query()
	f := search.Filter{
		Client: strings.TrimSpace(q.Get("client")),
		Date:   strings.TrimSpace(q.Get("date")),
		Camera: strings.TrimSpace(q.Get("camera")),
	}

	if v := q.Get("location"); v != "" {
		gps, err := strconv.ParseBool(v)
		if err != nil {
			return f, 0, fmt.Errorf("invalid location %q", v)
		}
		f.RequireGPS = gps
	}

	limit := search.DefaultLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return f, 0, errors.New("limit must be a positive integer")
		}
		limit = min(n, maxLimit)
	}
	return f, limit, nil
}

// Search returns matches from every catalog, JPG first, each capped at
// limit.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	f, limit, err := parseFilter(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.search.Search(r.Context(), f, limit)
	if err != nil {
		logging.Error("Search failed: %v", err)
		writeJSONError(w, "Search failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	writeJSONStatus(w, SearchResponse{
		Results: results,
		Counts:  search.CountsOf(results),
		Limit:   limit,
	}, http.StatusOK)
}

// SearchCount returns the total number of matches per catalog,
// independent of any limit.
func (h *Handlers) SearchCount(w http.ResponseWriter, r *http.Request) {
	f, _, err := parseFilter(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := fmt.Sprintf("count|%s|%s|%s|%t", f.Client, f.Date, f.Camera, f.RequireGPS)
	v, err := h.cached(key, func() (any, error) {
		return h.search.Count(r.Context(), f)
	})
	if err != nil {
		logging.Error("Count failed: %v", err)
		writeJSONError(w, "Count failed", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, v, http.StatusOK)
}
