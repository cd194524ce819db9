package handlers

import (
	"net/http"
	"runtime"
	"time"

	"raw-catalog/internal/database"
	"raw-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Catalog database.CatalogStats `json:"catalog"`
	LastRun *database.ScanRun     `json:"lastScan,omitempty"`
}

// Stats summarizes the RAW catalog and its last recorded scan.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSONError(w, "RAW catalog not available", http.StatusServiceUnavailable)
		return
	}

	v, err := h.cached("stats", func() (any, error) {
		stats, err := h.catalog.Stats(r.Context())
		if err != nil {
			return nil, err
		}
		run, err := h.catalog.LastScanRun(r.Context())
		if err != nil {
			return nil, err
		}
		return StatsResponse{Catalog: stats, LastRun: run}, nil
	})
	if err != nil {
		writeJSONError(w, "Failed to read catalog stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, v, http.StatusOK)
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Catalog string `json:"catalog"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	TotalPhotos int `json:"totalPhotos,omitempty"`
}

// HealthCheck returns the health status of the service. It reports
// degraded, still with 200, when the RAW catalog cannot be read since
// search over the JPG catalog keeps working.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Catalog:      "ok",
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	switch {
	case h.catalog == nil:
		response.Status = statusDegraded
		response.Catalog = "missing"
	default:
		stats, err := h.catalog.Stats(r.Context())
		if err != nil {
			response.Status = statusDegraded
			response.Catalog = "error"
		} else {
			response.TotalPhotos = stats.TotalPhotos
		}
	}

	writeJSONStatus(w, response, http.StatusOK)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}
