package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"raw-catalog/internal/middleware"
)

// NewRouter registers every endpoint with logging and metrics middleware.
func NewRouter(h *Handlers, logHealthChecks bool) *mux.Router {
	r := mux.NewRouter()

	logCfg := middleware.DefaultLoggingConfig()
	logCfg.LogHealthChecks = logHealthChecks
	r.Use(middleware.Logger(logCfg))
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet).Name("search")
	api.HandleFunc("/search/count", h.SearchCount).Methods(http.MethodGet).Name("search-count")
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet).Name("stats")
	api.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("livez")
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")

	return r
}
