package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"raw-catalog/internal/metrics"
)

func TestNewResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status 200, got %d", rw.statusCode)
	}
	if rw.bytesWritten != 0 {
		t.Errorf("Expected 0 bytes written, got %d", rw.bytesWritten)
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected first status to stick, got %d", rw.statusCode)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected recorder status 404, got %d", rec.Code)
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	n, err := rw.Write([]byte("hello"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 5 || rw.bytesWritten != 5 {
		t.Errorf("Expected 5 bytes, got n=%d written=%d", n, rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("Expected wroteHeader after Write")
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		health bool
		want   bool
	}{
		{"metrics always skipped", "/metrics", true, true},
		{"api logged", "/api/search", true, false},
		{"health logged when enabled", "/health", true, false},
		{"health skipped when disabled", "/health", false, true},
		{"livez skipped when disabled", "/livez", false, true},
		{"api logged with health disabled", "/api/stats", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLoggingConfig()
			cfg.LogHealthChecks = tt.health
			if got := shouldSkip(tt.path, cfg); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line\nbreak", "line break"},
		{"cr\rlf", "cr lf"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07", "bell"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "10.0.0.5:51234", nil, "10.0.0.5"},
		{"forwarded for", "10.0.0.5:1", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", "10.0.0.5:1", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoggerMiddlewarePassesThrough(t *testing.T) {
	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?client=a%0Ab", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("Expected body to pass through, got %q", rec.Body.String())
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodGet)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/items/{id}", "202")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("Expected 202, got %d", rec.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("Expected 3 requests under one label, got %v", got)
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := testutil.ToFloat64(counter) - before; got != 0 {
		t.Errorf("Expected skipped path not to be counted, got %v", got)
	}
}

func TestRouteLabelWithoutRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routeLabel(req); got != "unmatched" {
		t.Errorf("routeLabel() = %q, want unmatched", got)
	}
}
