// Package http provides HTTP handlers for the bazaar query service.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/bazaargate/adapters/metrics"
	"github.com/artpar/bazaargate/app"
	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/domain/query"
	"github.com/artpar/bazaargate/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ErrorResponseBody is the body of every failed request.
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// ValueResponseBody is the body of a successful field or history request.
type ValueResponseBody struct {
	Value any `json:"value"`
}

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// BazaarHandler serves the bazaar query routes.
type BazaarHandler struct {
	service *app.QueryService
	logger  zerolog.Logger
}

// NewBazaarHandler creates a new bazaar handler.
func NewBazaarHandler(service *app.QueryService, logger zerolog.Logger) *BazaarHandler {
	return &BazaarHandler{
		service: service,
		logger:  logger,
	}
}

// Snapshot serves GET /api/skyblock/bazaar/{productID}.
func (h *BazaarHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	result := h.service.LatestSnapshot(r.Context(), chi.URLParam(r, "productID"), extractAPIKey(r))
	if result.Error != nil {
		writeError(w, result.Error)
		return
	}

	snap := *result.Snapshot
	if snap.QuickStatus == nil {
		snap.QuickStatus = product.QuickStatus{}
	}
	writeJSON(w, http.StatusOK, snap)
}

// Field serves GET /api/skyblock/bazaar/{productID}/{field}.
func (h *BazaarHandler) Field(w http.ResponseWriter, r *http.Request) {
	result := h.service.LatestField(r.Context(),
		chi.URLParam(r, "productID"),
		chi.URLParam(r, "field"),
		extractAPIKey(r),
	)
	if result.Error != nil {
		writeError(w, result.Error)
		return
	}
	writeJSON(w, http.StatusOK, ValueResponseBody{Value: result.Value})
}

// History serves GET /api/skyblock/bazaar/{productID}/{field}/{limit}.
func (h *BazaarHandler) History(w http.ResponseWriter, r *http.Request) {
	result := h.service.FieldHistory(r.Context(),
		chi.URLParam(r, "productID"),
		chi.URLParam(r, "field"),
		parseLimit(chi.URLParam(r, "limit")),
		extractAPIKey(r),
	)
	if result.Error != nil {
		writeError(w, result.Error)
		return
	}
	writeJSON(w, http.StatusOK, ValueResponseBody{Value: result.Values})
}

// parseLimit accepts a plain non-negative decimal integer.
// Anything else maps to -1 so the service reports it after validating id and field.
func parseLimit(s string) int {
	n, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return -1
	}
	return int(n)
}

// extractAPIKey extracts the API key from the request.
// Supports: key query param, X-API-Key header.
func extractAPIKey(r *http.Request) string {
	if k := r.URL.Query().Get("key"); k != "" {
		return k
	}
	return r.Header.Get("X-API-Key")
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a {"error": "..."} response.
func writeError(w http.ResponseWriter, err *query.ErrorResponse) {
	writeJSON(w, err.Status, ErrorResponseBody{Error: err.Message})
}

// pageNotFound answers unknown routes and unsupported methods.
func pageNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, &query.ErrPageNotFound)
}

// SweepReporter exposes the reset schedule and the most recent quota reset sweep.
type SweepReporter interface {
	Interval() time.Duration
	LastRun() (app.SweepResult, bool)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db     ports.Pinger
	resets SweepReporter
}

// NewHealthHandler creates a new health handler. Either argument may be nil.
func NewHealthHandler(db ports.Pinger, resets SweepReporter) *HealthHandler {
	return &HealthHandler{db: db, resets: resets}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks that the database answers and reports the last reset sweep.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	body := map[string]any{"status": "ok"}

	if h.resets != nil {
		body["reset_interval"] = h.resets.Interval().String()
		if last, ok := h.resets.LastRun(); ok {
			reset := map[string]any{
				"at":          last.At.UTC().Format(time.RFC3339),
				"keys_zeroed": last.Zeroed,
			}
			if last.Err != nil {
				reset["error"] = last.Err.Error()
			}
			body["last_reset"] = reset
		}
	}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}

	writeJSON(w, http.StatusOK, body)
}

// VersionHandler returns the service version.
func VersionHandler(version string) http.HandlerFunc {
	if version == "" {
		version = "dev"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{
			Version: version,
			Service: "bazaargate",
		})
	}
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics        *metrics.Collector
	MetricsHandler http.Handler  // Optional metrics exporter handler (for /metrics endpoint)
	Version        string        // Reported by /version
	RequestTimeout time.Duration // default 60s
}

// NewRouter creates the main HTTP router.
func NewRouter(bazaarHandler *BazaarHandler, healthHandler *HealthHandler, logger zerolog.Logger) chi.Router {
	return NewRouterWithConfig(bazaarHandler, healthHandler, logger, RouterConfig{})
}

// NewRouterWithConfig creates the main HTTP router with optional config.
func NewRouterWithConfig(bazaarHandler *BazaarHandler, healthHandler *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	// Metrics middleware (if enabled)
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	// Unknown routes and methods share one response
	r.NotFound(pageNotFound)
	r.MethodNotAllowed(pageNotFound)

	// Health endpoints (no key required)
	r.Get("/health", healthHandler.Liveness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// Metrics endpoint (prefer explicit handler, fall back to promhttp)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	} else if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Version endpoint
	r.Get("/version", VersionHandler(cfg.Version))

	// Bazaar query routes
	r.Get("/api/skyblock/bazaar/{productID}", bazaarHandler.Snapshot)
	r.Get("/api/skyblock/bazaar/{productID}/{field}", bazaarHandler.Field)
	r.Get("/api/skyblock/bazaar/{productID}/{field}/{limit}", bazaarHandler.History)

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := statusLabel(ww.Status())
			path := metrics.NormalizePath(r.URL.Path)

			m.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates a new logging middleware.
// The key query parameter is never logged.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
