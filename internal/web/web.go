// Package web provides the HTTP surface of the gateway: the OpenAI-compatible
// chat completions endpoint, session and model management APIs, auth status,
// health, and the Prometheus scrape endpoint. Handlers translate between wire
// shapes and the gateway service; completion semantics live in
// internal/gateway.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/claudebridge/internal/auth"
	"github.com/haasonsaas/claudebridge/internal/gateway"
	"github.com/haasonsaas/claudebridge/internal/observability"
	"github.com/haasonsaas/claudebridge/internal/registry"
	"github.com/haasonsaas/claudebridge/internal/sessions"
)

// wireTimeLayout renders timestamps as ISO-8601 UTC with millisecond
// precision and a trailing Z, e.g. 2025-01-02T15:04:05.123Z.
const wireTimeLayout = "2006-01-02T15:04:05.000Z"

// Config wires the handler's collaborators.
type Config struct {
	// Gateway runs chat completions. Required.
	Gateway *gateway.Service
	// Sessions backs the /v1/sessions API. Required.
	Sessions *sessions.Store
	// Catalog backs the /v1/models API. Required.
	Catalog *registry.Catalog
	// Resolver supplies /v1/auth/status. Optional; nil reports none.
	Resolver *auth.Resolver

	// APIKey, when non-empty, gates every route except /health,
	// /v1/auth/status and /metrics behind Authorization: Bearer <APIKey>.
	APIKey string

	// Gatherer backs GET /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer

	// Version is reported by GET /health.
	Version string
	// StartTime anchors the health endpoint's uptime. Zero means now.
	StartTime time.Time
}

// Handler is the gateway's HTTP handler.
type Handler struct {
	config  *Config
	mux     *http.ServeMux
	started time.Time
}

// NewHandler creates the HTTP handler and registers all routes.
func NewHandler(cfg *Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.LogConfig{Level: "info"})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewMetricsWith(prometheus.NewRegistry())
	}
	if cfg.Tracer == nil {
		cfg.Tracer, _ = observability.NewTracer(observability.TraceConfig{ServiceName: "claudebridge"})
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	started := cfg.StartTime
	if started.IsZero() {
		started = time.Now()
	}

	h := &Handler{
		config:  cfg,
		mux:     http.NewServeMux(),
		started: started,
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures all HTTP routes.
func (h *Handler) setupRoutes() {
	h.mux.HandleFunc("/v1/chat/completions", h.handleChatCompletions)

	h.mux.HandleFunc("/v1/sessions", h.handleSessions)
	h.mux.HandleFunc("/v1/sessions/", h.handleSession)

	h.mux.HandleFunc("/v1/models", h.handleModels)
	h.mux.HandleFunc("/v1/models/", h.handleModel)

	h.mux.HandleFunc("/v1/auth/status", h.handleAuthStatus)
	h.mux.HandleFunc("/health", h.handleHealth)

	h.mux.Handle("/metrics", promhttp.HandlerFor(h.config.Gatherer, promhttp.HandlerOpts{}))
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Unknown paths get the JSON 404 envelope instead of the mux default.
	if _, pattern := h.mux.Handler(r); pattern == "" {
		h.writeWireError(w, r, errRouteNotFound)
		return
	}
	h.mux.ServeHTTP(w, r)
}

// Mount returns the handler with the full middleware chain applied:
// request-id assignment, access logging and HTTP metrics, and the optional
// wrapper API-key guard.
func (h *Handler) Mount() http.Handler {
	var handler http.Handler = h
	handler = auth.Middleware(h.config.APIKey, h.config.Logger)(handler)
	handler = LoggingMiddleware(h.config.Logger, h.config.Metrics, h.config.Tracer)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

// handleHealth reports liveness. Exempt from the API-key guard so probes
// work unauthenticated.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         h.config.Version,
		"uptime_seconds":  time.Since(h.started).Seconds(),
		"active_sessions": h.config.Sessions.Stats().ActiveSessions,
	})
}

// jsonResponse writes data as a JSON body with the given status.
func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.config.Logger.Error(context.Background(), "json encode error", "error", err)
	}
}

// wireTime formats t for the wire.
func wireTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

// boolParam interprets a query parameter as a flag. Anything but an explicit
// true value reads as false.
func boolParam(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
