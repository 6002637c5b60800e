package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting gateway metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - HTTP request volume and latency per route
//   - Completion throughput, latency, and token usage per model
//   - Streamed chunk counts
//   - Claude runtime invocations by backend
//   - Session store activity (active gauge, reaped counter)
//   - Error rates categorized by component and type
type Metrics struct {
	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP request latency in seconds.
	// Labels: method, path, status_code
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 30s, 120s
	HTTPRequestDuration *prometheus.HistogramVec

	// CompletionCounter counts chat completions by model, mode and status.
	// Labels: model, mode (stream|sync), status (success|error|canceled)
	CompletionCounter *prometheus.CounterVec

	// CompletionDuration measures completion latency in seconds.
	// Labels: model, mode
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s, 120s, 300s
	CompletionDuration *prometheus.HistogramVec

	// TokensUsed tracks token consumption.
	// Labels: model, type (prompt|completion)
	TokensUsed *prometheus.CounterVec

	// StreamChunks counts SSE chunks emitted.
	// Labels: model
	StreamChunks *prometheus.CounterVec

	// RuntimeInvocations counts Claude runtime calls.
	// Labels: backend (cli|sdk), status (success|error|canceled)
	RuntimeInvocations *prometheus.CounterVec

	// ActiveSessions is a gauge tracking sessions currently held in the store.
	ActiveSessions prometheus.Gauge

	// SessionsReaped counts sessions removed by the expiry reaper.
	SessionsReaped prometheus.Counter

	// ErrorCounter tracks errors by component and type.
	// Labels: component (web|gateway|claude|sessions), error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registry. Call once at startup; the /metrics endpoint serves the registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics against reg. Tests pass an isolated
// registry so repeated construction cannot collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claudebridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "claudebridge_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"method", "path", "status_code"},
		),

		CompletionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claudebridge_completions_total",
				Help: "Total number of chat completions by model, mode, and status",
			},
			[]string{"model", "mode", "status"},
		),

		CompletionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "claudebridge_completion_duration_seconds",
				Help:    "Duration of chat completions in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"model", "mode"},
		),

		TokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claudebridge_tokens_total",
				Help: "Total number of tokens used by model and type",
			},
			[]string{"model", "type"},
		),

		StreamChunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claudebridge_stream_chunks_total",
				Help: "Total number of SSE chunks emitted by model",
			},
			[]string{"model"},
		),

		RuntimeInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claudebridge_runtime_invocations_total",
				Help: "Total number of Claude runtime invocations by backend and status",
			},
			[]string{"backend", "status"},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "claudebridge_active_sessions",
				Help: "Current number of sessions held in the store",
			},
		),

		SessionsReaped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "claudebridge_sessions_reaped_total",
				Help: "Total number of sessions removed by the expiry reaper",
			},
		),

		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claudebridge_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// RecordHTTPRequest records one handled HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// RecordCompletion records one finished completion with its token usage.
func (m *Metrics) RecordCompletion(model, mode, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.CompletionCounter.WithLabelValues(model, mode, status).Inc()
	m.CompletionDuration.WithLabelValues(model, mode).Observe(durationSeconds)
	if promptTokens > 0 {
		m.TokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.TokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordChunk counts one emitted SSE chunk.
func (m *Metrics) RecordChunk(model string) {
	m.StreamChunks.WithLabelValues(model).Inc()
}

// RecordRuntimeInvocation counts one Claude runtime call.
func (m *Metrics) RecordRuntimeInvocation(backend, status string) {
	m.RuntimeInvocations.WithLabelValues(backend, status).Inc()
}

// SetActiveSessions updates the active session gauge to the store's count.
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// AddReapedSessions counts sessions removed by one reaper sweep.
func (m *Metrics) AddReapedSessions(n int) {
	if n > 0 {
		m.SessionsReaped.Add(float64(n))
	}
}

// RecordError increments the error counter for a component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
