package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

// RequestIDMiddleware assigns each request an id, honoring a caller-supplied
// X-Request-ID, and echoes it on the response. The id travels in the context
// so every log line and error body on the request carries it.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := observability.AddRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggingMiddleware writes one access log line per request and records HTTP
// metrics. When a tracer is configured the request runs inside a server span.
func LoggingMiddleware(logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			if tracer != nil {
				var span trace.Span
				ctx, span = tracer.TraceHTTPRequest(ctx, r.Method, r.URL.Path)
				defer span.End()
			}

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			if metrics != nil {
				metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(wrapped.status), duration.Seconds())
			}
			if logger != nil {
				logger.Info(ctx, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", wrapped.status,
					"duration_ms", duration.Milliseconds(),
					"remote_addr", r.RemoteAddr,
				)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush forwards to the underlying flusher so SSE streaming works through
// the middleware chain.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		if !rw.wroteHeader {
			rw.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// routeLabel collapses path parameters so metric label cardinality stays
// bounded; unregistered paths collapse to a single bucket.
func routeLabel(path string) string {
	switch path {
	case "/v1/chat/completions", "/v1/sessions", "/v1/sessions/stats",
		"/v1/models", "/v1/models/validate", "/v1/auth/status",
		"/health", "/metrics":
		return path
	}
	switch {
	case strings.HasPrefix(path, "/v1/sessions/"):
		if strings.HasSuffix(path, "/messages") {
			return "/v1/sessions/{id}/messages"
		}
		return "/v1/sessions/{id}"
	case strings.HasPrefix(path, "/v1/models/"):
		if strings.HasSuffix(path, "/capabilities") {
			return "/v1/models/{id}/capabilities"
		}
		return "/v1/models/{id}"
	}
	return "other"
}
