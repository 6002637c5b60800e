package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/haasonsaas/claudebridge/internal/observability"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// exemptPaths can always be reached without the wrapper key: health probes,
// the auth status endpoint itself, and the metrics scrape.
var exemptPaths = map[string]struct{}{
	"/health":         {},
	"/v1/auth/status": {},
	"/metrics":        {},
}

// Middleware enforces the wrapper bearer key on every non-exempt route. With
// an empty key it is a no-op. The token comparison is byte-exact; the Bearer
// scheme itself is matched case-insensitively.
func Middleware(apiKey string, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				if logger != nil {
					logger.Warn(r.Context(), "request rejected: missing API key", "path", r.URL.Path)
				}
				writeUnauthorized(w, r, "missing_api_key", "Missing API key. Pass it in the Authorization header as Bearer <key>.")
				return
			}
			if token != apiKey {
				if logger != nil {
					logger.Warn(r.Context(), "request rejected: invalid API key", "path", r.URL.Path)
				}
				writeUnauthorized(w, r, "invalid_api_key", "Invalid API key provided.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := header[len(prefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(openai.ErrorResponse{
		Error: openai.ErrorBody{
			Type:      openai.ErrTypeAuthentication,
			Message:   message,
			Code:      code,
			RequestID: observability.GetRequestID(r.Context()),
		},
	})
}
