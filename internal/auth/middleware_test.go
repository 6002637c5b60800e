package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haasonsaas/claudebridge/pkg/openai"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareNoKeyIsNoOp(t *testing.T) {
	handler := Middleware("", nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareRejectsMissingKey(t *testing.T) {
	handler := Middleware("secret", nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var body openai.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body.Error.Type != openai.ErrTypeAuthentication {
		t.Fatalf("error type = %q, want authentication_error", body.Error.Type)
	}
	if body.Error.Code != "missing_api_key" {
		t.Fatalf("error code = %q, want missing_api_key", body.Error.Code)
	}
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	handler := Middleware("secret", nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer not-secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	var body openai.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if body.Error.Code != "invalid_api_key" {
		t.Fatalf("error code = %q, want invalid_api_key", body.Error.Code)
	}
}

func TestMiddlewareAcceptsExactKey(t *testing.T) {
	handler := Middleware("secret", nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("authorization", "bearer secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestMiddlewareKeyIsByteExact(t *testing.T) {
	handler := Middleware("secret", nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil)
	req.Header.Set("Authorization", "Bearer SECRET")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for case-mismatched token", rec.Code)
	}
}

func TestMiddlewareExemptPaths(t *testing.T) {
	handler := Middleware("secret", nil)(okHandler())

	for _, path := range []string{"/health", "/v1/auth/status", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status for %s = %d, want 200 without key", path, rec.Code)
		}
	}
}
