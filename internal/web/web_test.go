package web

import (
	"net/http"
	"strings"
	"testing"

	"github.com/haasonsaas/claudebridge/internal/claude/claudetest"
	"github.com/haasonsaas/claudebridge/internal/sessions"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

func TestHealth(t *testing.T) {
	h, store := newTestHandler(t, claudetest.New())
	store.Create(sessions.CreateRequest{SessionID: "sess-health"})

	rec := doRequest(t, h, http.MethodGet, "/health", nil)
	wantStatus(t, rec, http.StatusOK)

	var resp struct {
		Status         string  `json:"status"`
		Version        string  `json:"version"`
		UptimeSeconds  float64 `json:"uptime_seconds"`
		ActiveSessions int     `json:"active_sessions"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.UptimeSeconds < 0 {
		t.Errorf("uptime_seconds = %v, want >= 0", resp.UptimeSeconds)
	}
	if resp.ActiveSessions != 1 {
		t.Errorf("active_sessions = %d, want 1", resp.ActiveSessions)
	}
}

func TestUnknownRouteJSON404(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodGet, "/nope", nil)
	wantStatus(t, rec, http.StatusNotFound)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	body := decodeError(t, rec)
	if body.Type != openai.ErrTypeNotFound {
		t.Errorf("error type = %q, want %q", body.Type, openai.ErrTypeNotFound)
	}
	if body.Code != "not_found" {
		t.Errorf("error code = %q, want not_found", body.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	// Generate one observation, then scrape.
	doRequest(t, h, http.MethodGet, "/health", nil)
	rec := doRequest(t, h, http.MethodGet, "/metrics", nil)
	wantStatus(t, rec, http.StatusOK)

	body := rec.Body.String()
	if !strings.Contains(body, "claudebridge_http_requests_total") {
		t.Errorf("scrape missing claudebridge_http_requests_total:\n%s", body)
	}
	if !strings.Contains(body, `path="/health"`) {
		t.Errorf("scrape missing /health route label:\n%s", body)
	}
}

func TestHealthMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, claudetest.New())

	rec := doRequest(t, h, http.MethodPost, "/health", nil)
	wantStatus(t, rec, http.StatusMethodNotAllowed)
}

func TestWireTime(t *testing.T) {
	h, store := newTestHandler(t, claudetest.New())
	store.Create(sessions.CreateRequest{SessionID: "sess-time"})

	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/sess-time", nil)
	wantStatus(t, rec, http.StatusOK)

	var view sessionView
	decodeJSON(t, rec, &view)
	// ISO-8601 UTC with millisecond precision and a trailing Z.
	if !strings.HasSuffix(view.CreatedAt, "Z") {
		t.Errorf("created_at = %q, want trailing Z", view.CreatedAt)
	}
	if len(view.CreatedAt) != len("2006-01-02T15:04:05.000Z") {
		t.Errorf("created_at = %q, want millisecond precision", view.CreatedAt)
	}
}
