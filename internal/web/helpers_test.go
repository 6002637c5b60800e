package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haasonsaas/claudebridge/internal/claude/claudetest"
	"github.com/haasonsaas/claudebridge/internal/gateway"
	"github.com/haasonsaas/claudebridge/internal/observability"
	"github.com/haasonsaas/claudebridge/internal/registry"
	"github.com/haasonsaas/claudebridge/internal/sessions"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

const testModel = "claude-sonnet-4-20250514"

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.LogConfig{Level: "error", Output: io.Discard})
}

// newTestConfig builds the collaborator set shared by handler tests: a
// scripted runtime behind a real gateway service, an hour-TTL store, the
// built-in catalog, and an isolated metrics registry.
func newTestConfig(t *testing.T, fake *claudetest.Fake) *Config {
	t.Helper()

	store := sessions.NewStore(time.Hour, time.Minute, 100)
	catalog := registry.NewCatalog()
	logger := testLogger()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith(reg)

	svc := gateway.NewService(gateway.Config{
		Runtime:      fake,
		Sessions:     store,
		Catalog:      catalog,
		Logger:       logger,
		Metrics:      metrics,
		DefaultModel: "claude-3-5-sonnet-20241022",
	})

	return &Config{
		Gateway:  svc,
		Sessions: store,
		Catalog:  catalog,
		Logger:   logger,
		Metrics:  metrics,
		Gatherer: reg,
		Version:  "test",
	}
}

// newTestHandler builds a handler over a scripted runtime with no wrapper
// key. The returned store backs the /v1/sessions surface directly.
func newTestHandler(t *testing.T, fake *claudetest.Fake) (*Handler, *sessions.Store) {
	t.Helper()
	cfg := newTestConfig(t, fake)
	return NewHandler(cfg), cfg.Sessions
}

// doRequest runs one request through the full middleware chain.
func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.Mount().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) openai.ErrorBody {
	t.Helper()
	var resp openai.ErrorResponse
	decodeJSON(t, rec, &resp)
	return resp.Error
}

// parseSSE splits an SSE body into chunk payloads, reporting whether the
// stream was terminated by the [DONE] marker.
func parseSSE(t *testing.T, body string) (chunks []openai.ChatCompletionChunk, done bool) {
	t.Helper()
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		payload, ok := strings.CutPrefix(frame, "data: ")
		if !ok {
			t.Fatalf("frame %q missing data prefix", frame)
		}
		if payload == "[DONE]" {
			if done {
				t.Fatalf("duplicate [DONE] marker")
			}
			done = true
			continue
		}
		if done {
			t.Fatalf("frame %q after [DONE]", frame)
		}
		var chunk openai.ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			t.Fatalf("decode chunk %q: %v", payload, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, done
}

func completionBody(model, content string) *openai.ChatCompletionRequest {
	return &openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.Message{{Role: openai.RoleUser, Content: content}},
	}
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}
