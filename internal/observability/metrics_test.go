package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	// Isolated registry so repeated construction across tests cannot collide.
	return NewMetricsWith(prometheus.NewRegistry())
}

func TestRecordHTTPRequest(t *testing.T) {
	m := newTestMetrics()

	m.RecordHTTPRequest("POST", "/v1/chat/completions", "200", 0.42)
	m.RecordHTTPRequest("POST", "/v1/chat/completions", "200", 1.1)
	m.RecordHTTPRequest("GET", "/health", "200", 0.001)

	expected := `
		# HELP claudebridge_http_requests_total Total number of HTTP requests
		# TYPE claudebridge_http_requests_total counter
		claudebridge_http_requests_total{method="GET",path="/health",status_code="200"} 1
		claudebridge_http_requests_total{method="POST",path="/v1/chat/completions",status_code="200"} 2
	`
	if err := testutil.CollectAndCompare(m.HTTPRequestCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}

	if count := testutil.CollectAndCount(m.HTTPRequestDuration); count != 2 {
		t.Errorf("Expected 2 duration label combinations, got %d", count)
	}
}

func TestRecordCompletion(t *testing.T) {
	m := newTestMetrics()

	m.RecordCompletion("claude-3-5-sonnet-20241022", "stream", "success", 2.5, 100, 40)
	m.RecordCompletion("claude-3-5-sonnet-20241022", "sync", "error", 0.3, 0, 0)

	expected := `
		# HELP claudebridge_completions_total Total number of chat completions by model, mode, and status
		# TYPE claudebridge_completions_total counter
		claudebridge_completions_total{mode="stream",model="claude-3-5-sonnet-20241022",status="success"} 1
		claudebridge_completions_total{mode="sync",model="claude-3-5-sonnet-20241022",status="error"} 1
	`
	if err := testutil.CollectAndCompare(m.CompletionCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}

	expectedTokens := `
		# HELP claudebridge_tokens_total Total number of tokens used by model and type
		# TYPE claudebridge_tokens_total counter
		claudebridge_tokens_total{model="claude-3-5-sonnet-20241022",type="completion"} 40
		claudebridge_tokens_total{model="claude-3-5-sonnet-20241022",type="prompt"} 100
	`
	if err := testutil.CollectAndCompare(m.TokensUsed, strings.NewReader(expectedTokens)); err != nil {
		t.Errorf("Unexpected token metric value: %v", err)
	}
}

func TestRecordCompletionSkipsZeroTokens(t *testing.T) {
	m := newTestMetrics()

	m.RecordCompletion("claude-3-haiku-20240307", "sync", "error", 0.1, 0, 0)

	if count := testutil.CollectAndCount(m.TokensUsed); count != 0 {
		t.Errorf("Expected no token series for zero usage, got %d", count)
	}
}

func TestRecordChunk(t *testing.T) {
	m := newTestMetrics()

	for i := 0; i < 5; i++ {
		m.RecordChunk("claude-3-5-sonnet-20241022")
	}

	expected := `
		# HELP claudebridge_stream_chunks_total Total number of SSE chunks emitted by model
		# TYPE claudebridge_stream_chunks_total counter
		claudebridge_stream_chunks_total{model="claude-3-5-sonnet-20241022"} 5
	`
	if err := testutil.CollectAndCompare(m.StreamChunks, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}

func TestRecordRuntimeInvocation(t *testing.T) {
	m := newTestMetrics()

	m.RecordRuntimeInvocation("cli", "success")
	m.RecordRuntimeInvocation("cli", "success")
	m.RecordRuntimeInvocation("sdk", "error")

	expected := `
		# HELP claudebridge_runtime_invocations_total Total number of Claude runtime invocations by backend and status
		# TYPE claudebridge_runtime_invocations_total counter
		claudebridge_runtime_invocations_total{backend="cli",status="success"} 2
		claudebridge_runtime_invocations_total{backend="sdk",status="error"} 1
	`
	if err := testutil.CollectAndCompare(m.RuntimeInvocations, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}

func TestSessionGauges(t *testing.T) {
	m := newTestMetrics()

	m.SetActiveSessions(7)
	if got := testutil.ToFloat64(m.ActiveSessions); got != 7 {
		t.Errorf("ActiveSessions = %v, want 7", got)
	}

	m.SetActiveSessions(3)
	if got := testutil.ToFloat64(m.ActiveSessions); got != 3 {
		t.Errorf("ActiveSessions = %v, want 3", got)
	}

	m.AddReapedSessions(4)
	m.AddReapedSessions(0) // no-op
	m.AddReapedSessions(2)
	if got := testutil.ToFloat64(m.SessionsReaped); got != 6 {
		t.Errorf("SessionsReaped = %v, want 6", got)
	}
}

func TestRecordError(t *testing.T) {
	m := newTestMetrics()

	m.RecordError("runtime", "timeout_error")
	m.RecordError("runtime", "timeout_error")
	m.RecordError("adapter", "validation_error")

	expected := `
		# HELP claudebridge_errors_total Total number of errors by component and error type
		# TYPE claudebridge_errors_total counter
		claudebridge_errors_total{component="adapter",error_type="validation_error"} 1
		claudebridge_errors_total{component="runtime",error_type="timeout_error"} 2
	`
	if err := testutil.CollectAndCompare(m.ErrorCounter, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}
