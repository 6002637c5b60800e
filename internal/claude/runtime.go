// Package claude drives Claude runtimes and normalizes their output into
// a single event stream. Two backends implement the Runtime interface: a
// local Claude CLI subprocess speaking stream-json, and the Anthropic SDK
// talking to the Messages API directly. Callers consume the same events
// either way.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

// eventBufferSize is the channel depth between the backend reader and the
// consumer. A modest buffer absorbs bursts without letting a slow consumer
// pile up unbounded memory.
const eventBufferSize = 100

// EventType identifies which field of a RuntimeEvent is populated.
type EventType string

const (
	// EventSystemInit announces runtime startup metadata.
	EventSystemInit EventType = "system_init"
	// EventAssistantDelta carries incremental assistant output.
	EventAssistantDelta EventType = "assistant_delta"
	// EventToolResult reports the outcome of a tool invocation executed
	// by the runtime itself.
	EventToolResult EventType = "tool_result"
	// EventResult is the terminal event of every successful stream.
	EventResult EventType = "result"
)

// RuntimeEvent is one normalized event from a Claude backend. Exactly one
// of the pointer fields is non-nil, matching Type.
type RuntimeEvent struct {
	Type       EventType
	Init       *SystemInit
	Delta      *AssistantDelta
	ToolResult *ToolResult
	Result     *Result
}

// SystemInit describes the runtime session that will service the request.
type SystemInit struct {
	SessionID string
	Model     string
	Tools     []string
	Version   string
}

// AssistantDelta carries a fragment of assistant output: text, tool
// invocations, or both.
type AssistantDelta struct {
	Text      string
	ToolCalls []ToolInvocation
}

// ToolInvocation is a single tool call requested by the model. Arguments
// holds the raw JSON input.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult reports the output of a tool the runtime executed on its own
// turn loop.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Usage counts tokens for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result terminates a stream. StopReason uses the upstream vocabulary
// (end_turn, max_tokens, tool_use, stop_sequence, refusal). CostUSD is nil
// when the backend does not report cost.
type Result struct {
	StopReason string
	Usage      Usage
	CostUSD    *float64
	NumTurns   int
	IsError    bool
	ErrorText  string
}

// ToolSpec declares a tool the model may call. InputSchema is a JSON
// Schema document.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Request is a single completion to run. Prompt carries the flattened
// conversation; SystemPrompt and Tools travel separately so each backend
// can present them natively. Env entries are merged over the parent
// environment when the backend spawns a process.
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string
	MaxTurns     int
	Tools        []ToolSpec
	Env          map[string]string
}

// Verification reports whether a backend can service requests.
type Verification struct {
	Available  bool   `json:"available"`
	Backend    string `json:"backend"`
	Path       string `json:"path,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Runtime produces completion streams. Implementations are safe for
// concurrent use.
type Runtime interface {
	// Verify reports backend availability. It is cheap after the first
	// call; discovery results are cached for the runtime's lifetime.
	Verify(ctx context.Context) Verification

	// RunCompletion starts one completion. The returned stream yields
	// events until a terminal Result or an error; cancel ctx to abort.
	RunCompletion(ctx context.Context, req Request) (*Stream, error)
}

// Stream delivers the events of one completion. Consume Events until it
// closes, then check Err for the terminal error. A nil Err means the
// stream ended with a Result event.
type Stream struct {
	events chan RuntimeEvent

	mu  sync.Mutex
	err error
}

func newStream() *Stream {
	return &Stream{events: make(chan RuntimeEvent, eventBufferSize)}
}

// Events returns the event channel. It closes when the stream ends.
func (s *Stream) Events() <-chan RuntimeEvent {
	return s.events
}

// Err returns the terminal error. Only valid after Events has closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// send delivers one event, giving up when ctx is cancelled. It reports
// whether the event was accepted.
func (s *Stream) send(ctx context.Context, ev RuntimeEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// close records the terminal error and closes the event channel. Safe to
// call once per stream.
func (s *Stream) close(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.events)
}

// NewStreamPipe returns a stream and its producer half. Runtime
// implementations outside this package feed events through the writer.
func NewStreamPipe() (*Stream, *StreamWriter) {
	s := newStream()
	return s, &StreamWriter{s: s}
}

// StreamWriter is the producer half of a stream pipe.
type StreamWriter struct {
	s *Stream
}

// Send delivers one event, giving up when ctx is cancelled. It reports
// whether the event was accepted.
func (w *StreamWriter) Send(ctx context.Context, ev RuntimeEvent) bool {
	return w.s.send(ctx, ev)
}

// Close ends the stream. A nil err marks normal termination.
func (w *StreamWriter) Close(err error) {
	w.s.close(err)
}

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is "cli" or "sdk".
	Backend string
	// Command overrides CLI discovery with an explicit executable path.
	Command string
	// DefaultModel is used when a request omits the model.
	DefaultModel string
	// APIKey authenticates the SDK backend.
	APIKey string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// NewRuntime builds the configured backend. The CLI backend is the
// default; the SDK backend requires an API key.
func NewRuntime(cfg Config, logger *observability.Logger) (Runtime, error) {
	switch cfg.Backend {
	case "", "cli":
		return NewCLIRuntime(cfg, logger), nil
	case "sdk":
		return NewSDKRuntime(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown claude backend %q", cfg.Backend)
	}
}
