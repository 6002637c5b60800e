// Package claudetest provides a scripted Runtime implementation for
// exercising the gateway without a real Claude backend.
package claudetest

import (
	"context"
	"sync"
	"time"

	"github.com/haasonsaas/claudebridge/internal/claude"
)

// Script describes how the fake services one RunCompletion call.
type Script struct {
	// Events are sent in order before the stream ends.
	Events []claude.RuntimeEvent

	// Err terminates the stream after Events. nil means a clean close.
	Err error

	// StartErr fails RunCompletion outright; no stream is produced.
	StartErr error

	// Delay pauses before each event.
	Delay time.Duration

	// Hang keeps the stream open after Events until the caller's
	// context is cancelled.
	Hang bool
}

// Fake replays scripts in order. Calls beyond the script list replay the
// last script; with no scripts every call serves a minimal text
// completion. Safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	scripts  []Script
	calls    int
	requests []claude.Request
	verify   claude.Verification
}

// New builds a fake that reports itself available.
func New(scripts ...Script) *Fake {
	return &Fake{
		scripts: scripts,
		verify:  claude.Verification{Available: true, Backend: "fake"},
	}
}

// SetVerification overrides what Verify reports.
func (f *Fake) SetVerification(v claude.Verification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verify = v
}

// Verify implements claude.Runtime.
func (f *Fake) Verify(ctx context.Context) claude.Verification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verify
}

// Requests returns a copy of every request seen so far.
func (f *Fake) Requests() []claude.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]claude.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// LastRequest returns the most recent request, or a zero value when no
// call has been made.
func (f *Fake) LastRequest() claude.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return claude.Request{}
	}
	return cloneRequest(f.requests[len(f.requests)-1])
}

// RunCompletion implements claude.Runtime.
func (f *Fake) RunCompletion(ctx context.Context, req claude.Request) (*claude.Stream, error) {
	f.mu.Lock()
	script := f.currentScriptLocked()
	f.requests = append(f.requests, cloneRequest(req))
	f.calls++
	f.mu.Unlock()

	if script.StartErr != nil {
		return nil, script.StartErr
	}

	stream, w := claude.NewStreamPipe()
	go func() {
		for _, ev := range script.Events {
			if script.Delay > 0 {
				select {
				case <-time.After(script.Delay):
				case <-ctx.Done():
					w.Close(ctx.Err())
					return
				}
			}
			if !w.Send(ctx, ev) {
				w.Close(ctx.Err())
				return
			}
		}
		if script.Hang {
			<-ctx.Done()
			w.Close(ctx.Err())
			return
		}
		w.Close(script.Err)
	}()
	return stream, nil
}

func (f *Fake) currentScriptLocked() Script {
	if len(f.scripts) == 0 {
		return TextScript("fake-model", "Hello from the fake runtime.")
	}
	if f.calls < len(f.scripts) {
		return f.scripts[f.calls]
	}
	return f.scripts[len(f.scripts)-1]
}

func cloneRequest(req claude.Request) claude.Request {
	out := req
	if req.Env != nil {
		out.Env = make(map[string]string, len(req.Env))
		for k, v := range req.Env {
			out.Env[k] = v
		}
	}
	if req.Tools != nil {
		out.Tools = append([]claude.ToolSpec(nil), req.Tools...)
	}
	return out
}

// TextScript is a complete text-only completion: init, one text delta,
// and a result with 10 input and 5 output tokens.
func TextScript(model, text string) Script {
	return Script{Events: []claude.RuntimeEvent{
		InitEvent(model),
		TextEvent(text),
		ResultEvent("end_turn", 10, 5),
	}}
}

// InitEvent announces a runtime session for model.
func InitEvent(model string) claude.RuntimeEvent {
	return claude.RuntimeEvent{Type: claude.EventSystemInit, Init: &claude.SystemInit{
		SessionID: "runtime-session",
		Model:     model,
		Tools:     []string{"Bash", "Read"},
		Version:   "0.0.0-fake",
	}}
}

// TextEvent carries one text fragment.
func TextEvent(text string) claude.RuntimeEvent {
	return claude.RuntimeEvent{Type: claude.EventAssistantDelta, Delta: &claude.AssistantDelta{Text: text}}
}

// ToolCallEvent carries one tool invocation.
func ToolCallEvent(id, name, args string) claude.RuntimeEvent {
	return claude.RuntimeEvent{Type: claude.EventAssistantDelta, Delta: &claude.AssistantDelta{
		ToolCalls: []claude.ToolInvocation{{ID: id, Name: name, Arguments: args}},
	}}
}

// ToolResultEvent reports a tool outcome.
func ToolResultEvent(toolUseID, content string, isError bool) claude.RuntimeEvent {
	return claude.RuntimeEvent{Type: claude.EventToolResult, ToolResult: &claude.ToolResult{
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}}
}

// ResultEvent terminates a successful stream.
func ResultEvent(stopReason string, inputTokens, outputTokens int) claude.RuntimeEvent {
	return claude.RuntimeEvent{Type: claude.EventResult, Result: &claude.Result{
		StopReason: stopReason,
		Usage:      claude.Usage{InputTokens: inputTokens, OutputTokens: outputTokens},
		NumTurns:   1,
	}}
}

// ErrorResultEvent terminates a stream with a runtime-reported failure.
func ErrorResultEvent(text string) claude.RuntimeEvent {
	return claude.RuntimeEvent{Type: claude.EventResult, Result: &claude.Result{
		IsError:   true,
		ErrorText: text,
		NumTurns:  1,
	}}
}
