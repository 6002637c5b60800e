package claude

import (
	"testing"
)

func TestTranslateCLILineInit(t *testing.T) {
	line := `{"type":"system","subtype":"init","session_id":"sess-1","model":"claude-sonnet-4-20250514","tools":["Bash","Read"],"claude_code_version":"1.0.24"}`

	var stop string
	events, res, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if res != nil {
		t.Fatalf("result = %+v, want nil", res)
	}
	if len(events) != 1 || events[0].Type != EventSystemInit {
		t.Fatalf("events = %+v, want a single init event", events)
	}

	init := events[0].Init
	if init.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", init.SessionID)
	}
	if init.Model != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q", init.Model)
	}
	if init.Version != "1.0.24" {
		t.Errorf("Version = %q", init.Version)
	}
	if len(init.Tools) != 2 {
		t.Errorf("Tools = %v, want 2 entries", init.Tools)
	}
}

func TestTranslateCLILineAssistantText(t *testing.T) {
	line := `{"type":"assistant","message":{"id":"msg_1","content":[{"type":"text","text":"Hello"},{"type":"text","text":" world"}],"stop_reason":null}}`

	var stop string
	events, _, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if len(events) != 1 || events[0].Type != EventAssistantDelta {
		t.Fatalf("events = %+v, want a single delta", events)
	}
	if got := events[0].Delta.Text; got != "Hello world" {
		t.Errorf("Text = %q, want %q", got, "Hello world")
	}
	if stop != "" {
		t.Errorf("stop reason = %q, want empty", stop)
	}
}

func TestTranslateCLILineToolUse(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{"city":"Paris"}}],"stop_reason":"tool_use"}}`

	var stop string
	events, _, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v, want one", events)
	}
	calls := events[0].Delta.ToolCalls
	if len(calls) != 1 {
		t.Fatalf("ToolCalls = %+v, want one", calls)
	}
	if calls[0].ID != "toolu_1" || calls[0].Name != "get_weather" {
		t.Errorf("call = %+v", calls[0])
	}
	if calls[0].Arguments != `{"city":"Paris"}` {
		t.Errorf("Arguments = %q", calls[0].Arguments)
	}
	if stop != "tool_use" {
		t.Errorf("stop reason = %q, want tool_use", stop)
	}
}

func TestTranslateCLILineThinkingDropped(t *testing.T) {
	line := `{"type":"assistant","message":{"content":[{"type":"thinking","text":"considering"}]}}`

	var stop string
	events, _, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("events = %+v, want none for thinking-only content", events)
	}
}

func TestTranslateCLILineToolResults(t *testing.T) {
	line := `{"type":"user","message":{"content":[` +
		`{"type":"tool_result","tool_use_id":"toolu_1","content":"72F and sunny"},` +
		`{"type":"tool_result","tool_use_id":"toolu_2","is_error":true,"content":[{"type":"text","text":"lookup failed"}]}]}}`

	var stop string
	events, _, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %+v, want two tool results", events)
	}

	first := events[0].ToolResult
	if first.ToolUseID != "toolu_1" || first.Content != "72F and sunny" || first.IsError {
		t.Errorf("first = %+v", first)
	}
	second := events[1].ToolResult
	if second.ToolUseID != "toolu_2" || second.Content != "lookup failed" || !second.IsError {
		t.Errorf("second = %+v", second)
	}
}

func TestTranslateCLILineResultSuccess(t *testing.T) {
	line := `{"type":"result","subtype":"success","is_error":false,"result":"done","session_id":"sess-1","num_turns":2,"total_cost_usd":0.0042,"usage":{"input_tokens":10,"output_tokens":25}}`

	var stop string
	events, res, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if res == nil {
		t.Fatal("result = nil, want terminal result")
	}
	if len(events) != 1 || events[0].Type != EventResult {
		t.Fatalf("events = %+v, want a single result event", events)
	}
	if res.StopReason != "end_turn" {
		t.Errorf("StopReason = %q, want end_turn default", res.StopReason)
	}
	if res.IsError {
		t.Error("IsError = true, want false")
	}
	if res.NumTurns != 2 {
		t.Errorf("NumTurns = %d, want 2", res.NumTurns)
	}
	if res.CostUSD == nil || *res.CostUSD != 0.0042 {
		t.Errorf("CostUSD = %v, want 0.0042", res.CostUSD)
	}
	if res.Usage.InputTokens != 10 || res.Usage.OutputTokens != 25 {
		t.Errorf("Usage = %+v", res.Usage)
	}
}

func TestTranslateCLILineResultKeepsStopReason(t *testing.T) {
	stop := "max_tokens"
	line := `{"type":"result","subtype":"success","is_error":false,"result":"","num_turns":1}`

	_, res, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if res.StopReason != "max_tokens" {
		t.Errorf("StopReason = %q, want max_tokens carried through", res.StopReason)
	}
	if res.CostUSD != nil {
		t.Errorf("CostUSD = %v, want nil when the runtime omits it", *res.CostUSD)
	}
}

func TestTranslateCLILineResultError(t *testing.T) {
	line := `{"type":"result","subtype":"error_during_execution","is_error":true,"result":"Invalid API key","session_id":"s","num_turns":1}`

	var stop string
	_, res, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if res.ErrorText != "Invalid API key" {
		t.Errorf("ErrorText = %q", res.ErrorText)
	}
}

func TestTranslateCLILineErrorSubtypeWithoutFlag(t *testing.T) {
	line := `{"type":"result","subtype":"error_max_turns","is_error":false,"result":"","num_turns":5}`

	var stop string
	_, res, err := translateCLILine([]byte(line), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true for error_max_turns subtype")
	}
	if res.ErrorText != "error_max_turns" {
		t.Errorf("ErrorText = %q, want subtype fallback", res.ErrorText)
	}
}

func TestTranslateCLILineMalformed(t *testing.T) {
	var stop string
	if _, _, err := translateCLILine([]byte(`{"type":`), &stop); err == nil {
		t.Error("translateCLILine() expected error for malformed JSON")
	}
}

func TestTranslateCLILineUnknownTypeIgnored(t *testing.T) {
	var stop string
	events, res, err := translateCLILine([]byte(`{"type":"heartbeat"}`), &stop)
	if err != nil {
		t.Fatalf("translateCLILine() error = %v", err)
	}
	if len(events) != 0 || res != nil {
		t.Errorf("events = %+v, res = %+v, want nothing", events, res)
	}
}

func TestDecodeToolResultContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"plain text"`, "plain text"},
		{"blocks", `[{"type":"text","text":"one"},{"type":"text","text":"two"}]`, "one\ntwo"},
		{"empty", ``, ""},
		{"unrecognized", `{"weird":true}`, `{"weird":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeToolResultContent([]byte(tt.raw)); got != tt.want {
				t.Errorf("decodeToolResultContent(%s) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
