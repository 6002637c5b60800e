package claude

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewSDKRuntimeRequiresKey(t *testing.T) {
	if _, err := NewSDKRuntime(Config{}, nil); err == nil {
		t.Error("NewSDKRuntime() without a key should fail")
	}
	rt, err := NewSDKRuntime(Config{APIKey: "sk-ant-test"}, nil)
	if err != nil {
		t.Fatalf("NewSDKRuntime() error = %v", err)
	}
	if v := rt.Verify(context.Background()); !v.Available || v.Backend != "sdk" {
		t.Errorf("Verify() = %+v", v)
	}
}

func TestConvertToolSpecs(t *testing.T) {
	tools, err := convertToolSpecs([]ToolSpec{
		{
			Name:        "get_weather",
			Description: "Look up current weather",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
		},
		{Name: "ping"},
	})
	if err != nil {
		t.Fatalf("convertToolSpecs() error = %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("got %d tools, want 2", len(tools))
	}
}

func TestConvertToolSpecsBadSchema(t *testing.T) {
	_, err := convertToolSpecs([]ToolSpec{{
		Name:        "broken",
		InputSchema: json.RawMessage(`{not json`),
	}})
	if err == nil {
		t.Fatal("convertToolSpecs() expected error for malformed schema")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error = %v, want the tool named", err)
	}
}

func TestWrapSDKErrorPlain(t *testing.T) {
	err := wrapSDKError(errors.New("connection refused"), "claude-sonnet-4-20250514")
	re := GetRuntimeError(err)
	if re == nil {
		t.Fatalf("wrapSDKError() = %v, want runtime error", err)
	}
	if re.Backend != "sdk" || re.Model != "claude-sonnet-4-20250514" {
		t.Errorf("wrapped = %+v", re)
	}

	err = wrapSDKError(context.DeadlineExceeded, "m")
	if re := GetRuntimeError(err); re == nil || re.Kind != ErrKindTimeout {
		t.Errorf("wrapSDKError(deadline) = %v, want timeout kind", err)
	}
}
