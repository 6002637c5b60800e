package adapter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/haasonsaas/claudebridge/pkg/openai"
)

func weatherTool() openai.Tool {
	return openai.Tool{
		Type: "function",
		Function: openai.ToolFunction{
			Name:        "get_weather",
			Description: "Current weather for a city",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`),
		},
	}
}

func TestValidateTools(t *testing.T) {
	if err := ValidateTools([]openai.Tool{weatherTool()}, nil); err != nil {
		t.Fatalf("ValidateTools() error = %v", err)
	}
	// Second pass hits the compiled-schema cache.
	if err := ValidateTools([]openai.Tool{weatherTool()}, nil); err != nil {
		t.Fatalf("ValidateTools() cached error = %v", err)
	}
}

func TestValidateToolsBadSchema(t *testing.T) {
	bad := openai.Tool{
		Type: "function",
		Function: openai.ToolFunction{
			Name:       "broken",
			Parameters: json.RawMessage(`{"type":"object","properties":"not-an-object"}`),
		},
	}

	err := ValidateTools([]openai.Tool{bad}, nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ValidateTools() error = %v, want ValidationError", err)
	}
	if !strings.Contains(verr.Message, "broken") {
		t.Errorf("message = %q, want the tool named", verr.Message)
	}
}

func TestValidateToolsRequiresName(t *testing.T) {
	err := ValidateTools([]openai.Tool{{Type: "function"}}, nil)
	if err == nil {
		t.Error("ValidateTools() accepted a nameless tool")
	}
}

func TestValidateToolsRejectsUnknownType(t *testing.T) {
	err := ValidateTools([]openai.Tool{{Type: "retrieval", Function: openai.ToolFunction{Name: "x"}}}, nil)
	if err == nil {
		t.Error("ValidateTools() accepted an unsupported tool type")
	}
}

func TestValidateToolChoice(t *testing.T) {
	tools := []openai.Tool{weatherTool()}

	known := &openai.ToolChoice{Mode: openai.ToolChoiceFunction, FunctionName: "get_weather"}
	if err := ValidateTools(tools, known); err != nil {
		t.Errorf("ValidateTools(known choice) error = %v", err)
	}

	unknown := &openai.ToolChoice{Mode: openai.ToolChoiceFunction, FunctionName: "get_stock_price"}
	err := ValidateTools(tools, unknown)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ValidateTools(unknown choice) error = %v, want ValidationError", err)
	}
	if verr.Field != "tool_choice" {
		t.Errorf("Field = %q, want tool_choice", verr.Field)
	}

	auto := &openai.ToolChoice{Mode: openai.ToolChoiceAuto}
	if err := ValidateTools(tools, auto); err != nil {
		t.Errorf("ValidateTools(auto) error = %v", err)
	}
}

func TestRuntimeTools(t *testing.T) {
	tools := []openai.Tool{weatherTool()}

	specs := RuntimeTools(tools, nil)
	if len(specs) != 1 {
		t.Fatalf("got %d specs, want 1", len(specs))
	}
	if specs[0].Name != "get_weather" || specs[0].Description == "" {
		t.Errorf("spec = %+v", specs[0])
	}
	if len(specs[0].InputSchema) == 0 {
		t.Error("spec lost the schema")
	}

	none := &openai.ToolChoice{Mode: openai.ToolChoiceNone}
	if got := RuntimeTools(tools, none); got != nil {
		t.Errorf("RuntimeTools(none) = %v, want nil", got)
	}

	if got := RuntimeTools(nil, nil); got != nil {
		t.Errorf("RuntimeTools(no tools) = %v, want nil", got)
	}
}
