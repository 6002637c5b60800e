package adapter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haasonsaas/claudebridge/internal/claude"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// schemaCache remembers schema documents that compiled, keyed by document
// text. Compilation is pure, so the cache is process-global.
var schemaCache sync.Map

// ValidateTools checks every tool declaration and the tool_choice against
// it: names present, parameter documents compile as JSON Schema, and a
// function tool_choice names a declared tool.
func ValidateTools(tools []openai.Tool, choice *openai.ToolChoice) error {
	names := make(map[string]bool, len(tools))
	for i, t := range tools {
		if t.Type != "" && t.Type != "function" {
			return &ValidationError{
				Field:   fmt.Sprintf("tools[%d]", i),
				Message: fmt.Sprintf("unsupported tool type %q", t.Type),
			}
		}
		if t.Function.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("tools[%d]", i),
				Message: "tool requires function.name",
			}
		}
		names[t.Function.Name] = true

		if len(t.Function.Parameters) > 0 {
			if err := compileSchema(t.Function.Parameters); err != nil {
				return &ValidationError{
					Field:   fmt.Sprintf("tools[%d]", i),
					Message: fmt.Sprintf("tool %q: invalid parameters schema: %v", t.Function.Name, err),
				}
			}
		}
	}

	if choice != nil && choice.Mode == openai.ToolChoiceFunction && !names[choice.FunctionName] {
		return &ValidationError{
			Field:   "tool_choice",
			Message: fmt.Sprintf("tool_choice names unknown tool %q", choice.FunctionName),
		}
	}
	return nil
}

func compileSchema(doc []byte) error {
	key := string(doc)
	if _, ok := schemaCache.Load(key); ok {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool.json", strings.NewReader(key)); err != nil {
		return err
	}
	if _, err := compiler.Compile("tool.json"); err != nil {
		return err
	}

	schemaCache.Store(key, struct{}{})
	return nil
}

// RuntimeTools converts declared tools for the runtime. tool_choice "none"
// suppresses forwarding entirely.
func RuntimeTools(tools []openai.Tool, choice *openai.ToolChoice) []claude.ToolSpec {
	if len(tools) == 0 {
		return nil
	}
	if choice != nil && choice.Mode == openai.ToolChoiceNone {
		return nil
	}
	out := make([]claude.ToolSpec, 0, len(tools))
	for _, t := range tools {
		out = append(out, claude.ToolSpec{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}
	return out
}
