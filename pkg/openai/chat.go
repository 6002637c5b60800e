// Package openai defines the OpenAI Chat Completions wire types the gateway
// speaks on its HTTP surface. Field names and JSON shapes follow the OpenAI
// API so that stock OpenAI clients work unmodified; the few gateway
// extensions (session_id, enable_tools, system_prompt) are additive and
// omitted from responses.
package openai

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the four chat roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is a single conversation turn. Messages are immutable once
// appended to a session; ToolCallID is required iff Role is "tool".
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-emitted request to invoke a named function. IDs use
// the "call_<opaque>" form and are unique within one response.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
	// Index orders tool-call fragments within a streaming response.
	Index *int `json:"index,omitempty"`
}

// ToolCallFunction carries the function name and its JSON-encoded arguments
// exactly as emitted by the model.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function half of a Tool declaration. Parameters is a
// JSON Schema document validated before the request reaches the runtime.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolChoiceMode is the normalized form of the request tool_choice field.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceFunction ToolChoiceMode = "function"
)

// ToolChoice accepts both wire encodings of tool_choice: the bare strings
// "auto"/"none" and the {"type":"function","function":{"name":...}} object.
type ToolChoice struct {
	Mode ToolChoiceMode
	// FunctionName is set only when Mode is ToolChoiceFunction.
	FunctionName string
}

// UnmarshalJSON decodes either encoding of tool_choice.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch ToolChoiceMode(s) {
		case ToolChoiceAuto, ToolChoiceNone:
			tc.Mode = ToolChoiceMode(s)
			return nil
		default:
			return fmt.Errorf("tool_choice: unsupported value %q", s)
		}
	}

	var obj struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("tool_choice: %w", err)
	}
	if obj.Type != "function" || obj.Function.Name == "" {
		return fmt.Errorf("tool_choice: object form requires type=function and a function name")
	}
	tc.Mode = ToolChoiceFunction
	tc.FunctionName = obj.Function.Name
	return nil
}

// MarshalJSON re-emits the wire form the choice was parsed from.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	switch tc.Mode {
	case ToolChoiceAuto, ToolChoiceNone:
		return json.Marshal(string(tc.Mode))
	case ToolChoiceFunction:
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": tc.FunctionName},
		})
	case "":
		return []byte("null"), nil
	}
	return nil, fmt.Errorf("tool_choice: unsupported mode %q", tc.Mode)
}

// ChatCompletionRequest is the POST /v1/chat/completions body. SessionID,
// EnableTools and SystemPrompt are gateway extensions; everything else is
// standard OpenAI.
type ChatCompletionRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	Stream      bool        `json:"stream,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Tools       []Tool      `json:"tools,omitempty"`
	ToolChoice  *ToolChoice `json:"tool_choice,omitempty"`
	User        string      `json:"user,omitempty"`

	// SessionID opts a request into server-side multi-turn memory. Empty
	// means stateless: messages pass through untouched.
	SessionID string `json:"session_id,omitempty"`
	// EnableTools gates whether Tools are forwarded to the runtime.
	EnableTools bool `json:"enable_tools,omitempty"`
	// SystemPrompt is appended after any inline system messages.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// MaxTurns caps agentic turns for runtimes that support it.
	MaxTurns int `json:"max_turns,omitempty"`
}
