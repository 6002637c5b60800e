package adapter

import (
	"fmt"
	"strings"

	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// Forward renders an OpenAI conversation into the runtime's prompt form.
// System messages coalesce in order into the system prompt; explicitSystem
// lands after them. Tool messages must reference a tool call from a prior
// assistant turn. A conversation that is a single user message renders as
// its bare content; everything else uses the Human/Assistant transcript.
func Forward(msgs []openai.Message, explicitSystem string) (prompt, system string, err error) {
	if len(msgs) == 0 {
		return "", "", &ValidationError{Field: "messages", Message: "must not be empty"}
	}

	var (
		systems   []string
		turns     []openai.Message
		seenCalls = map[string]bool{}
	)
	for i, m := range msgs {
		switch m.Role {
		case openai.RoleSystem:
			if m.Content != "" {
				systems = append(systems, m.Content)
			}
		case openai.RoleUser:
			turns = append(turns, m)
		case openai.RoleAssistant:
			for _, tc := range m.ToolCalls {
				seenCalls[tc.ID] = true
			}
			turns = append(turns, m)
		case openai.RoleTool:
			if m.ToolCallID == "" {
				return "", "", &ValidationError{
					Field:   fmt.Sprintf("messages[%d]", i),
					Message: "tool message requires tool_call_id",
				}
			}
			if !seenCalls[m.ToolCallID] {
				return "", "", &ValidationError{
					Field:   fmt.Sprintf("messages[%d]", i),
					Message: fmt.Sprintf("tool message references unknown tool_call_id %q", m.ToolCallID),
				}
			}
			turns = append(turns, m)
		default:
			return "", "", &ValidationError{
				Field:   fmt.Sprintf("messages[%d]", i),
				Message: fmt.Sprintf("unsupported role %q", m.Role),
			}
		}
	}

	if explicitSystem != "" {
		systems = append(systems, explicitSystem)
	}
	system = strings.Join(systems, "\n\n")

	if len(turns) == 1 && turns[0].Role == openai.RoleUser {
		return turns[0].Content, system, nil
	}

	var b strings.Builder
	for _, m := range turns {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		switch m.Role {
		case openai.RoleUser:
			b.WriteString("Human: ")
			b.WriteString(m.Content)
		case openai.RoleAssistant:
			b.WriteString("Assistant:")
			if m.Content != "" {
				b.WriteString(" ")
				b.WriteString(m.Content)
			}
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(&b, "\n[Tool call %s: %s(%s)]", tc.ID, tc.Function.Name, tc.Function.Arguments)
			}
		case openai.RoleTool:
			fmt.Fprintf(&b, "[Tool result for %s]\n%s\n[End tool result]", m.ToolCallID, m.Content)
		}
	}
	return b.String(), system, nil
}
