// Package adapter converts between the OpenAI chat wire protocol and the
// Claude runtime's prompt/event model. The forward path renders OpenAI
// message lists into a single prompt plus system prompt; the reverse path
// assembles runtime events into completions or chunk sequences.
package adapter

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidationError marks request content the adapter refused to render.
// The web layer maps it onto a 422 validation_error body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewCompletionID returns a fresh chat completion id.
func NewCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewToolCallID returns a fresh tool call id in the call_<opaque> form.
func NewToolCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
