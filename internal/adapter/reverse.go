package adapter

import (
	"strings"
	"time"

	"github.com/haasonsaas/claudebridge/internal/claude"
	"github.com/haasonsaas/claudebridge/pkg/openai"
)

// Assembler folds runtime events into OpenAI response state. One
// assembler serves exactly one completion; it drives both the streaming
// and non-streaming shapes so their content is identical by construction.
// Not safe for concurrent use.
type Assembler struct {
	ID        string
	Model     string
	Created   int64
	SessionID string

	text      strings.Builder
	toolCalls []openai.ToolCall
	result    *claude.Result
	nextIndex int
}

// NewAssembler starts response assembly for one request. model is the
// wire-visible model id; sessionID may be empty for stateless requests.
func NewAssembler(model, sessionID string) *Assembler {
	return &Assembler{
		ID:        NewCompletionID(),
		Model:     model,
		Created:   time.Now().Unix(),
		SessionID: sessionID,
	}
}

// Observe folds one runtime event into the response and returns the chunk
// deltas it implies. Init and tool-result events have no wire effect and
// return nil.
func (a *Assembler) Observe(ev claude.RuntimeEvent) []openai.Delta {
	switch ev.Type {
	case claude.EventAssistantDelta:
		var deltas []openai.Delta
		if ev.Delta.Text != "" {
			a.text.WriteString(ev.Delta.Text)
			deltas = append(deltas, openai.Delta{Content: ev.Delta.Text})
		}
		for _, call := range ev.Delta.ToolCalls {
			index := a.nextIndex
			a.nextIndex++

			tc := openai.ToolCall{
				ID:   NewToolCallID(),
				Type: "function",
				Function: openai.ToolCallFunction{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			}
			a.toolCalls = append(a.toolCalls, tc)

			fragment := tc
			fragment.Index = &index
			deltas = append(deltas, openai.Delta{ToolCalls: []openai.ToolCall{fragment}})
		}
		return deltas

	case claude.EventResult:
		a.result = ev.Result
		return nil

	default:
		return nil
	}
}

// Result returns the terminal runtime result, or nil before one arrived.
func (a *Assembler) Result() *claude.Result {
	return a.result
}

// Content returns the text accumulated so far.
func (a *Assembler) Content() string {
	return a.text.String()
}

// Started reports whether anything reached the wire surface yet.
func (a *Assembler) Started() bool {
	return a.text.Len() > 0 || len(a.toolCalls) > 0
}

// Usage converts the terminal usage counts, enforcing
// total = prompt + completion.
func (a *Assembler) Usage() openai.Usage {
	if a.result == nil {
		return openai.Usage{}
	}
	u := openai.Usage{
		PromptTokens:     a.result.Usage.InputTokens,
		CompletionTokens: a.result.Usage.OutputTokens,
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
	return u
}

// FinishReason maps the runtime stop reason onto the OpenAI vocabulary.
// Tool calls win over end_turn so clients branch correctly.
func (a *Assembler) FinishReason() openai.FinishReason {
	stop := ""
	if a.result != nil {
		stop = a.result.StopReason
	}
	switch stop {
	case "max_tokens":
		return openai.FinishLength
	case "refusal":
		return openai.FinishContentFilter
	case "tool_use":
		return openai.FinishToolCalls
	}
	if len(a.toolCalls) > 0 {
		return openai.FinishToolCalls
	}
	return openai.FinishStop
}

// AssistantMessage returns the turn to append to the session.
func (a *Assembler) AssistantMessage() openai.Message {
	return openai.Message{
		Role:      openai.RoleAssistant,
		Content:   a.text.String(),
		ToolCalls: a.toolCalls,
	}
}

// Completion builds the non-streaming response body.
func (a *Assembler) Completion() *openai.ChatCompletion {
	finish := a.FinishReason()
	resp := &openai.ChatCompletion{
		ID:      a.ID,
		Object:  openai.ObjectChatCompletion,
		Created: a.Created,
		Model:   a.Model,
		Choices: []openai.Choice{{
			Index:        0,
			Message:      a.AssistantMessage(),
			FinishReason: &finish,
		}},
		Usage:     a.Usage(),
		SessionID: a.SessionID,
	}
	if a.result != nil {
		resp.CostUSD = a.result.CostUSD
	}
	return resp
}

// RoleChunk is the first frame of a stream: the assistant role with no
// content.
func (a *Assembler) RoleChunk() *openai.ChatCompletionChunk {
	return a.chunk(openai.Delta{Role: openai.RoleAssistant}, nil, false)
}

// Chunk wraps one delta as a mid-stream frame.
func (a *Assembler) Chunk(delta openai.Delta) *openai.ChatCompletionChunk {
	return a.chunk(delta, nil, false)
}

// FinalChunk closes a stream with the finish reason and usage.
func (a *Assembler) FinalChunk() *openai.ChatCompletionChunk {
	finish := a.FinishReason()
	return a.chunk(openai.Delta{}, &finish, true)
}

// ErrorChunk closes a stream that failed after frames were already sent.
func (a *Assembler) ErrorChunk() *openai.ChatCompletionChunk {
	finish := openai.FinishError
	return a.chunk(openai.Delta{}, &finish, false)
}

func (a *Assembler) chunk(delta openai.Delta, finish *openai.FinishReason, withUsage bool) *openai.ChatCompletionChunk {
	c := &openai.ChatCompletionChunk{
		ID:      a.ID,
		Object:  openai.ObjectChatCompletionChunk,
		Created: a.Created,
		Model:   a.Model,
		Choices: []openai.StreamChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
		SessionID: a.SessionID,
	}
	if withUsage {
		usage := a.Usage()
		c.Usage = &usage
	}
	return c
}
