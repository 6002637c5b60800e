package openai

// Object type discriminators used in responses.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
	ObjectModel               = "model"
	ObjectList                = "list"
)

// FinishReason explains why generation stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	// FinishError is a local convention for mid-stream failures: the final
	// frame carries it in addition to, never instead of, an HTTP status
	// when one can still be sent.
	FinishError FinishReason = "error"
)

// Usage reports token consumption. TotalTokens is always the sum of the
// other two.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one response alternative; this gateway always returns exactly
// one with Index 0.
type Choice struct {
	Index        int           `json:"index"`
	Message      Message       `json:"message"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// ChatCompletion is the non-streaming response body.
type ChatCompletion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`

	// SessionID echoes the session used, when one was.
	SessionID string `json:"session_id,omitempty"`
	// CostUSD surfaces runtime-reported cost; absent when unreported.
	CostUSD *float64 `json:"cost_usd,omitempty"`
}

// Delta carries the incremental fields of one streamed chunk. Role is only
// present on the first chunk of a response.
type Delta struct {
	Role      Role       `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// StreamChoice is the choices[0] entry of a streamed chunk.
type StreamChoice struct {
	Index        int           `json:"index"`
	Delta        Delta         `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE frame payload. Concatenating Delta.Content
// across a stream reproduces the non-streaming content byte for byte.
type ChatCompletionChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`

	SessionID string `json:"session_id,omitempty"`
}
