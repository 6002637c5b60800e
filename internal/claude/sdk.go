package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

const (
	// defaultMaxTokens caps a completion when the API requires a limit.
	defaultMaxTokens = 4096

	// maxEmptyStreamEvents aborts a stream that keeps delivering events
	// we cannot use, which indicates a malformed or hostile upstream.
	maxEmptyStreamEvents = 300
)

// SDKRuntime runs completions against the Anthropic Messages API. It
// implements the same Runtime contract as the CLI backend so callers
// never branch on transport.
type SDKRuntime struct {
	client       anthropic.Client
	defaultModel string
	logger       *observability.Logger
}

// NewSDKRuntime builds the SDK backend. An API key is required; resolve
// one before selecting this backend.
func NewSDKRuntime(cfg Config, logger *observability.Logger) (*SDKRuntime, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sdk backend requires an anthropic api key")
	}
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{Level: "error", Output: io.Discard})
	}
	return &SDKRuntime{
		client:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		defaultModel: cfg.DefaultModel,
		logger:       logger,
	}, nil
}

// Verify reports availability. Construction already required a key, so
// the backend is always available.
func (s *SDKRuntime) Verify(ctx context.Context) Verification {
	return Verification{Available: true, Backend: backendSDK}
}

// RunCompletion opens a Messages API stream and translates its events.
func (s *SDKRuntime) RunCompletion(ctx context.Context, req Request) (*Stream, error) {
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}
	if model == "" {
		return nil, NewRuntimeError(backendSDK, "", errors.New("no model specified")).WithKind(ErrKindModel)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.SystemPrompt}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertToolSpecs(req.Tools)
		if err != nil {
			return nil, NewRuntimeError(backendSDK, model, err).WithKind(ErrKindProtocol)
		}
		params.Tools = tools
	}

	upstream := s.client.Messages.NewStreaming(ctx, params)
	stream := newStream()
	go s.consume(ctx, upstream, stream, model)
	return stream, nil
}

// consume walks the SSE event union, forwarding normalized events and
// synthesizing the terminal Result the API never sends as one piece.
func (s *SDKRuntime) consume(ctx context.Context, upstream *ssestream.Stream[anthropic.MessageStreamEventUnion], stream *Stream, model string) {
	defer upstream.Close()

	var (
		usage      Usage
		stopReason string
		emptyCount int
		tool       *toolAccumulator
	)

	emit := func(ev RuntimeEvent) bool {
		if !stream.send(ctx, ev) {
			stream.close(NewRuntimeError(backendSDK, model, ctx.Err()))
			return false
		}
		return true
	}

	for upstream.Next() {
		event := upstream.Current()
		processed := true

		switch event.Type {
		case "message_start":
			start := event.AsMessageStart()
			usage.InputTokens = int(start.Message.Usage.InputTokens)
			if !emit(RuntimeEvent{Type: EventSystemInit, Init: &SystemInit{
				Model: string(start.Message.Model),
			}}) {
				return
			}

		case "content_block_start":
			blockStart := event.AsContentBlockStart()
			if blockStart.ContentBlock.Type == "tool_use" {
				toolUse := blockStart.ContentBlock.AsToolUse()
				tool = &toolAccumulator{id: toolUse.ID, name: toolUse.Name}
			}

		case "content_block_delta":
			blockDelta := event.AsContentBlockDelta()
			switch blockDelta.Delta.Type {
			case "text_delta":
				if blockDelta.Delta.Text == "" {
					processed = false
					break
				}
				if !emit(RuntimeEvent{Type: EventAssistantDelta, Delta: &AssistantDelta{
					Text: blockDelta.Delta.Text,
				}}) {
					return
				}
			case "input_json_delta":
				if tool != nil {
					tool.args.WriteString(blockDelta.Delta.PartialJSON)
				}
			default:
				processed = false
			}

		case "content_block_stop":
			if tool == nil {
				processed = false
				break
			}
			args := tool.args.String()
			if args == "" {
				args = "{}"
			}
			call := ToolInvocation{ID: tool.id, Name: tool.name, Arguments: args}
			tool = nil
			if !emit(RuntimeEvent{Type: EventAssistantDelta, Delta: &AssistantDelta{
				ToolCalls: []ToolInvocation{call},
			}}) {
				return
			}

		case "message_delta":
			delta := event.AsMessageDelta()
			usage.OutputTokens = int(delta.Usage.OutputTokens)
			if reason := string(delta.Delta.StopReason); reason != "" {
				stopReason = reason
			}

		case "message_stop":
			// Terminal event; Result is synthesized below.

		default:
			processed = false
		}

		if processed {
			emptyCount = 0
			continue
		}
		emptyCount++
		if emptyCount > maxEmptyStreamEvents {
			stream.close(NewRuntimeError(backendSDK, model,
				fmt.Errorf("aborting after %d consecutive unusable stream events", emptyCount)).
				WithKind(ErrKindProtocol))
			return
		}
	}

	if err := upstream.Err(); err != nil {
		stream.close(wrapSDKError(err, model))
		return
	}
	if ctx.Err() != nil {
		stream.close(NewRuntimeError(backendSDK, model, ctx.Err()))
		return
	}

	if stopReason == "" {
		stopReason = "end_turn"
	}
	res := &Result{StopReason: stopReason, Usage: usage, NumTurns: 1}
	if stream.send(ctx, RuntimeEvent{Type: EventResult, Result: res}) {
		stream.close(nil)
		return
	}
	stream.close(NewRuntimeError(backendSDK, model, ctx.Err()))
}

type toolAccumulator struct {
	id   string
	name string
	args strings.Builder
}

func convertToolSpecs(tools []ToolSpec) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if len(t.InputSchema) > 0 {
			if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
				return nil, fmt.Errorf("tool %s: parsing input schema: %w", t.Name, err)
			}
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if t.Description != "" {
			param.OfTool.Description = anthropic.String(t.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

// wrapSDKError converts an SDK failure into a RuntimeError, pulling the
// status, error type, message, and request id out of the API payload.
func wrapSDKError(err error, model string) error {
	re := NewRuntimeError(backendSDK, model, err)

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return re
	}

	re = re.WithStatus(apiErr.StatusCode)

	var payload struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(apiErr.RawJSON()), &payload); jsonErr == nil {
		if payload.Error.Type != "" {
			re = re.WithCode(payload.Error.Type)
		}
		if payload.Error.Message != "" {
			re = re.WithMessage(payload.Error.Message)
		}
		if payload.RequestID != "" {
			re = re.WithRequestID(payload.RequestID)
		}
	}
	if re.RequestID == "" && apiErr.RequestID != "" {
		re = re.WithRequestID(apiErr.RequestID)
	}
	return re
}
