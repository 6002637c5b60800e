package claude

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire shapes for the CLI's stream-json output. Every line is one JSON
// object; an envelope pass picks the type, a second pass decodes the
// payload for that type.

type cliEnvelope struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	SessionID string `json:"session_id"`
}

type cliInitEvent struct {
	SessionID string   `json:"session_id"`
	Model     string   `json:"model"`
	Tools     []string `json:"tools"`
	Version   string   `json:"claude_code_version"`
}

type cliAssistantEvent struct {
	Message struct {
		ID         string            `json:"id"`
		Model      string            `json:"model"`
		StopReason *string           `json:"stop_reason"`
		Content    []cliContentBlock `json:"content"`
	} `json:"message"`
}

type cliContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type cliUserEvent struct {
	Message struct {
		Content []cliToolResultBlock `json:"content"`
	} `json:"message"`
}

type cliToolResultBlock struct {
	Type      string          `json:"type"`
	ToolUseID string          `json:"tool_use_id"`
	IsError   bool            `json:"is_error"`
	Content   json.RawMessage `json:"content"`
}

type cliResultEvent struct {
	Subtype      string    `json:"subtype"`
	IsError      bool      `json:"is_error"`
	Result       string    `json:"result"`
	SessionID    string    `json:"session_id"`
	NumTurns     int       `json:"num_turns"`
	TotalCostUSD *float64  `json:"total_cost_usd"`
	Usage        *cliUsage `json:"usage"`
}

type cliUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// translateCLILine decodes one stream-json line into runtime events. The
// second return value is non-nil when the line was the terminal result.
// stopReason accumulates the most recent assistant stop_reason so the
// result can report it.
func translateCLILine(line []byte, stopReason *string) ([]RuntimeEvent, *Result, error) {
	var env cliEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, nil, fmt.Errorf("decoding event envelope: %w", err)
	}

	switch env.Type {
	case "system":
		if env.Subtype != "init" {
			return nil, nil, nil
		}
		var ev cliInitEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, nil, fmt.Errorf("decoding init event: %w", err)
		}
		return []RuntimeEvent{{Type: EventSystemInit, Init: &SystemInit{
			SessionID: ev.SessionID,
			Model:     ev.Model,
			Tools:     ev.Tools,
			Version:   ev.Version,
		}}}, nil, nil

	case "assistant":
		var ev cliAssistantEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, nil, fmt.Errorf("decoding assistant event: %w", err)
		}
		if ev.Message.StopReason != nil && *ev.Message.StopReason != "" {
			*stopReason = *ev.Message.StopReason
		}
		var delta AssistantDelta
		for _, block := range ev.Message.Content {
			switch block.Type {
			case "text":
				delta.Text += block.Text
			case "tool_use":
				args := string(block.Input)
				if args == "" {
					args = "{}"
				}
				delta.ToolCalls = append(delta.ToolCalls, ToolInvocation{
					ID:        block.ID,
					Name:      block.Name,
					Arguments: args,
				})
			}
			// thinking blocks are internal to the runtime and dropped
		}
		if delta.Text == "" && len(delta.ToolCalls) == 0 {
			return nil, nil, nil
		}
		return []RuntimeEvent{{Type: EventAssistantDelta, Delta: &delta}}, nil, nil

	case "user":
		var ev cliUserEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, nil, fmt.Errorf("decoding user event: %w", err)
		}
		var events []RuntimeEvent
		for _, block := range ev.Message.Content {
			if block.Type != "tool_result" {
				continue
			}
			events = append(events, RuntimeEvent{Type: EventToolResult, ToolResult: &ToolResult{
				ToolUseID: block.ToolUseID,
				Content:   decodeToolResultContent(block.Content),
				IsError:   block.IsError,
			}})
		}
		return events, nil, nil

	case "result":
		var ev cliResultEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, nil, fmt.Errorf("decoding result event: %w", err)
		}
		res := &Result{
			StopReason: *stopReason,
			CostUSD:    ev.TotalCostUSD,
			NumTurns:   ev.NumTurns,
			IsError:    ev.IsError || strings.HasPrefix(ev.Subtype, "error"),
		}
		if ev.Usage != nil {
			res.Usage = Usage{
				InputTokens:  ev.Usage.InputTokens,
				OutputTokens: ev.Usage.OutputTokens,
			}
		}
		if res.IsError {
			res.ErrorText = ev.Result
			if res.ErrorText == "" {
				res.ErrorText = ev.Subtype
			}
		} else if res.StopReason == "" {
			res.StopReason = "end_turn"
		}
		return []RuntimeEvent{{Type: EventResult, Result: res}}, res, nil

	default:
		// Unknown event types are forward compatibility, not errors.
		return nil, nil, nil
	}
}

// decodeToolResultContent handles both shapes the CLI emits: a plain
// string or an array of text blocks.
func decodeToolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return string(raw)
}
