package anthropic

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// StreamChat implements [ai.StreamProvider]. It sends the request with
// stream=true and returns a stream yielding one partial response per SSE
// event that carries something for the caller.
//
// Pre-stream errors (validation, missing API key, non-2xx response) are
// returned directly. Mid-stream errors, including Anthropic "error" events,
// are yielded through the iterator.
func (p *AnthropicProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	anthropicReq, err := p.prepare(request)
	if err != nil {
		return nil, err
	}
	anthropicReq.Stream = true

	body, err := json.Marshal(anthropicReq)
	if err != nil {
		return nil, fmt.Errorf("error marshaling anthropic request: %w", err)
	}

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+messagesEndpoint, body, p.buildHeaders()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic stream request failed: %w", err)
	}

	return ai.NewSSEStream(ctx, providerName, httpResponse.Body, streamEventToGeneric), nil
}

// streamEventToGeneric maps one Anthropic SSE payload to a partial response.
// It keeps no state between events:
//
//   - message_start: id, model and input usage
//   - content_block_start (tool_use): the tool call header, indexed by the
//     content block index
//   - content_block_delta: text, or an arguments fragment for the open
//     tool_use block
//   - message_delta: finish reason and output usage
//   - ping, content_block_stop, message_stop: nothing
func streamEventToGeneric(data []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(data, "type").Exists() {
		return nil, ai.MissingField(providerName, "type")
	}

	var event anthropicStreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "event", Err: err}
	}

	switch event.Type {
	case "message_start":
		if event.Message == nil {
			return nil, ai.MissingField(providerName, "message")
		}
		return &ai.ChatResponse{
			ID:      event.Message.ID,
			Object:  event.Message.Type,
			Model:   event.Message.Model,
			Usage:   startUsage(event.Message.Usage),
			Choices: []ai.ChatChoice{{Index: 0, Message: ai.ChatMessage{Role: ai.RoleAssistant}}},
		}, nil

	case "content_block_start":
		block := event.ContentBlock
		if block == nil {
			return nil, ai.MissingField(providerName, "content_block")
		}
		switch {
		case block.Type == "tool_use":
			return toolCallDelta(ai.ToolCall{
				Index:    event.Index,
				ID:       block.ID,
				Function: ai.Function{Name: block.Name},
			}), nil
		case block.Type == "text" && block.Text != "":
			return textDelta(block.Text), nil
		}
		return nil, nil

	case "content_block_delta":
		if event.Delta == nil {
			return nil, ai.MissingField(providerName, "delta")
		}
		switch event.Delta.Type {
		case "text_delta":
			return textDelta(event.Delta.Text), nil
		case "input_json_delta":
			return toolCallDelta(ai.ToolCall{Index: event.Index, ArgumentsDelta: event.Delta.PartialJSON}), nil
		}
		return nil, nil

	case "message_delta":
		response := &ai.ChatResponse{Usage: usageToGeneric(event.Usage)}
		if event.Delta != nil && event.Delta.StopReason != "" {
			response.Choices = []ai.ChatChoice{{
				Index:        0,
				Message:      ai.ChatMessage{Role: ai.RoleAssistant},
				FinishReason: mapStopReason(event.Delta.StopReason),
			}}
		}
		if response.Usage == nil && len(response.Choices) == 0 {
			return nil, nil
		}
		return response, nil

	case "error":
		message := "unknown stream error"
		if event.Error != nil {
			message = event.Error.Type + ": " + event.Error.Message
		}
		return nil, fmt.Errorf("anthropic stream error: %s", message)
	}

	// ping, content_block_stop, message_stop and future event types.
	return nil, nil
}

// startUsage keeps only the input counter of message_start; its output
// counter is a placeholder superseded by message_delta.
func startUsage(usage *anthropicUsage) *ai.ChatUsage {
	if usage == nil || usage.InputTokens == nil {
		return nil
	}
	return &ai.ChatUsage{InputTokens: usage.InputTokens}
}

func textDelta(text string) *ai.ChatResponse {
	return &ai.ChatResponse{Choices: []ai.ChatChoice{{
		Index:   0,
		Message: ai.ChatMessage{Role: ai.RoleAssistant, Content: text},
	}}}
}

func toolCallDelta(call ai.ToolCall) *ai.ChatResponse {
	return &ai.ChatResponse{Choices: []ai.ChatChoice{{
		Index:     0,
		Message:   ai.ChatMessage{Role: ai.RoleAssistant},
		ToolCalls: []ai.ToolCall{call},
	}}}
}
