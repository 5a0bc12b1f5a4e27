package openai

import (
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/providers/ai"
)

/*
	CHAT COMPLETIONS STREAMING API - RESPONSE TYPES

	These types model the SSE chunks returned by /v1/chat/completions when
	stream=true. Each chunk carries incremental deltas for content and tool
	calls; usage arrives on a final chunk with no choices when
	stream_options.include_usage is set.
*/

// chatCompletionStreamChunk represents a single SSE chunk.
type chatCompletionStreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"` // "chat.completion.chunk"
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"`
}

// streamChoice uses Delta instead of Message.
type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // nil until the final chunk for this choice
}

type streamDelta struct {
	Role      string               `json:"role,omitempty"`
	Content   *string              `json:"content,omitempty"`
	Refusal   *string              `json:"refusal,omitempty"`
	ToolCalls []streamToolCallPart `json:"tool_calls,omitempty"`
}

// streamToolCallPart is an incremental tool call. The first part for a call
// carries the ID and function name; later parts carry argument fragments.
type streamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// chunkAdapter returns the stateless chunk mapper for provider.
func chunkAdapter(provider string) ai.DeltaAdapter {
	return func(data []byte) (*ai.ChatResponse, error) {
		return chunkToGeneric(provider, data)
	}
}

// chunkToGeneric maps one chunk to a partial response, preserving each
// choice index. Argument fragments are passed through in ArgumentsDelta;
// joining them is left to the caller.
func chunkToGeneric(provider string, data []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(data, "choices").Exists() {
		return nil, ai.MissingField(provider, "choices")
	}

	var chunk chatCompletionStreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, &ai.TranslationError{Provider: provider, Field: "chunk", Err: err}
	}

	response := &ai.ChatResponse{
		ID:     chunk.ID,
		Object: chunk.Object,
		Model:  chunk.Model,
		Usage:  usageToGeneric(chunk.Usage),
	}

	for _, choice := range chunk.Choices {
		partial := ai.ChatChoice{
			Index:   choice.Index,
			Message: ai.ChatMessage{Role: ai.MessageRole(choice.Delta.Role)},
		}
		if choice.Delta.Content != nil {
			partial.Message.Content = *choice.Delta.Content
		} else if choice.Delta.Refusal != nil {
			partial.Message.Content = *choice.Delta.Refusal
		}
		if choice.FinishReason != nil {
			partial.FinishReason = mapFinishReason(*choice.FinishReason)
		}
		for _, part := range choice.Delta.ToolCalls {
			partial.ToolCalls = append(partial.ToolCalls, ai.ToolCall{
				Index:          part.Index,
				ID:             part.ID,
				Function:       ai.Function{Name: part.Function.Name},
				ArgumentsDelta: part.Function.Arguments,
			})
		}
		response.Choices = append(response.Choices, partial)
	}

	return response, nil
}
