package gemini

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// StreamChat implements [ai.StreamProvider] using the streamGenerateContent
// endpoint with alt=sse. Each SSE event is a complete generateContentResponse
// holding only the text produced since the previous event, so events map to
// deltas one by one.
func (s *Session) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	geminiRequest, model, err := s.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(geminiRequest)
	if err != nil {
		return nil, fmt.Errorf("error marshaling gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", s.baseURL, model)
	httpResponse, err := utils.DoPostStream(ctx, s.client, url, body, s.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini stream request failed: %w", err)
	}

	return ai.NewSSEStream(ctx, providerName, httpResponse.Body, chunkToGeneric), nil
}

// chunkToGeneric maps one streamed event. Unlike a full response, a chunk may
// carry usage alone.
func chunkToGeneric(data []byte) (*ai.ChatResponse, error) {
	if !gjson.GetBytes(data, "candidates").Exists() && !gjson.GetBytes(data, "usageMetadata").Exists() &&
		!gjson.GetBytes(data, "promptFeedback.blockReason").Exists() {
		return nil, ai.MissingField(providerName, "candidates")
	}

	var chunk generateContentResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "chunk", Err: err}
	}
	return responseToGeneric(chunk)
}
