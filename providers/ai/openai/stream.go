package openai

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/sjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// StreamChat implements [ai.StreamProvider] for the chat completions
// endpoint. Usage is requested through stream_options.include_usage and is
// only present on the final chunk; every other delta has nil Usage.
func (p *OpenAIProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	chatRequest, err := requestToChatCompletion(p.name, request)
	if err != nil {
		return nil, err
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	body, err := streamingBody(chatRequest)
	if err != nil {
		return nil, err
	}

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, body, utils.BearerAuth(p.apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("%s stream request failed: %w", p.name, err)
	}

	return ai.NewSSEStream(ctx, p.name, httpResponse.Body, chunkAdapter(p.name)), nil
}

// streamingBody encodes the request and switches it to streaming mode.
func streamingBody(chatRequest chatCompletionRequest) ([]byte, error) {
	body, err := json.Marshal(chatRequest)
	if err != nil {
		return nil, fmt.Errorf("error marshaling chat request: %w", err)
	}
	body, err = sjson.SetBytes(body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("error enabling streaming: %w", err)
	}
	body, err = sjson.SetBytes(body, "stream_options.include_usage", true)
	if err != nil {
		return nil, fmt.Errorf("error enabling stream usage: %w", err)
	}
	return body, nil
}
