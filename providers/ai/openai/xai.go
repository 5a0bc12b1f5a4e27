package openai

import (
	"context"
	"net/http"

	"github.com/leofalp/switchai/providers/ai"
)

const (
	xaiProviderName   = "xai"
	xaiDefaultBaseURL = "https://api.x.ai/v1"
)

// XAIProvider exposes the chat surface of xAI's OpenAI-compatible API. It
// wraps an [OpenAIProvider] without promoting its embedding, transcription
// and image methods, which xAI does not serve.
type XAIProvider struct {
	compatible *OpenAIProvider
}

// NewXAI creates an xAI provider from XAI_API_KEY and XAI_API_BASE_URL.
func NewXAI() *XAIProvider {
	return &XAIProvider{compatible: newCompatible(xaiProviderName, "XAI", xaiDefaultBaseURL, xaiCapabilities)}
}

// WithAPIKey sets the API key for the provider
func (p *XAIProvider) WithAPIKey(apiKey string) *XAIProvider {
	p.compatible.WithAPIKey(apiKey)
	return p
}

// WithBaseURL sets the base URL for the API
func (p *XAIProvider) WithBaseURL(baseURL string) *XAIProvider {
	p.compatible.WithBaseURL(baseURL)
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *XAIProvider) WithHttpClient(httpClient *http.Client) *XAIProvider {
	p.compatible.WithHttpClient(httpClient)
	return p
}

// Name implements [ai.Provider].
func (p *XAIProvider) Name() string { return xaiProviderName }

// Capabilities implements [ai.Provider].
func (p *XAIProvider) Capabilities() ai.Capabilities { return xaiCapabilities }

// Chat implements [ai.ChatProvider].
func (p *XAIProvider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	return p.compatible.Chat(ctx, request)
}

// StreamChat implements [ai.StreamProvider].
func (p *XAIProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return p.compatible.StreamChat(ctx, request)
}
