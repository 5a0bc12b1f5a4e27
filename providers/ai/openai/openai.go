package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"

	chatCompletionsEndpoint = "/chat/completions"
	embeddingsEndpoint      = "/embeddings"
	transcriptionsEndpoint  = "/audio/transcriptions"
	imagesEndpoint          = "/images/generations"
)

// OpenAIProvider implements chat, streaming, embeddings, transcription and
// image generation against an OpenAI-compatible API.
type OpenAIProvider struct {
	name         string
	apiKey       string
	apiKeyEnv    string
	baseURL      string
	client       *http.Client
	capabilities ai.Capabilities
}

// New creates an OpenAI provider from OPENAI_API_KEY and OPENAI_API_BASE_URL.
func New() *OpenAIProvider {
	return newCompatible(providerName, "OPENAI", defaultBaseURL, openaiCapabilities)
}

// newCompatible builds a provider for an OpenAI-compatible host whose
// credentials live in <envPrefix>_API_KEY and <envPrefix>_API_BASE_URL.
func newCompatible(name, envPrefix, fallbackBaseURL string, capabilities ai.Capabilities) *OpenAIProvider {
	baseURL := os.Getenv(envPrefix + "_API_BASE_URL")
	if baseURL == "" {
		baseURL = fallbackBaseURL
	}

	return &OpenAIProvider{
		name:         name,
		apiKey:       os.Getenv(envPrefix + "_API_KEY"),
		apiKeyEnv:    envPrefix + "_API_KEY",
		baseURL:      baseURL,
		client:       &http.Client{},
		capabilities: capabilities,
	}
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) *OpenAIProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) *OpenAIProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) *OpenAIProvider {
	p.client = httpClient
	return p
}

// Name implements [ai.Provider].
func (p *OpenAIProvider) Name() string { return p.name }

// Capabilities implements [ai.Provider].
func (p *OpenAIProvider) Capabilities() ai.Capabilities { return p.capabilities }

func (p *OpenAIProvider) checkAPIKey() error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: %s", ai.ErrMissingAPIKey, p.apiKeyEnv)
	}
	return nil
}

// Chat implements [ai.ChatProvider].
func (p *OpenAIProvider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	chatRequest, err := requestToChatCompletion(p.name, request)
	if err != nil {
		return nil, err
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	body, err := utils.DoPostSync(ctx, p.client, p.baseURL+chatCompletionsEndpoint, chatRequest, utils.BearerAuth(p.apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("%s chat request failed: %w", p.name, err)
	}

	return chatCompletionToGeneric(p.name, body)
}
