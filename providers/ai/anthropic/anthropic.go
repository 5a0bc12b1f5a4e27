package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName = "anthropic"

	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// anthropicVersion is the required anthropic-version header value.
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider implements [ai.ChatProvider] and [ai.StreamProvider] for
// Anthropic's Messages API. Use [New] to construct a ready-to-use instance.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New returns an [AnthropicProvider] initialized from environment variables.
// It reads ANTHROPIC_API_KEY for authentication and ANTHROPIC_API_BASE_URL for
// the endpoint base (defaulting to https://api.anthropic.com/v1 when unset).
func New() *AnthropicProvider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey overrides the value read from ANTHROPIC_API_KEY.
func (p *AnthropicProvider) WithAPIKey(apiKey string) *AnthropicProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL, e.g. for a proxy or a test server.
func (p *AnthropicProvider) WithBaseURL(baseURL string) *AnthropicProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls.
func (p *AnthropicProvider) WithHttpClient(httpClient *http.Client) *AnthropicProvider {
	p.client = httpClient
	return p
}

// Name implements [ai.Provider].
func (p *AnthropicProvider) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (p *AnthropicProvider) Capabilities() ai.Capabilities { return capabilities }

// buildHeaders returns the headers required on every Anthropic request.
// Anthropic authenticates with x-api-key rather than a Bearer token.
func (p *AnthropicProvider) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

// prepare converts the request and checks credentials, in that order, so
// that invalid requests never reach the network.
func (p *AnthropicProvider) prepare(request ai.ChatRequest) (anthropicRequest, error) {
	anthropicReq, err := requestToAnthropic(request)
	if err != nil {
		return anthropicRequest{}, err
	}
	if p.apiKey == "" {
		return anthropicRequest{}, fmt.Errorf("%w: ANTHROPIC_API_KEY", ai.ErrMissingAPIKey)
	}
	return anthropicReq, nil
}

// Chat implements [ai.ChatProvider] by sending a synchronous request to the
// Messages API and mapping the response to a single-choice [ai.ChatResponse].
func (p *AnthropicProvider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	anthropicReq, err := p.prepare(request)
	if err != nil {
		return nil, err
	}

	body, err := utils.DoPostSync(ctx, p.client, p.baseURL+messagesEndpoint, anthropicReq, p.buildHeaders()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat request failed: %w", err)
	}

	response, err := anthropicToGeneric(body)
	if err != nil {
		return nil, err
	}

	// Fall back to the request model so callers always see which model ran.
	if response.Model == "" {
		response.Model = request.Model
	}
	return response, nil
}
