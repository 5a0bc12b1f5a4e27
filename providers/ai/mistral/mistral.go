package mistral

import (
	"context"
	"fmt"
	"net/http"
	"os"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName   = "mistral"
	defaultBaseURL = "https://api.mistral.ai/v1"

	chatEndpoint       = "/chat/completions"
	embeddingsEndpoint = "/embeddings"
)

// MistralProvider implements chat, streaming and embeddings for Mistral.
type MistralProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Mistral provider from MISTRAL_API_KEY and MISTRAL_API_BASE_URL.
func New() *MistralProvider {
	baseURL := os.Getenv("MISTRAL_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &MistralProvider{
		apiKey:  os.Getenv("MISTRAL_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *MistralProvider) WithAPIKey(apiKey string) *MistralProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *MistralProvider) WithBaseURL(baseURL string) *MistralProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *MistralProvider) WithHttpClient(httpClient *http.Client) *MistralProvider {
	p.client = httpClient
	return p
}

// Name implements [ai.Provider].
func (p *MistralProvider) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (p *MistralProvider) Capabilities() ai.Capabilities { return capabilities }

func (p *MistralProvider) checkAPIKey() error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: MISTRAL_API_KEY", ai.ErrMissingAPIKey)
	}
	return nil
}

// Chat implements [ai.ChatProvider].
func (p *MistralProvider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	mistralRequest, err := requestToMistral(request)
	if err != nil {
		return nil, err
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	body, err := utils.DoPostSync(ctx, p.client, p.baseURL+chatEndpoint, mistralRequest, utils.BearerAuth(p.apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("mistral chat request failed: %w", err)
	}
	return chatToGeneric(body)
}

// StreamChat implements [ai.StreamProvider]. Chunks carry usage only when
// Mistral reports it, normally on the last one.
func (p *MistralProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	mistralRequest, err := requestToMistral(request)
	if err != nil {
		return nil, err
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(mistralRequest)
	if err != nil {
		return nil, fmt.Errorf("error marshaling mistral request: %w", err)
	}
	body, err = sjson.SetBytes(body, "stream", true)
	if err != nil {
		return nil, fmt.Errorf("error enabling streaming: %w", err)
	}

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatEndpoint, body, utils.BearerAuth(p.apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("mistral stream request failed: %w", err)
	}
	return ai.NewSSEStream(ctx, providerName, httpResponse.Body, chatToGeneric), nil
}

// Embed implements [ai.Embedder]. Mistral embeddings are text-only.
func (p *MistralProvider) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if err := ai.ValidateEmbeddingInputs(providerName, request.Inputs); err != nil {
		return nil, err
	}
	if request.HasImages() {
		return nil, &ai.CapabilityError{Provider: providerName, Model: request.Model, Operation: ai.OperationEmbed, Reason: "image inputs are not supported"}
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	texts := make([]string, len(request.Inputs))
	for i, input := range request.Inputs {
		texts[i] = input.Text
	}

	body, err := utils.DoPostSync(ctx, p.client, p.baseURL+embeddingsEndpoint, embeddingRequest{Model: request.Model, Input: texts}, utils.BearerAuth(p.apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("mistral embedding request failed: %w", err)
	}

	if !gjson.GetBytes(body, "data").IsArray() {
		return nil, ai.MissingField(providerName, "data")
	}
	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "body", Err: err}
	}

	result := &ai.EmbeddingResponse{
		ID:         resp.ID,
		Object:     resp.Object,
		Model:      resp.Model,
		Embeddings: make([]ai.Embedding, 0, len(resp.Data)),
	}
	if resp.Usage != nil {
		result.Usage = &ai.EmbeddingUsage{InputTokens: resp.Usage.PromptTokens, TotalTokens: resp.Usage.TotalTokens}
	}
	for _, data := range resp.Data {
		result.Embeddings = append(result.Embeddings, ai.Embedding{Index: data.Index, Data: data.Embedding})
	}
	return result, nil
}
