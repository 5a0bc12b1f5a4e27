package voyage

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName   = "voyageai"
	defaultBaseURL = "https://api.voyageai.com/v1"

	embeddingsEndpoint           = "/embeddings"
	multimodalEmbeddingsEndpoint = "/multimodalembeddings"
)

// VoyageProvider implements [ai.Embedder] for Voyage AI.
type VoyageProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Voyage provider from VOYAGE_API_KEY and VOYAGE_API_BASE_URL.
func New() *VoyageProvider {
	baseURL := os.Getenv("VOYAGE_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &VoyageProvider{
		apiKey:  os.Getenv("VOYAGE_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *VoyageProvider) WithAPIKey(apiKey string) *VoyageProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *VoyageProvider) WithBaseURL(baseURL string) *VoyageProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *VoyageProvider) WithHttpClient(httpClient *http.Client) *VoyageProvider {
	p.client = httpClient
	return p
}

// Name implements [ai.Provider].
func (p *VoyageProvider) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (p *VoyageProvider) Capabilities() ai.Capabilities { return capabilities }

// Embed implements [ai.Embedder]. Image inputs are accepted only by the
// multimodal model.
func (p *VoyageProvider) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if err := ai.ValidateEmbeddingInputs(providerName, request.Inputs); err != nil {
		return nil, err
	}
	multimodal := capabilities.SupportsImageEmbedding(request.Model)
	if request.HasImages() && !multimodal {
		return nil, &ai.CapabilityError{Provider: providerName, Model: request.Model, Operation: ai.OperationEmbed, Reason: "image inputs need " + multimodalModel}
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: VOYAGE_API_KEY", ai.ErrMissingAPIKey)
	}

	var (
		body []byte
		err  error
	)
	if multimodal {
		body, err = utils.DoPostSync(ctx, p.client, p.baseURL+multimodalEmbeddingsEndpoint, multimodalRequestFor(request), utils.BearerAuth(p.apiKey)...)
	} else {
		texts := make([]string, len(request.Inputs))
		for i, input := range request.Inputs {
			texts[i] = input.Text
		}
		body, err = utils.DoPostSync(ctx, p.client, p.baseURL+embeddingsEndpoint, textRequest{Model: request.Model, Input: texts}, utils.BearerAuth(p.apiKey)...)
	}
	if err != nil {
		return nil, fmt.Errorf("voyageai embedding request failed: %w", err)
	}

	return embeddingToGeneric(body)
}

func multimodalRequestFor(request ai.EmbeddingRequest) multimodalRequest {
	req := multimodalRequest{Model: request.Model, Inputs: make([]multimodalInput, len(request.Inputs))}
	for i, input := range request.Inputs {
		var item contentItem
		switch {
		case input.Image == nil:
			item = contentItem{Type: "text", Text: input.Text}
		case input.Image.URL != "":
			item = contentItem{Type: "image_url", ImageURL: input.Image.URL}
		default:
			item = contentItem{
				Type:        "image_base64",
				ImageBase64: "data:" + input.Image.Mime() + ";base64," + base64.StdEncoding.EncodeToString(input.Image.Data),
			}
		}
		req.Inputs[i] = multimodalInput{Content: []contentItem{item}}
	}
	return req
}

func embeddingToGeneric(body []byte) (*ai.EmbeddingResponse, error) {
	if !gjson.GetBytes(body, "data").IsArray() {
		return nil, ai.MissingField(providerName, "data")
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "body", Err: err}
	}

	result := &ai.EmbeddingResponse{
		Object:     resp.Object,
		Model:      resp.Model,
		Embeddings: make([]ai.Embedding, 0, len(resp.Data)),
	}
	if resp.Usage != nil {
		result.Usage = &ai.EmbeddingUsage{TotalTokens: resp.Usage.TotalTokens}
	}
	for _, data := range resp.Data {
		result.Embeddings = append(result.Embeddings, ai.Embedding{Index: data.Index, Data: data.Embedding})
	}
	return result, nil
}
