package openai

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Model  string          `json:"model"`
	Data   []embeddingData `json:"data"`
	Usage  *struct {
		PromptTokens *int `json:"prompt_tokens"`
		TotalTokens  *int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Embed implements [ai.Embedder]. OpenAI embeddings are text-only; image
// inputs are rejected with a capability error.
func (p *OpenAIProvider) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if err := ai.ValidateEmbeddingInputs(p.name, request.Inputs); err != nil {
		return nil, err
	}
	if request.HasImages() {
		return nil, &ai.CapabilityError{Provider: p.name, Model: request.Model, Operation: ai.OperationEmbed, Reason: "image inputs are not supported"}
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
		return nil, fmt.Errorf("%s embedding request failed: %w", p.name, err)
	}

	return embeddingToGeneric(p.name, body)
}

func embeddingToGeneric(provider string, body []byte) (*ai.EmbeddingResponse, error) {
	if !gjson.GetBytes(body, "data").IsArray() {
		return nil, ai.MissingField(provider, "data")
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: provider, Field: "body", Err: err}
	}

	result := &ai.EmbeddingResponse{
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
