package gemini

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const defaultEmbeddingModel = "text-embedding-004"

// Embed implements [ai.Embedder] with batchEmbedContents. Gemini reports no
// usage for embeddings, so Usage is always nil.
func (p *GeminiProvider) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if err := ai.ValidateEmbeddingInputs(providerName, request.Inputs); err != nil {
		return nil, err
	}
	if request.HasImages() {
		return nil, &ai.CapabilityError{Provider: providerName, Model: request.Model, Operation: ai.OperationEmbed, Reason: "image inputs are not supported"}
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	// Model names are accepted with or without the "models/" resource prefix.
	model := strings.TrimPrefix(request.Model, "models/")
	if model == "" {
		model = defaultEmbeddingModel
	}

	batch := batchEmbedRequest{Requests: make([]embedContentRequest, len(request.Inputs))}
	for i, input := range request.Inputs {
		batch.Requests[i] = embedContentRequest{
			Model:   "models/" + model,
			Content: content{Parts: []part{{Text: input.Text}}},
		}
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", p.baseURL, model)
	body, err := utils.DoPostSync(ctx, p.client, url, batch, p.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	return embeddingsToGeneric(body)
}

func embeddingsToGeneric(body []byte) (*ai.EmbeddingResponse, error) {
	if !gjson.GetBytes(body, "embeddings").IsArray() {
		return nil, ai.MissingField(providerName, "embeddings")
	}

	var resp batchEmbedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ai.TranslationError{Provider: providerName, Field: "body", Err: err}
	}

	result := &ai.EmbeddingResponse{Embeddings: make([]ai.Embedding, 0, len(resp.Embeddings))}
	for i, embedding := range resp.Embeddings {
		result.Embeddings = append(result.Embeddings, ai.Embedding{Index: i, Data: embedding.Values})
	}
	return result, nil
}
