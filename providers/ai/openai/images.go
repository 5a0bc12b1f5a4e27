package openai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

type imageGenerationRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// GenerateImage implements [ai.ImageGenerator]. Images are requested as
// base64 so no second download is needed.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, request ai.ImageGenerationRequest) (*ai.ImageGenerationResponse, error) {
	if request.Prompt == "" {
		return nil, ai.NewValidationError(p.name, "prompt", "prompt must not be empty")
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	imageRequest := imageGenerationRequest{
		Model:  request.Model,
		Prompt: request.Prompt,
		N:      request.Count(),
	}
	// gpt-image-1 always returns base64 and rejects response_format.
	if request.Model != "gpt-image-1" {
		imageRequest.ResponseFormat = "b64_json"
	}

	body, err := utils.DoPostSync(ctx, p.client, p.baseURL+imagesEndpoint, imageRequest, utils.BearerAuth(p.apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("%s image request failed: %w", p.name, err)
	}

	return imagesToGeneric(p.name, body)
}

func imagesToGeneric(provider string, body []byte) (*ai.ImageGenerationResponse, error) {
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, ai.MissingField(provider, "data")
	}

	result := &ai.ImageGenerationResponse{}
	for i, item := range data.Array() {
		encoded := item.Get("b64_json")
		if !encoded.Exists() {
			return nil, ai.MissingField(provider, fmt.Sprintf("data.%d.b64_json", i))
		}
		image, err := base64.StdEncoding.DecodeString(encoded.String())
		if err != nil {
			return nil, &ai.TranslationError{Provider: provider, Field: fmt.Sprintf("data.%d.b64_json", i), Err: err}
		}
		result.Images = append(result.Images, image)
	}
	return result, nil
}
