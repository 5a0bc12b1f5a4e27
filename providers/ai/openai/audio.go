package openai

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	defaultTranscriptionModel = "whisper-1"
	defaultAudioFilename      = "audio.mp3"
)

// Transcribe implements [ai.Transcriber] with the whisper transcription
// endpoint, uploading the audio as multipart form data.
func (p *OpenAIProvider) Transcribe(ctx context.Context, request ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	if len(request.Audio) == 0 {
		return nil, ai.NewValidationError(p.name, "audio", "audio must not be empty")
	}
	if err := p.checkAPIKey(); err != nil {
		return nil, err
	}

	model := request.Model
	if model == "" {
		model = defaultTranscriptionModel
	}
	filename := request.Filename
	if filename == "" {
		filename = defaultAudioFilename
	}

	body, err := utils.DoPostMultipart(ctx, p.client, p.baseURL+transcriptionsEndpoint,
		map[string]string{"model": model, "language": request.Language},
		utils.MultipartFile{Field: "file", Filename: filename, Data: request.Audio},
		utils.BearerAuth(p.apiKey)...,
	)
	if err != nil {
		return nil, fmt.Errorf("%s transcription request failed: %w", p.name, err)
	}

	text := gjson.GetBytes(body, "text")
	if !text.Exists() {
		return nil, ai.MissingField(p.name, "text")
	}
	return &ai.TranscriptionResponse{Text: text.String()}, nil
}
