package deepgram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName   = "deepgram"
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"

	listenEndpoint = "/listen"

	transcriptPath = "results.channels.0.alternatives.0.transcript"
)

var capabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationTranscribe: {
			"nova-3",
			"nova-2",
			"nova-2-*",
			"nova",
			"enhanced",
			"base",
			"whisper-tiny",
			"whisper-small",
			"whisper-base",
			"whisper-medium",
			"whisper-large",
		},
	},
}

// DeepgramProvider implements [ai.Transcriber].
type DeepgramProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a Deepgram provider from DEEPGRAM_API_KEY and DEEPGRAM_API_BASE_URL.
func New() *DeepgramProvider {
	baseURL := os.Getenv("DEEPGRAM_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &DeepgramProvider{
		apiKey:  os.Getenv("DEEPGRAM_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the provider
func (p *DeepgramProvider) WithAPIKey(apiKey string) *DeepgramProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *DeepgramProvider) WithBaseURL(baseURL string) *DeepgramProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *DeepgramProvider) WithHttpClient(httpClient *http.Client) *DeepgramProvider {
	p.client = httpClient
	return p
}

// Name implements [ai.Provider].
func (p *DeepgramProvider) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (p *DeepgramProvider) Capabilities() ai.Capabilities { return capabilities }

// Transcribe implements [ai.Transcriber].
func (p *DeepgramProvider) Transcribe(ctx context.Context, request ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	if len(request.Audio) == 0 {
		return nil, ai.NewValidationError(providerName, "audio", "audio must not be empty")
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY", ai.ErrMissingAPIKey)
	}

	model := request.Model
	if model == "" {
		model = defaultModel
	}
	query := url.Values{"model": {model}}
	if request.Language != "" {
		query.Set("language", request.Language)
	}

	body, err := utils.DoPostRaw(ctx, p.client, p.baseURL+listenEndpoint+"?"+query.Encode(), audioContentType(request.Filename), request.Audio,
		utils.HeaderOption{Key: "Authorization", Value: "Token " + p.apiKey},
	)
	if err != nil {
		return nil, fmt.Errorf("deepgram transcription request failed: %w", err)
	}

	transcript := gjson.GetBytes(body, transcriptPath)
	if !transcript.Exists() {
		return nil, ai.MissingField(providerName, transcriptPath)
	}
	return &ai.TranscriptionResponse{Text: transcript.String()}, nil
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".webm": "audio/webm",
}

// audioContentType picks the mime type from the file extension. Deepgram
// sniffs the container itself when the type is generic.
func audioContentType(filename string) string {
	if contentType, ok := audioTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return contentType
	}
	return "application/octet-stream"
}
