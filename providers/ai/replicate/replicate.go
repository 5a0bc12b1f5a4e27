package replicate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName   = "replicate"
	defaultBaseURL = "https://api.replicate.com/v1"
	defaultModel   = "black-forest-labs/flux-schnell"

	defaultPollInterval = time.Second
)

// ErrPredictionFailed is returned when a prediction ends as failed or canceled.
var ErrPredictionFailed = errors.New("replicate prediction did not succeed")

var capabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationGenerateImage: {
			"black-forest-labs/*",
			"stability-ai/*",
			"bytedance/*",
			"ideogram-ai/*",
			"recraft-ai/*",
		},
	},
	MaxImages: map[string]int{
		"black-forest-labs/flux-schnell":          4,
		"black-forest-labs/flux-dev":              4,
		"black-forest-labs/flux-pro":              1,
		"black-forest-labs/flux-1.1-pro":          1,
		"stability-ai/stable-diffusion-3":         1,
		"stability-ai/stable-diffusion-3.5-large": 1,
	},
}

// ReplicateProvider implements [ai.ImageGenerator].
type ReplicateProvider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	fetcher      ai.ImageFetcher
	pollInterval time.Duration
}

// New creates a Replicate provider from REPLICATE_API_KEY and REPLICATE_API_BASE_URL.
func New() *ReplicateProvider {
	baseURL := os.Getenv("REPLICATE_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &ReplicateProvider{
		apiKey:       os.Getenv("REPLICATE_API_KEY"),
		baseURL:      baseURL,
		client:       &http.Client{},
		pollInterval: defaultPollInterval,
	}
}

// WithAPIKey sets the API key for the provider
func (p *ReplicateProvider) WithAPIKey(apiKey string) *ReplicateProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *ReplicateProvider) WithBaseURL(baseURL string) *ReplicateProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *ReplicateProvider) WithHttpClient(httpClient *http.Client) *ReplicateProvider {
	p.client = httpClient
	return p
}

// WithImageFetcher sets the fetcher used to download prediction outputs.
// Defaults to a plain GET with the provider's HTTP client.
func (p *ReplicateProvider) WithImageFetcher(fetcher ai.ImageFetcher) *ReplicateProvider {
	p.fetcher = fetcher
	return p
}

// WithPollInterval sets the delay between status checks of a prediction that
// outlived the synchronous wait.
func (p *ReplicateProvider) WithPollInterval(interval time.Duration) *ReplicateProvider {
	p.pollInterval = interval
	return p
}

// Name implements [ai.Provider].
func (p *ReplicateProvider) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (p *ReplicateProvider) Capabilities() ai.Capabilities { return capabilities }

func (p *ReplicateProvider) imageFetcher() ai.ImageFetcher {
	if p.fetcher != nil {
		return p.fetcher
	}
	return ai.NewHTTPImageFetcher(p.client)
}

// GenerateImage implements [ai.ImageGenerator].
func (p *ReplicateProvider) GenerateImage(ctx context.Context, request ai.ImageGenerationRequest) (*ai.ImageGenerationResponse, error) {
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, ai.NewValidationError(providerName, "prompt", "prompt must not be empty")
	}
	model := request.Model
	if model == "" {
		model = defaultModel
	}
	endpoint, payload, err := p.predictionFor(model, request)
	if err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: REPLICATE_API_KEY", ai.ErrMissingAPIKey)
	}

	headers := append(utils.BearerAuth(p.apiKey), utils.HeaderOption{Key: "Prefer", Value: "wait"})
	body, err := utils.DoPostSync(ctx, p.client, endpoint, payload, headers...)
	if err != nil {
		return nil, fmt.Errorf("replicate prediction request failed: %w", err)
	}

	body, err = p.awaitPrediction(ctx, body)
	if err != nil {
		return nil, err
	}

	urls, err := outputURLs(body)
	if err != nil {
		return nil, err
	}

	fetcher := p.imageFetcher()
	response := &ai.ImageGenerationResponse{Images: make([][]byte, 0, len(urls))}
	for _, url := range urls {
		image, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("replicate output download failed: %w", err)
		}
		response.Images = append(response.Images, image)
	}
	return response, nil
}

// predictionFor resolves the create-prediction endpoint. "owner/name" uses
// the model's latest version; "owner/name:version" pins one.
func (p *ReplicateProvider) predictionFor(model string, request ai.ImageGenerationRequest) (string, predictionRequest, error) {
	payload := predictionRequest{Input: predictionInput{Prompt: request.Prompt}}
	if count := request.Count(); count > 1 {
		payload.Input.NumOutputs = count
	}

	name, version, pinned := strings.Cut(model, ":")
	owner, modelName, ok := strings.Cut(name, "/")
	if !ok || owner == "" || modelName == "" || strings.Contains(modelName, "/") || (pinned && version == "") {
		return "", predictionRequest{}, ai.NewValidationError(providerName, "model", "model must be owner/name or owner/name:version, got %q", model)
	}

	if pinned {
		payload.Version = version
		return p.baseURL + "/predictions", payload, nil
	}
	return fmt.Sprintf("%s/models/%s/%s/predictions", p.baseURL, owner, modelName), payload, nil
}

// awaitPrediction polls the prediction until it reaches a terminal status
// and returns its final body.
func (p *ReplicateProvider) awaitPrediction(ctx context.Context, body []byte) ([]byte, error) {
	for {
		status := gjson.GetBytes(body, "status")
		if !status.Exists() {
			return nil, ai.MissingField(providerName, "status")
		}

		switch status.String() {
		case statusSucceeded:
			return body, nil
		case statusFailed, statusCanceled:
			return nil, fmt.Errorf("%w: %s: %s", ErrPredictionFailed, status.String(), gjson.GetBytes(body, "error").String())
		case statusStarting, statusProcessing:
		default:
			return nil, &ai.TranslationError{Provider: providerName, Field: "status", Err: fmt.Errorf("unknown status %q", status.String())}
		}

		getURL := gjson.GetBytes(body, "urls.get").String()
		if getURL == "" {
			return nil, ai.MissingField(providerName, "urls.get")
		}
		slog.Debug("replicate prediction still running",
			slog.String("id", gjson.GetBytes(body, "id").String()),
			slog.String("status", status.String()),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.pollInterval):
		}

		var err error
		body, err = utils.DoGet(ctx, p.client, getURL, utils.BearerAuth(p.apiKey)...)
		if err != nil {
			return nil, fmt.Errorf("replicate prediction poll failed: %w", err)
		}
	}
}

// outputURLs reads the prediction output, which is a single URL or a list.
func outputURLs(body []byte) ([]string, error) {
	output := gjson.GetBytes(body, "output")
	switch {
	case output.IsArray():
		var urls []string
		for _, item := range output.Array() {
			urls = append(urls, item.String())
		}
		if len(urls) == 0 {
			return nil, ai.MissingField(providerName, "output.0")
		}
		return urls, nil
	case output.Type == gjson.String && output.String() != "":
		return []string{output.String()}, nil
	default:
		return nil, ai.MissingField(providerName, "output")
	}
}
