package client

import (
	"log/slog"
	"net/http"

	"github.com/leofalp/switchai/providers/ai"
)

// ClientOptions configures a Client. Provider settings are applied by the
// registry factories in [New] and ignored by [NewWithProvider].
type ClientOptions struct {
	// APIKey overrides the provider's <PROVIDER>_API_KEY environment variable.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// HTTPClient is used for every request the provider sends.
	HTTPClient *http.Client

	// ImageFetcher downloads remote images for providers that only accept
	// inline bytes (gemini) or return image URLs (replicate).
	ImageFetcher ai.ImageFetcher

	// Logger receives coercion warnings and capability diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Middlewares wrap every provider call, outermost first.
	Middlewares []MiddlewareConfig
}

// WithAPIKey sets the API key passed to the provider.
func WithAPIKey(apiKey string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.APIKey = apiKey
	}
}

// WithBaseURL sets the provider endpoint, e.g. a proxy or a local mock.
func WithBaseURL(baseURL string) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.BaseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client used by the provider.
func WithHTTPClient(httpClient *http.Client) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.HTTPClient = httpClient
	}
}

// WithImageFetcher sets the collaborator used to download remote images.
func WithImageFetcher(fetcher ai.ImageFetcher) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.ImageFetcher = fetcher
	}
}

// WithLogger sets the logger used by the dispatcher.
func WithLogger(logger *slog.Logger) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Logger = logger
	}
}

// WithMiddleware appends middlewares to the chain. It can be passed several
// times; entries keep their order across calls.
func WithMiddleware(middlewares ...MiddlewareConfig) func(*ClientOptions) {
	return func(o *ClientOptions) {
		o.Middlewares = append(o.Middlewares, middlewares...)
	}
}
