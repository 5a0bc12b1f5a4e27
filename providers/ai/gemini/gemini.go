package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const (
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash-lite" // Most cost-effective model
)

// settings is the connection configuration shared by the provider and the
// sessions it binds. Sessions hold a copy, so later builder calls on the
// provider do not affect sessions already bound.
type settings struct {
	apiKey  string
	baseURL string
	client  *http.Client
	fetcher ai.ImageFetcher
}

func (s settings) headers() []utils.HeaderOption {
	return []utils.HeaderOption{{Key: "x-goog-api-key", Value: s.apiKey}}
}

func (s settings) checkAPIKey() error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ai.ErrMissingAPIKey)
	}
	return nil
}

// imageFetcher returns the configured fetcher or a plain HTTP one sharing the
// provider's client.
func (s settings) imageFetcher() ai.ImageFetcher {
	if s.fetcher != nil {
		return s.fetcher
	}
	return ai.NewHTTPImageFetcher(s.client)
}

// GeminiProvider is the unbound Gemini handle. It serves embeddings directly
// and binds a [Session] per chat call.
type GeminiProvider struct {
	settings
}

// New creates a new Gemini provider instance with default values from environment.
// Environment variables:
//   - GEMINI_API_KEY: API key for authentication
//   - GEMINI_API_BASE_URL: Base URL for API (optional, defaults to Google's API)
func New() *GeminiProvider {
	baseURL := os.Getenv("GEMINI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{settings: settings{
		apiKey:  os.Getenv("GEMINI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}}
}

// WithAPIKey sets the API key for the provider.
func (p *GeminiProvider) WithAPIKey(apiKey string) *GeminiProvider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API.
func (p *GeminiProvider) WithBaseURL(baseURL string) *GeminiProvider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient sets a custom HTTP client.
func (p *GeminiProvider) WithHttpClient(httpClient *http.Client) *GeminiProvider {
	p.client = httpClient
	return p
}

// WithImageFetcher sets the collaborator used to download remote images.
// By default images are fetched with the provider's HTTP client.
func (p *GeminiProvider) WithImageFetcher(fetcher ai.ImageFetcher) *GeminiProvider {
	p.fetcher = fetcher
	return p
}

// Name implements [ai.Provider].
func (p *GeminiProvider) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (p *GeminiProvider) Capabilities() ai.Capabilities { return capabilities }

// Bind returns a session that sends systemInstruction with every request.
func (p *GeminiProvider) Bind(systemInstruction string) *Session {
	return &Session{settings: p.settings, system: systemInstruction}
}

// bindRequest validates the caller's messages and binds a session from the
// leading system message, returning the remaining history.
func (p *GeminiProvider) bindRequest(request ai.ChatRequest) (*Session, ai.ChatRequest, error) {
	if err := ai.ValidateMessages(providerName, request.Messages); err != nil {
		return nil, request, err
	}
	system, history := ai.SplitSystem(request.Messages)
	session := p.Bind(system)
	session.offset = len(request.Messages) - len(history)
	request.Messages = history
	return session, request, nil
}

// Chat implements [ai.ChatProvider] by binding a session for this request.
func (p *GeminiProvider) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	session, history, err := p.bindRequest(request)
	if err != nil {
		return nil, err
	}
	return session.Chat(ctx, history)
}

// StreamChat implements [ai.StreamProvider] by binding a session for this request.
func (p *GeminiProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	session, history, err := p.bindRequest(request)
	if err != nil {
		return nil, err
	}
	return session.StreamChat(ctx, history)
}

// Session is a Gemini handle bound to one system instruction. Requests sent
// through a session must not contain a system message. A Session is
// immutable and safe for concurrent use.
type Session struct {
	settings
	system string
	offset int
}

// SystemInstruction returns the instruction the session is bound to.
func (s *Session) SystemInstruction() string { return s.system }

// Name implements [ai.Provider].
func (s *Session) Name() string { return providerName }

// Capabilities implements [ai.Provider].
func (s *Session) Capabilities() ai.Capabilities { return capabilities }

// prepare converts the request, checks credentials and downloads remote
// images, in that order, so that invalid requests never reach the network.
func (s *Session) prepare(ctx context.Context, request ai.ChatRequest) (generateContentRequest, string, error) {
	geminiRequest, downloads, err := requestToGemini(s.system, s.offset, request)
	if err != nil {
		return generateContentRequest{}, "", err
	}
	if err := s.checkAPIKey(); err != nil {
		return generateContentRequest{}, "", err
	}
	if err := resolveImages(ctx, s.imageFetcher(), downloads); err != nil {
		return generateContentRequest{}, "", err
	}

	model := request.Model
	if model == "" {
		model = defaultModel
	}
	return geminiRequest, model, nil
}

// Chat implements [ai.ChatProvider].
func (s *Session) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	geminiRequest, model, err := s.prepare(ctx, request)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", s.baseURL, model)
	body, err := utils.DoPostSync(ctx, s.client, url, geminiRequest, s.headers()...)
	if err != nil {
		return nil, fmt.Errorf("gemini chat request failed: %w", err)
	}

	return generateContentToGeneric(body)
}
