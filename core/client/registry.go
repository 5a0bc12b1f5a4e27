package client

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/leofalp/switchai/providers/ai"
	"github.com/leofalp/switchai/providers/ai/anthropic"
	"github.com/leofalp/switchai/providers/ai/deepgram"
	"github.com/leofalp/switchai/providers/ai/gemini"
	"github.com/leofalp/switchai/providers/ai/mistral"
	"github.com/leofalp/switchai/providers/ai/openai"
	"github.com/leofalp/switchai/providers/ai/replicate"
	"github.com/leofalp/switchai/providers/ai/voyage"
)

// ErrUnknownProvider is returned by [New] for a name missing from the registry.
var ErrUnknownProvider = errors.New("switchai: unknown provider")

// Factory builds a provider from the client options.
type Factory func(options ClientOptions) (ai.Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"openai":    func(o ClientOptions) (ai.Provider, error) { return configure(openai.New(), o), nil },
		"xai":       func(o ClientOptions) (ai.Provider, error) { return configure(openai.NewXAI(), o), nil },
		"anthropic": func(o ClientOptions) (ai.Provider, error) { return configure(anthropic.New(), o), nil },
		"mistral":   func(o ClientOptions) (ai.Provider, error) { return configure(mistral.New(), o), nil },
		"google":    newGemini,
		"gemini":    newGemini,
		"voyageai":  func(o ClientOptions) (ai.Provider, error) { return configure(voyage.New(), o), nil },
		"deepgram":  func(o ClientOptions) (ai.Provider, error) { return configure(deepgram.New(), o), nil },
		"replicate": newReplicate,
	}
)

// Register adds or replaces a provider factory. Names are case-insensitive.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// Providers returns the registered provider names, sorted.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q, supported providers are: %s", ErrUnknownProvider, name, strings.Join(sortedKeys(registry), ", "))
	}
	return factory, nil
}

func sortedKeys(m map[string]Factory) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// builder is the configuration surface shared by every provider.
type builder[P any] interface {
	WithAPIKey(apiKey string) P
	WithBaseURL(baseURL string) P
	WithHttpClient(httpClient *http.Client) P
}

// configure applies the non-empty options to a freshly built provider.
func configure[P builder[P]](provider P, o ClientOptions) P {
	if o.APIKey != "" {
		provider = provider.WithAPIKey(o.APIKey)
	}
	if o.BaseURL != "" {
		provider = provider.WithBaseURL(o.BaseURL)
	}
	if o.HTTPClient != nil {
		provider = provider.WithHttpClient(o.HTTPClient)
	}
	return provider
}

func newGemini(o ClientOptions) (ai.Provider, error) {
	provider := configure(gemini.New(), o)
	if o.ImageFetcher != nil {
		provider.WithImageFetcher(o.ImageFetcher)
	}
	return provider, nil
}

func newReplicate(o ClientOptions) (ai.Provider, error) {
	provider := configure(replicate.New(), o)
	if o.ImageFetcher != nil {
		provider.WithImageFetcher(o.ImageFetcher)
	}
	return provider, nil
}
