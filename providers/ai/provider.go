package ai

import (
	"context"
	"slices"
	"strings"
)

// Operation names a dispatcher entry point.
type Operation string

const (
	OperationChat          Operation = "chat"
	OperationEmbed         Operation = "embed"
	OperationTranscribe    Operation = "transcribe"
	OperationGenerateImage Operation = "generate_image"
)

// Provider is implemented by every provider variant. The operations it can
// serve are expressed through the optional interfaces below, detected with a
// type assertion, e.g. provider.(Embedder).
type Provider interface {
	// Name returns the provider identity used in errors and logs.
	Name() string

	// Capabilities describes the provider's models and parameter rules, which
	// the dispatcher enforces before delegating.
	Capabilities() Capabilities
}

// ChatProvider sends chat completion requests.
type ChatProvider interface {
	Provider
	// Chat sends a request and returns the completed response. Request
	// validation failures are returned before any network call.
	Chat(ctx context.Context, request ChatRequest) (*ChatResponse, error)
}

// StreamProvider is implemented by chat providers with native streaming.
// Pre-stream errors (validation, auth, non-2xx) are returned directly;
// mid-stream errors are yielded through the iterator.
type StreamProvider interface {
	ChatProvider
	StreamChat(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// Embedder computes embeddings.
type Embedder interface {
	Provider
	Embed(ctx context.Context, request EmbeddingRequest) (*EmbeddingResponse, error)
}

// Transcriber converts speech to text.
type Transcriber interface {
	Provider
	Transcribe(ctx context.Context, request TranscriptionRequest) (*TranscriptionResponse, error)
}

// ImageGenerator creates images from a text prompt.
type ImageGenerator interface {
	Provider
	GenerateImage(ctx context.Context, request ImageGenerationRequest) (*ImageGenerationResponse, error)
}

// ImageFetcher downloads a remote image for providers that only accept
// inline image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AllModels as the only entry of a model list matches every model.
const AllModels = "*"

// Capabilities describes what a provider accepts. Model lists hold exact
// names or prefixes ending in "*".
type Capabilities struct {
	// Models lists the known models per operation. A model missing from every
	// list is passed through unchecked.
	Models map[Operation][]string

	// MaxChoices caps ChatRequest.N; 0 means unlimited.
	MaxChoices int

	// RequiresMaxTokens makes ChatRequest.MaxTokens mandatory.
	RequiresMaxTokens bool

	// VisionModels lists chat models that accept image parts.
	VisionModels []string

	// MultimodalEmbeddingModels lists embedding models that accept images.
	MultimodalEmbeddingModels []string

	// MaxImages caps ImageGenerationRequest.N per model; absent means unlimited.
	MaxImages map[string]int
}

// OperationOf returns the operation a known model belongs to.
func (capabilities Capabilities) OperationOf(model string) (Operation, bool) {
	// Iterate in a fixed order so overlapping prefixes resolve deterministically.
	for _, operation := range []Operation{OperationChat, OperationEmbed, OperationTranscribe, OperationGenerateImage} {
		if matchModel(capabilities.Models[operation], model) {
			return operation, true
		}
	}
	return "", false
}

// SupportsVision reports whether model accepts image parts in chat.
func (capabilities Capabilities) SupportsVision(model string) bool {
	return matchModel(capabilities.VisionModels, model)
}

// SupportsImageEmbedding reports whether model can embed images.
func (capabilities Capabilities) SupportsImageEmbedding(model string) bool {
	return matchModel(capabilities.MultimodalEmbeddingModels, model)
}

// ImageLimit returns the maximum number of images model can produce per
// call, or 0 when unlimited.
func (capabilities Capabilities) ImageLimit(model string) int {
	return capabilities.MaxImages[model]
}

func matchModel(patterns []string, model string) bool {
	return slices.ContainsFunc(patterns, func(pattern string) bool {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			return strings.HasPrefix(model, prefix)
		}
		return pattern == model
	})
}
