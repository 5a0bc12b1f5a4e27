package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leofalp/switchai/providers/ai"
)

// Client dispatches unified requests to one provider. The zero value is not
// usable; create clients with [New] or [NewWithProvider].
type Client struct {
	provider     ai.Provider
	capabilities ai.Capabilities
	model        string
	logger       *slog.Logger
	middlewares  []MiddlewareConfig

	send   SendFunc
	stream StreamFunc
}

// New resolves providerName in the registry (openai, xai, anthropic, mistral,
// google/gemini, voyageai, deepgram, replicate), configures it with the given
// options and binds it to model. The model is used when a request leaves its
// Model empty.
//
// Example:
//
//	c, err := client.New("mistral", "mistral-small-latest",
//	    client.WithAPIKey(os.Getenv("MISTRAL_API_KEY")),
//	)
func New(providerName, model string, opts ...func(*ClientOptions)) (*Client, error) {
	options := applyOptions(opts)

	factory, err := lookup(providerName)
	if err != nil {
		return nil, err
	}
	provider, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", providerName, err)
	}

	return newClient(provider, model, options)
}

// NewWithProvider binds an already configured provider to model.
func NewWithProvider(provider ai.Provider, model string, opts ...func(*ClientOptions)) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider must not be nil")
	}
	return newClient(provider, model, applyOptions(opts))
}

func applyOptions(opts []func(*ClientOptions)) ClientOptions {
	options := ClientOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return options
}

func newClient(provider ai.Provider, model string, options ClientOptions) (*Client, error) {
	for i, middleware := range options.Middlewares {
		if middleware.Send == nil {
			return nil, fmt.Errorf("middleware at index %d has a nil Send function", i)
		}
	}

	client := &Client{
		provider:     provider,
		capabilities: provider.Capabilities(),
		model:        model,
		logger:       options.Logger.With(slog.String("provider", provider.Name())),
		middlewares:  options.Middlewares,
	}
	if chatProvider, ok := provider.(ai.ChatProvider); ok {
		client.send = buildSendChain(chatProvider, options.Middlewares)
		client.stream = buildStreamChain(chatProvider, options.Middlewares)
	}
	return client, nil
}

// Provider returns the provider the client dispatches to.
func (c *Client) Provider() ai.Provider { return c.provider }

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Chat sends a chat request. Coerced parameters are reported in the
// response's Warnings.
func (c *Client) Chat(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	request, warnings, err := c.prepareChat(request)
	if err != nil {
		return nil, err
	}

	response, err := c.send(ctx, request)
	if err != nil {
		return nil, err
	}
	response.Warnings = append(response.Warnings, warnings...)

	if overview := ai.OverviewFromContext(ctx); overview != nil {
		overview.AddChat(response)
	}
	return response, nil
}

// StreamChat sends a chat request and returns its deltas. Providers without
// native streaming yield their complete response as a single delta. Coercion
// warnings ride on the first delta.
func (c *Client) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	request, warnings, err := c.prepareChat(request)
	if err != nil {
		return nil, err
	}

	stream, err := c.stream(ctx, request)
	if err != nil {
		return nil, err
	}
	return observeStream(stream, warnings, ai.OverviewFromContext(ctx)), nil
}

// Embed computes one embedding per input.
func (c *Client) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	embedder, ok := c.provider.(ai.Embedder)
	if !ok {
		return nil, c.unsupported(ai.OperationEmbed, request.Model)
	}
	if request.Model == "" {
		request.Model = c.model
	}
	if len(request.Inputs) == 0 {
		return nil, ai.NewValidationError(c.provider.Name(), "inputs", "at least one input is required")
	}
	if err := c.checkModel(ai.OperationEmbed, request.Model); err != nil {
		return nil, err
	}
	if request.HasImages() && !c.acceptsImages(c.capabilities.MultimodalEmbeddingModels, c.capabilities.SupportsImageEmbedding, request.Model) {
		return nil, &ai.CapabilityError{Provider: c.provider.Name(), Model: request.Model, Operation: ai.OperationEmbed, Reason: "model does not embed images"}
	}

	var response *ai.EmbeddingResponse
	err := c.invoke(ctx, ai.OperationEmbed, request.Model, func(ctx context.Context) (err error) {
		response, err = embedder.Embed(ctx, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	if overview := ai.OverviewFromContext(ctx); overview != nil {
		overview.AddEmbedding(response)
	}
	return response, nil
}

// Transcribe converts an audio clip to text.
func (c *Client) Transcribe(ctx context.Context, request ai.TranscriptionRequest) (*ai.TranscriptionResponse, error) {
	transcriber, ok := c.provider.(ai.Transcriber)
	if !ok {
		return nil, c.unsupported(ai.OperationTranscribe, request.Model)
	}
	if request.Model == "" {
		request.Model = c.model
	}
	if len(request.Audio) == 0 {
		return nil, ai.NewValidationError(c.provider.Name(), "audio", "audio must not be empty")
	}
	if err := c.checkModel(ai.OperationTranscribe, request.Model); err != nil {
		return nil, err
	}

	var response *ai.TranscriptionResponse
	err := c.invoke(ctx, ai.OperationTranscribe, request.Model, func(ctx context.Context) (err error) {
		response, err = transcriber.Transcribe(ctx, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	if overview := ai.OverviewFromContext(ctx); overview != nil {
		overview.AddCall()
	}
	return response, nil
}

// GenerateImage creates images from a prompt. A count above the model's limit
// is lowered to the limit and reported in the response's Warnings.
func (c *Client) GenerateImage(ctx context.Context, request ai.ImageGenerationRequest) (*ai.ImageGenerationResponse, error) {
	generator, ok := c.provider.(ai.ImageGenerator)
	if !ok {
		return nil, c.unsupported(ai.OperationGenerateImage, request.Model)
	}
	if request.Model == "" {
		request.Model = c.model
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return nil, ai.NewValidationError(c.provider.Name(), "prompt", "prompt must not be empty")
	}
	if err := c.checkModel(ai.OperationGenerateImage, request.Model); err != nil {
		return nil, err
	}

	var warnings []ai.Warning
	if limit := c.capabilities.ImageLimit(request.Model); limit > 0 && request.Count() > limit {
		warnings = append(warnings, c.coerce("n", request.Count(), limit,
			fmt.Sprintf("%s generates at most %d image(s) per call", request.Model, limit)))
		request.N = limit
	}

	var response *ai.ImageGenerationResponse
	err := c.invoke(ctx, ai.OperationGenerateImage, request.Model, func(ctx context.Context) (err error) {
		response, err = generator.GenerateImage(ctx, request)
		return err
	})
	if err != nil {
		return nil, err
	}
	response.Warnings = append(response.Warnings, warnings...)

	if overview := ai.OverviewFromContext(ctx); overview != nil {
		overview.AddCall(response.Warnings...)
	}
	return response, nil
}

// invoke runs call through the Invoke middlewares.
func (c *Client) invoke(ctx context.Context, operation ai.Operation, model string, call func(ctx context.Context) error) error {
	base := func(ctx context.Context, _ Call) error {
		return call(ctx)
	}
	chain := buildInvokeChain(base, c.middlewares)
	return chain(ctx, Call{Provider: c.provider.Name(), Operation: operation, Model: model})
}

// observeStream attaches warnings to the first delta and records the stream
// in overview once it ends.
func observeStream(stream *ai.ChatStream, warnings []ai.Warning, overview *ai.Overview) *ai.ChatStream {
	if len(warnings) == 0 && overview == nil {
		return stream
	}

	return ai.NewChatStream(func(yield func(*ai.ChatResponse, error) bool) {
		var usage *ai.ChatUsage
		defer func() {
			if overview != nil {
				ai.DeriveTotal(usage)
				overview.AddChat(&ai.ChatResponse{Usage: usage, Warnings: warnings})
			}
		}()

		first := true
		for delta, err := range stream.Iter() {
			if delta != nil {
				usage = ai.MergeUsage(usage, delta.Usage)
				if first && len(warnings) > 0 {
					delta.Warnings = append(delta.Warnings, warnings...)
				}
				first = false
			}
			if !yield(delta, err) || err != nil {
				return
			}
		}
	})
}
