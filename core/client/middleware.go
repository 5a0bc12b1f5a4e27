package client

import (
	"context"

	"github.com/leofalp/switchai/providers/ai"
)

// SendFunc is a function that sends a chat request to the provider and returns
// the completed response. It is the base unit threaded through the send middleware chain.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// StreamFunc is a function that sends a chat request to the provider and returns
// a ChatStream for incremental delivery. It is the base unit threaded through the
// stream middleware chain.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Call identifies a non-chat operation (embed, transcribe, generate_image)
// passing through the invoke chain.
type Call struct {
	Provider  string
	Operation ai.Operation
	Model     string
}

// InvokeFunc performs one non-chat call. The response stays with the caller;
// middlewares observe the call identity, the context and the outcome.
type InvokeFunc func(ctx context.Context, call Call) error

// Middleware intercepts and optionally transforms chat requests and responses.
// Each Middleware receives the next SendFunc in the chain and returns a new SendFunc
// that wraps it. Middlewares are applied outermost-first: the first middleware in
// the slice is the outermost wrapper.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware is the streaming counterpart of Middleware. It intercepts
// stream requests and may wrap the returned ChatStream to observe or transform
// the delta sequence.
type StreamMiddleware func(next StreamFunc) StreamFunc

// InvokeMiddleware is the counterpart of Middleware for embed, transcribe and
// generate_image calls.
type InvokeMiddleware func(next InvokeFunc) InvokeFunc

// MiddlewareConfig groups the variants of one middleware. The Send field is
// required; a nil Send causes [New] to return a descriptive error. Stream and
// Invoke are optional: a nil value means those calls bypass this entry.
type MiddlewareConfig struct {
	// Send is the middleware applied to Chat calls. Required.
	Send Middleware

	// Stream is the optional middleware applied to StreamChat calls.
	Stream StreamMiddleware

	// Invoke is the optional middleware applied to Embed, Transcribe and
	// GenerateImage calls.
	Invoke InvokeMiddleware
}

// buildSendChain constructs the linear send middleware chain from the slice of
// MiddlewareConfig values. The base function calls the provider directly. Middlewares
// are applied in reverse order so that the first entry in the slice becomes the
// outermost wrapper, i.e. the first to execute on an incoming request.
func buildSendChain(provider ai.ChatProvider, middlewares []MiddlewareConfig) SendFunc {
	var chain SendFunc = provider.Chat

	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i].Send(chain)
	}

	return chain
}

// buildStreamChain constructs the linear stream middleware chain. The base
// function attempts a native stream via ai.StreamProvider; if the provider does
// not implement that interface it falls back to a synchronous Chat wrapped in a
// single-response stream. Middlewares with a nil Stream field are skipped.
func buildStreamChain(provider ai.ChatProvider, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		if streamProvider, ok := provider.(ai.StreamProvider); ok {
			return streamProvider.StreamChat(ctx, request)
		}

		response, err := provider.Chat(ctx, request)
		if err != nil {
			return nil, err
		}

		return ai.NewSingleResponseStream(response), nil
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}

	return chain
}

// buildInvokeChain wraps base with the non-nil Invoke middlewares. It runs per
// call because the base closes over the request.
func buildInvokeChain(base InvokeFunc, middlewares []MiddlewareConfig) InvokeFunc {
	chain := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Invoke != nil {
			chain = middlewares[i].Invoke(chain)
		}
	}
	return chain
}
