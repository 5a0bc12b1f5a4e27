package middleware

import (
	"context"
	"time"

	"github.com/leofalp/switchai/core/client"
	"github.com/leofalp/switchai/providers/ai"
)

// NewTimeoutMiddleware creates a MiddlewareConfig that enforces a per-request
// deadline on synchronous, streaming and non-chat provider calls.
//
// For Chat, Embed, Transcribe and GenerateImage the context is wrapped with
// context.WithTimeout and canceled once the provider returns.
//
// For StreamChat the cancel function is not deferred immediately. It is
// called once the stream is fully consumed, a mid-stream error occurs, or the
// iterator is abandoned, so the timeout governs the complete lifetime of the
// stream and not just the time to the first byte.
//
// If the caller supplies a context that already has a shorter deadline, that
// shorter deadline wins as per normal context semantics.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
		Invoke: buildInvokeTimeout(timeout),
	}
}

// buildSendTimeout constructs the send middleware that adds a deadline.
func buildSendTimeout(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

// buildStreamTimeout constructs the stream middleware that adds a deadline and
// wraps the resulting ChatStream so the cancel function is called at the
// appropriate moment.
func buildStreamTimeout(timeout time.Duration) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			return wrapStreamWithCancel(stream, cancel), nil
		}
	}
}

// buildInvokeTimeout constructs the invoke middleware that adds a deadline.
func buildInvokeTimeout(timeout time.Duration) client.InvokeMiddleware {
	return func(next client.InvokeFunc) client.InvokeFunc {
		return func(ctx context.Context, call client.Call) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, call)
		}
	}
}

// wrapStreamWithCancel returns a new ChatStream whose iterator calls cancel once
// the stream ends, errors, or the caller breaks out of the loop.
func wrapStreamWithCancel(stream *ai.ChatStream, cancel context.CancelFunc) *ai.ChatStream {
	iteratorFunc := func(yield func(*ai.ChatResponse, error) bool) {
		defer cancel()

		for delta, err := range stream.Iter() {
			if !yield(delta, err) || err != nil {
				return
			}
		}
	}

	return ai.NewChatStream(iteratorFunc)
}
