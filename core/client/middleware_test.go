package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/switchai/providers/ai"
)

// ========== Chain construction helpers ==========

// callRecorder records whether a middleware was invoked and in what order.
type callRecorder struct {
	order        *[]string
	name         string
	calledSend   bool
	calledStream bool
	calls        []Call
}

func newCallRecorder(name string, sharedOrder *[]string) *callRecorder {
	return &callRecorder{order: sharedOrder, name: name}
}

func (rec *callRecorder) sendMiddleware() Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			rec.calledSend = true
			*rec.order = append(*rec.order, rec.name)

			return next(ctx, request)
		}
	}
}

func (rec *callRecorder) streamMiddleware() StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			rec.calledStream = true
			*rec.order = append(*rec.order, rec.name+"-stream")

			return next(ctx, request)
		}
	}
}

func (rec *callRecorder) invokeMiddleware() InvokeMiddleware {
	return func(next InvokeFunc) InvokeFunc {
		return func(ctx context.Context, call Call) error {
			rec.calls = append(rec.calls, call)
			*rec.order = append(*rec.order, rec.name+"-invoke")

			return next(ctx, call)
		}
	}
}

// ========== buildSendChain tests ==========

func TestBuildSendChain_EmptyMiddlewares(t *testing.T) {
	chain := buildSendChain(newFakeProvider(), nil)

	resp, err := chain(context.Background(), ai.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Choices[0].Message.Content)
}

// TestBuildSendChain_MultipleMiddlewares verifies outermost-first execution order.
func TestBuildSendChain_MultipleMiddlewares(t *testing.T) {
	order := []string{}
	rec1 := newCallRecorder("mw1", &order)
	rec2 := newCallRecorder("mw2", &order)
	rec3 := newCallRecorder("mw3", &order)

	chain := buildSendChain(newFakeProvider(), []MiddlewareConfig{
		{Send: rec1.sendMiddleware()},
		{Send: rec2.sendMiddleware()},
		{Send: rec3.sendMiddleware()},
	})

	_, err := chain(context.Background(), ai.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"mw1", "mw2", "mw3"}, order)
}

// TestBuildSendChain_ShortCircuit verifies that a middleware can return early
// without calling next.
func TestBuildSendChain_ShortCircuit(t *testing.T) {
	fake := newFakeProvider()
	shortCircuitError := errors.New("short-circuit")

	shortCircuit := Middleware(func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			return nil, shortCircuitError
		}
	})

	order := []string{}
	rec := newCallRecorder("after-short-circuit", &order)

	chain := buildSendChain(fake, []MiddlewareConfig{
		{Send: shortCircuit},
		{Send: rec.sendMiddleware()},
	})

	_, err := chain(context.Background(), ai.ChatRequest{})
	require.ErrorIs(t, err, shortCircuitError)
	assert.False(t, rec.calledSend, "inner middleware must not run after a short circuit")
	assert.Empty(t, fake.chatRequests, "provider must not be called after a short circuit")
}

// ========== buildStreamChain tests ==========

// TestBuildStreamChain_SkipsNilStream verifies that entries without a Stream
// variant are bypassed by StreamChat calls.
func TestBuildStreamChain_SkipsNilStream(t *testing.T) {
	order := []string{}
	rec1 := newCallRecorder("mw1", &order)
	rec2 := newCallRecorder("mw2", &order)

	chain := buildStreamChain(newFakeProvider(), []MiddlewareConfig{
		{Send: rec1.sendMiddleware(), Stream: rec1.streamMiddleware()},
		{Send: rec2.sendMiddleware()},
	})

	stream, err := chain(context.Background(), ai.ChatRequest{})
	require.NoError(t, err)
	_, err = stream.Collect()
	require.NoError(t, err)

	assert.True(t, rec1.calledStream)
	assert.False(t, rec2.calledStream || rec2.calledSend, "entry without Stream must be skipped")
	assert.Equal(t, []string{"mw1-stream"}, order)
}

func TestBuildStreamChain_PrefersNativeStreaming(t *testing.T) {
	fake := &fakeStreamProvider{
		fakeProvider: newFakeProvider(),
		deltas:       []*ai.ChatResponse{{Choices: []ai.ChatChoice{{Message: ai.ChatMessage{Content: "streamed"}}}}},
	}

	stream, err := buildStreamChain(fake, nil)(context.Background(), ai.ChatRequest{})
	require.NoError(t, err)
	response, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "streamed", response.Choices[0].Message.Content)
}

// ========== Invoke chain tests ==========

func TestClient_InvokeChainWrapsNonChatCalls(t *testing.T) {
	order := []string{}
	rec1 := newCallRecorder("mw1", &order)
	rec2 := newCallRecorder("mw2", &order)

	c := mustClient(t, newFakeProvider(), "embed-text", WithMiddleware(
		MiddlewareConfig{Send: rec1.sendMiddleware(), Invoke: rec1.invokeMiddleware()},
		MiddlewareConfig{Send: rec2.sendMiddleware(), Invoke: rec2.invokeMiddleware()},
	))

	_, err := c.Embed(context.Background(), ai.EmbeddingRequest{Inputs: ai.TextInputs("a")})
	require.NoError(t, err)
	_, err = c.GenerateImage(context.Background(), ai.ImageGenerationRequest{Model: "paint-1", Prompt: "a fox"})
	require.NoError(t, err)

	assert.Equal(t, []string{"mw1-invoke", "mw2-invoke", "mw1-invoke", "mw2-invoke"}, order)
	assert.False(t, rec1.calledSend, "send middleware must not run for non-chat calls")
	assert.Equal(t, []Call{
		{Provider: "fake", Operation: ai.OperationEmbed, Model: "embed-text"},
		{Provider: "fake", Operation: ai.OperationGenerateImage, Model: "paint-1"},
	}, rec2.calls)
}

func TestClient_InvokeMiddlewareCanReject(t *testing.T) {
	fake := newFakeProvider()
	denied := errors.New("denied")
	reject := MiddlewareConfig{
		Send: func(next SendFunc) SendFunc { return next },
		Invoke: func(next InvokeFunc) InvokeFunc {
			return func(ctx context.Context, call Call) error {
				if call.Operation == ai.OperationTranscribe {
					return denied
				}
				return next(ctx, call)
			}
		},
	}
	c := mustClient(t, fake, "listen-1", WithMiddleware(reject))

	_, err := c.Transcribe(context.Background(), ai.TranscriptionRequest{Audio: []byte("RIFF")})
	require.ErrorIs(t, err, denied)
	assert.Empty(t, fake.transcribed, "provider must not be called")
}

func TestClient_SendChainSeesEnforcedRequest(t *testing.T) {
	var seen ai.ChatRequest
	capture := MiddlewareConfig{Send: func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
			seen = request
			return next(ctx, request)
		}
	}}
	c := mustClient(t, newFakeProvider(), "chat-small", WithMiddleware(capture))

	_, err := c.Chat(context.Background(), ai.ChatRequest{Messages: userMessages("hi"), N: 9})
	require.NoError(t, err)
	assert.Equal(t, "chat-small", seen.Model, "the default model is applied")
	assert.Equal(t, 2, seen.N, "n is coerced")
}
