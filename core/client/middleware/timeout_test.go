package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leofalp/switchai/core/client"
	"github.com/leofalp/switchai/providers/ai"
)

// ========== Helpers ==========

// textDelta builds a single-choice delta carrying content.
func textDelta(content string) *ai.ChatResponse {
	return &ai.ChatResponse{Choices: []ai.ChatChoice{{Message: ai.ChatMessage{Content: content}}}}
}

// makeSendFunc returns a SendFunc that sleeps for the given duration before
// returning, simulating a slow provider.
func makeSendFunc(sleep time.Duration, resp *ai.ChatResponse, err error) client.SendFunc {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
		select {
		case <-time.After(sleep):
			return resp, err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// makeStreamFunc returns a StreamFunc that sleeps for the given duration before
// yielding its deltas.
func makeStreamFunc(sleep time.Duration) client.StreamFunc {
	return func(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		return ai.NewChatStream(func(yield func(*ai.ChatResponse, error) bool) {
			select {
			case <-time.After(sleep):
				if !yield(textDelta("hello"), nil) {
					return
				}
				yield(&ai.ChatResponse{Choices: []ai.ChatChoice{{FinishReason: ai.FinishReasonStop}}}, nil)
			case <-ctx.Done():
				yield(nil, ctx.Err())
			}
		}), nil
	}
}

// makeInvokeFunc returns an InvokeFunc that waits like makeSendFunc.
func makeInvokeFunc(sleep time.Duration) client.InvokeFunc {
	return func(ctx context.Context, _ client.Call) error {
		select {
		case <-time.After(sleep):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ========== Send timeout tests ==========

func TestTimeoutMiddleware_SendCompletesBeforeTimeout(t *testing.T) {
	fast := makeSendFunc(0, textDelta("ok"), nil)

	mw := NewTimeoutMiddleware(100 * time.Millisecond)
	resp, err := mw.Send(fast)(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Choices[0].Message.Content != "ok" {
		t.Errorf("expected 'ok', got %q", resp.Choices[0].Message.Content)
	}
}

func TestTimeoutMiddleware_SendExceedsTimeout(t *testing.T) {
	slow := makeSendFunc(200*time.Millisecond, nil, nil)

	mw := NewTimeoutMiddleware(20 * time.Millisecond)
	_, err := mw.Send(slow)(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

// TestTimeoutMiddleware_ExistingShorterDeadline verifies that the caller's
// shorter deadline wins over the middleware's timeout.
func TestTimeoutMiddleware_ExistingShorterDeadline(t *testing.T) {
	slow := makeSendFunc(200*time.Millisecond, nil, nil)
	mw := NewTimeoutMiddleware(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mw.Send(slow)(ctx, ai.ChatRequest{})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed > 80*time.Millisecond {
		t.Errorf("expected cancellation near 20ms, elapsed %v", elapsed)
	}
}

// ========== Stream timeout tests ==========

func TestTimeoutMiddleware_StreamCompletesBeforeTimeout(t *testing.T) {
	mw := NewTimeoutMiddleware(100 * time.Millisecond)

	stream, err := mw.Stream(makeStreamFunc(0))(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if response.Choices[0].Message.Content != "hello" {
		t.Errorf("expected 'hello', got %q", response.Choices[0].Message.Content)
	}
	if response.Choices[0].FinishReason != ai.FinishReasonStop {
		t.Errorf("expected stop, got %q", response.Choices[0].FinishReason)
	}
}

// TestTimeoutMiddleware_StreamExceedsTimeout verifies that the deadline covers
// the stream body and surfaces as a mid-stream error.
func TestTimeoutMiddleware_StreamExceedsTimeout(t *testing.T) {
	mw := NewTimeoutMiddleware(20 * time.Millisecond)

	stream, err := mw.Stream(makeStreamFunc(200*time.Millisecond))(context.Background(), ai.ChatRequest{})
	if err != nil {
		t.Fatalf("unexpected pre-stream error: %v", err)
	}

	for _, iterErr := range collectErrors(stream) {
		if errors.Is(iterErr, context.DeadlineExceeded) {
			return
		}
	}
	t.Error("expected DeadlineExceeded as a stream error")
}

func TestBuildStreamTimeout_PreStreamError(t *testing.T) {
	providerErr := errors.New("authentication failed")
	failing := func(_ context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
		return nil, providerErr
	}

	stream, err := buildStreamTimeout(time.Second)(failing)(context.Background(), ai.ChatRequest{})
	if stream != nil {
		t.Error("expected nil stream on pre-stream error")
	}
	if !errors.Is(err, providerErr) {
		t.Errorf("expected providerErr, got %v", err)
	}
}

// ========== Invoke timeout tests ==========

func TestTimeoutMiddleware_Invoke(t *testing.T) {
	mw := NewTimeoutMiddleware(20 * time.Millisecond)
	call := client.Call{Provider: "voyageai", Operation: ai.OperationEmbed, Model: "voyage-3"}

	if err := mw.Invoke(makeInvokeFunc(0))(context.Background(), call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := mw.Invoke(makeInvokeFunc(200*time.Millisecond))(context.Background(), call)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

// ========== wrapStreamWithCancel tests ==========

func TestWrapStreamWithCancel_MidStreamError(t *testing.T) {
	midStreamErr := errors.New("connection reset mid-stream")

	rawStream := ai.NewChatStream(func(yield func(*ai.ChatResponse, error) bool) {
		if !yield(textDelta("partial"), nil) {
			return
		}
		yield(nil, midStreamErr)
	})

	cancelCalled := false
	wrapped := wrapStreamWithCancel(rawStream, func() { cancelCalled = true })

	response, err := wrapped.Collect()
	if !errors.Is(err, midStreamErr) {
		t.Errorf("expected midStreamErr, got %v", err)
	}
	if response.Choices[0].Message.Content != "partial" {
		t.Errorf("expected partial content, got %q", response.Choices[0].Message.Content)
	}
	if !cancelCalled {
		t.Error("expected cancel to be called after mid-stream error")
	}
}

// TestWrapStreamWithCancel_EarlyBreak verifies that cancel runs when the
// consumer stops reading early.
func TestWrapStreamWithCancel_EarlyBreak(t *testing.T) {
	rawStream := ai.NewChatStream(func(yield func(*ai.ChatResponse, error) bool) {
		if !yield(textDelta("first"), nil) {
			return
		}
		yield(textDelta("second"), nil)
	})

	cancelCalled := make(chan struct{})
	wrapped := wrapStreamWithCancel(rawStream, func() { close(cancelCalled) })

	for delta, err := range wrapped.Iter() {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if delta.Choices[0].Message.Content != "first" {
			t.Errorf("expected 'first', got %q", delta.Choices[0].Message.Content)
		}
		break
	}

	select {
	case <-cancelCalled:
	case <-time.After(time.Second):
		t.Fatal("cancel was not called within 1s after early break")
	}
}

// collectErrors drains a ChatStream and returns all non-nil iterator errors.
func collectErrors(stream *ai.ChatStream) []error {
	var errs []error
	for _, err := range stream.Iter() {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
