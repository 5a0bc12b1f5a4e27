package anthropic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

// writeSSE writes a typed SSE event and flushes so the client receives it
// immediately. Anthropic repeats the event type inside the data payload.
func writeSSE(w http.ResponseWriter, eventType, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// TestStreamChat_TextAndToolCall streams a text block followed by a tool_use
// block and checks both the raw deltas and the collected response.
func TestStreamChat_TextAndToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.GetBytes(body, "stream").Bool())
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, "message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-5-sonnet-latest","usage":{"input_tokens":25,"output_tokens":1}}}`)
		writeSSE(w, "content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		writeSSE(w, "ping", `{"type":"ping"}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Checking"}}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" now"}}`)
		writeSSE(w, "content_block_stop", `{"type":"content_block_stop","index":0}`)
		writeSSE(w, "content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"weather","input":{}}}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\": "}}`)
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"Oslo\"}"}}`)
		writeSSE(w, "content_block_stop", `{"type":"content_block_stop","index":1}`)
		writeSSE(w, "message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":17}}`)
		writeSSE(w, "message_stop", `{"type":"message_stop"}`)
	}))
	defer server.Close()

	stream, err := newTestProvider(server).StreamChat(context.Background(), ai.ChatRequest{
		Model:     "claude-3-5-sonnet-latest",
		MaxTokens: utils.Ptr(100),
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: "Weather in Oslo?"}},
	})
	require.NoError(t, err)

	response, err := stream.Collect()
	require.NoError(t, err)

	assert.Equal(t, "msg_1", response.ID)
	assert.Equal(t, "claude-3-5-sonnet-latest", response.Model)
	require.Len(t, response.Choices, 1)
	choice := response.Choices[0]
	assert.Equal(t, "Checking now", choice.Message.Content)
	assert.Equal(t, ai.FinishReasonToolCalls, choice.FinishReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "toolu_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "weather", choice.ToolCalls[0].Function.Name)
	assert.Equal(t, map[string]any{"city": "Oslo"}, choice.ToolCalls[0].Function.Arguments)

	require.NotNil(t, response.Usage)
	assert.Equal(t, 25, *response.Usage.InputTokens)
	assert.Equal(t, 17, *response.Usage.OutputTokens)
	require.NotNil(t, response.Usage.TotalTokens)
	assert.Equal(t, 42, *response.Usage.TotalTokens)
}

// TestStreamChat_ErrorEvent verifies an Anthropic error event ends the
// stream with an error after the deltas already received.
func TestStreamChat_ErrorEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w, "content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`)
		writeSSE(w, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer server.Close()

	stream, err := newTestProvider(server).StreamChat(context.Background(), ai.ChatRequest{
		MaxTokens: utils.Ptr(100),
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	var contents []string
	var streamErr error
	for delta, iterErr := range stream.Iter() {
		if iterErr != nil {
			streamErr = iterErr
			break
		}
		contents = append(contents, delta.Choices[0].Message.Content)
	}
	assert.Equal(t, []string{"Hel"}, contents)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "overloaded_error")
}

// TestStreamChat_Non2xx verifies a rejected stream fails before iteration.
func TestStreamChat_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	stream, err := newTestProvider(server).StreamChat(context.Background(), ai.ChatRequest{
		MaxTokens: utils.Ptr(100),
		Messages:  []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	assert.Nil(t, stream)
	var statusErr *utils.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

// TestStreamEventToGeneric maps single events in isolation: the adapter is
// stateless, so each case stands alone.
func TestStreamEventToGeneric(t *testing.T) {
	t.Run("ping → nothing", func(t *testing.T) {
		response, err := streamEventToGeneric([]byte(`{"type":"ping"}`))
		require.NoError(t, err)
		assert.Nil(t, response)
	})

	t.Run("message_stop → nothing", func(t *testing.T) {
		response, err := streamEventToGeneric([]byte(`{"type":"message_stop"}`))
		require.NoError(t, err)
		assert.Nil(t, response)
	})

	t.Run("text delta → no usage", func(t *testing.T) {
		response, err := streamEventToGeneric([]byte(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"x"}}`))
		require.NoError(t, err)
		assert.Nil(t, response.Usage)
		assert.Equal(t, "x", response.Choices[0].Message.Content)
	})

	t.Run("argument fragment → index of the content block", func(t *testing.T) {
		response, err := streamEventToGeneric([]byte(`{"type":"content_block_delta","index":2,"delta":{"type":"input_json_delta","partial_json":"{\"a\""}}`))
		require.NoError(t, err)
		require.Len(t, response.Choices[0].ToolCalls, 1)
		assert.Equal(t, 2, response.Choices[0].ToolCalls[0].Index)
		assert.Equal(t, `{"a"`, response.Choices[0].ToolCalls[0].ArgumentsDelta)
	})

	t.Run("message_delta → finish reason and output usage", func(t *testing.T) {
		response, err := streamEventToGeneric([]byte(`{"type":"message_delta","delta":{"stop_reason":"max_tokens"},"usage":{"output_tokens":9}}`))
		require.NoError(t, err)
		assert.Equal(t, ai.FinishReasonLength, response.Choices[0].FinishReason)
		assert.Nil(t, response.Usage.InputTokens)
		assert.Equal(t, 9, *response.Usage.OutputTokens)
	})

	t.Run("missing type → translation error", func(t *testing.T) {
		_, err := streamEventToGeneric([]byte(`{"index":0}`))
		assert.ErrorIs(t, err, ai.ErrTranslation)
	})
}
