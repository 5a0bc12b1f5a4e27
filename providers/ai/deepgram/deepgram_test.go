package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/switchai/providers/ai"
)

func newTestProvider(server *httptest.Server) *DeepgramProvider {
	return New().WithAPIKey("test-key").WithBaseURL(server.URL).WithHttpClient(server.Client())
}

func TestNew(t *testing.T) {
	t.Setenv("DEEPGRAM_API_BASE_URL", "")
	t.Setenv("DEEPGRAM_API_KEY", "env-key")

	provider := New()
	assert.Equal(t, defaultBaseURL, provider.baseURL)
	assert.Equal(t, "env-key", provider.apiKey)
	assert.Equal(t, "deepgram", provider.Name())

	operation, ok := provider.Capabilities().OperationOf("whisper-large")
	require.True(t, ok)
	assert.Equal(t, ai.OperationTranscribe, operation)
}

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/listen", r.URL.Path)
		assert.Equal(t, "nova-2", r.URL.Query().Get("model"))
		assert.Equal(t, "it", r.URL.Query().Get("language"))
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "RIFF....", string(body))

		_, _ = w.Write([]byte(`{"metadata": {"request_id": "r1"}, "results": {"channels": [
			{"alternatives": [{"transcript": "ciao a tutti", "confidence": 0.98}]}
		]}}`))
	}))
	defer server.Close()

	response, err := newTestProvider(server).Transcribe(context.Background(), ai.TranscriptionRequest{
		Model:    "nova-2",
		Audio:    []byte("RIFF...."),
		Filename: "clip.wav",
		Language: "it",
	})
	require.NoError(t, err)
	assert.Equal(t, "ciao a tutti", response.Text)
}

func TestTranscribe_DefaultsAndErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, defaultModel, r.URL.Query().Get("model"))
		assert.False(t, r.URL.Query().Has("language"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"results": {"channels": []}}`))
	}))
	defer server.Close()

	_, err := newTestProvider(server).Transcribe(context.Background(), ai.TranscriptionRequest{})
	var validationErr *ai.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "audio", validationErr.Parameter)

	_, err = New().WithAPIKey("").Transcribe(context.Background(), ai.TranscriptionRequest{Audio: []byte("x")})
	require.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Zero(t, calls)

	_, err = newTestProvider(server).Transcribe(context.Background(), ai.TranscriptionRequest{Audio: []byte("x")})
	require.ErrorIs(t, err, ai.ErrTranslation)
	assert.Equal(t, 1, calls)
}
