package replicate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/switchai/providers/ai"
)

type fakeFetcher struct {
	urls []string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("img:" + url), nil
}

func newTestProvider(server *httptest.Server, fetcher ai.ImageFetcher) *ReplicateProvider {
	return New().
		WithAPIKey("test-key").
		WithBaseURL(server.URL).
		WithHttpClient(server.Client()).
		WithImageFetcher(fetcher).
		WithPollInterval(time.Millisecond)
}

func TestNew(t *testing.T) {
	t.Setenv("REPLICATE_API_BASE_URL", "")
	t.Setenv("REPLICATE_API_KEY", "env-key")

	provider := New()
	assert.Equal(t, defaultBaseURL, provider.baseURL)
	assert.Equal(t, "env-key", provider.apiKey)
	assert.Equal(t, "replicate", provider.Name())
	assert.Equal(t, 4, provider.Capabilities().ImageLimit("black-forest-labs/flux-schnell"))
	assert.IsType(t, &ai.HTTPImageFetcher{}, provider.imageFetcher())
}

func TestGenerateImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/black-forest-labs/flux-schnell/predictions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "wait", r.Header.Get("Prefer"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"input": {"prompt": "a red fox", "num_outputs": 2}}`, string(body))

		_, _ = w.Write([]byte(`{"id": "p1", "status": "succeeded",
			"output": ["https://replicate.delivery/a.webp", "https://replicate.delivery/b.webp"]}`))
	}))
	defer server.Close()

	fetcher := &fakeFetcher{}
	response, err := newTestProvider(server, fetcher).GenerateImage(context.Background(), ai.ImageGenerationRequest{
		Model:  "black-forest-labs/flux-schnell",
		Prompt: "a red fox",
		N:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://replicate.delivery/a.webp", "https://replicate.delivery/b.webp"}, fetcher.urls)
	require.Len(t, response.Images, 2)
	assert.Equal(t, "img:https://replicate.delivery/a.webp", string(response.Images[0]))
}

func TestGenerateImage_PinnedVersionAndPolling(t *testing.T) {
	polls := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			assert.Equal(t, "/predictions", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"version": "abc123", "input": {"prompt": "a red fox"}}`, string(body))
			_, _ = w.Write([]byte(`{"id": "p2", "status": "starting", "urls": {"get": "` + server.URL + `/predictions/p2"}}`))
		default:
			assert.Equal(t, "/predictions/p2", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			polls++
			if polls < 2 {
				_, _ = w.Write([]byte(`{"id": "p2", "status": "processing", "urls": {"get": "` + server.URL + `/predictions/p2"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id": "p2", "status": "succeeded", "output": "https://replicate.delivery/out.png"}`))
		}
	}))
	defer server.Close()

	fetcher := &fakeFetcher{}
	response, err := newTestProvider(server, fetcher).GenerateImage(context.Background(), ai.ImageGenerationRequest{
		Model:  "stability-ai/sdxl:abc123",
		Prompt: "a red fox",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, polls)
	assert.Equal(t, []string{"https://replicate.delivery/out.png"}, fetcher.urls)
	assert.Len(t, response.Images, 1)
}

func TestGenerateImage_Errors(t *testing.T) {
	calls := 0
	reply := `{"id": "p3", "status": "failed", "error": "NSFW content detected"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(reply))
	}))
	defer server.Close()
	fetcher := &fakeFetcher{}
	provider := newTestProvider(server, fetcher)

	tests := []struct {
		name      string
		model     string
		prompt    string
		parameter string
	}{
		{name: "empty prompt", model: "black-forest-labs/flux-dev", prompt: " ", parameter: "prompt"},
		{name: "model without owner", model: "flux-dev", prompt: "fox", parameter: "model"},
		{name: "empty version", model: "black-forest-labs/flux-dev:", prompt: "fox", parameter: "model"},
		{name: "nested name", model: "a/b/c", prompt: "fox", parameter: "model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.GenerateImage(context.Background(), ai.ImageGenerationRequest{Model: tt.model, Prompt: tt.prompt})
			var validationErr *ai.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.parameter, validationErr.Parameter)
		})
	}

	_, err := New().WithAPIKey("").GenerateImage(context.Background(), ai.ImageGenerationRequest{Prompt: "fox"})
	require.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Zero(t, calls)

	_, err = provider.GenerateImage(context.Background(), ai.ImageGenerationRequest{Prompt: "fox"})
	require.ErrorIs(t, err, ErrPredictionFailed)
	assert.Contains(t, err.Error(), "NSFW content detected")

	reply = `{"id": "p4", "status": "succeeded", "output": null}`
	_, err = provider.GenerateImage(context.Background(), ai.ImageGenerationRequest{Prompt: "fox"})
	require.ErrorIs(t, err, ai.ErrTranslation)

	reply = `{"id": "p5", "status": "succeeded", "output": ["https://replicate.delivery/x.png"]}`
	fetcher.err = errors.New("connection reset")
	_, err = provider.GenerateImage(context.Background(), ai.ImageGenerationRequest{Prompt: "fox"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []string{"https://replicate.delivery/x.png"}, fetcher.urls)
}

func TestGenerateImage_ContextCanceledWhilePolling(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": "p6", "status": "processing", "urls": {"get": "` + server.URL + `/predictions/p6"}}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(server, &fakeFetcher{}).GenerateImage(ctx, ai.ImageGenerationRequest{Prompt: "fox"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
