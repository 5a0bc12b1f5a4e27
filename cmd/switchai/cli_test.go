package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/switchai/core/client"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// newFakeOpenAI serves the OpenAI endpoints the commands use.
func newFakeOpenAI(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer config-key", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/chat/completions":
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), `"stream":true`) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, "data: {\"id\":\"c1\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Bon\"}}]}\n\n")
				fmt.Fprint(w, "data: {\"id\":\"c1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"jour\"},\"finish_reason\":\"stop\"}]}\n\n")
				fmt.Fprint(w, "data: [DONE]\n\n")
				return
			}
			fmt.Fprint(w, `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",
				"choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],
				"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
		case "/embeddings":
			fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small",
				"data":[{"index":0,"embedding":[0.5,0.25]},{"index":1,"embedding":[0.125,1]}],
				"usage":{"prompt_tokens":4,"total_tokens":4}}`)
		case "/images/generations":
			fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`, base64.StdEncoding.EncodeToString(pngHeader))
		case "/audio/transcriptions":
			fmt.Fprint(w, `{"text":"bonjour tout le monde"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	content := fmt.Sprintf(`
defaults:
  chat:
    provider: openai
    model: gpt-4o-mini
  embed:
    provider: openai
    model: text-embedding-3-small
providers:
  openai:
    api_key: config-key
    base_url: %s
pricing:
  gpt-4o-mini*:
    input_cost_per_million: 1000000
    output_cost_per_million: 2000000
`, baseURL)

	path := filepath.Join(t.TempDir(), "switchai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestExecute_Chat(t *testing.T) {
	configPath := writeConfig(t, newFakeOpenAI(t).URL)

	stdout, stderr, err := execute(t, "chat", "--config", configPath, "--usage", "say", "hi")
	require.NoError(t, err)

	assert.Equal(t, "hi there\n", stdout)
	assert.Contains(t, stderr, `usage: {"calls":1,"input_tokens":5,"output_tokens":2,"total_tokens":7}`)
	assert.Contains(t, stderr, `cost: {"input_cost":5,"output_cost":4,"total_cost":9,"currency":"USD"}`)
}

func TestExecute_ChatStream(t *testing.T) {
	configPath := writeConfig(t, newFakeOpenAI(t).URL)

	stdout, _, err := execute(t, "chat", "--config", configPath, "--stream", "greet me")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour\n", stdout)
}

func TestExecute_Embed(t *testing.T) {
	configPath := writeConfig(t, newFakeOpenAI(t).URL)

	stdout, _, err := execute(t, "embed", "--config", configPath, "first", "second")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"index":0,"data":[0.5,0.25]}`, lines[0])
	assert.JSONEq(t, `{"index":1,"data":[0.125,1]}`, lines[1])
}

func TestExecute_Image(t *testing.T) {
	configPath := writeConfig(t, newFakeOpenAI(t).URL)
	out := t.TempDir()

	stdout, stderr, err := execute(t, "image", "--config", configPath, "--provider", "openai", "--model", "dall-e-3", "--n", "3", "--out", out, "a red fox")
	require.NoError(t, err)

	assert.Contains(t, stderr, "warning:")
	paths := strings.Fields(stdout)
	require.Len(t, paths, 1)
	assert.True(t, strings.HasSuffix(paths[0], "-0.png"), "unexpected file name %s", paths[0])

	written, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, pngHeader, written)
}

func TestExecute_Transcribe(t *testing.T) {
	configPath := writeConfig(t, newFakeOpenAI(t).URL)
	audioPath := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("ID3 fake audio"), 0o600))

	stdout, _, err := execute(t, "transcribe", "--config", configPath, "--provider", "openai", "--model", "whisper-1", audioPath)
	require.NoError(t, err)
	assert.Equal(t, "bonjour tout le monde\n", stdout)
}

func TestExecute_Errors(t *testing.T) {
	t.Setenv("SWITCHAI_CONFIG", "")

	_, _, err := execute(t, "unknown")
	assert.ErrorContains(t, err, `unknown command "unknown"`)

	_, _, err = execute(t, "chat", "hello")
	assert.ErrorContains(t, err, "no provider")

	_, _, err = execute(t, "chat", "--provider", "openai")
	assert.ErrorContains(t, err, "requires a prompt")

	_, _, err = execute(t, "chat", "--provider", "cohere", "hello")
	assert.ErrorIs(t, err, client.ErrUnknownProvider)

	_, _, err = execute(t, "transcribe", "--provider", "deepgram")
	assert.ErrorContains(t, err, "exactly one audio file")

	_, _, err = execute(t, "chat", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "hello")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExecute_ProvidersAndHelp(t *testing.T) {
	stdout, _, err := execute(t, "providers")
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(stdout), "replicate")

	stdout, _, err = execute(t)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Commands:")

	_, stderr, err := execute(t, "chat", "-h")
	require.NoError(t, err)
	assert.Contains(t, stderr, "--max-tokens")
}
