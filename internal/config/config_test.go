package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/switchai/core/cost"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "switchai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
timeout: 45s
defaults:
  chat:
    provider: anthropic
    model: claude-3-5-haiku-latest
  image:
    provider: replicate
providers:
  Anthropic:
    api_key_env: SWITCHAI_TEST_ANTHROPIC
  openai:
    api_key: sk-test
    base_url: http://localhost:8080/v1
pricing:
  claude-3-5-haiku*:
    input_cost_per_million: 0.8
    output_cost_per_million: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, Target{Provider: "anthropic", Model: "claude-3-5-haiku-latest"}, cfg.Target("chat"))
	assert.Equal(t, Target{Provider: "replicate"}, cfg.Target("image"))
	assert.Equal(t, Target{}, cfg.Target("embed"))
	assert.Equal(t, Target{}, cfg.Target("unknown"))

	t.Setenv("SWITCHAI_TEST_ANTHROPIC", "from-env")
	assert.Equal(t, "from-env", cfg.Provider("anthropic").ResolveAPIKey())
	assert.Equal(t, "sk-test", cfg.Provider("OpenAI").ResolveAPIKey())
	assert.Equal(t, "http://localhost:8080/v1", cfg.Provider("openai").BaseURL)
	assert.Equal(t, ProviderConfig{}, cfg.Provider("mistral"))

	price, ok := cfg.Pricing.Lookup("claude-3-5-haiku-latest")
	require.True(t, ok)
	assert.Equal(t, cost.ModelCost{InputCostPerMillion: 0.8, OutputCostPerMillion: 4}, price)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "defaults: [unclosed"))
	assert.ErrorContains(t, err, "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "empty config is valid", config: Config{}},
		{name: "bad log level", config: Config{LogLevel: "trace"}, wantErr: "log_level"},
		{name: "negative timeout", config: Config{Timeout: -time.Second}, wantErr: "timeout"},
		{
			name:    "model without provider",
			config:  Config{Defaults: Defaults{Embed: Target{Model: "voyage-3"}}},
			wantErr: "defaults.embed",
		},
		{
			name:    "api key and env both set",
			config:  Config{Providers: map[string]ProviderConfig{"openai": {APIKey: "a", APIKeyEnv: "B"}}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "relative base url",
			config:  Config{Providers: map[string]ProviderConfig{"openai": {BaseURL: "localhost:8080"}}},
			wantErr: "base_url",
		},
		{
			name:    "negative price",
			config:  Config{Pricing: cost.PriceTable{"gpt-4o": {InputCostPerMillion: -1}}},
			wantErr: "pricing gpt-4o",
		},
		{
			name:   "https base url",
			config: Config{Providers: map[string]ProviderConfig{"mistral": {BaseURL: "https://proxy.internal/v1"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
