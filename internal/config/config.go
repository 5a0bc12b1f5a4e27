// Package config loads the YAML configuration of the switchai command.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leofalp/switchai/core/cost"
)

// Config represents the command configuration parsed from YAML.
//
//	log_level: info
//	timeout: 60s
//	defaults:
//	  chat:       {provider: anthropic, model: claude-3-5-haiku-latest}
//	  embed:      {provider: voyageai, model: voyage-3}
//	  transcribe: {provider: deepgram, model: nova-2}
//	  image:      {provider: replicate, model: black-forest-labs/flux-schnell}
//	providers:
//	  anthropic:
//	    api_key_env: ANTHROPIC_KEY
//	  openai:
//	    base_url: http://localhost:8080/v1
//	pricing:
//	  claude-3-5-haiku*: {input_cost_per_million: 0.8, output_cost_per_million: 4}
type Config struct {
	LogLevel  string                    `yaml:"log_level"`
	Timeout   time.Duration             `yaml:"timeout"`
	Defaults  Defaults                  `yaml:"defaults"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Pricing   cost.PriceTable           `yaml:"pricing"`
}

// Defaults selects the provider and model used by each command when the
// command line does not name them.
type Defaults struct {
	Chat       Target `yaml:"chat"`
	Embed      Target `yaml:"embed"`
	Transcribe Target `yaml:"transcribe"`
	Image      Target `yaml:"image"`
}

// Target is a provider and model pair.
type Target struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ProviderConfig overrides the environment-derived settings of one provider.
// APIKey and APIKeyEnv are mutually exclusive.
type ProviderConfig struct {
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

// ResolveAPIKey returns the configured key, reading APIKeyEnv when set. An
// empty result leaves the provider's own <PROVIDER>_API_KEY lookup in place.
func (p ProviderConfig) ResolveAPIKey() string {
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return p.APIKey
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn or error, got %q", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}

	targets := map[string]Target{
		"chat":       c.Defaults.Chat,
		"embed":      c.Defaults.Embed,
		"transcribe": c.Defaults.Transcribe,
		"image":      c.Defaults.Image,
	}
	for name, target := range targets {
		if strings.TrimSpace(target.Model) != "" && strings.TrimSpace(target.Provider) == "" {
			return fmt.Errorf("defaults.%s: model %q needs a provider", name, target.Model)
		}
	}

	for name, provider := range c.Providers {
		if err := validateProvider(name, provider); err != nil {
			return err
		}
	}

	for model, price := range c.Pricing {
		if err := price.Validate(); err != nil {
			return fmt.Errorf("pricing %s: %w", model, err)
		}
	}

	return nil
}

func validateProvider(name string, provider ProviderConfig) error {
	if provider.APIKey != "" && provider.APIKeyEnv != "" {
		return fmt.Errorf("provider %s: api_key and api_key_env are mutually exclusive", name)
	}

	if provider.BaseURL != "" {
		parsed, err := url.Parse(provider.BaseURL)
		if err != nil {
			return fmt.Errorf("provider %s: invalid base_url: %w", name, err)
		}
		if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("provider %s: base_url must be an absolute http(s) URL, got %q", name, provider.BaseURL)
		}
	}

	return nil
}

// Target returns the default target of command, one of chat, embed,
// transcribe or image.
func (c Config) Target(command string) Target {
	switch command {
	case "chat":
		return c.Defaults.Chat
	case "embed":
		return c.Defaults.Embed
	case "transcribe":
		return c.Defaults.Transcribe
	case "image":
		return c.Defaults.Image
	default:
		return Target{}
	}
}

// Provider returns the settings of name; provider names are case-insensitive.
func (c Config) Provider(name string) ProviderConfig {
	for key, provider := range c.Providers {
		if strings.EqualFold(key, name) {
			return provider
		}
	}
	return ProviderConfig{}
}
