package llm

import (
	"fmt"
	"strings"

	"github.com/MorganMind/penrose/internal/model"
)

// NewGenerator creates a text generator based on configuration
func NewGenerator(config Config) (Generator, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, fmt.Errorf("no LLM provider configured (set llm.provider)")

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// NewEmbedder creates an embedder based on configuration.
// An empty provider returns nil: semantic scoring then uses its heuristic fallback.
func NewEmbedder(config Config) (Embedder, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "":
		return nil, nil

	case "anthropic", "claude":
		return nil, fmt.Errorf("anthropic does not offer embeddings (use openai or ollama)")

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:   c.Provider,
		Model:      c.Model,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		MaxTokens:  c.MaxTokens,
		HTTPProxy:  c.HTTPProxy,
		HTTPSProxy: c.HTTPSProxy,
		NoProxy:    c.NoProxy,
	}
}

// EmbeddingConfigFromModel converts model.EmbeddingConfig to llm.Config.
// Proxy settings come from the LLM section, as does the API key when the providers match.
func EmbeddingConfigFromModel(e model.EmbeddingConfig, l model.LLMConfig) Config {
	apiKey := e.APIKey
	if apiKey == "" && strings.EqualFold(e.Provider, l.Provider) {
		apiKey = l.APIKey
	}
	return Config{
		Provider:   e.Provider,
		Model:      e.Model,
		APIKey:     apiKey,
		BaseURL:    e.BaseURL,
		Timeout:    e.Timeout,
		HTTPProxy:  l.HTTPProxy,
		HTTPSProxy: l.HTTPSProxy,
		NoProxy:    l.NoProxy,
	}
}
