package embedder

import (
	"fmt"

	"github.com/calder-n/notewise/internal/rag"
)

// Default embedding models and dimensions per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ — override via Config.Dimensions.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// Config holds the resolved embedding settings. It is populated from the
// application config at startup and passed in explicitly — implementations
// never sniff the environment to decide which backend is live.
type Config struct {
	// Provider selects the backend: ollama, openai, azure. Default: ollama.
	Provider string
	// Model overrides the backend's default embedding model.
	Model string
	// Dimensions overrides the backend's default vector size.
	Dimensions int
	// Endpoint overrides the backend's default API endpoint.
	Endpoint string
	// APIKey is the credential for openai/azure backends.
	APIKey string
	// APIVersion is the Azure OpenAI API version (azure only).
	APIVersion string
}

// VectorSize returns the effective embedding vector size for the config.
// Callers that pre-configure the vector store (Qdrant collection creation)
// should use this rather than hardcoding a value.
func (c *Config) VectorSize() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	switch c.Provider {
	case "", "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// New constructs a rag.Embedder from the given config.
func New(cfg *Config) (rag.Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		host := cfg.Endpoint
		if host == "" {
			host = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		return NewOllamaEmbedder(&OllamaConfig{Host: host, Model: model}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: openai backend requires an API key")
		}
		baseURL := cfg.Endpoint
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "azure":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an API key")
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedder: azure backend requires an endpoint")
		}
		apiVersion := cfg.APIVersion
		if apiVersion == "" {
			apiVersion = "2025-04-01-preview"
		}
		model := cfg.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    cfg.Endpoint + "/openai",
			APIKey:     cfg.APIKey,
			Model:      model,
			Dimensions: cfg.Dimensions,
			Azure:      true,
			APIVersion: apiVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q — valid values: ollama, openai, azure", cfg.Provider)
	}
}
