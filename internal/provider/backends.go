package provider

import (
	"context"
	"fmt"

	einoark "github.com/cloudwego/eino-ext/components/model/ark"
	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"google.golang.org/genai"
)

// New constructs a ChatModel for modelName on the configured backend. It
// validates the config first so callers get a clear error at startup
// rather than on the first request.
func New(ctx context.Context, cfg *Config, modelName string) (ChatModel, error) {
	if modelName == "" {
		return nil, fmt.Errorf("provider: model name must not be empty")
	}
	switch cfg.Backend {
	case "", BackendOllama:
		return newOllama(ctx, cfg, modelName)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg, modelName)
	case BackendAzure:
		return newAzure(ctx, cfg, modelName)
	case BackendBedrock:
		return newBedrock(ctx, cfg, modelName)
	case BackendGemini:
		return newGemini(ctx, cfg, modelName)
	default:
		return nil, fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, bedrock, gemini", cfg.Backend)
	}
}

// newOllama constructs a ChatModel backed by a local Ollama instance.
func newOllama(ctx context.Context, cfg *Config, modelName string) (ChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		BaseURL: baseURL,
		Model:   modelName,
	})
}

// newOpenAI constructs a ChatModel backed by the OpenAI API.
func newOpenAI(ctx context.Context, cfg *Config, modelName string) (ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: API key is required for openai backend")
	}
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       modelName,
		APIKey:      cfg.APIKey,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
	})
}

// newAzure constructs a ChatModel backed by Azure OpenAI Service. The
// model name doubles as the deployment name.
func newAzure(ctx context.Context, cfg *Config, modelName string) (ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: API key is required for azure backend")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("provider: endpoint is required for azure backend")
	}
	return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       modelName,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		ByAzure:     true,
		APIVersion:  cfg.AzureAPIVersion,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		// Use the deployment name as-is — the default mapper strips dots/colons
		// which breaks deployment names like "gpt-4.1".
		AzureModelMapperFunc: func(model string) string { return model },
	})
}

// newBedrock constructs a ChatModel for a Bedrock-compatible endpoint via
// the Ark runtime.
func newBedrock(ctx context.Context, cfg *Config, modelName string) (ChatModel, error) {
	maxTokens := cfg.MaxTokens
	temp := cfg.Temperature
	return einoark.NewChatModel(ctx, &einoark.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
		Model:       modelName,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   &maxTokens,
		Temperature: &temp,
	})
}

// newGemini constructs a ChatModel backed by Google Gemini.
func newGemini(ctx context.Context, cfg *Config, modelName string) (ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: API key is required for gemini backend")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}
	return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
		Client: client,
		Model:  modelName,
	})
}
