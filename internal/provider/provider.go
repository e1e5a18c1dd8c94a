// Package provider constructs LLM chat model backends for the answer
// generator. The backend is selected by explicit configuration at startup
// — never inferred from the environment of an individual request.
// Supported backends: Ollama, OpenAI, Azure OpenAI, Bedrock-compatible
// (via the Ark runtime), and Google Gemini.
package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects a Bedrock-compatible endpoint via Ark.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds provider-level settings shared by every model the factory
// constructs. The model name itself is passed per call to [New], because
// the answer generator builds one model per variant (fast, advanced) from
// the same backend config.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// BaseURL overrides the default API endpoint (required for Azure
	// and Bedrock-compatible endpoints).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	// Unused for Ollama.
	APIKey string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// MaxTokens caps the number of tokens generated per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// ChatModel is the subset of the eino chat model surface the answer
// generator needs. *every* eino-ext model satisfies it.
type ChatModel = model.BaseChatModel

// Factory constructs a ChatModel for a named model on a configured
// backend. Implementations must be safe to call from multiple goroutines.
type Factory interface {
	// New constructs a ready-to-use ChatModel running modelName.
	New(ctx context.Context, cfg *Config, modelName string) (ChatModel, error)
}
