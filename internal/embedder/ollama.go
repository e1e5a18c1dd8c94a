// Package embedder provides implementations of the rag.Embedder interface
// for converting text into dense vector embeddings. Each implementation
// talks to a different backend (Ollama, OpenAI, Azure OpenAI) via plain
// HTTP — no additional SDK dependencies are required. All failures are
// classified as embedding faults so the query path can map them cleanly.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/calder-n/notewise/internal/fault"
)

// OllamaEmbedder implements rag.Embedder using the Ollama /api/embed
// endpoint. It is safe for concurrent use. No API key is required —
// Ollama runs locally.
type OllamaEmbedder struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// model is the embedding model name (e.g. "nomic-embed-text").
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name (e.g. "nomic-embed-text").
	Model string
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	return &OllamaEmbedder{
		host:   cfg.Host,
		model:  cfg.Model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// ollamaEmbedRequest is the JSON body sent to the Ollama /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the JSON body returned from the Ollama /api/embed endpoint.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice. Empty or
// whitespace-only input is rejected before any network call.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInput(texts); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: marshal request: %w", err)
	}

	url := e.host + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.KindEmbedding, "embedding request failed", err)
	}
	defer resp.Body.Close()

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fault.Wrap(fault.KindEmbedding, "embedding response malformed", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, fault.New(fault.KindEmbedding, "ollama embedder: "+msg)
	}

	if err := validateOutput(result.Embeddings, len(texts)); err != nil {
		return nil, err
	}

	return result.Embeddings, nil
}

// validateInput rejects empty batches and empty texts — the embedding
// backends accept them silently and return garbage vectors.
func validateInput(texts []string) error {
	if len(texts) == 0 {
		return fault.New(fault.KindEmbedding, "no text to embed")
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fault.New(fault.KindEmbedding, fmt.Sprintf("text %d is empty", i))
		}
	}
	return nil
}

// validateOutput checks the upstream result is parallel to the input and
// contains no empty vectors.
func validateOutput(embeddings [][]float32, want int) error {
	if len(embeddings) != want {
		return fault.New(fault.KindEmbedding,
			fmt.Sprintf("expected %d embeddings, got %d", want, len(embeddings)))
	}
	for i, v := range embeddings {
		if len(v) == 0 {
			return fault.New(fault.KindEmbedding, fmt.Sprintf("embedding %d is empty", i))
		}
	}
	return nil
}
