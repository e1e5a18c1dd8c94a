package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calder-n/notewise/internal/fault"
)

// TestNew_Backends covers backend selection and required-credential checks.
func TestNew_Backends(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default is ollama", cfg: Config{}},
		{name: "explicit ollama", cfg: Config{Provider: "ollama", Model: "nomic-embed-text"}},
		{name: "openai with key", cfg: Config{Provider: "openai", APIKey: "sk-test"}},
		{name: "openai missing key", cfg: Config{Provider: "openai"}, wantErr: true},
		{name: "azure missing endpoint", cfg: Config{Provider: "azure", APIKey: "k"}, wantErr: true},
		{name: "azure complete", cfg: Config{Provider: "azure", APIKey: "k", Endpoint: "https://r.openai.azure.com"}},
		{name: "unknown backend", cfg: Config{Provider: "bedrock"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(&tc.cfg)
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestConfig_VectorSize verifies the per-backend dimension defaults and
// the explicit override.
func TestConfig_VectorSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want int
	}{
		{name: "ollama default", cfg: Config{Provider: "ollama"}, want: 768},
		{name: "empty provider defaults to ollama", cfg: Config{}, want: 768},
		{name: "openai default", cfg: Config{Provider: "openai"}, want: 1536},
		{name: "explicit override wins", cfg: Config{Provider: "ollama", Dimensions: 1024}, want: 1024},
	}
	for _, tc := range cases {
		if got := tc.cfg.VectorSize(); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

// TestOllamaEmbed_RoundTrip exercises the Ollama embedder against a fake
// HTTP server.
func TestOllamaEmbed_RoundTrip(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			resp.Embeddings[i] = []float32{0.1, 0.2, 0.3}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"})
	got, err := e.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 3 {
		t.Errorf("unexpected embeddings shape: %v", got)
	}
}

// TestOllamaEmbed_EmptyInput verifies empty text is rejected as an
// embedding fault before any network call.
func TestOllamaEmbed_EmptyInput(t *testing.T) {
	t.Parallel()

	e := NewOllamaEmbedder(&OllamaConfig{Host: "http://localhost:1", Model: "m"})

	for _, texts := range [][]string{nil, {}, {""}, {"ok", "  "}} {
		_, err := e.Embed(context.Background(), texts)
		if err == nil {
			t.Errorf("texts %v: expected error", texts)
			continue
		}
		if !fault.IsKind(err, fault.KindEmbedding) {
			t.Errorf("texts %v: expected embedding fault, got %v", texts, err)
		}
	}
}

// TestOllamaEmbed_MalformedResult verifies that a result with missing or
// empty vectors is rejected.
func TestOllamaEmbed_MalformedResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One embedding for a two-text request.
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "m"})
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	if !fault.IsKind(err, fault.KindEmbedding) {
		t.Errorf("expected embedding fault, got %v", err)
	}
}

// TestOllamaEmbed_UpstreamError verifies HTTP error responses surface the
// backend's message as an embedding fault.
func TestOllamaEmbed_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not loaded"})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "m"})
	_, err := e.Embed(context.Background(), []string{"a"})
	if !fault.IsKind(err, fault.KindEmbedding) {
		t.Fatalf("expected embedding fault, got %v", err)
	}
}

// TestOpenAIEmbed_OutOfOrderData verifies index-based reassembly of the
// OpenAI response.
func TestOpenAIEmbed_OutOfOrderData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[2],"index":1},{"embedding":[1],"index":0}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "text-embedding-3-small"})
	got, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("expected index-ordered embeddings, got %v", got)
	}
}
