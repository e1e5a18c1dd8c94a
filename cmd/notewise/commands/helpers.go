package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/calder-n/notewise/internal/answer"
	"github.com/calder-n/notewise/internal/embedder"
	"github.com/calder-n/notewise/internal/ingestion"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/provider"
	"github.com/calder-n/notewise/internal/rag"
)

// defaultCollection is the Qdrant collection holding note embeddings.
const defaultCollection = "notewise-notes"

// components bundles the wired domain stack shared by the serve, ask, and
// add commands. Close releases every underlying connection.
type components struct {
	// store is the SQLite note record store.
	store *note.SQLiteStore
	// journal checkpoints ingestion workflow steps.
	journal *ingestion.SQLiteJournal
	// vectors is the Qdrant-backed vector index.
	vectors *rag.QdrantStore
	// embedder converts text to vectors.
	embedder rag.Embedder
	// registry holds the configured search strategies.
	registry *rag.Registry
	// searcher is the semantic strategy resolved from the registry.
	searcher rag.Searcher
	// pipeline runs the durable persist → embed → index workflow.
	pipeline *ingestion.Pipeline
	// deleter removes notes from both stores.
	deleter *ingestion.Deleter
}

// buildComponents wires the full retrieval stack from the resolved
// environment. Callers must Close the result.
func buildComponents(ctx context.Context, log *slog.Logger) (*components, error) {
	embCfg := &embedder.Config{
		Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "ollama")),
		Model:      os.Getenv("EMBEDDING_MODEL"),
		Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		Endpoint:   os.Getenv("EMBEDDING_ENDPOINT"),
		APIKey:     os.Getenv("EMBEDDING_API_KEY"),
		APIVersion: os.Getenv("AZURE_OPENAI_API_VERSION"),
	}
	emb, err := embedder.New(embCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", embCfg.Provider))

	qdrantHost := getEnvOrDefault("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", defaultCollection)

	vectors, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       qdrantHost,
		Port:       qdrantPort,
		Collection: collection,
		VectorSize: uint64(embCfg.VectorSize()), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", qdrantHost, qdrantPort, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", qdrantHost),
		slog.Int("port", qdrantPort),
		slog.String("collection", collection),
	)

	dbPath := os.Getenv("NOTEWISE_NOTES_DB")
	if dbPath == "" {
		dbPath, err = note.DefaultDBPath()
		if err != nil {
			_ = vectors.Close()
			return nil, fmt.Errorf("could not resolve notes DB path: %w", err)
		}
	}
	store, err := note.Open(dbPath)
	if err != nil {
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to open note store: %w", err)
	}
	journal, err := ingestion.OpenJournal(dbPath)
	if err != nil {
		_ = store.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to open ingestion journal: %w", err)
	}
	log.Info("note store opened", slog.String("path", dbPath))

	searcher, err := rag.NewSearcher(emb, vectors, rag.SearchOptions{})
	if err != nil {
		_ = journal.Close()
		_ = store.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to create searcher: %w", err)
	}
	registry := rag.NewRegistry()
	registry.Register(rag.StrategySemantic, searcher)

	pipeline, err := ingestion.NewPipeline(store, emb, vectors, journal, ingestion.Config{})
	if err != nil {
		_ = journal.Close()
		_ = store.Close()
		_ = vectors.Close()
		return nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	return &components{
		store:    store,
		journal:  journal,
		vectors:  vectors,
		embedder: emb,
		registry: registry,
		searcher: searcher,
		pipeline: pipeline,
		deleter:  ingestion.NewDeleter(store, vectors),
	}, nil
}

// Close releases all connections held by the component stack.
func (c *components) Close() {
	_ = c.journal.Close()
	_ = c.store.Close()
	_ = c.vectors.Close()
}

// providerConfigFromEnv assembles the chat model provider config from the
// resolved environment.
func providerConfigFromEnv() *provider.Config {
	backend := provider.Backend(getEnvOrDefault("MODEL_PROVIDER", "ollama"))

	cfg := &provider.Config{
		Backend:     backend,
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 4096),
		Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
	}

	switch backend {
	case provider.BackendOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	case provider.BackendAzure:
		cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		cfg.BaseURL = os.Getenv("AZURE_OPENAI_ENDPOINT")
		cfg.AzureAPIVersion = os.Getenv("AZURE_OPENAI_API_VERSION")
	case provider.BackendBedrock:
		cfg.APIKey = os.Getenv("BEDROCK_API_KEY")
		cfg.BaseURL = os.Getenv("BEDROCK_ENDPOINT")
	case provider.BackendGemini:
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	default:
		cfg.BaseURL = os.Getenv("OLLAMA_HOST")
	}

	return cfg
}

// modelNames resolves the fast and advanced model identifiers for the
// selected backend, falling back to sensible per-backend defaults.
func modelNames(backend provider.Backend) (fast, advanced string) {
	switch backend {
	case provider.BackendOpenAI:
		return getEnvOrDefault("OPENAI_FAST_MODEL", "gpt-4o-mini"),
			getEnvOrDefault("OPENAI_ADVANCED_MODEL", "gpt-4o")
	case provider.BackendAzure:
		return getEnvOrDefault("AZURE_OPENAI_FAST_DEPLOYMENT", "gpt-4o-mini"),
			getEnvOrDefault("AZURE_OPENAI_ADVANCED_DEPLOYMENT", "gpt-4o")
	case provider.BackendBedrock:
		return getEnvOrDefault("BEDROCK_FAST_MODEL_ID", "anthropic.claude-3-haiku-20240307-v1:0"),
			getEnvOrDefault("BEDROCK_ADVANCED_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0")
	case provider.BackendGemini:
		return getEnvOrDefault("GEMINI_FAST_MODEL", "gemini-2.0-flash"),
			getEnvOrDefault("GEMINI_ADVANCED_MODEL", "gemini-2.5-pro")
	default:
		return getEnvOrDefault("OLLAMA_FAST_MODEL", "llama3.2"),
			getEnvOrDefault("OLLAMA_ADVANCED_MODEL", "llama3.3:70b")
	}
}

// buildGenerator constructs the answer generator with one chat model per
// variant, both on the same configured backend.
func buildGenerator(ctx context.Context, log *slog.Logger) (*answer.Generator, error) {
	cfg := providerConfigFromEnv()
	fastName, advancedName := modelNames(cfg.Backend)

	fast, err := provider.New(ctx, cfg, fastName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise fast model %q: %w", fastName, err)
	}
	advanced, err := provider.New(ctx, cfg, advancedName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise advanced model %q: %w", advancedName, err)
	}

	log.Info("models initialised",
		slog.String("backend", string(cfg.Backend)),
		slog.String("fast", fastName),
		slog.String("advanced", advancedName),
	)

	return answer.NewGenerator(answer.Models{
		Fast:       fast,
		FastID:     fastName,
		Advanced:   advanced,
		AdvancedID: advancedName,
	})
}

// getEnvOrDefault returns the env var value or fallback if unset/empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as int, or fallback if unset or
// unparseable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvFloat32 returns the env var parsed as float32, or fallback if
// unset or unparseable.
func getEnvFloat32(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
