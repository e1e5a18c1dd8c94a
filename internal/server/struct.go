package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/calder-n/notewise/internal/answer"
	"github.com/calder-n/notewise/internal/ingestion"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.NewFromEnv] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /ready.
	// If empty, /ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on note and query routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Debug includes root-cause detail in JSON error bodies. Never enable
	// in production — upstream errors can carry connection strings.
	Debug bool
	// MetricsRegistry receives the server's Prometheus metrics. Defaults
	// to prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// Deps are the domain components the handlers delegate to. All fields are
// required except Pingers-related ones carried in Config.
type Deps struct {
	// Searcher answers similarity queries on the question and search paths.
	Searcher rag.Searcher
	// Notes resolves matched ids back to canonical note records.
	Notes noteResolver
	// Generator produces the final answer from question plus context.
	Generator answerer
	// Ingestor runs the durable persist → embed → index workflow.
	Ingestor ingester
	// Deleter removes a note from both stores.
	Deleter deleter
}

// noteResolver is the slice of the note store the query path needs: a
// single-round-trip multi-id fetch. Tests inject a fake.
type noteResolver interface {
	GetMany(ctx context.Context, ids []string) (map[string]note.Note, error)
}

// answerer is the interface handleAsk calls to generate an answer.
// *answer.Generator satisfies it; tests inject a fake.
type answerer interface {
	Generate(ctx context.Context, question, contextBlock string, variant answer.Variant) (answer.Result, error)
	ModelID(variant answer.Variant) string
}

// ingester runs an ingestion workflow. *ingestion.Pipeline satisfies it.
type ingester interface {
	Ingest(ctx context.Context, req ingestion.Request) (ingestion.Result, error)
}

// deleter removes a note from both stores. *ingestion.Deleter satisfies it.
type deleter interface {
	Delete(ctx context.Context, id string) error
}

// Server is the HTTP server exposing the notewise question, note, and
// search endpoints.
type Server struct {
	// deps holds the domain components the handlers call.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askResponse is the JSON response for GET /.
type askResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Question echoes the question that was answered.
	Question string `json:"question"`
	// Context is the list of retrieved note texts injected into the
	// generation call, in descending score order. Empty when nothing
	// relevant was found.
	Context []string `json:"context"`
	// MatchCount is the number of matches that survived the threshold.
	MatchCount int `json:"matchCount"`
}

// createNoteRequest is the JSON body for POST /notes.
type createNoteRequest struct {
	// Text is the note content. Required, non-empty.
	Text string `json:"text"`
	// Metadata is an optional free-form key-value map.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// createNoteResponse is the JSON response for POST /notes.
type createNoteResponse struct {
	// Success is true when the full workflow completed.
	Success bool `json:"success"`
	// RecordID is the id of the created note.
	RecordID string `json:"recordId"`
	// WorkflowID names the ingestion workflow for replay.
	WorkflowID string `json:"workflowId"`
	// Message is a short human-readable confirmation.
	Message string `json:"message"`
	// Text echoes the stored note text.
	Text string `json:"text"`
}

// searchResult is one element of the GET /search response.
type searchResult struct {
	// ID is the matched note's id.
	ID string `json:"id"`
	// Score is the raw similarity score from the index.
	Score float32 `json:"score"`
	// NormalizedScore is the score divided by the best score in the set.
	NormalizedScore float32 `json:"normalizedScore"`
	// Text is the note's canonical text, falling back to the truncated
	// copy in the vector payload when the record is missing.
	Text string `json:"text"`
	// Metadata is the payload stored with the vector entry.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// searchResponse is the JSON response for GET /search.
type searchResponse struct {
	// Query echoes the search query.
	Query string `json:"query"`
	// Count is the number of results returned.
	Count int `json:"count"`
	// Results is the ordered result list, best match first.
	Results []searchResult `json:"results"`
}

// errorResponse is the stable JSON error body for all failure paths.
type errorResponse struct {
	// Error is the stable, caller-safe message.
	Error string `json:"error"`
	// Detail carries the root cause. Only populated when Config.Debug is set.
	Detail string `json:"detail,omitempty"`
}
