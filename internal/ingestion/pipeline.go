// Package ingestion manages the note lifecycle across the record store
// and the vector index: the durable three-step pipeline that creates a
// note (persist → embed → index) and the deletion coordinator that
// removes one. Steps are checkpointed independently in a journal, so a
// retried workflow resumes from its first incomplete step instead of
// re-running completed ones.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/logging"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// Step names used as journal keys. Stable — changing one orphans
// checkpoints of in-flight workflows.
const (
	stepPersist = "persist"
	stepEmbed   = "embed"
	stepIndex   = "index"
)

// noteNamespace is the UUIDv5 namespace used to derive a note id from a
// workflow id. The derivation is deterministic, which is what makes a
// retried persist step upsert the same row rather than insert a new one.
var noteNamespace = uuid.MustParse("8f0c2f2e-5df1-4df6-9d4e-52d1a4a9b7c3")

// Config holds the tunables for the ingestion pipeline.
type Config struct {
	// MetadataTextLimit caps the length of the note text copy stored in
	// the vector entry payload. Defaults to 500 if zero.
	MetadataTextLimit int

	// MaxStepRetries is the number of times each individual step is
	// retried with exponential backoff before the workflow fails.
	// Defaults to 3 if zero.
	MaxStepRetries uint64

	// InitialBackoff is the first retry delay. Defaults to 250ms if zero.
	InitialBackoff time.Duration
}

// Request describes a note to ingest.
type Request struct {
	// Text is the note content. Must be non-empty.
	Text string

	// Metadata is the optional caller-supplied key-value map.
	Metadata map[string]string

	// IdempotencyKey, when set, names the workflow. Replaying a request
	// with the same key resumes the original workflow instead of
	// creating a second note. When empty a random key is generated and
	// the request is single-shot.
	IdempotencyKey string
}

// Result is the final outcome of a completed ingestion workflow.
type Result struct {
	// Success is true when all three steps completed.
	Success bool `json:"success"`
	// WorkflowID names the workflow for replay and tracing.
	WorkflowID string `json:"workflowId"`
	// RecordID is the id of the created note.
	RecordID string `json:"recordId"`
	// Text is the stored note text.
	Text string `json:"text"`
	// Metadata is the stored note metadata.
	Metadata map[string]string `json:"metadata"`
	// Timestamp is the note's creation time.
	Timestamp time.Time `json:"timestamp"`
}

// Pipeline orchestrates the persist → embed → index flow. It holds only
// read-only dependencies and is safe to share across requests.
type Pipeline struct {
	// notes is the record store written by the persist step.
	notes note.Store

	// embedder computes the note's vector in the embed step.
	embedder rag.Embedder

	// vectors is the index written by the index step.
	vectors rag.VectorStore

	// journal checkpoints each step's result.
	journal Journal

	// cfg holds the resolved pipeline configuration.
	cfg Config
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(notes note.Store, embedder rag.Embedder, vectors rag.VectorStore, journal Journal, cfg Config) (*Pipeline, error) {
	if notes == nil {
		return nil, fmt.Errorf("ingestion: note store must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("ingestion: vector store must not be nil")
	}
	if journal == nil {
		return nil, fmt.Errorf("ingestion: journal must not be nil")
	}
	if cfg.MetadataTextLimit <= 0 {
		cfg.MetadataTextLimit = 500
	}
	if cfg.MaxStepRetries == 0 {
		cfg.MaxStepRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 250 * time.Millisecond
	}

	return &Pipeline{
		notes:    notes,
		embedder: embedder,
		vectors:  vectors,
		journal:  journal,
		cfg:      cfg,
	}, nil
}

// Ingest runs the three-step workflow for the request. Completed steps
// are skipped on replay; each incomplete step is retried with backoff
// before the workflow as a whole fails. A failure in the embed or index
// step leaves the note persisted — that is the documented inconsistency
// window, resolved by replaying the workflow, not rolled back.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (Result, error) {
	if req.Text == "" {
		return Result{}, fault.New(fault.KindValidation, "text is required and must be a non-empty string")
	}

	workflowID := req.IdempotencyKey
	if workflowID == "" {
		workflowID = uuid.NewString()
	}
	log := logging.FromContext(ctx).With(slog.String("workflow_id", workflowID))

	// Step 1 — persist the note. The note id is derived from the
	// workflow id, so the store-level insert is idempotent on replay.
	var persisted note.Note
	err := p.runStep(ctx, workflowID, stepPersist, &persisted, func(ctx context.Context) (any, error) {
		n, err := p.notes.Create(ctx, note.Note{
			ID:       uuid.NewSHA1(noteNamespace, []byte(workflowID)).String(),
			Text:     req.Text,
			Metadata: req.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("persist note: %w", err)
		}
		return n, nil
	})
	if err != nil {
		return Result{}, err
	}
	log.Debug("ingest: note persisted", slog.String("note_id", persisted.ID))

	// Step 2 — embed the persisted text (not the request text, so a
	// replay embeds exactly what was stored).
	var vector []float32
	err = p.runStep(ctx, workflowID, stepEmbed, &vector, func(ctx context.Context) (any, error) {
		vectors, err := p.embedder.Embed(ctx, []string{persisted.Text})
		if err != nil {
			return nil, fmt.Errorf("embed note text: %w", err)
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return nil, fault.New(fault.KindEmbedding, "embedder returned no vector for note text")
		}
		return vectors[0], nil
	})
	if err != nil {
		return Result{}, err
	}

	// Step 3 — upsert the vector entry with denormalized metadata.
	var indexed bool
	err = p.runStep(ctx, workflowID, stepIndex, &indexed, func(ctx context.Context) (any, error) {
		entry := rag.Entry{
			ID:       persisted.ID,
			Values:   vector,
			Metadata: p.entryMetadata(persisted),
		}
		if err := p.vectors.Upsert(ctx, []rag.Entry{entry}); err != nil {
			return nil, fmt.Errorf("index note vector: %w", err)
		}
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Info("ingest: workflow completed", slog.String("note_id", persisted.ID))

	return Result{
		Success:    true,
		WorkflowID: workflowID,
		RecordID:   persisted.ID,
		Text:       persisted.Text,
		Metadata:   persisted.Metadata,
		Timestamp:  persisted.CreatedAt,
	}, nil
}

// runStep executes a single checkpointed step. A journaled result is
// decoded into out and the step function is skipped entirely. Otherwise
// the step runs under retry with exponential backoff, and its result is
// journaled before control moves on. Validation faults are permanent and
// never retried.
func (p *Pipeline) runStep(ctx context.Context, workflowID, step string, out any, fn func(ctx context.Context) (any, error)) error {
	payload, ok, err := p.journal.Get(ctx, workflowID, step)
	if err != nil {
		return fmt.Errorf("ingestion: step %s: %w", step, err)
	}
	if ok {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("ingestion: step %s: decode checkpoint: %w", step, err)
		}
		logging.FromContext(ctx).Debug("ingest: step already completed, skipping",
			slog.String("workflow_id", workflowID),
			slog.String("step", step),
		)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.InitialBackoff

	var result any
	operation := func() error {
		var opErr error
		result, opErr = fn(ctx)
		if fault.IsKind(opErr, fault.KindValidation) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}
	notify := func(err error, next time.Duration) {
		logging.FromContext(ctx).Warn("ingest: step failed, retrying",
			slog.String("workflow_id", workflowID),
			slog.String("step", step),
			slog.Duration("backoff", next),
			slog.Any("error", err),
		)
	}
	err = backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, p.cfg.MaxStepRetries), ctx),
		notify,
	)
	if err != nil {
		return fmt.Errorf("ingestion: step %s: %w", step, err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("ingestion: step %s: encode checkpoint: %w", step, err)
	}
	if err := p.journal.Put(ctx, workflowID, step, encoded); err != nil {
		return fmt.Errorf("ingestion: step %s: %w", step, err)
	}

	return json.Unmarshal(encoded, out)
}

// entryMetadata builds the denormalized vector payload: a truncated copy
// of the note text, the creation timestamp, and the caller's metadata.
// The record store remains the canonical source for the full text.
func (p *Pipeline) entryMetadata(n note.Note) map[string]string {
	meta := make(map[string]string, len(n.Metadata)+2)
	for k, v := range n.Metadata {
		meta[k] = v
	}
	meta["text"] = truncate(n.Text, p.cfg.MetadataTextLimit)
	meta["created_at"] = n.CreatedAt.UTC().Format(time.RFC3339)
	return meta
}

// truncate shortens s to at most limit bytes without splitting the
// trailing rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && s[limit]&0xC0 == 0x80 {
		limit--
	}
	return s[:limit]
}
