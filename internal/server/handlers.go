package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/calder-n/notewise/internal/answer"
	"github.com/calder-n/notewise/internal/budget"
	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/ingestion"
	"github.com/calder-n/notewise/internal/logging"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// defaultQuestion is answered by GET / when no text parameter is supplied.
const defaultQuestion = "What do my notes say?"

// modelHeader carries the resolved model identifier on GET / responses so
// callers can audit which variant actually answered.
const modelHeader = "X-Notewise-Model"

// Retrieval defaults per endpoint. The question path keeps the context
// tight (few, highly relevant notes feed the prompt); the search path is
// broader since the caller sees scores and judges relevance themselves.
const (
	askTopK         = 5
	askThreshold    = 0.7
	searchTopK      = 10
	searchThreshold = 0.5
)

// handleAsk handles GET / — the full retrieve-and-answer path: embed the
// question, search the index, resolve matches to canonical notes, build
// the context block, and generate the answer.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	question := r.URL.Query().Get("text")
	if question == "" {
		question = defaultQuestion
	}
	variant := answer.ResolveVariant(r.URL.Query().Get("model"))

	matches, err := s.deps.Searcher.Search(ctx, question, rag.SearchOptions{
		TopK:      askTopK,
		Threshold: askThreshold,
	})
	if err != nil {
		s.observeAnswer(outcomeError, start)
		s.writeError(w, r, err)
		return
	}

	notes, err := s.resolveMatches(r, matches)
	if err != nil {
		s.observeAnswer(outcomeError, start)
		s.writeError(w, r, err)
		return
	}

	// Keep the prompt within the smallest supported model window. Matches
	// arrive ranked, so trimming drops the weakest ones first.
	notes = budget.TrimNotes(notes, budget.DefaultMaxContextTokens)

	contexts := make([]string, 0, len(notes))
	for _, n := range notes {
		contexts = append(contexts, n.Text)
	}

	result, err := s.deps.Generator.Generate(ctx, question, answer.BuildContext(notes), variant)
	if err != nil {
		s.observeAnswer(outcomeError, start)
		s.writeError(w, r, err)
		return
	}

	s.observeAnswer(outcomeOK, start)
	w.Header().Set(modelHeader, result.Model)
	writeJSON(w, http.StatusOK, askResponse{
		Answer:     result.Text,
		Question:   question,
		Context:    contexts,
		MatchCount: len(matches),
	})
}

// handleSearch handles GET /search — retrieval without generation.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, r, fault.New(fault.KindValidation, "query parameter 'q' is required"))
		return
	}

	matches, err := s.deps.Searcher.Search(ctx, query, rag.SearchOptions{
		TopK:      searchTopK,
		Threshold: searchThreshold,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resolved, err := s.deps.Notes.GetMany(ctx, matchIDs(matches))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		// The record store is canonical for text; the truncated copy in
		// the vector payload covers a note deleted mid-request.
		text := m.Metadata["text"]
		if n, ok := resolved[m.ID]; ok {
			text = n.Text
		}
		results = append(results, searchResult{
			ID:              m.ID,
			Score:           m.Score,
			NormalizedScore: m.NormalizedScore,
			Text:            text,
			Metadata:        m.Metadata,
		})
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	})
}

// handleCreateNote handles POST /notes by running the ingestion workflow.
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fault.Wrap(fault.KindValidation, "request body must be a JSON object with a string 'text' field", err))
		return
	}

	result, err := s.deps.Ingestor.Ingest(r.Context(), ingestion.Request{
		Text:           req.Text,
		Metadata:       req.Metadata,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.metrics.notesIngestedTotal.Inc()
	logging.FromContext(r.Context()).Info("note created",
		slog.String("note_id", result.RecordID),
		slog.String("workflow_id", result.WorkflowID),
	)

	writeJSON(w, http.StatusCreated, createNoteResponse{
		Success:    result.Success,
		RecordID:   result.RecordID,
		WorkflowID: result.WorkflowID,
		Message:    "note stored and indexed",
		Text:       result.Text,
	})
}

// handleDeleteNote handles DELETE /notes/{id}.
func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Deleter.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resolveMatches joins matches back to their canonical note records,
// preserving match order and silently skipping ids whose note no longer
// exists (deleted after indexing — an accepted partial state).
func (s *Server) resolveMatches(r *http.Request, matches []rag.Match) ([]note.Note, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	resolved, err := s.deps.Notes.GetMany(r.Context(), matchIDs(matches))
	if err != nil {
		return nil, err
	}

	notes := make([]note.Note, 0, len(matches))
	for _, m := range matches {
		if n, ok := resolved[m.ID]; ok {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

// observeAnswer records the outcome and latency of one question request.
func (s *Server) observeAnswer(outcome string, start time.Time) {
	s.metrics.answerRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.answerDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// matchIDs extracts the note ids from a match sequence.
func matchIDs(matches []rag.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}
