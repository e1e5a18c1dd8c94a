package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calder-n/notewise/internal/fault"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// --- fakes ---

type memStore struct {
	mu          sync.Mutex
	notes       map[string]note.Note
	createCalls int
	createErr   error
	deleteErr   error
}

func newMemStore() *memStore {
	return &memStore{notes: make(map[string]note.Note)}
}

func (s *memStore) Create(_ context.Context, n note.Note) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return note.Note{}, s.createErr
	}
	if existing, ok := s.notes[n.ID]; ok {
		return existing, nil
	}
	n.CreatedAt = time.Now().UTC().Truncate(time.Second)
	s.notes[n.ID] = n
	return n, nil
}

func (s *memStore) Get(_ context.Context, id string) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return note.Note{}, note.ErrNoteNotFound
	}
	return n, nil
}

func (s *memStore) GetMany(_ context.Context, ids []string) (map[string]note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]note.Note)
	for _, id := range ids {
		if n, ok := s.notes[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.notes, id)
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

type memEmbedder struct {
	mu       sync.Mutex
	calls    int
	failNext int
}

func (e *memEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failNext > 0 {
		e.failNext--
		return nil, errors.New("embedder unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type memVectors struct {
	mu        sync.Mutex
	entries   map[string]rag.Entry
	deleted   []string
	upsertErr error
	deleteErr error
}

func newMemVectors() *memVectors {
	return &memVectors{entries: make(map[string]rag.Entry)}
}

func (v *memVectors) Upsert(_ context.Context, entries []rag.Entry) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.upsertErr != nil {
		return v.upsertErr
	}
	for _, e := range entries {
		v.entries[e.ID] = e
	}
	return nil
}

func (v *memVectors) Query(context.Context, []float32, int) ([]rag.Match, error) {
	return nil, nil
}

func (v *memVectors) Delete(_ context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deleted = append(v.deleted, ids...)
	if v.deleteErr != nil {
		return v.deleteErr
	}
	for _, id := range ids {
		delete(v.entries, id)
	}
	return nil
}

func (v *memVectors) Ping(context.Context) error { return nil }
func (v *memVectors) Close() error               { return nil }

type memJournal struct {
	mu    sync.Mutex
	steps map[string][]byte
}

func newMemJournal() *memJournal {
	return &memJournal{steps: make(map[string][]byte)}
}

func (j *memJournal) Get(_ context.Context, workflowID, step string) ([]byte, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	payload, ok := j.steps[workflowID+"/"+step]
	return payload, ok, nil
}

func (j *memJournal) Put(_ context.Context, workflowID, step string, payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.steps[workflowID+"/"+step] = payload
	return nil
}

func testConfig() Config {
	return Config{
		MetadataTextLimit: 500,
		MaxStepRetries:    1,
		InitialBackoff:    time.Millisecond,
	}
}

// --- pipeline ---

func TestIngestHappyPath(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	vectors := newMemVectors()
	p, err := NewPipeline(store, &memEmbedder{}, vectors, newMemJournal(), testConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	res, err := p.Ingest(context.Background(), Request{
		Text:     "water the plants on friday",
		Metadata: map[string]string{"topic": "chores"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Success {
		t.Error("expected Success to be true")
	}
	if res.WorkflowID == "" || res.RecordID == "" {
		t.Errorf("expected generated ids, got workflow %q record %q", res.WorkflowID, res.RecordID)
	}
	if res.Text != "water the plants on friday" {
		t.Errorf("unexpected result text %q", res.Text)
	}

	if store.count() != 1 {
		t.Fatalf("expected 1 stored note, got %d", store.count())
	}
	entry, ok := vectors.entries[res.RecordID]
	if !ok {
		t.Fatalf("expected vector entry for %s", res.RecordID)
	}
	if entry.Metadata["text"] != "water the plants on friday" {
		t.Errorf("unexpected payload text %q", entry.Metadata["text"])
	}
	if entry.Metadata["topic"] != "chores" {
		t.Errorf("caller metadata not carried into payload: %v", entry.Metadata)
	}
	if _, err := time.Parse(time.RFC3339, entry.Metadata["created_at"]); err != nil {
		t.Errorf("payload created_at is not RFC3339: %v", err)
	}
}

func TestIngestEmptyTextRejected(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	p, err := NewPipeline(store, &memEmbedder{}, newMemVectors(), newMemJournal(), testConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, err = p.Ingest(context.Background(), Request{Text: ""})
	if !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if store.createCalls != 0 {
		t.Errorf("store touched for invalid request: %d create calls", store.createCalls)
	}
}

// A workflow that fails at the embed step leaves the note persisted.
// Replaying it with the same idempotency key must skip the persist
// checkpoint and finish without creating a second note.
func TestIngestResumeAfterEmbedFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	vectors := newMemVectors()
	embedder := &memEmbedder{failNext: 10}
	journal := newMemJournal()
	p, err := NewPipeline(store, embedder, vectors, journal, testConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	req := Request{Text: "call the dentist", IdempotencyKey: "wf-dentist"}

	_, err = p.Ingest(context.Background(), req)
	if err == nil {
		t.Fatal("expected first attempt to fail at the embed step")
	}
	if store.count() != 1 {
		t.Fatalf("expected note persisted despite embed failure, got %d rows", store.count())
	}
	if len(vectors.entries) != 0 {
		t.Fatalf("expected no vector entry after embed failure, got %d", len(vectors.entries))
	}
	createsAfterFirst := store.createCalls

	embedder.mu.Lock()
	embedder.failNext = 0
	embedder.mu.Unlock()

	res, err := p.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("replay created a duplicate note: %d rows", store.count())
	}
	if store.createCalls != createsAfterFirst {
		t.Errorf("replay re-ran the persist step: %d -> %d create calls", createsAfterFirst, store.createCalls)
	}
	if _, ok := vectors.entries[res.RecordID]; !ok {
		t.Errorf("replay did not index the note")
	}
}

func TestIngestRetriesTransientStepFailure(t *testing.T) {
	t.Parallel()

	embedder := &memEmbedder{failNext: 1}
	p, err := NewPipeline(newMemStore(), embedder, newMemVectors(), newMemJournal(), testConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := p.Ingest(context.Background(), Request{Text: "buy milk"}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if embedder.calls != 2 {
		t.Errorf("expected 2 embed calls (1 failure + 1 retry), got %d", embedder.calls)
	}
}

// The note id is derived from the workflow id, so independent replays of
// the same idempotency key (fresh journal, as after a crash that lost it)
// still converge on a single record.
func TestIngestDeterministicNoteID(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	vectors := newMemVectors()
	req := Request{Text: "rotate the api keys", IdempotencyKey: "wf-rotate"}

	var ids []string
	for range 2 {
		p, err := NewPipeline(store, &memEmbedder{}, vectors, newMemJournal(), testConfig())
		if err != nil {
			t.Fatalf("NewPipeline: %v", err)
		}
		res, err := p.Ingest(context.Background(), req)
		if err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		ids = append(ids, res.RecordID)
	}

	if ids[0] != ids[1] {
		t.Errorf("same idempotency key produced different note ids: %s vs %s", ids[0], ids[1])
	}
	if store.count() != 1 {
		t.Errorf("expected a single note across replays, got %d", store.count())
	}
}

func TestIngestTruncatesPayloadText(t *testing.T) {
	t.Parallel()

	vectors := newMemVectors()
	cfg := testConfig()
	cfg.MetadataTextLimit = 10
	p, err := NewPipeline(newMemStore(), &memEmbedder{}, vectors, newMemJournal(), cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	long := strings.Repeat("a", 40)
	res, err := p.Ingest(context.Background(), Request{Text: long})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	entry := vectors.entries[res.RecordID]
	if got := entry.Metadata["text"]; got != strings.Repeat("a", 10) {
		t.Errorf("expected payload text truncated to 10 bytes, got %q", got)
	}
	if res.Text != long {
		t.Errorf("result text must stay untruncated, got %d bytes", len(res.Text))
	}
}

func TestTruncateRuneSafe(t *testing.T) {
	t.Parallel()

	// "héllo" — the é is two bytes; a cut at byte 2 lands mid-rune.
	got := truncate("héllo", 2)
	if got != "h" {
		t.Errorf("expected cut to back off to rune boundary, got %q", got)
	}
	if truncate("abc", 10) != "abc" {
		t.Error("short strings must pass through unchanged")
	}
}

// --- deleter ---

func TestDeleteRemovesBothStores(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	vectors := newMemVectors()
	p, err := NewPipeline(store, &memEmbedder{}, vectors, newMemJournal(), testConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	res, err := p.Ingest(context.Background(), Request{Text: "delete me"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	d := NewDeleter(store, vectors)
	if err := d.Delete(context.Background(), res.RecordID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.count() != 0 {
		t.Error("note still in record store")
	}
	if len(vectors.entries) != 0 {
		t.Error("entry still in vector index")
	}
}

// A failing vector-index leg must not undo the record-store leg: the
// note is gone, the caller is told the operation failed.
func TestDeleteVectorFailureLeavesRecordDeleted(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	vectors := newMemVectors()
	vectors.deleteErr = errors.New("index offline")
	p, err := NewPipeline(store, &memEmbedder{}, vectors, newMemJournal(), testConfig())
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	res, err := p.Ingest(context.Background(), Request{Text: "half gone"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	d := NewDeleter(store, vectors)
	err = d.Delete(context.Background(), res.RecordID)
	if !fault.IsKind(err, fault.KindDeletion) {
		t.Fatalf("expected deletion fault, got %v", err)
	}
	if store.count() != 0 {
		t.Error("record-store delete should have stuck despite the vector failure")
	}
}

func TestDeleteRecordFailureStillAttemptsVectorLeg(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.deleteErr = errors.New("db locked")
	vectors := newMemVectors()

	d := NewDeleter(store, vectors)
	err := d.Delete(context.Background(), "note-1")
	if !fault.IsKind(err, fault.KindDeletion) {
		t.Fatalf("expected deletion fault, got %v", err)
	}
	if len(vectors.deleted) != 1 || vectors.deleted[0] != "note-1" {
		t.Errorf("vector leg was not attempted: %v", vectors.deleted)
	}
}

func TestDeleteMissingIDIsNoError(t *testing.T) {
	t.Parallel()

	d := NewDeleter(newMemStore(), newMemVectors())
	if err := d.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("deleting an unknown id must succeed, got %v", err)
	}
}

func TestDeleteEmptyIDRejected(t *testing.T) {
	t.Parallel()

	d := NewDeleter(newMemStore(), newMemVectors())
	if err := d.Delete(context.Background(), ""); !fault.IsKind(err, fault.KindValidation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
}

// --- journal ---

func TestSQLiteJournalRoundTrip(t *testing.T) {
	t.Parallel()

	j, err := OpenJournal(t.TempDir() + "/journal.db")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	defer j.Close()

	ctx := context.Background()

	if _, ok, err := j.Get(ctx, "wf-1", stepPersist); err != nil || ok {
		t.Fatalf("expected empty journal, got ok=%v err=%v", ok, err)
	}

	if err := j.Put(ctx, "wf-1", stepPersist, []byte(`{"ID":"n1"}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	payload, ok, err := j.Get(ctx, "wf-1", stepPersist)
	if err != nil || !ok {
		t.Fatalf("Get after Put: ok=%v err=%v", ok, err)
	}
	if string(payload) != `{"ID":"n1"}` {
		t.Errorf("unexpected payload %s", payload)
	}

	// Same key overwrites; other steps stay untouched.
	if err := j.Put(ctx, "wf-1", stepPersist, []byte(`{"ID":"n2"}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	payload, _, _ = j.Get(ctx, "wf-1", stepPersist)
	if string(payload) != `{"ID":"n2"}` {
		t.Errorf("overwrite did not stick: %s", payload)
	}
	if _, ok, _ := j.Get(ctx, "wf-1", stepEmbed); ok {
		t.Error("unexpected checkpoint for a step never written")
	}
}
