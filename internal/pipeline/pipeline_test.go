package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/claro-ai/claro/internal/answer"
	"github.com/claro-ai/claro/internal/embeddings"
	"github.com/claro-ai/claro/internal/index"
	"github.com/claro-ai/claro/internal/llm"
	"github.com/claro-ai/claro/internal/store"
	"github.com/claro-ai/claro/internal/textcache"
)

var sampleText = strings.TrimSpace(strings.Repeat(
	"The tenant shall pay rent on the first day of each month. "+
		"Late payments accrue a fee of five percent after a grace period. "+
		"Either party may terminate with thirty days written notice. ", 4))

// plainExtract treats the source bytes as the document text, so tests
// need no real PDFs. Sources marked corrupt fail extraction.
func plainExtract(source []byte) (string, error) {
	if bytes.HasPrefix(source, []byte("%CORRUPT")) {
		return "", fmt.Errorf("%w: unreadable source", textcache.ErrExtraction)
	}
	return string(source), nil
}

// countingEmbedder counts Embed calls to observe how many times the
// pipeline actually embeds.
type countingEmbedder struct {
	embeddings.Embedder
	calls atomic.Int32
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	return e.Embedder.Embed(ctx, texts)
}

type testEnv struct {
	store    store.Store
	embedder *countingEmbedder
	indexes  *index.Manager
	provider *llm.MockProvider
	pipe     *Pipeline
}

// newTestEnv builds a pipeline over dir. Reusing dir with a fresh env
// simulates a process restart; the store is shared across restarts.
func newTestEnv(t *testing.T, dir string, st store.Store) *testEnv {
	t.Helper()

	texts, err := textcache.NewWithExtractor(filepath.Join(dir, "texts"), plainExtract)
	if err != nil {
		t.Fatal(err)
	}
	embedder := &countingEmbedder{Embedder: embeddings.NewLocalEmbedder(64)}
	indexes, err := index.NewManager(filepath.Join(dir, "indexes"), embedder, 0)
	if err != nil {
		t.Fatal(err)
	}
	provider := llm.NewMockProvider("per the lease, rent is due on the first of the month")
	composer := answer.NewComposer(provider, "mock", 0)

	return &testEnv{
		store:    st,
		embedder: embedder,
		indexes:  indexes,
		provider: provider,
		pipe: New(st, texts, embedder, indexes, composer, Options{
			ChunkSize: 120,
			Overlap:   20,
			TopK:      3,
		}),
	}
}

func (e *testEnv) mustCreate(t *testing.T, owner string) string {
	t.Helper()
	id, err := e.store.CreateDocument(context.Background(), owner, "lease.pdf")
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestIngestThenAsk(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	ctx := context.Background()
	docID := env.mustCreate(t, "user-1")

	status, err := env.pipe.Ingest(ctx, docID, []byte(sampleText))
	if err != nil {
		t.Fatal(err)
	}
	if status != store.StatusIndexed {
		t.Fatalf("status = %q, want indexed", status)
	}
	if !env.indexes.Exists(docID) {
		t.Error("no persisted index after ingest")
	}

	ans, err := env.pipe.Ask(ctx, "user-1", "when is rent due?", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Degraded {
		t.Error("answer should not be degraded")
	}
	if ans.Text == "" {
		t.Error("empty answer text")
	}
	if len(ans.Citations) == 0 {
		t.Error("answer has no citations")
	}
	for _, c := range ans.Citations {
		if c.DocID != docID {
			t.Errorf("citation names unknown document %q", c.DocID)
		}
	}
}

func TestIngestIdempotent(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	ctx := context.Background()
	docID := env.mustCreate(t, "user-1")

	if _, err := env.pipe.Ingest(ctx, docID, []byte(sampleText)); err != nil {
		t.Fatal(err)
	}
	embedsAfterFirst := env.embedder.calls.Load()

	status, err := env.pipe.Ingest(ctx, docID, []byte(sampleText))
	if err != nil {
		t.Fatal(err)
	}
	if status != store.StatusIndexed {
		t.Fatalf("status = %q, want indexed", status)
	}
	if got := env.embedder.calls.Load(); got != embedsAfterFirst {
		t.Errorf("re-ingest embedded again (%d calls, want %d)", got, embedsAfterFirst)
	}
}

func TestConcurrentIngestSingleBuild(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	ctx := context.Background()
	docID := env.mustCreate(t, "user-1")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	statuses := make([]store.Status, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], errs[i] = env.pipe.Ingest(ctx, docID, []byte(sampleText))
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: %v", i, errs[i])
		}
		if statuses[i] != store.StatusIndexed {
			t.Errorf("caller %d: status = %q, want indexed", i, statuses[i])
		}
	}
	if got := env.embedder.calls.Load(); got != 1 {
		t.Errorf("embedded %d times, want exactly 1", got)
	}
}

func TestAskAfterRestart(t *testing.T) {
	dir := t.TempDir()
	st := store.NewMemoryStore()

	env := newTestEnv(t, dir, st)
	ctx := context.Background()
	docID := env.mustCreate(t, "user-1")
	if _, err := env.pipe.Ingest(ctx, docID, []byte(sampleText)); err != nil {
		t.Fatal(err)
	}

	// Fresh pipeline over the same data directory: indexes must load
	// from their persisted form.
	restarted := newTestEnv(t, dir, st)
	ans, err := restarted.pipe.Ask(ctx, "user-1", "what is the notice period?", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Citations) == 0 {
		t.Error("no citations after restart; persisted index not loaded")
	}
}

func TestIngestCorruptSourceFailsThenRetries(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	ctx := context.Background()
	docID := env.mustCreate(t, "user-1")

	status, err := env.pipe.Ingest(ctx, docID, []byte("%CORRUPT garbage"))
	if !errors.Is(err, textcache.ErrExtraction) {
		t.Fatalf("error = %v, want ErrExtraction", err)
	}
	if status != store.StatusFailed {
		t.Errorf("status = %q, want failed", status)
	}
	if env.indexes.Exists(docID) {
		t.Error("failed ingest persisted an index")
	}

	// A retry with a readable source runs the full chain again.
	status, err = env.pipe.Ingest(ctx, docID, []byte(sampleText))
	if err != nil {
		t.Fatal(err)
	}
	if status != store.StatusIndexed {
		t.Errorf("retry status = %q, want indexed", status)
	}
}

func TestIngestCancelledLeavesNoIndex(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	docID := env.mustCreate(t, "user-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.pipe.Ingest(ctx, docID, []byte(sampleText)); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if env.indexes.Exists(docID) {
		t.Error("cancelled ingest persisted an index")
	}

	doc, err := env.store.GetDocument(context.Background(), docID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status == store.StatusIndexed || doc.Status == store.StatusFailed {
		t.Errorf("cancelled ingest set status %q", doc.Status)
	}
}

func TestAskDegradesWhenGenerationFails(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	ctx := context.Background()
	docID := env.mustCreate(t, "user-1")
	if _, err := env.pipe.Ingest(ctx, docID, []byte(sampleText)); err != nil {
		t.Fatal(err)
	}

	env.provider.Err = errors.New("model backend down")

	ans, err := env.pipe.Ask(ctx, "user-1", "when is rent due?", nil, nil)
	if err != nil {
		t.Fatalf("generation failure must not surface as an error: %v", err)
	}
	if !ans.Degraded {
		t.Error("answer not marked degraded")
	}
	if len(ans.Citations) != 0 {
		t.Errorf("degraded answer has %d citations, want 0", len(ans.Citations))
	}
	if ans.Text == "" {
		t.Error("degraded answer has no text")
	}
}

func TestAskWithNoDocuments(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())

	ans, err := env.pipe.Ask(context.Background(), "user-with-nothing", "anything?", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ans.Degraded {
		t.Error("empty corpus should not degrade the answer")
	}
	if len(ans.Citations) != 0 {
		t.Errorf("got %d citations, want 0", len(ans.Citations))
	}
	if ans.Text == "" {
		t.Error("expected a response even with no documents")
	}
}

func TestAskScopedToRequestedDocuments(t *testing.T) {
	env := newTestEnv(t, t.TempDir(), store.NewMemoryStore())
	ctx := context.Background()

	docA := env.mustCreate(t, "user-1")
	docB := env.mustCreate(t, "user-1")
	if _, err := env.pipe.Ingest(ctx, docA, []byte(sampleText)); err != nil {
		t.Fatal(err)
	}
	if _, err := env.pipe.Ingest(ctx, docB, []byte("An entirely different services agreement about consulting fees and deliverables due quarterly.")); err != nil {
		t.Fatal(err)
	}

	ans, err := env.pipe.Ask(ctx, "user-1", "what are the fees?", []string{docB}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range ans.Citations {
		if c.DocID != docB {
			t.Errorf("citation from %q leaked outside the requested scope", c.DocID)
		}
	}
}
