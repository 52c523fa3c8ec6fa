package index

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/claro-ai/claro/internal/chunker"
	"github.com/claro-ai/claro/internal/embeddings"
)

func testManager(t *testing.T, budget int) (*Manager, embeddings.Embedder) {
	t.Helper()
	embedder := embeddings.NewLocalEmbedder(64)
	m, err := NewManager(t.TempDir(), embedder, budget)
	if err != nil {
		t.Fatal(err)
	}
	return m, embedder
}

func makeChunks(t *testing.T, embedder embeddings.Embedder, texts ...string) ([]chunker.Chunk, [][]float32) {
	t.Helper()
	chunks := make([]chunker.Chunk, len(texts))
	pos := 0
	for i, text := range texts {
		chunks[i] = chunker.Chunk{Seq: i, Start: pos, End: pos + len(text), Text: text}
		pos += len(text)
	}
	vectors, err := embedder.Embed(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	return chunks, vectors
}

func TestBuildPersistsAndLoadsRoundTrip(t *testing.T) {
	m, embedder := testManager(t, 0)
	ctx := context.Background()

	chunks, vectors := makeChunks(t, embedder,
		"the tenant shall pay rent monthly",
		"the landlord maintains the premises",
		"either party may terminate with notice",
	)

	h, err := m.Build(ctx, "doc-1", chunks, vectors)
	if err != nil {
		t.Fatal(err)
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if !m.Exists("doc-1") {
		t.Fatal("Build did not persist the index")
	}

	// Evict and reload from durable storage: chunks and vectors must
	// come back identical, in the same order.
	m.Evict("doc-1")
	if m.Resident("doc-1") {
		t.Fatal("index still resident after Evict")
	}

	loaded, err := m.Load(ctx, "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	gotChunks, gotVectors, err := loaded.Chunks(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(gotChunks) != len(chunks) {
		t.Fatalf("got %d chunks, want %d", len(gotChunks), len(chunks))
	}
	for i := range chunks {
		if gotChunks[i] != chunks[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, gotChunks[i], chunks[i])
		}
		if len(gotVectors[i]) != len(vectors[i]) {
			t.Fatalf("vector %d has %d dims, want %d", i, len(gotVectors[i]), len(vectors[i]))
		}
		for d := range vectors[i] {
			if gotVectors[i][d] != vectors[i][d] {
				t.Fatalf("vector %d differs at dim %d", i, d)
			}
		}
	}
}

func TestBuildEmptyIndex(t *testing.T) {
	m, embedder := testManager(t, 0)
	ctx := context.Background()

	if _, err := m.Build(ctx, "doc-1", nil, nil); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Build(nil) error = %v, want ErrEmptyIndex", err)
	}

	chunks, vectors := makeChunks(t, embedder, "a", "b")
	if _, err := m.Build(ctx, "doc-1", chunks, vectors[:1]); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("Build(mismatched) error = %v, want ErrEmptyIndex", err)
	}
	if m.Exists("doc-1") {
		t.Error("failed build persisted an index")
	}
}

func TestBuildRejectsConcurrentBuild(t *testing.T) {
	m, embedder := testManager(t, 0)
	chunks, vectors := makeChunks(t, embedder, "text")

	// Simulate an in-flight build for the same document.
	m.mu.Lock()
	m.building["doc-1"] = struct{}{}
	m.mu.Unlock()

	if _, err := m.Build(context.Background(), "doc-1", chunks, vectors); !errors.Is(err, ErrConcurrentBuild) {
		t.Fatalf("error = %v, want ErrConcurrentBuild", err)
	}

	m.mu.Lock()
	delete(m.building, "doc-1")
	m.mu.Unlock()

	// With the first build finished, the same build succeeds.
	if _, err := m.Build(context.Background(), "doc-1", chunks, vectors); err != nil {
		t.Fatalf("Build after contention cleared: %v", err)
	}
}

func TestBuildCancelledPersistsNothing(t *testing.T) {
	m, embedder := testManager(t, 0)
	chunks, vectors := makeChunks(t, embedder, "text")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Build(ctx, "doc-1", chunks, vectors); err == nil {
		t.Fatal("expected error from cancelled build")
	}
	if m.Exists("doc-1") {
		t.Error("cancelled build persisted an index")
	}
}

func TestLoadMissingIndex(t *testing.T) {
	m, _ := testManager(t, 0)
	if _, err := m.Load(context.Background(), "nope"); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("error = %v, want ErrIndexNotFound", err)
	}
}

func TestLoadSingleFlight(t *testing.T) {
	m, embedder := testManager(t, 0)
	ctx := context.Background()

	chunks, vectors := makeChunks(t, embedder, "alpha", "beta")
	if _, err := m.Build(ctx, "doc-1", chunks, vectors); err != nil {
		t.Fatal(err)
	}
	m.Evict("doc-1")
	m.diskLoads.Store(0)

	const callers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = m.Load(ctx, "doc-1")
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if n := m.diskLoads.Load(); n != 1 {
		t.Errorf("disk deserializations = %d, want 1", n)
	}
}

func TestResidentBudgetEvictsLRU(t *testing.T) {
	m, embedder := testManager(t, 2)
	ctx := context.Background()

	for _, id := range []string{"doc-a", "doc-b", "doc-c"} {
		chunks, vectors := makeChunks(t, embedder, "content of "+id)
		if _, err := m.Build(ctx, id, chunks, vectors); err != nil {
			t.Fatal(err)
		}
	}

	if m.Resident("doc-a") {
		t.Error("doc-a should have been evicted by the resident budget")
	}
	if !m.Resident("doc-b") || !m.Resident("doc-c") {
		t.Error("doc-b and doc-c should be resident")
	}

	// Eviction only touches memory; the durable copy reloads fine.
	h, err := m.Load(ctx, "doc-a")
	if err != nil {
		t.Fatalf("Load after eviction: %v", err)
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}

func TestAggregateKeepsProvenance(t *testing.T) {
	m, embedder := testManager(t, 0)
	ctx := context.Background()

	for _, id := range []string{"doc-a", "doc-b"} {
		chunks, vectors := makeChunks(t, embedder, "text for "+id)
		if _, err := m.Build(ctx, id, chunks, vectors); err != nil {
			t.Fatal(err)
		}
	}

	agg, err := m.Aggregate(ctx, "user-1", []string{"doc-a", "doc-b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(agg.Handles) != 2 {
		t.Fatalf("got %d handles, want 2", len(agg.Handles))
	}
	if agg.Handles[0].DocID() != "doc-a" || agg.Handles[1].DocID() != "doc-b" {
		t.Error("aggregate lost per-document identity")
	}

	if _, err := m.Aggregate(ctx, "user-1", []string{"doc-a", "missing"}); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("error = %v, want ErrIndexNotFound", err)
	}
}

func TestHandleQueryRanksBySimilarity(t *testing.T) {
	m, embedder := testManager(t, 0)
	ctx := context.Background()

	chunks, vectors := makeChunks(t, embedder,
		"payment is due on the first of the month",
		"the premises may not be sublet",
		"late payment incurs a penalty fee",
	)
	h, err := m.Build(ctx, "doc-1", chunks, vectors)
	if err != nil {
		t.Fatal(err)
	}

	queryVecs, err := embedder.Embed(ctx, []string{"when is payment due"})
	if err != nil {
		t.Fatal(err)
	}
	scored, err := h.Query(ctx, queryVecs[0])
	if err != nil {
		t.Fatal(err)
	}

	if len(scored) != 3 {
		t.Fatalf("got %d scored chunks, want all 3", len(scored))
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Similarity > scored[i-1].Similarity {
			t.Errorf("scores not non-increasing at %d", i)
		}
	}
}
