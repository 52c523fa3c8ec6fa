package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/sync/singleflight"

	"github.com/claro-ai/claro/internal/chunker"
	"github.com/claro-ai/claro/internal/embeddings"
)

var (
	// ErrEmptyIndex indicates a build with no chunks, or mismatched
	// chunk/vector counts. A data-consistency error, never swallowed.
	ErrEmptyIndex = errors.New("cannot build an empty index")

	// ErrIndexNotFound indicates no persisted index exists for a document.
	ErrIndexNotFound = errors.New("no persisted index for document")

	// ErrConcurrentBuild indicates another build for the same document
	// is in flight. The caller may retry after backoff.
	ErrConcurrentBuild = errors.New("concurrent index build for document")
)

const defaultResidentBudget = 8

// Manager builds, persists, loads, caches and evicts per-document
// vector indexes. It is the sole mutator of the in-memory cache; at
// most residentBudget indexes stay resident, evicted least recently
// used first.
type Manager struct {
	dir       string
	embedFunc chromem.EmbeddingFunc
	cache     *lru.Cache[string, *Handle]
	loads     singleflight.Group

	mu       sync.Mutex
	building map[string]struct{}

	diskLoads atomic.Int64 // deserializations from disk, for tests
}

// NewManager creates an index manager persisting under dir and keeping
// at most residentBudget indexes in memory (0 uses the default).
func NewManager(dir string, embedder embeddings.Embedder, residentBudget int) (*Manager, error) {
	if residentBudget <= 0 {
		residentBudget = defaultResidentBudget
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	cache, err := lru.New[string, *Handle](residentBudget)
	if err != nil {
		return nil, fmt.Errorf("creating index cache: %w", err)
	}
	return &Manager{
		dir:       dir,
		embedFunc: embeddings.ToChromemFunc(embedder),
		cache:     cache,
		building:  make(map[string]struct{}),
	}, nil
}

func (m *Manager) indexPath(docID string) string {
	return filepath.Join(m.dir, docID+".gob.gz")
}

// Build constructs the similarity index over the given chunk/vector
// pairs, persists it under docID, inserts it into the resident cache
// and returns its handle. A second concurrent build for the same
// document is rejected with ErrConcurrentBuild rather than risking
// interleaved writes. A cancelled build persists nothing.
func (m *Manager) Build(ctx context.Context, docID string, chunks []chunker.Chunk, vectors [][]float32) (*Handle, error) {
	if len(chunks) == 0 || len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", ErrEmptyIndex, len(chunks), len(vectors))
	}

	m.mu.Lock()
	if _, busy := m.building[docID]; busy {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrConcurrentBuild, docID)
	}
	m.building[docID] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.building, docID)
		m.mu.Unlock()
	}()

	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, m.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("creating collection for %s: %w", docID, err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        chunkID(c.Seq),
			Content:   c.Text,
			Embedding: vectors[i],
			Metadata:  chunkMetadata(c),
		}
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("indexing chunks for %s: %w", docID, err)
	}

	// Never persist a cancelled build.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Export to a temp file and rename so a crash mid-write cannot
	// leave a corrupt persisted index.
	dst := m.indexPath(docID)
	tmp := dst + ".tmp"
	if err := db.ExportToFile(tmp, true, ""); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("persisting index for %s: %w", docID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("persisting index for %s: %w", docID, err)
	}

	h := &Handle{docID: docID, count: len(chunks), col: col}
	m.cache.Add(docID, h)
	return h, nil
}

// Load returns the resident handle for docID, or deserializes the
// persisted index into memory. Concurrent loads for the same document
// share a single deserialization.
func (m *Manager) Load(ctx context.Context, docID string) (*Handle, error) {
	if h, ok := m.cache.Get(docID); ok {
		return h, nil
	}

	v, err, _ := m.loads.Do(docID, func() (any, error) {
		// Another caller may have finished while we queued.
		if h, ok := m.cache.Get(docID); ok {
			return h, nil
		}
		h, err := m.loadFromDisk(ctx, docID)
		if err != nil {
			return nil, err
		}
		m.cache.Add(docID, h)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (m *Manager) loadFromDisk(ctx context.Context, docID string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := m.indexPath(docID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, docID)
		}
		return nil, fmt.Errorf("checking index for %s: %w", docID, err)
	}

	m.diskLoads.Add(1)

	db := chromem.NewDB()
	if err := db.ImportFromFile(path, ""); err != nil {
		return nil, fmt.Errorf("loading index for %s: %w", docID, err)
	}
	col := db.GetCollection(collectionName, m.embedFunc)
	if col == nil {
		return nil, fmt.Errorf("%w: collection missing in %s", ErrIndexNotFound, path)
	}

	return &Handle{docID: docID, count: col.Count(), col: col}, nil
}

// Evict removes a document's index from the memory cache. The durable
// copy is untouched; a later Load reloads it from disk.
func (m *Manager) Evict(docID string) {
	m.cache.Remove(docID)
}

// Resident reports whether the document's index is currently in memory,
// without touching its recency.
func (m *Manager) Resident(docID string) bool {
	return m.cache.Contains(docID)
}

// Exists reports whether a persisted index exists for the document.
func (m *Manager) Exists(docID string) bool {
	_, err := os.Stat(m.indexPath(docID))
	return err == nil
}

// Aggregate loads the indexes for the given documents and returns a
// logical view spanning them for a single retrieval call.
func (m *Manager) Aggregate(ctx context.Context, userID string, docIDs []string) (*Aggregate, error) {
	agg := &Aggregate{UserID: userID}
	for _, id := range docIDs {
		h, err := m.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		agg.Handles = append(agg.Handles, h)
	}
	return agg, nil
}
