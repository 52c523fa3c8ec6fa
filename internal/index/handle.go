// Package index owns the lifecycle of per-document vector indexes:
// build from chunks, persist to disk, lazy load on demand, and a
// bounded in-memory cache with LRU eviction. Each document gets its own
// chromem-go collection, persisted as a gob.gz export.
package index

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/claro-ai/claro/internal/chunker"
)

const collectionName = "chunks"

// Handle is the immutable in-memory index for one document. Its chunk
// order and vectors never change after Build.
type Handle struct {
	docID string
	count int
	col   *chromem.Collection
}

// DocID returns the owning document's identifier.
func (h *Handle) DocID() string { return h.docID }

// Len returns the number of indexed chunks.
func (h *Handle) Len() int { return h.count }

// Scored pairs a chunk with its cosine similarity to a query vector.
type Scored struct {
	Chunk      chunker.Chunk
	Similarity float32
}

// Query scores every chunk in the index against the query vector and
// returns them highest-similarity first.
func (h *Handle) Query(ctx context.Context, queryVec []float32) ([]Scored, error) {
	if h.count == 0 {
		return nil, nil
	}

	results, err := h.col.QueryEmbedding(ctx, queryVec, h.count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying index for %s: %w", h.docID, err)
	}

	scored := make([]Scored, len(results))
	for i, r := range results {
		scored[i] = Scored{
			Chunk:      chunkFromResult(r.Metadata, r.Content),
			Similarity: r.Similarity,
		}
	}
	return scored, nil
}

// Chunks returns the indexed chunks in sequence order along with their
// stored vectors.
func (h *Handle) Chunks(ctx context.Context) ([]chunker.Chunk, [][]float32, error) {
	chunks := make([]chunker.Chunk, 0, h.count)
	vectors := make([][]float32, 0, h.count)

	for seq := 0; seq < h.count; seq++ {
		doc, err := h.col.GetByID(ctx, chunkID(seq))
		if err != nil {
			return nil, nil, fmt.Errorf("reading chunk %d of %s: %w", seq, h.docID, err)
		}
		chunks = append(chunks, chunkFromResult(doc.Metadata, doc.Content))
		vectors = append(vectors, doc.Embedding)
	}
	return chunks, vectors, nil
}

// Aggregate is a logical read-only view over several per-document
// indexes, letting one retrieval call span all of a user's documents.
// The underlying indexes stay separate so provenance is preserved; an
// aggregate is never persisted.
type Aggregate struct {
	UserID  string
	Handles []*Handle
}

func chunkID(seq int) string {
	return fmt.Sprintf("chunk:%06d", seq)
}

func chunkMetadata(c chunker.Chunk) map[string]string {
	return map[string]string{
		"seq":   strconv.Itoa(c.Seq),
		"start": strconv.Itoa(c.Start),
		"end":   strconv.Itoa(c.End),
	}
}

func chunkFromResult(md map[string]string, content string) chunker.Chunk {
	seq, _ := strconv.Atoi(md["seq"])
	start, _ := strconv.Atoi(md["start"])
	end, _ := strconv.Atoi(md["end"])
	return chunker.Chunk{Seq: seq, Start: start, End: end, Text: content}
}
