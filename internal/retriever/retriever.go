// Package retriever ranks chunks across a set of candidate document
// indexes for a query. Ranking is deterministic: cosine similarity
// descending, ties broken by document id then chunk sequence.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/claro-ai/claro/internal/chunker"
	"github.com/claro-ai/claro/internal/embeddings"
	"github.com/claro-ai/claro/internal/index"
)

// ErrInvalidArgument indicates a caller contract violation.
var ErrInvalidArgument = errors.New("invalid retrieval argument")

// Result is one retrieved passage with its provenance.
type Result struct {
	DocID      string
	Chunk      chunker.Chunk
	Similarity float32
}

// Retriever embeds queries and ranks candidate chunks.
type Retriever struct {
	embedder embeddings.Embedder
}

// New creates a retriever using the given embedder for queries.
func New(embedder embeddings.Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Retrieve returns the top k chunks across all indexes in the
// aggregate, globally ranked. The query is embedded exactly once. An
// empty aggregate yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, agg *index.Aggregate, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k=%d", ErrInvalidArgument, k)
	}
	if agg == nil || len(agg.Handles) == 0 {
		return nil, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryVec := vecs[0]

	var merged []Result
	for _, h := range agg.Handles {
		scored, err := h.Query(ctx, queryVec)
		if err != nil {
			return nil, err
		}
		for _, s := range scored {
			merged = append(merged, Result{
				DocID:      h.DocID(),
				Chunk:      s.Chunk,
				Similarity: s.Similarity,
			})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Similarity != merged[j].Similarity {
			return merged[i].Similarity > merged[j].Similarity
		}
		if merged[i].DocID != merged[j].DocID {
			return merged[i].DocID < merged[j].DocID
		}
		return merged[i].Chunk.Seq < merged[j].Chunk.Seq
	})

	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}
