// Package embeddings maps text to fixed-dimension vectors for
// similarity search. Embedders are stateless: the same input text with
// the same model configuration always yields the same vector.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput indicates an attempt to embed empty text. Callers
	// are expected to filter empty chunks before embedding.
	ErrEmptyInput = errors.New("cannot embed empty text")

	// ErrEmbedding indicates a transient backend failure. Callers may
	// retry with bounded backoff; see WithRetry.
	ErrEmbedding = errors.New("embedding backend failure")
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts, order-preserving.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// checkInputs rejects empty texts up front so backends never see them.
func checkInputs(texts []string) error {
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("%w: text at index %d", ErrEmptyInput, i)
		}
	}
	return nil
}
