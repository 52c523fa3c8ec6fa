package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// retryEmbedder wraps an Embedder and retries transient backend
// failures with exponential backoff. Contract violations (empty input)
// are never retried.
type retryEmbedder struct {
	inner    Embedder
	attempts int
	backoff  time.Duration
}

// WithRetry returns an Embedder that retries ErrEmbedding failures up
// to attempts times, doubling backoff between tries. The retry budget
// exhausting makes the last error fatal to the caller.
func WithRetry(e Embedder, attempts int, backoff time.Duration) Embedder {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &retryEmbedder{inner: e, attempts: attempts, backoff: backoff}
}

func (r *retryEmbedder) Name() string    { return r.inner.Name() }
func (r *retryEmbedder) Dimensions() int { return r.inner.Dimensions() }

func (r *retryEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	delay := r.backoff

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		vecs, err := r.inner.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		if !errors.Is(err, ErrEmbedding) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("after %d attempts: %w", r.attempts, lastErr)
}
