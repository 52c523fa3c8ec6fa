package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder is a deterministic, dependency-free embedder. Each text
// is mapped to a unit vector by hashing its word and bigram features
// into fixed buckets. Texts sharing vocabulary land near each other,
// which is enough for offline mode and for exercising the retrieval
// pipeline in tests without a model backend.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a local embedder with the given vector
// dimensionality (minimum 8).
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims < 8 {
		dims = 8
	}
	return &LocalEmbedder{dims: dims}
}

func (e *LocalEmbedder) Name() string {
	return "local/hash"
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dims
}

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := checkInputs(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	v := make([]float32, e.dims)

	tokens := tokenize(text)
	for j, tok := range tokens {
		v[bucket(tok, e.dims)]++
		if j > 0 {
			// Bigrams give a little word-order sensitivity.
			v[bucket(tokens[j-1]+" "+tok, e.dims)] += 0.5
		}
	}
	// Whole-text feature keeps the vector non-zero even for input
	// without word characters.
	v[bucket(text, e.dims)]++

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	scale := float32(1 / math.Sqrt(norm))
	for j := range v {
		v[j] *= scale
	}
	return v
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func bucket(s string, dims int) int {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int(h.Sum64() % uint64(dims))
}
