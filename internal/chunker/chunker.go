// Package chunker splits extracted document text into overlapping
// fixed-size passages with stable, reproducible boundaries.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument indicates a caller contract violation in the
// chunking parameters.
var ErrInvalidArgument = errors.New("invalid chunking parameters")

// Chunk is a contiguous slice of a document's extracted text, the unit
// of embedding and retrieval. Chunks are immutable once produced.
type Chunk struct {
	// Seq is the 0-based position of the chunk within its document.
	// Sequence order always matches offset order.
	Seq int

	// Start and End are character (rune) offsets into the extracted
	// text; End is exclusive. Consecutive chunks overlap by the
	// configured overlap and together cover the full text.
	Start int
	End   int

	Text string
}

// Split cuts text into chunks of chunkSize characters, sliding the
// window forward by chunkSize-overlap each step. Sizes and offsets
// count runes, not bytes, so multi-byte characters are never split.
// The final chunk covers whatever remains and may be shorter than
// chunkSize, but is never empty. Empty input yields no chunks.
//
// Identical (text, chunkSize, overlap) inputs always produce identical
// chunk boundaries.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk_size=%d overlap=%d", ErrInvalidArgument, chunkSize, overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + chunkSize
		if end >= len(runes) {
			// Remainder fits in one final chunk.
			chunks = append(chunks, Chunk{
				Seq:   len(chunks),
				Start: start,
				End:   len(runes),
				Text:  string(runes[start:]),
			})
			return chunks, nil
		}
		chunks = append(chunks, Chunk{
			Seq:   len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
	}
}
