// Package textcache stores extracted document text on disk, one file
// per document, so extraction runs at most once per document identity.
package textcache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotCached indicates no extracted text exists for a document.
var ErrNotCached = errors.New("no extracted text cached")

// ExtractFunc turns a raw byte source into plain text. The default is
// ExtractPDF; tests and alternative formats can substitute their own.
type ExtractFunc func(source []byte) (string, error)

// Cache is a content cache keyed by document identifier. Identity is
// trusted: cached text is returned unchanged even if the source bytes
// passed later differ.
type Cache struct {
	dir     string
	extract ExtractFunc
}

// New creates a text cache rooted at dir, extracting PDFs.
func New(dir string) (*Cache, error) {
	return NewWithExtractor(dir, ExtractPDF)
}

// NewWithExtractor creates a text cache with a custom extractor.
func NewWithExtractor(dir string, extract ExtractFunc) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating text cache directory: %w", err)
	}
	return &Cache{dir: dir, extract: extract}, nil
}

func (c *Cache) path(docID string) string {
	return filepath.Join(c.dir, "extract_"+docID+".txt")
}

// GetOrExtract returns the cached text for docID if present; otherwise
// it extracts text from source, durably stores it, and returns it.
// Extraction failures store nothing.
func (c *Cache) GetOrExtract(ctx context.Context, docID string, source []byte) (string, error) {
	if text, err := c.Load(docID); err == nil {
		return text, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := c.extract(source)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", docID, err)
	}

	if err := c.write(docID, text); err != nil {
		return "", err
	}
	return text, nil
}

// Load returns previously extracted text, or ErrNotCached.
func (c *Cache) Load(docID string) (string, error) {
	data, err := os.ReadFile(c.path(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotCached, docID)
		}
		return "", fmt.Errorf("reading cached text for %s: %w", docID, err)
	}
	return string(data), nil
}

// write stores text via a temp file and rename so readers never see a
// partially written cache entry.
func (c *Cache) write(docID, text string) error {
	dst := c.path(docID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing extracted text for %s: %w", docID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storing extracted text for %s: %w", docID, err)
	}
	return nil
}
