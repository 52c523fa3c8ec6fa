package textcache

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction indicates the byte source is not a parseable document.
// Documents failing extraction are marked failed and never retried
// automatically.
var ErrExtraction = errors.New("unreadable document source")

// ExtractPDF pulls plain text out of a PDF byte source, page by page.
// Pages that yield no text are skipped, matching how scanned or
// image-only pages behave; a document with no extractable text at all
// fails with ErrExtraction.
func ExtractPDF(source []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(source), int64(len(source)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var parts []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || text == "" {
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no extractable text", ErrExtraction)
	}
	return strings.Join(parts, "\n\n"), nil
}
