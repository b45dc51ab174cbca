// Package extractor turns a PDF file on disk into cleaned plain text with
// per-page provenance markers. Extraction is tolerant: a page that cannot be
// decoded is skipped with a warning, and only a file that cannot be opened or
// validated at all is an error.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/54b3r/pdfqa-go/internal/logging"
)

// ErrUnreadable indicates the file could not be opened or validated as a PDF.
var ErrUnreadable = errors.New("extractor: unreadable pdf")

// Document is the result of extracting one PDF file.
type Document struct {
	// Name is the base file name of the source PDF.
	Name string

	// PageCount is the total number of pages in the file, including pages
	// whose text could not be extracted.
	PageCount int

	// ExtractedPages is the number of pages that yielded non-empty text.
	ExtractedPages int

	// Text is the cleaned document text. Each contributing page is preceded
	// by a "--- Page N ---" marker line (N is 1-based).
	Text string
}

// Extract reads the PDF at path and returns its cleaned text.
// The file is first validated with pdfcpu; validation or open failures return
// an error wrapping ErrUnreadable. Individual page failures are logged and
// skipped. A valid PDF with no extractable text returns a Document with an
// empty Text and ExtractedPages of zero, not an error.
func Extract(ctx context.Context, path string) (*Document, error) {
	log := logging.FromContext(ctx)

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	defer f.Close()

	var b strings.Builder
	extracted := 0
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			log.Warn("extractor: skipping missing page", "page", i, "file", path)
			continue
		}

		raw, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn("extractor: skipping undecodable page", "page", i, "file", path, "error", err)
			continue
		}

		text := Clean(raw)
		if text == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s", i, text)
		extracted++
	}

	doc := &Document{
		Name:           filepath.Base(path),
		PageCount:      pageCount,
		ExtractedPages: extracted,
		Text:           b.String(),
	}

	log.Info("extractor: extracted document",
		"file", doc.Name,
		"pages", doc.PageCount,
		"extracted_pages", doc.ExtractedPages,
		"chars", len(doc.Text),
	)

	return doc, nil
}
