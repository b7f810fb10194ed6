// Package pdf extracts text from PDF files. It lives in its own
// subpackage so the PDF dependency is only pulled in by callers that
// register it:
//
//	ing := ingest.NewIngestor(idx, provider,
//		ingest.WithExtractor(ingest.TypePDF, pdf.NewExtractor()))
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/foliolabs/folio/ingest"
	"github.com/foliolabs/folio/internal/parallel"
)

// parallelThreshold is the page count above which pages are extracted
// concurrently. Small documents are not worth the goroutine overhead.
const parallelThreshold = 10

// DefaultWorkers is the default number of concurrent page extractions.
const DefaultWorkers = 4

// Extractor extracts plain text from PDF content. Pages of large
// documents are processed by a bounded worker pool, with page order
// preserved in the output.
type Extractor struct {
	workers int
}

var _ ingest.Extractor = (*Extractor)(nil)

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets the number of concurrent page extractions. Values
// below two disable parallelism.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		e.workers = n
	}
}

// NewExtractor returns a PDF text extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of all pages joined by blank lines. Pages
// that cannot be parsed are skipped rather than failing the whole
// document.
func (e *Extractor) Extract(content []byte) (string, error) {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return "", fmt.Errorf("not a PDF file")
	}
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	if total == 0 {
		return "", nil
	}
	var pages []string
	if total > parallelThreshold && e.workers > 1 {
		// Unreadable pages come back empty instead of failing, so the
		// fan-out never errors.
		pages, _ = parallel.Map(context.Background(), e.workers, pageNumbers(total),
			func(_ context.Context, _ int, n int) (string, error) {
				return pageText(reader, n), nil
			})
	} else {
		pages = make([]string, total)
		for i := range pages {
			pages[i] = pageText(reader, i+1)
		}
	}

	nonEmpty := make([]string, 0, total)
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n\n"), nil
}

func pageNumbers(total int) []int {
	nums := make([]int, total)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// pageText returns one page's plain text, or "" for pages that cannot
// be read. The pdf library panics on some malformed content streams,
// so those pages are skipped via recover.
func pageText(reader *pdf.Reader, n int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	page := reader.Page(n)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
