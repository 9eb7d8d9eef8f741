// Package processor handles PDF ingestion: byte-level text extraction
// with per-page character spans, and persistence of uploaded files.
// It is the external decoding collaborator in front of the pure text
// pipeline.
package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

var (
	unsafeChars = regexp.MustCompile(`[^\w\s.-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// PageSpan records where one page's text lives inside the concatenated
// document text.
type PageSpan struct {
	PageNumber int
	CharStart  int
	CharEnd    int
}

// Processor extracts text from PDFs and stores uploads on disk.
type Processor struct {
	uploadDir string
}

// New creates a Processor, ensuring the upload directory exists.
func New(uploadDir string) (*Processor, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Processor{uploadDir: uploadDir}, nil
}

// ExtractText extracts the text of every page of a PDF. It returns the
// concatenated document text with page markers, the page count, and
// the char span of each page within that text. Pages whose text cannot
// be decoded are skipped rather than failing the document.
func (p *Processor) ExtractText(path string) (string, int, []PageSpan, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	var sb strings.Builder
	var spans []PageSpan

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil || pageText == "" {
			continue
		}

		fmt.Fprintf(&sb, "\n--- Page %d ---\n", pageNum)
		start := sb.Len()
		sb.WriteString(pageText)
		spans = append(spans, PageSpan{
			PageNumber: pageNum,
			CharStart:  start,
			CharEnd:    sb.Len(),
		})
	}

	return sb.String(), numPages, spans, nil
}

// SaveUpload writes uploaded file content under the upload directory
// with a sanitized, timestamp-prefixed name and returns the path and
// size.
func (p *Processor) SaveUpload(content []byte, filename string) (string, int64, error) {
	safe := sanitizeFilename(filename)
	final := time.Now().Format("20060102_150405") + "_" + safe
	path := filepath.Join(p.uploadDir, final)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write upload: %w", err)
	}
	return path, int64(len(content)), nil
}

// PageFor returns the page number containing the given character
// position, or nil when the position falls outside every page span.
func PageFor(spans []PageSpan, pos int) *int {
	for _, span := range spans {
		if pos >= span.CharStart && pos <= span.CharEnd {
			page := span.PageNumber
			return &page
		}
	}
	return nil
}

// sanitizeFilename strips path components and characters that are not
// word characters, whitespace, dots or dashes.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = unsafeChars.ReplaceAllString(filename, "")
	filename = whitespace.ReplaceAllString(filename, "_")
	return filename
}
