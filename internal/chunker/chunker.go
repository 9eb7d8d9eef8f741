// Package chunker splits raw document text into overlapping,
// boundary-aware segments for retrieval. Chunking is a pure function of
// its inputs: the same text and configuration always produce the same
// segments.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultSize is the target chunk size in characters.
	DefaultSize = 1000
	// DefaultOverlap is the character overlap between adjacent chunks.
	DefaultOverlap = 200

	// boundaryWindow is how far around the candidate cut point the
	// chunker searches for a sentence boundary.
	boundaryWindow = 100
)

// Boundary patterns tried in priority order; the first pattern with a
// match wins, and the last match within the window is used to keep
// chunks close to the configured size.
var boundaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\s`),
	regexp.MustCompile(`!\s`),
	regexp.MustCompile(`\?\s`),
	regexp.MustCompile(`\n\n`),
}

// Segment is one emitted chunk of text together with its span in the
// original input. Start and End index the untrimmed cut; Text is the
// whitespace-trimmed content.
type Segment struct {
	Index int
	Text  string
	Start int
	End   int
}

// Chunker segments text at sentence boundaries near a target size.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Size must be positive and overlap must be
// non-negative and strictly less than size; anything else would allow a
// non-terminating chunking loop and is rejected up front.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split segments text into overlapping chunks. Empty input yields no
// segments; every returned segment has non-empty trimmed text.
func (c *Chunker) Split(text string) []Segment {
	if text == "" {
		return nil
	}

	var segments []Segment
	start := 0
	for start < len(text) {
		end := start + c.size
		if end < len(text) {
			end = c.adjustToBoundary(text, start, end)
		} else {
			end = len(text)
		}

		if trimmed := strings.TrimSpace(text[start:end]); trimmed != "" {
			segments = append(segments, Segment{
				Index: len(segments),
				Text:  trimmed,
				Start: start,
				End:   end,
			})
		}

		next := end - c.overlap
		if next <= start {
			// A boundary cut close behind the cursor would stall the
			// loop; jump past the emitted segment instead.
			next = end
		}
		start = next
	}
	return segments
}

// Strings returns only the chunk texts, in order.
func (c *Chunker) Strings(text string) []string {
	segments := c.Split(text)
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}

// adjustToBoundary searches a window around the candidate end for the
// last sentence boundary and returns the adjusted cut position.
func (c *Chunker) adjustToBoundary(text string, start, end int) int {
	searchStart := end - boundaryWindow
	if searchStart < start {
		searchStart = start
	}
	searchEnd := end + boundaryWindow
	if searchEnd > len(text) {
		searchEnd = len(text)
	}
	window := text[searchStart:searchEnd]

	for _, re := range boundaryPatterns {
		locs := re.FindAllStringIndex(window, -1)
		if len(locs) > 0 {
			return searchStart + locs[len(locs)-1][1]
		}
	}
	return end
}
