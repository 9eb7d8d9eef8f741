// Package models defines the shared record types for the contract
// intelligence pipeline: documents, chunks, extracted fields, findings,
// and answers. All of these are derived, immutable artifacts of a single
// document's text and are safe to cache.
package models

import (
	"fmt"
	"time"
)

// Severity is the ordinal risk weight of a finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Weight returns the risk-score contribution of this severity.
// Unknown severities weigh the same as low.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityHigh:
		return 30
	case SeverityMedium:
		return 15
	default:
		return 5
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s == SeverityHigh || s == SeverityMedium || s == SeverityLow
}

// Document represents an ingested contract document.
type Document struct {
	ID         int64     `json:"-"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"-"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type"`
	NumPages   int       `json:"num_pages"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a bounded, possibly overlapping span of a document's text
// with positional metadata. CharStart and CharEnd index into the owning
// document's concatenated text.
type Chunk struct {
	ID         int64  `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"chunk_index"`
	Text       string `json:"text_content"`
	PageNumber *int   `json:"page_number,omitempty"`
	CharStart  int    `json:"char_start"`
	CharEnd    int    `json:"char_end"`
}

// Validate checks the chunk span invariants.
func (c Chunk) Validate() error {
	if c.Index < 0 {
		return fmt.Errorf("chunk index must not be negative, got %d", c.Index)
	}
	if c.CharStart >= c.CharEnd {
		return fmt.Errorf("chunk span invalid: start %d >= end %d", c.CharStart, c.CharEnd)
	}
	return nil
}

// LiabilityCap is a parsed liability limit with a normalized currency.
type LiabilityCap struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"` // USD, EUR or GBP
}

// Fields is the structured fact record produced by rule-based extraction.
// A field that could not be matched stays at its zero value; re-running
// extraction on identical text produces an identical record.
type Fields struct {
	Parties         []string      `json:"parties"`
	EffectiveDate   string        `json:"effective_date,omitempty"`
	Term            string        `json:"term,omitempty"`
	GoverningLaw    string        `json:"governing_law,omitempty"`
	PaymentTerms    string        `json:"payment_terms,omitempty"`
	Termination     string        `json:"termination,omitempty"`
	AutoRenewal     string        `json:"auto_renewal,omitempty"`
	Confidentiality string        `json:"confidentiality,omitempty"`
	Indemnity       string        `json:"indemnity,omitempty"`
	LiabilityCap    *LiabilityCap `json:"liability_cap,omitempty"`
	Method          string        `json:"extraction_method"`
	Confidence      float64       `json:"confidence_score"`
}

// Finding is one detected risk or compliance issue with severity and
// textual evidence. Char positions are optional: clause-absence findings
// have no anchor in the text.
type Finding struct {
	Type        string   `json:"finding_type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Evidence    string   `json:"evidence,omitempty"`
	PageNumber  *int     `json:"page_number,omitempty"`
	CharStart   *int     `json:"char_start,omitempty"`
	CharEnd     *int     `json:"char_end,omitempty"`
}

// Citation points an answer back at the chunk it was grounded on.
type Citation struct {
	DocumentID string `json:"document_id"`
	PageNumber *int   `json:"page_number,omitempty"`
	CharStart  *int   `json:"char_start,omitempty"`
	CharEnd    *int   `json:"char_end,omitempty"`
	Excerpt    string `json:"text_excerpt"`
}

// Answer is the response to a question, with citations into the corpus.
type Answer struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Confidence float64    `json:"confidence"`
}
