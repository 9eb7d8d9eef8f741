// Package extractor performs deterministic, rule-based extraction of
// structured facts from contract text: parties, dates, term, governing
// law, liability cap, auto-renewal, and named sections. Every routine
// is a short cascade of candidate patterns evaluated in priority order;
// the first pattern that matches wins. Extraction never fails: a field
// that cannot be matched resolves to its zero value.
package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"contract-intel/internal/models"
)

const (
	// Method tags every record produced by this package.
	Method = "rule-based"

	// Confidence is fixed for rule-based extraction; there is no
	// statistical model behind it to vary per field.
	Confidence = 0.7

	// Parties and dates almost always appear in the preamble, so those
	// searches are capped. Governing law can appear late and is not.
	partyScanLimit = 2000
	dateScanLimit  = 2000
	termScanLimit  = 3000

	maxParties    = 5
	minPartyLen   = 4
	maxSectionLen = 500
	sectionTail   = 5 // lines captured after the keyword line
)

var (
	partyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)between\s+([A-Z][A-Za-z\s&,\.]+?)\s+(?:and|&)`),
		regexp.MustCompile(`(?im)entered into by\s+([A-Z][A-Za-z\s&,\.]+?)\s+(?:and|&)`),
		regexp.MustCompile(`(?im)PARTY\s+(?:A|1):\s*([A-Z][A-Za-z\s&,\.]+?)(?:\n|$)`),
		regexp.MustCompile(`(?im)(?:Client|Vendor|Contractor):\s*([A-Z][A-Za-z\s&,\.]+?)(?:\n|$)`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:effective|dated?|entered into).*?(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`),
		regexp.MustCompile(`(?i)(?:effective|dated?|entered into).*?([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
		regexp.MustCompile(`(?i)Effective Date:\s*([A-Z][a-z]+\s+\d{1,2},?\s+\d{4})`),
	}

	termPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:term|duration).*?(\d+\s+(?:year|month|day)s?)`),
		regexp.MustCompile(`(?i)for a period of\s+(\d+\s+(?:year|month|day)s?)`),
		regexp.MustCompile(`(?i)Term:\s*([^\n]+)`),
	}

	governingLawPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)governed by.*?laws of\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`),
		regexp.MustCompile(`(?i)governing law.*?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+law`),
		regexp.MustCompile(`(?i)Governing Law:\s*([^\n]+)`),
	}

	liabilityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)liability.*?(?:limited|capped|exceed).*?(?:USD|EUR|\$|€|£)\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)(?:USD|EUR|\$|€|£)\s*(\d+(?:,\d{3})*(?:\.\d{2})?).*?liability`),
	}
	currencyMarker = regexp.MustCompile(`(USD|EUR|GBP|\$|€|£)`)

	autoRenewalRe = regexp.MustCompile(`(?i)auto(?:matic)?(?:ally)?\s+renew`)
	renewalNotice = regexp.MustCompile(`(?i)(\d+)\s+day[s]?\s+(?:notice|prior)`)
)

// Extractor holds no state; it exists so callers can inject the
// extraction capability rather than reach for package functions.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract runs the full cascade over text and returns the populated
// fact record. Identical text always yields an identical record.
func (e *Extractor) Extract(text string) *models.Fields {
	return &models.Fields{
		Parties:         e.Parties(text),
		EffectiveDate:   e.EffectiveDate(text),
		Term:            e.Term(text),
		GoverningLaw:    e.GoverningLaw(text),
		PaymentTerms:    e.Section(text, []string{"payment", "compensation"}),
		Termination:     e.Section(text, []string{"termination", "cancellation"}),
		AutoRenewal:     e.AutoRenewal(text),
		Confidentiality: e.Section(text, []string{"confidential", "non-disclosure"}),
		Indemnity:       e.Section(text, []string{"indemnit", "indemnif"}),
		LiabilityCap:    e.LiabilityCap(text),
		Method:          Method,
		Confidence:      Confidence,
	}
}

// Parties extracts up to five unique party names from the document
// preamble. First-seen order is preserved.
func (e *Extractor) Parties(text string) []string {
	head := clip(text, partyScanLimit)

	var parties []string
	seen := make(map[string]bool)
	for _, re := range partyPatterns {
		for _, m := range re.FindAllStringSubmatch(head, -1) {
			party := strings.Trim(strings.Trim(strings.TrimSpace(m[1]), ","), ".")
			if len(party) < minPartyLen || seen[party] {
				continue
			}
			seen[party] = true
			parties = append(parties, party)
		}
	}
	if len(parties) > maxParties {
		parties = parties[:maxParties]
	}
	return parties
}

// EffectiveDate extracts the effective date in numeric or textual form.
func (e *Extractor) EffectiveDate(text string) string {
	return firstCapture(datePatterns, clip(text, dateScanLimit))
}

// Term extracts the contract term or duration.
func (e *Extractor) Term(text string) string {
	return firstCapture(termPatterns, clip(text, termScanLimit))
}

// GoverningLaw extracts the governing-law jurisdiction. The whole text
// is searched because this clause often appears near the end.
func (e *Extractor) GoverningLaw(text string) string {
	return firstCapture(governingLawPatterns, text)
}

// LiabilityCap extracts a liability limit with normalized currency.
// A candidate whose amount fails to parse is discarded and the cascade
// continues; nil means no cap was found.
func (e *Extractor) LiabilityCap(text string) *models.LiabilityCap {
	for _, re := range liabilityPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return &models.LiabilityCap{
			Amount:   amount,
			Currency: normalizeCurrency(m[0]),
		}
	}
	return nil
}

// AutoRenewal reports whether the contract renews automatically and, if
// so, whether a notice period is specified anywhere in the document.
func (e *Extractor) AutoRenewal(text string) string {
	if !autoRenewalRe.MatchString(text) {
		return "No"
	}
	if m := renewalNotice.FindStringSubmatch(text); m != nil {
		return "Yes, " + m[1] + " days notice required"
	}
	return "Yes"
}

// Section finds the first line containing any of the keyword
// alternatives and captures it plus up to five following lines,
// truncated with an ellipsis when over length.
func (e *Extractor) Section(text string, keywords []string) string {
	for _, keyword := range keywords {
		re := regexp.MustCompile(`(?im)(?:^|\n)([^\n]*` + regexp.QuoteMeta(keyword) +
			`[^\n]*\n(?:[^\n]+\n){0,` + strconv.Itoa(sectionTail) + `})`)
		m := re.FindString(text)
		if m == "" {
			continue
		}
		section := strings.TrimSpace(m)
		if len(section) > maxSectionLen {
			section = section[:maxSectionLen] + "..."
		}
		return section
	}
	return ""
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func normalizeCurrency(match string) string {
	switch currencyMarker.FindString(match) {
	case "€", "EUR":
		return "EUR"
	case "£", "GBP":
		return "GBP"
	default:
		return "USD"
	}
}

func clip(text string, limit int) string {
	if len(text) > limit {
		return text[:limit]
	}
	return text
}
