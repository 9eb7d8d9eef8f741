package audit

import (
	"regexp"
	"strconv"

	"contract-intel/internal/models"
)

// CheckFunc is a custom predicate evaluated against the full document
// text and an optional pre-extracted fact record. It returns nil when
// the rule is not violated.
type CheckFunc func(text string, facts *models.Fields) *models.Finding

// Rule is a named, declarative unit of audit logic: an ordered pattern
// list, a custom check, or both. Rules are configuration, not runtime
// state; the table is fixed at construction.
type Rule struct {
	ID       string
	Name     string
	Severity models.Severity
	Patterns []*regexp.Regexp
	Check    CheckFunc
}

var (
	terminationRe  = regexp.MustCompile(`(?i)terminat(?:ion|e)`)
	governingLawRe = regexp.MustCompile(`(?i)governing\s+law`)
	autoRenewRe    = regexp.MustCompile(`(?i)auto(?:matic)?(?:ally)?\s+renew`)
	noticePeriodRe = regexp.MustCompile(`(?i)(\d+)\s+days?\s+(?:notice|prior)`)
	cancelNoticeRe = regexp.MustCompile(`(?i)(?:terminate|cancel).*?(\d+)\s+days?\s+notice`)
)

// Notice periods shorter than this many days are flagged.
const minNoticeDays = 30

// DefaultRules returns the built-in rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "MISSING_TERMINATION",
			Name:     "Missing Termination Clause",
			Severity: models.SeverityHigh,
			Check:    checkTerminationClause,
		},
		{
			ID:       "UNLIMITED_LIABILITY",
			Name:     "Unlimited Liability",
			Severity: models.SeverityHigh,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)unlimited\s+liability`),
				regexp.MustCompile(`(?i)no\s+(?:limit|cap).*?liability`),
			},
		},
		{
			ID:       "AUTO_RENEWAL",
			Name:     "Automatic Renewal Without Notice",
			Severity: models.SeverityMedium,
			Patterns: []*regexp.Regexp{autoRenewRe},
			Check:    checkAutoRenewalNotice,
		},
		{
			ID:       "MISSING_GOVERNING_LAW",
			Name:     "Missing Governing Law",
			Severity: models.SeverityMedium,
			Check:    checkGoverningLaw,
		},
		{
			ID:       "UNILATERAL_MODIFICATION",
			Name:     "Unilateral Modification Rights",
			Severity: models.SeverityHigh,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:may|can|shall)\s+(?:modify|change|amend).*?(?:at any time|without notice)`),
				regexp.MustCompile(`(?i)reserves?\s+the\s+right\s+to\s+(?:modify|change|amend)`),
			},
		},
		{
			ID:       "SHORT_NOTICE_TERMINATION",
			Name:     "Short Notice Period",
			Severity: models.SeverityMedium,
			Check:    checkTerminationNotice,
		},
		{
			ID:       "BROAD_INDEMNITY",
			Name:     "Broad Indemnity Clause",
			Severity: models.SeverityHigh,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)indemnify.*?(?:from\s+(?:any|all)|harmless)`),
				regexp.MustCompile(`(?i)hold\s+harmless`),
			},
		},
		{
			ID:       "NO_WARRANTY",
			Name:     "No Warranty Disclaimer",
			Severity: models.SeverityLow,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)as\s+is`),
				regexp.MustCompile(`(?i)without\s+warranty`),
				regexp.MustCompile(`(?i)no\s+warranties`),
			},
		},
	}
}

// checkTerminationClause flags documents with no termination language
// at all, or where extraction found no recognizable termination clause.
func checkTerminationClause(text string, facts *models.Fields) *models.Finding {
	if !terminationRe.MatchString(text) {
		return &models.Finding{Evidence: "No termination clause found in document"}
	}
	if facts != nil && facts.Termination == "" {
		return &models.Finding{Evidence: "Termination clause not clearly defined"}
	}
	return nil
}

// checkGoverningLaw flags documents missing a governing-law clause.
func checkGoverningLaw(text string, facts *models.Fields) *models.Finding {
	if !governingLawRe.MatchString(text) {
		return &models.Finding{Evidence: "No governing law clause found"}
	}
	if facts != nil && facts.GoverningLaw == "" {
		return &models.Finding{Evidence: "Governing law not clearly specified"}
	}
	return nil
}

// checkAutoRenewalNotice flags auto-renewal clauses whose notice period
// is missing or shorter than 30 days. The notice phrase is searched in
// a ±500-character window around the first renewal mention.
func checkAutoRenewalNotice(text string, facts *models.Fields) *models.Finding {
	loc := autoRenewRe.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	windowStart := loc[0] - 500
	if windowStart < 0 {
		windowStart = 0
	}
	windowEnd := loc[1] + 500
	if windowEnd > len(text) {
		windowEnd = len(text)
	}

	if m := noticePeriodRe.FindStringSubmatch(text[windowStart:windowEnd]); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil && days >= minNoticeDays {
			return nil
		}
	}

	start := loc[0]
	end := start + 200
	if end > len(text) {
		end = len(text)
	}
	return &models.Finding{
		Evidence:  text[start:end],
		CharStart: &start,
		CharEnd:   &end,
	}
}

// checkTerminationNotice flags the first termination or cancellation
// clause with a notice period shorter than 30 days.
func checkTerminationNotice(text string, facts *models.Fields) *models.Finding {
	for _, m := range cancelNoticeRe.FindAllStringSubmatchIndex(text, -1) {
		days, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || days >= minNoticeDays {
			continue
		}
		start := m[0]
		end := m[1] + 100
		if end > len(text) {
			end = len(text)
		}
		return &models.Finding{
			Evidence:  text[start:end],
			CharStart: &start,
			CharEnd:   &end,
		}
	}
	return nil
}
