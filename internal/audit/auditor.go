// Package audit evaluates a declarative table of risk rules against
// contract text, producing weighted findings and a bounded risk score.
// The whole audit is a pure function: identical inputs always yield an
// identical finding list and score, so callers may cache results.
package audit

import (
	"fmt"
	"strings"

	"contract-intel/internal/models"
)

// MaxScore caps the aggregate risk score.
const MaxScore = 100.0

// evidenceWindow is the context captured around a pattern match.
const evidenceWindow = 100

// RuleError records a rule that failed to evaluate. A single failing
// rule never prevents the remaining rules from running.
type RuleError struct {
	RuleID string
	Err    error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Err)
}

// Report is the outcome of one audit run.
type Report struct {
	Findings   []models.Finding
	Score      float64
	RuleErrors []RuleError
}

// Auditor runs an ordered, immutable rule table over document text.
type Auditor struct {
	rules []Rule
}

// New creates an Auditor with the default rule table.
func New() *Auditor {
	return NewWithRules(DefaultRules())
}

// NewWithRules creates an Auditor with a custom rule table.
func NewWithRules(rules []Rule) *Auditor {
	return &Auditor{rules: rules}
}

// Audit evaluates every rule against text and the optional fact record,
// in table order. Each rule contributes at most one pattern finding and
// at most one custom-check finding per run, even when the underlying
// issue recurs in the text.
func (a *Auditor) Audit(text string, facts *models.Fields) Report {
	var report Report
	for _, rule := range a.rules {
		findings, err := evaluateRule(rule, text, facts)
		if err != nil {
			report.RuleErrors = append(report.RuleErrors, RuleError{RuleID: rule.ID, Err: err})
			continue
		}
		report.Findings = append(report.Findings, findings...)
	}
	report.Score = Score(report.Findings)
	return report
}

// evaluateRule runs one rule in isolation, converting a panicking
// custom check into a per-rule error.
func evaluateRule(rule Rule, text string, facts *models.Fields) (findings []models.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("rule evaluation panicked: %v", r)
		}
	}()

	// First matching pattern only, first match only. Recording a single
	// finding per rule is a known under-report of repeated issues,
	// preserved deliberately.
	for _, re := range rule.Patterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		start, end := loc[0], loc[1]
		findings = append(findings, models.Finding{
			Type:        rule.ID,
			Severity:    rule.Severity,
			Description: rule.Name,
			Evidence:    evidenceAround(text, start, end),
			CharStart:   &start,
			CharEnd:     &end,
		})
		break
	}

	if rule.Check != nil {
		if f := rule.Check(text, facts); f != nil {
			f.Type = rule.ID
			f.Severity = rule.Severity
			f.Description = rule.Name
			findings = append(findings, *f)
		}
	}
	return findings, nil
}

// Score sums severity weights over findings, capped at MaxScore. It is
// deterministic and order-independent for a fixed finding set.
func Score(findings []models.Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range findings {
		total += f.Severity.Weight()
	}
	if total > MaxScore {
		return MaxScore
	}
	return total
}

// FallbackSummary builds a deterministic audit summary from finding
// counts by severity. It is used whenever LLM summarization is
// unavailable or fails.
func FallbackSummary(findings []models.Finding, score float64) string {
	if len(findings) == 0 {
		return "No significant risks identified."
	}
	var high, medium, low int
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityHigh:
			high++
		case models.SeverityMedium:
			medium++
		case models.SeverityLow:
			low++
		}
	}
	return fmt.Sprintf("Found %d issues: %d high, %d medium, %d low severity. Risk score: %.0f/100.",
		len(findings), high, medium, low, score)
}

// evidenceAround returns the trimmed text surrounding a match.
func evidenceAround(text string, start, end int) string {
	from := start - evidenceWindow
	if from < 0 {
		from = 0
	}
	to := end + evidenceWindow
	if to > len(text) {
		to = len(text)
	}
	return strings.TrimSpace(text[from:to])
}
