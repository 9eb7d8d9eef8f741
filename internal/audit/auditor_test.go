package audit

import (
	"testing"

	"contract-intel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riskyContract = `This Agreement imposes unlimited liability on the Contractor.
The Vendor reserves the right to modify these terms.
The Contractor shall indemnify and hold harmless the Client from any claims.
The software is provided as is, without warranty of any kind.
`

func findingsOfType(findings []models.Finding, findingType string) []models.Finding {
	var out []models.Finding
	for _, f := range findings {
		if f.Type == findingType {
			out = append(out, f)
		}
	}
	return out
}

func TestAuditRiskyContract(t *testing.T) {
	a := New()
	report := a.Audit(riskyContract, nil)

	require.Empty(t, report.RuleErrors)

	for _, id := range []string{
		"MISSING_TERMINATION",
		"UNLIMITED_LIABILITY",
		"MISSING_GOVERNING_LAW",
		"UNILATERAL_MODIFICATION",
		"BROAD_INDEMNITY",
		"NO_WARRANTY",
	} {
		assert.NotEmpty(t, findingsOfType(report.Findings, id), "expected finding %s", id)
	}

	// Four high (30), one medium (15), one low (5) exceeds the cap.
	assert.Equal(t, MaxScore, report.Score)
}

func TestAuditIdempotent(t *testing.T) {
	a := New()
	first := a.Audit(riskyContract, nil)
	second := a.Audit(riskyContract, nil)

	assert.Equal(t, first.Findings, second.Findings)
	assert.Equal(t, first.Score, second.Score)
}

func TestAuditCleanContract(t *testing.T) {
	text := `Either party may terminate this Agreement with 90 days notice.
This Agreement shall be governed by the laws of Delaware, and the
governing law clause survives termination. Liability is capped at the
fees paid. Each party warrants that it has authority to enter into
this Agreement.
`
	a := New()
	report := a.Audit(text, nil)

	assert.Empty(t, findingsOfType(report.Findings, "MISSING_TERMINATION"))
	assert.Empty(t, findingsOfType(report.Findings, "MISSING_GOVERNING_LAW"))
	assert.Empty(t, findingsOfType(report.Findings, "UNLIMITED_LIABILITY"))
	assert.Empty(t, findingsOfType(report.Findings, "SHORT_NOTICE_TERMINATION"))
}

func TestPatternFindingCarriesEvidence(t *testing.T) {
	a := New()
	report := a.Audit(riskyContract, nil)

	found := findingsOfType(report.Findings, "UNLIMITED_LIABILITY")
	require.Len(t, found, 1)
	f := found[0]

	assert.Equal(t, models.SeverityHigh, f.Severity)
	assert.Equal(t, "Unlimited Liability", f.Description)
	assert.Contains(t, f.Evidence, "unlimited liability")
	require.NotNil(t, f.CharStart)
	require.NotNil(t, f.CharEnd)
	assert.Less(t, *f.CharStart, *f.CharEnd)
}

func TestOneFindingPerRuleOnRepeatedMatches(t *testing.T) {
	text := "The parties accept unlimited liability. Again: unlimited liability applies to all claims."
	a := New()
	report := a.Audit(text, nil)

	assert.Len(t, findingsOfType(report.Findings, "UNLIMITED_LIABILITY"), 1)
}

func TestMissingClauseChecksUseFacts(t *testing.T) {
	text := "This contract mentions termination and its governing law briefly."

	t.Run("without facts the mentions suffice", func(t *testing.T) {
		a := New()
		report := a.Audit(text, nil)
		assert.Empty(t, findingsOfType(report.Findings, "MISSING_TERMINATION"))
		assert.Empty(t, findingsOfType(report.Findings, "MISSING_GOVERNING_LAW"))
	})

	t.Run("empty extracted fields flag unclear clauses", func(t *testing.T) {
		a := New()
		report := a.Audit(text, &models.Fields{})
		assert.NotEmpty(t, findingsOfType(report.Findings, "MISSING_TERMINATION"))
		assert.NotEmpty(t, findingsOfType(report.Findings, "MISSING_GOVERNING_LAW"))
	})
}

func TestAutoRenewalNotice(t *testing.T) {
	t.Run("renewal without notice is flagged", func(t *testing.T) {
		text := "Subscriptions automatically renew every year without exception."
		a := New()
		report := a.Audit(text, nil)
		assert.NotEmpty(t, findingsOfType(report.Findings, "AUTO_RENEWAL"))
	})

	t.Run("renewal with adequate notice passes the check", func(t *testing.T) {
		text := "Subscriptions automatically renew unless cancelled with 60 days notice."
		a := New()
		report := a.Audit(text, nil)
		// The pattern finding remains; the notice check is satisfied.
		assert.Len(t, findingsOfType(report.Findings, "AUTO_RENEWAL"), 1)
	})

	t.Run("short notice fails the check", func(t *testing.T) {
		text := "Subscriptions automatically renew unless cancelled with 5 days notice."
		a := New()
		report := a.Audit(text, nil)
		assert.Len(t, findingsOfType(report.Findings, "AUTO_RENEWAL"), 2)
	})
}

func TestShortNoticeTermination(t *testing.T) {
	t.Run("short notice flagged", func(t *testing.T) {
		text := "Either party may terminate this contract with 10 days notice."
		a := New()
		report := a.Audit(text, nil)

		found := findingsOfType(report.Findings, "SHORT_NOTICE_TERMINATION")
		require.Len(t, found, 1)
		assert.Equal(t, models.SeverityMedium, found[0].Severity)
		assert.Contains(t, found[0].Evidence, "10 days notice")
	})

	t.Run("adequate notice passes", func(t *testing.T) {
		text := "Either party may terminate this contract with 30 days notice."
		a := New()
		report := a.Audit(text, nil)
		assert.Empty(t, findingsOfType(report.Findings, "SHORT_NOTICE_TERMINATION"))
	})
}

func TestScore(t *testing.T) {
	high := models.Finding{Severity: models.SeverityHigh}
	medium := models.Finding{Severity: models.SeverityMedium}
	low := models.Finding{Severity: models.SeverityLow}

	tests := []struct {
		name     string
		findings []models.Finding
		want     float64
	}{
		{name: "empty", findings: nil, want: 0},
		{name: "single high", findings: []models.Finding{high}, want: 30},
		{name: "mixed", findings: []models.Finding{high, high, medium}, want: 75},
		{name: "capped", findings: []models.Finding{high, high, high, medium, low}, want: MaxScore},
		{name: "unknown severity weighs as low", findings: []models.Finding{{Severity: "bogus"}}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.findings))
		})
	}
}

func TestRuleFailureIsIsolated(t *testing.T) {
	rules := []Rule{
		{
			ID:       "PANICKING_RULE",
			Name:     "Broken",
			Severity: models.SeverityHigh,
			Check: func(text string, facts *models.Fields) *models.Finding {
				panic("boom")
			},
		},
		{
			ID:       "WORKING_RULE",
			Name:     "Works",
			Severity: models.SeverityLow,
			Check: func(text string, facts *models.Fields) *models.Finding {
				return &models.Finding{Evidence: "always fires"}
			},
		},
	}

	a := NewWithRules(rules)
	report := a.Audit("any text", nil)

	require.Len(t, report.RuleErrors, 1)
	assert.Equal(t, "PANICKING_RULE", report.RuleErrors[0].RuleID)
	assert.Contains(t, report.RuleErrors[0].Error(), "boom")

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "WORKING_RULE", report.Findings[0].Type)
	assert.Equal(t, models.SeverityLow, report.Findings[0].Severity)
	assert.Equal(t, 5.0, report.Score)
}

func TestFallbackSummary(t *testing.T) {
	t.Run("no findings", func(t *testing.T) {
		assert.Equal(t, "No significant risks identified.", FallbackSummary(nil, 0))
	})

	t.Run("counts by severity", func(t *testing.T) {
		findings := []models.Finding{
			{Severity: models.SeverityHigh},
			{Severity: models.SeverityHigh},
			{Severity: models.SeverityMedium},
			{Severity: models.SeverityLow},
		}
		summary := FallbackSummary(findings, 80)
		assert.Equal(t, "Found 4 issues: 2 high, 1 medium, 1 low severity. Risk score: 80/100.", summary)
	})
}
