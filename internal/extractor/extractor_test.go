package extractor

import (
	"strings"
	"testing"

	"contract-intel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContract = `SERVICE AGREEMENT

This Agreement is entered into by Acme Corporation and Beta Holdings, effective January 15, 2024.

1. TERM
The term of this Agreement is 2 years from the Effective Date.

2. PAYMENT TERMS
Client shall pay all invoices within net 30 days of receipt.
Late payments accrue interest at 1.5% per month.

3. TERMINATION
Either party may terminate this Agreement with 60 days written notice.

4. CONFIDENTIALITY
Each party shall keep Confidential Information strictly confidential.

5. LIABILITY
The Contractor's liability shall not exceed USD $100,000 in aggregate.

6. RENEWAL
This Agreement shall automatically renew for successive one year terms
unless either party provides 30 days notice of non-renewal.

7. GOVERNING LAW
This Agreement shall be governed by the laws of Delaware.
`

func TestExtract(t *testing.T) {
	e := New()
	fields := e.Extract(sampleContract)

	assert.Contains(t, fields.Parties, "Acme Corporation")
	assert.Equal(t, "January 15, 2024", fields.EffectiveDate)
	assert.Equal(t, "2 years", fields.Term)
	assert.Equal(t, "Delaware", fields.GoverningLaw)
	assert.Equal(t, "Yes, 30 days notice required", fields.AutoRenewal)
	assert.Contains(t, fields.PaymentTerms, "net 30 days")
	assert.Contains(t, fields.Termination, "60 days written notice")
	assert.Contains(t, fields.Confidentiality, "Confidential Information")

	require.NotNil(t, fields.LiabilityCap)
	assert.Equal(t, 100000.0, fields.LiabilityCap.Amount)
	assert.Equal(t, "USD", fields.LiabilityCap.Currency)

	assert.Equal(t, Method, fields.Method)
	assert.Equal(t, Confidence, fields.Confidence)
}

func TestExtractDeterministic(t *testing.T) {
	e := New()
	assert.Equal(t, e.Extract(sampleContract), e.Extract(sampleContract))
}

func TestExtractEmptyText(t *testing.T) {
	e := New()
	fields := e.Extract("")

	assert.Empty(t, fields.Parties)
	assert.Empty(t, fields.EffectiveDate)
	assert.Empty(t, fields.GoverningLaw)
	assert.Equal(t, "No", fields.AutoRenewal)
	assert.Nil(t, fields.LiabilityCap)
	assert.Equal(t, Method, fields.Method)
}

func TestParties(t *testing.T) {
	e := New()

	t.Run("labeled parties", func(t *testing.T) {
		text := "Client: Acme Corporation\nVendor: Beta Services\n"
		parties := e.Parties(text)
		assert.Equal(t, []string{"Acme Corporation", "Beta Services"}, parties)
	})

	t.Run("deduplicates", func(t *testing.T) {
		text := "This contract is between Acme Corporation and Beta LLC.\nClient: Acme Corporation\n"
		parties := e.Parties(text)
		count := 0
		for _, p := range parties {
			if p == "Acme Corporation" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("discards short fragments", func(t *testing.T) {
		text := "Client: Ab\n"
		assert.Empty(t, e.Parties(text))
	})
}

func TestEffectiveDate(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "numeric", text: "This Agreement is effective as of 01/15/2024.", want: "01/15/2024"},
		{name: "textual", text: "This Agreement is dated March 3, 2023.", want: "March 3, 2023"},
		{name: "labeled", text: "Effective Date: April 1, 2024\n", want: "April 1, 2024"},
		{name: "absent", text: "No dates appear here.", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.EffectiveDate(tt.text))
		})
	}
}

func TestLiabilityCap(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want *models.LiabilityCap
	}{
		{
			name: "usd with dollar sign",
			text: "The Contractor's liability shall not exceed USD $100,000 in aggregate.",
			want: &models.LiabilityCap{Amount: 100000, Currency: "USD"},
		},
		{
			name: "euro",
			text: "Liability under this Agreement is capped at €50,000 for all claims.",
			want: &models.LiabilityCap{Amount: 50000, Currency: "EUR"},
		},
		{
			name: "pounds with decimals",
			text: "Total liability is limited to £1,250.50 per incident.",
			want: &models.LiabilityCap{Amount: 1250.50, Currency: "GBP"},
		},
		{
			name: "amount before liability keyword",
			text: "A fee of $25,000 covers all liability under this contract.",
			want: &models.LiabilityCap{Amount: 25000, Currency: "USD"},
		},
		{
			name: "no cap mentioned",
			text: "The parties accept unlimited liability.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.LiabilityCap(tt.text)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Amount, got.Amount)
			assert.Equal(t, tt.want.Currency, got.Currency)
		})
	}
}

func TestAutoRenewal(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "no renewal clause",
			text: "This Agreement expires at the end of the term.",
			want: "No",
		},
		{
			name: "renewal without notice",
			text: "This Agreement shall automatically renew for one year terms.",
			want: "Yes",
		},
		{
			name: "renewal with notice period",
			text: "This Agreement shall automatically renew unless either party gives 30 days notice.",
			want: "Yes, 30 days notice required",
		},
		{
			name: "short form auto renew",
			text: "The subscription will auto renew each month.",
			want: "Yes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.AutoRenewal(tt.text))
		})
	}
}

func TestSection(t *testing.T) {
	e := New()

	t.Run("captures keyword line and following lines", func(t *testing.T) {
		text := "Intro line.\nPAYMENT TERMS\nNet 30 days.\nInterest accrues monthly.\n\nNext section.\n"
		section := e.Section(text, []string{"payment"})
		assert.Contains(t, section, "PAYMENT TERMS")
		assert.Contains(t, section, "Net 30 days.")
	})

	t.Run("first keyword wins", func(t *testing.T) {
		text := "Cancellation takes effect immediately.\nTermination requires notice.\n"
		section := e.Section(text, []string{"termination", "cancellation"})
		assert.Contains(t, section, "Termination requires notice.")
	})

	t.Run("missing keyword", func(t *testing.T) {
		assert.Empty(t, e.Section("Nothing relevant here.\n", []string{"indemnit"}))
	})

	t.Run("long sections are truncated", func(t *testing.T) {
		long := "payment " + strings.Repeat("very long clause text ", 120)
		section := e.Section(long+"\n", []string{"payment"})
		assert.LessOrEqual(t, len(section), maxSectionLen+3)
		assert.Contains(t, section, "...")
	})
}
