// Package llm provides answer synthesis and audit summarization backed
// by an Ollama model, behind a capability interface so the deterministic
// pipeline never depends on model availability.
package llm

import (
	"context"
	"errors"

	"contract-intel/internal/models"
)

// ErrUnavailable is returned by a synthesizer that cannot reach a
// language model. Callers degrade to deterministic fallbacks.
var ErrUnavailable = errors.New("language model unavailable")

// Synthesizer is the capability the intelligence endpoints need from a
// language model: answer a question over retrieved chunks, optionally
// streaming fragments, and summarize an audit report.
type Synthesizer interface {
	Answer(ctx context.Context, question string, chunks []models.Chunk) (string, error)
	AnswerStream(ctx context.Context, question string, chunks []models.Chunk, emit func(fragment string) error) error
	SummarizeAudit(ctx context.Context, findings []models.Finding, score float64) (string, error)
}

// Null is a Synthesizer for rule-based-only deployments. Every call
// reports ErrUnavailable, which makes unavailability a constructor-time
// decision rather than a runtime surprise.
type Null struct{}

// NewNull creates a Null synthesizer.
func NewNull() Null { return Null{} }

func (Null) Answer(context.Context, string, []models.Chunk) (string, error) {
	return "", ErrUnavailable
}

func (Null) AnswerStream(context.Context, string, []models.Chunk, func(string) error) error {
	return ErrUnavailable
}

func (Null) SummarizeAudit(context.Context, []models.Finding, float64) (string, error) {
	return "", ErrUnavailable
}
