package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"contract-intel/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

const (
	// maxContextChunks bounds how many retrieved chunks feed a prompt.
	maxContextChunks = 5
	// maxAnswerTokens bounds generated answer length.
	maxAnswerTokens = 500
	// maxSummaryTokens bounds generated audit summaries.
	maxSummaryTokens = 200
)

// Ollama synthesizes answers and summaries with a local Ollama model.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an Ollama-backed synthesizer. An empty host falls
// back to the OLLAMA_HOST environment variable.
func NewOllama(host, model string) (*Ollama, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}

	return &Ollama{
		client: api.NewClient(hostURL, http.DefaultClient),
		model:  model,
	}, nil
}

// Answer generates a grounded answer for question from the retrieved
// chunks.
func (o *Ollama) Answer(ctx context.Context, question string, chunks []models.Chunk) (string, error) {
	var sb strings.Builder
	err := o.AnswerStream(ctx, question, chunks, func(fragment string) error {
		_, werr := sb.WriteString(fragment)
		return werr
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

// AnswerStream generates an answer incrementally, invoking emit for
// each fragment as the model produces it.
func (o *Ollama) AnswerStream(ctx context.Context, question string, chunks []models.Chunk, emit func(string) error) error {
	req := api.GenerateRequest{
		Model:  o.model,
		Prompt: answerPrompt(question, chunks),
		Options: map[string]any{
			"temperature": 0.3,
			"num_predict": maxAnswerTokens,
		},
	}

	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		if resp.Response == "" {
			return nil
		}
		return emit(resp.Response)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SummarizeAudit produces a short executive summary of audit findings.
func (o *Ollama) SummarizeAudit(ctx context.Context, findings []models.Finding, score float64) (string, error) {
	if len(findings) == 0 {
		return "No significant risks identified in this document.", nil
	}

	req := api.GenerateRequest{
		Model:  o.model,
		Prompt: summaryPrompt(findings, score),
		Options: map[string]any{
			"temperature": 0.3,
			"num_predict": maxSummaryTokens,
		},
	}

	var sb strings.Builder
	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, werr := sb.WriteString(resp.Response)
		return werr
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// answerPrompt builds the Q&A prompt with cited context blocks.
func answerPrompt(question string, chunks []models.Chunk) string {
	var sb strings.Builder
	sb.WriteString("You are a legal document analysis assistant that answers questions about contracts. ")
	sb.WriteString("Use ONLY the information from the provided context to answer the question. ")
	sb.WriteString("If the answer cannot be found in the context, say so.\n\n")

	sb.WriteString("Context:\n")
	for i, chunk := range chunks {
		if i >= maxContextChunks {
			break
		}
		page := "N/A"
		if chunk.PageNumber != nil {
			page = fmt.Sprintf("%d", *chunk.PageNumber)
		}
		fmt.Fprintf(&sb, "[Document %s, Page %s]\n%s\n\n", chunk.DocumentID, page, chunk.Text)
	}

	sb.WriteString("Question: " + question + "\n\n")
	sb.WriteString("Answer: ")
	return sb.String()
}

// summaryPrompt builds the audit-summary prompt.
func summaryPrompt(findings []models.Finding, score float64) string {
	var sb strings.Builder
	sb.WriteString("You are a legal risk analyst. Provide a brief executive summary of the following contract audit findings:\n\n")
	for _, f := range findings {
		fmt.Fprintf(&sb, "- %s: %s\n", strings.ToUpper(string(f.Severity)), f.Description)
	}
	fmt.Fprintf(&sb, "\nOverall Risk Score: %.0f/100\n\n", score)
	sb.WriteString("Summarize the key risks in 2-3 sentences:")
	return sb.String()
}
