package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"contract-intel/internal/models"
	"contract-intel/internal/retriever"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// maxCitations bounds how many citations accompany an answer.
	maxCitations = 5
	// citationExcerptLen bounds the excerpt carried by a citation.
	citationExcerptLen = 200
	// allDocumentsLimit bounds a corpus-wide search.
	allDocumentsLimit = 1000
)

// AskRequest is the request body for POST /api/v1/ask and /stream.
type AskRequest struct {
	Question    string   `json:"question"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	MaxResults  int      `json:"max_results,omitempty"`
}

// handleAsk answers a question over the stored corpus: lexical
// retrieval picks the most relevant chunks, the synthesizer grounds an
// answer on them, and citations point back at the sources.
func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Question cannot be empty")
	}

	ctx := c.Request().Context()
	relevant, err := s.searchCorpus(ctx, req)
	if err != nil {
		return err
	}

	if len(relevant) == 0 {
		return c.JSON(http.StatusOK, models.Answer{
			Question:   req.Question,
			Answer:     "I couldn't find relevant information to answer this question.",
			Citations:  []models.Citation{},
			Confidence: 0,
		})
	}

	chunks := scoredChunks(relevant)
	answer, confidence := s.synthesizeAnswer(ctx, req.Question, chunks)

	s.logger.Info("answered question",
		zap.Int("relevant_chunks", len(relevant)),
		zap.Float64("confidence", confidence),
	)

	return c.JSON(http.StatusOK, models.Answer{
		Question:   req.Question,
		Answer:     answer,
		Citations:  buildCitations(chunks),
		Confidence: confidence,
	})
}

// handleStream is the streaming variant of handleAsk. It emits
// Server-Sent Events: a citations event first, then text fragments as
// the model produces them, then a [DONE] sentinel.
func (s *Server) handleStream(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Question cannot be empty")
	}

	ctx := c.Request().Context()
	relevant, err := s.searchCorpus(ctx, req)
	if err != nil {
		return err
	}
	chunks := scoredChunks(relevant)

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	if err := writeSSE(c, streamEvent{Type: "citations", Citations: buildCitations(chunks)}); err != nil {
		return err
	}

	if len(chunks) == 0 {
		if err := writeSSE(c, streamEvent{Type: "text", Content: "No relevant information found."}); err != nil {
			return err
		}
		return writeSSEDone(c)
	}

	err = s.synth.AnswerStream(ctx, req.Question, chunks, func(fragment string) error {
		return writeSSE(c, streamEvent{Type: "text", Content: fragment})
	})
	if err != nil {
		s.logger.Warn("streaming synthesis failed", zap.Error(err))
		if werr := writeSSE(c, streamEvent{Type: "text", Content: fallbackAnswer(chunks)}); werr != nil {
			return werr
		}
	}

	return writeSSEDone(c)
}

// searchCorpus resolves the documents named by the request, collects
// their chunks, and runs lexical retrieval over them. The error, when
// non-nil, is an echo HTTP error.
func (s *Server) searchCorpus(ctx context.Context, req AskRequest) ([]retriever.Scored, error) {
	var documents []models.Document
	if len(req.DocumentIDs) > 0 {
		for _, id := range req.DocumentIDs {
			doc, err := s.store.GetDocument(ctx, id)
			if err != nil {
				continue
			}
			documents = append(documents, *doc)
		}
		if len(documents) == 0 {
			return nil, echo.NewHTTPError(http.StatusNotFound, "None of the specified documents were found")
		}
	} else {
		all, err := s.store.ListDocuments(ctx, 0, allDocumentsLimit)
		if err != nil {
			s.logger.Error("failed to list documents", zap.Error(err))
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
		}
		documents = all
	}

	if len(documents) == 0 {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No documents available to search")
	}

	var allChunks []models.Chunk
	for _, doc := range documents {
		chunks, err := s.store.GetChunks(ctx, doc.DocumentID)
		if err != nil {
			s.logger.Error("failed to load chunks", zap.String("document_id", doc.DocumentID), zap.Error(err))
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load document text")
		}
		allChunks = append(allChunks, chunks...)
	}
	if len(allChunks) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No text content available in the specified documents")
	}

	topK := req.MaxResults
	if topK <= 0 {
		topK = retriever.DefaultTopK
	}
	return s.retriever.Search(req.Question, allChunks, topK), nil
}

// synthesizeAnswer asks the synthesizer for a grounded answer and
// degrades to the most relevant excerpts when no model is reachable.
// Confidence grows with the amount of supporting context.
func (s *Server) synthesizeAnswer(ctx context.Context, question string, chunks []models.Chunk) (string, float64) {
	answer, err := s.synth.Answer(ctx, question, chunks)
	if err != nil {
		s.logger.Warn("answer synthesis failed", zap.Error(err))
		return fallbackAnswer(chunks), 0
	}

	confidence := 0.5 + float64(len(chunks))*0.1
	if confidence > 0.95 {
		confidence = 0.95
	}
	return answer, confidence
}

// fallbackAnswer serves the retrieved excerpts directly when no
// language model is available.
func fallbackAnswer(chunks []models.Chunk) string {
	var sb strings.Builder
	sb.WriteString("Language model unavailable. Most relevant excerpts:\n")
	for i, chunk := range chunks {
		if i >= maxCitations {
			break
		}
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, excerpt(chunk.Text))
	}
	return sb.String()
}

// buildCitations maps the top retrieved chunks to citations.
func buildCitations(chunks []models.Chunk) []models.Citation {
	citations := make([]models.Citation, 0, maxCitations)
	for i, chunk := range chunks {
		if i >= maxCitations {
			break
		}
		start, end := chunk.CharStart, chunk.CharEnd
		citations = append(citations, models.Citation{
			DocumentID: chunk.DocumentID,
			PageNumber: chunk.PageNumber,
			CharStart:  &start,
			CharEnd:    &end,
			Excerpt:    excerpt(chunk.Text),
		})
	}
	return citations
}

func excerpt(text string) string {
	if len(text) > citationExcerptLen {
		return text[:citationExcerptLen] + "..."
	}
	return text
}

func scoredChunks(scored []retriever.Scored) []models.Chunk {
	chunks := make([]models.Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}
	return chunks
}

// streamEvent is one SSE data payload.
type streamEvent struct {
	Type      string            `json:"type"`
	Content   string            `json:"content,omitempty"`
	Citations []models.Citation `json:"citations,omitempty"`
}

func writeSSE(c echo.Context, event streamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func writeSSEDone(c echo.Context) error {
	if _, err := fmt.Fprint(c.Response(), "data: [DONE]\n\n"); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
