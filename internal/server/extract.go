package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"contract-intel/internal/database"
	"contract-intel/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ExtractRequest is the request body for POST /api/v1/extract.
type ExtractRequest struct {
	DocumentID string `json:"document_id"`
}

// ExtractResponse is the response body for POST /api/v1/extract.
type ExtractResponse struct {
	DocumentID string `json:"document_id"`
	models.Fields
}

// handleExtract runs rule-based field extraction over a document's
// text. Results are cached: a second request for the same document is
// served from storage without re-running the cascade.
func (s *Server) handleExtract(c echo.Context) error {
	var req ExtractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DocumentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document_id is required")
	}

	ctx := c.Request().Context()

	if _, err := s.store.GetDocument(ctx, req.DocumentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound,
				fmt.Sprintf("Document with ID %s not found", req.DocumentID))
		}
		s.logger.Error("failed to get document", zap.String("document_id", req.DocumentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	cached, err := s.store.GetFields(ctx, req.DocumentID)
	if err != nil {
		s.logger.Error("failed to load cached extraction", zap.String("document_id", req.DocumentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load extraction")
	}
	if cached != nil {
		s.logger.Info("returning cached extraction", zap.String("document_id", req.DocumentID))
		return c.JSON(http.StatusOK, ExtractResponse{DocumentID: req.DocumentID, Fields: *cached})
	}

	fullText, err := s.documentText(ctx, req.DocumentID)
	if err != nil {
		return err
	}

	fields := s.extractor.Extract(fullText)
	if err := s.store.UpsertFields(ctx, req.DocumentID, fields); err != nil {
		s.logger.Error("failed to store extraction", zap.String("document_id", req.DocumentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store extraction")
	}

	s.logger.Info("extracted document fields",
		zap.String("document_id", req.DocumentID),
		zap.Int("parties", len(fields.Parties)),
	)

	return c.JSON(http.StatusOK, ExtractResponse{DocumentID: req.DocumentID, Fields: *fields})
}

// documentText loads a document's chunks and rebuilds its working
// text. The error, when non-nil, is an echo HTTP error ready to hand
// back to the client.
func (s *Server) documentText(ctx context.Context, documentID string) (string, error) {
	chunks, err := s.store.GetChunks(ctx, documentID)
	if err != nil {
		s.logger.Error("failed to load chunks", zap.String("document_id", documentID), zap.Error(err))
		return "", echo.NewHTTPError(http.StatusInternalServerError, "failed to load document text")
	}
	if len(chunks) == 0 {
		return "", echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("No text content found for document %s", documentID))
	}
	return joinChunkText(chunks), nil
}

// joinChunkText rebuilds the working text from stored chunks.
func joinChunkText(chunks []models.Chunk) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return strings.Join(texts, "\n")
}
