package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"contract-intel/internal/audit"
	"contract-intel/internal/database"
	"contract-intel/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditRequest is the request body for POST /api/v1/audit.
type AuditRequest struct {
	DocumentID string `json:"document_id"`
}

// AuditResponse is the response body for POST /api/v1/audit.
type AuditResponse struct {
	DocumentID    string           `json:"document_id"`
	Findings      []models.Finding `json:"findings"`
	TotalFindings int              `json:"total_findings"`
	RiskScore     float64          `json:"risk_score"`
	Summary       string           `json:"summary"`
}

// handleAudit runs the risk rule set over a document's text. Findings
// are cached: a repeat request is served from storage and only the
// score and summary are recomputed.
func (s *Server) handleAudit(c echo.Context) error {
	var req AuditRequest
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

	cached, err := s.store.GetFindings(ctx, req.DocumentID)
	if err != nil {
		s.logger.Error("failed to load cached findings", zap.String("document_id", req.DocumentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load audit findings")
	}
	if len(cached) > 0 {
		s.logger.Info("returning cached audit", zap.String("document_id", req.DocumentID))
		score := audit.Score(cached)
		return c.JSON(http.StatusOK, AuditResponse{
			DocumentID:    req.DocumentID,
			Findings:      cached,
			TotalFindings: len(cached),
			RiskScore:     score,
			Summary:       s.auditSummary(ctx, cached, score),
		})
	}

	chunks, err := s.store.GetChunks(ctx, req.DocumentID)
	if err != nil {
		s.logger.Error("failed to load chunks", zap.String("document_id", req.DocumentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load document text")
	}
	if len(chunks) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("No text content found for document %s", req.DocumentID))
	}
	fullText := joinChunkText(chunks)

	// Prior extraction results sharpen the clause-absence rules but
	// are not required.
	facts, err := s.store.GetFields(ctx, req.DocumentID)
	if err != nil {
		s.logger.Warn("failed to load extraction for audit", zap.String("document_id", req.DocumentID), zap.Error(err))
		facts = nil
	}

	report := s.auditor.Audit(fullText, facts)
	for _, ruleErr := range report.RuleErrors {
		s.logger.Warn("audit rule failed", zap.String("rule", ruleErr.RuleID), zap.Error(ruleErr.Err))
	}

	findings := report.Findings
	if findings == nil {
		findings = []models.Finding{}
	}
	annotateFindingPages(findings, chunks)

	if err := s.store.StoreFindings(ctx, req.DocumentID, findings); err != nil {
		s.logger.Error("failed to store findings", zap.String("document_id", req.DocumentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store audit findings")
	}

	s.logger.Info("audit completed",
		zap.String("document_id", req.DocumentID),
		zap.Int("findings", len(findings)),
		zap.Float64("risk_score", report.Score),
	)

	return c.JSON(http.StatusOK, AuditResponse{
		DocumentID:    req.DocumentID,
		Findings:      findings,
		TotalFindings: len(findings),
		RiskScore:     report.Score,
		Summary:       s.auditSummary(ctx, findings, report.Score),
	})
}

// auditSummary asks the synthesizer for an executive summary, falling
// back to the deterministic severity tally when no model is reachable.
func (s *Server) auditSummary(ctx context.Context, findings []models.Finding, score float64) string {
	summary, err := s.synth.SummarizeAudit(ctx, findings, score)
	if err != nil {
		s.logger.Warn("audit summary synthesis failed", zap.Error(err))
		return audit.FallbackSummary(findings, score)
	}
	return summary
}

// annotateFindingPages fills in missing page numbers by locating each
// finding's char span inside the stored chunk spans.
func annotateFindingPages(findings []models.Finding, chunks []models.Chunk) {
	for i := range findings {
		f := &findings[i]
		if f.PageNumber != nil || f.CharStart == nil {
			continue
		}
		for _, chunk := range chunks {
			if chunk.CharStart <= *f.CharStart && *f.CharStart <= chunk.CharEnd {
				f.PageNumber = chunk.PageNumber
				break
			}
		}
	}
}
