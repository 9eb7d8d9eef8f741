package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contract-intel/internal/database"
	"contract-intel/internal/models"
	"contract-intel/internal/processor"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IngestResponse is the response body for POST /api/v1/ingest.
type IngestResponse struct {
	DocumentIDs    []string `json:"document_ids"`
	TotalDocuments int      `json:"total_documents"`
	Message        string   `json:"message"`
}

// DocumentMetadata is the public view of a stored document.
type DocumentMetadata struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	NumPages   int       `json:"num_pages"`
	CreatedAt  time.Time `json:"created_at"`
}

// handleIngest accepts one or more PDF uploads, stores each on disk,
// extracts its text, and persists the document record with its chunks.
// A bad file fails only itself; the rest of the batch proceeds.
func (s *Server) handleIngest(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "No files provided")
	}

	ctx := c.Request().Context()
	documentIDs := make([]string, 0, len(files))
	var ingestErrors []string

	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: Not a PDF file", fh.Filename))
			continue
		}

		content, err := readUpload(fh)
		if err != nil {
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}
		if len(content) == 0 {
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: Empty file", fh.Filename))
			continue
		}

		path, size, err := s.files.SaveUpload(content, fh.Filename)
		if err != nil {
			s.logger.Error("failed to save upload", zap.String("filename", fh.Filename), zap.Error(err))
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}

		fullText, numPages, spans, err := s.files.ExtractText(path)
		if err != nil {
			s.logger.Error("failed to extract text", zap.String("filename", fh.Filename), zap.Error(err))
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: Failed to extract text - %v", fh.Filename, err))
			continue
		}

		mimeType := fh.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = "application/pdf"
		}
		doc := models.Document{
			DocumentID: uuid.NewString(),
			Filename:   fh.Filename,
			FilePath:   path,
			FileSize:   size,
			MimeType:   mimeType,
			NumPages:   numPages,
		}
		if err := s.store.CreateDocument(ctx, &doc); err != nil {
			s.logger.Error("failed to store document", zap.String("filename", fh.Filename), zap.Error(err))
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}

		segments := s.chunker.Split(fullText)
		chunks := make([]models.Chunk, 0, len(segments))
		for _, seg := range segments {
			chunks = append(chunks, models.Chunk{
				DocumentID: doc.DocumentID,
				Index:      seg.Index,
				Text:       seg.Text,
				PageNumber: processor.PageFor(spans, seg.Start),
				CharStart:  seg.Start,
				CharEnd:    seg.End,
			})
		}
		if err := s.store.StoreChunks(ctx, chunks); err != nil {
			s.logger.Error("failed to store chunks", zap.String("document_id", doc.DocumentID), zap.Error(err))
			ingestErrors = append(ingestErrors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}

		documentIDs = append(documentIDs, doc.DocumentID)
		s.logger.Info("ingested document",
			zap.String("filename", fh.Filename),
			zap.String("document_id", doc.DocumentID),
			zap.Int("pages", numPages),
			zap.Int("chunks", len(chunks)),
		)
	}

	if len(documentIDs) == 0 && len(ingestErrors) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Failed to ingest any documents. Errors: %s", strings.Join(ingestErrors, "; ")))
	}

	message := fmt.Sprintf("Successfully ingested %d document(s)", len(documentIDs))
	if len(ingestErrors) > 0 {
		message += fmt.Sprintf(". Errors: %s", strings.Join(ingestErrors, "; "))
	}

	return c.JSON(http.StatusCreated, IngestResponse{
		DocumentIDs:    documentIDs,
		TotalDocuments: len(documentIDs),
		Message:        message,
	})
}

// handleListDocuments lists ingested documents with skip/limit
// pagination.
func (s *Server) handleListDocuments(c echo.Context) error {
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", 100)

	docs, err := s.store.ListDocuments(c.Request().Context(), skip, limit)
	if err != nil {
		s.logger.Error("failed to list documents", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	out := make([]DocumentMetadata, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentMetadata(doc))
	}
	return c.JSON(http.StatusOK, out)
}

// handleGetDocument returns metadata for one document.
func (s *Server) handleGetDocument(c echo.Context) error {
	documentID := c.Param("document_id")

	doc, err := s.store.GetDocument(c.Request().Context(), documentID)
	if errors.Is(err, database.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound,
			fmt.Sprintf("Document with ID %s not found", documentID))
	}
	if err != nil {
		s.logger.Error("failed to get document", zap.String("document_id", documentID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	return c.JSON(http.StatusOK, documentMetadata(*doc))
}

func documentMetadata(doc models.Document) DocumentMetadata {
	return DocumentMetadata{
		DocumentID: doc.DocumentID,
		Filename:   doc.Filename,
		FileSize:   doc.FileSize,
		NumPages:   doc.NumPages,
		CreatedAt:  doc.CreatedAt,
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return content, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
