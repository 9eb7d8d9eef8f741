// Package server provides the HTTP API for the contract intelligence
// service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"contract-intel/internal/audit"
	"contract-intel/internal/chunker"
	"contract-intel/internal/extractor"
	"contract-intel/internal/llm"
	"contract-intel/internal/models"
	"contract-intel/internal/processor"
	"contract-intel/internal/retriever"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Store is the persistence capability the handlers need. *database.DB
// satisfies it.
type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
	ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error)
	StoreChunks(ctx context.Context, chunks []models.Chunk) error
	GetChunks(ctx context.Context, documentID string) ([]models.Chunk, error)
	UpsertFields(ctx context.Context, documentID string, f *models.Fields) error
	GetFields(ctx context.Context, documentID string) (*models.Fields, error)
	StoreFindings(ctx context.Context, documentID string, findings []models.Finding) error
	GetFindings(ctx context.Context, documentID string) ([]models.Finding, error)
	Counts(ctx context.Context) (documents, extractions, findings int64, err error)
	Ping(ctx context.Context) error
}

// Files is the file-handling capability the ingest handler needs.
// *processor.Processor satisfies it.
type Files interface {
	SaveUpload(content []byte, filename string) (string, int64, error)
	ExtractText(path string) (string, int, []processor.PageSpan, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server wires the document pipeline behind the HTTP API.
type Server struct {
	echo      *echo.Echo
	store     Store
	files     Files
	chunker   *chunker.Chunker
	extractor *extractor.Extractor
	retriever *retriever.Lexical
	auditor   *audit.Auditor
	synth     llm.Synthesizer
	logger    *zap.Logger
	config    *Config
	started   time.Time
}

// New creates the HTTP server with all collaborators injected.
func New(store Store, files Files, ch *chunker.Chunker, synth llm.Synthesizer, logger *zap.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if files == nil {
		return nil, fmt.Errorf("file processor is required")
	}
	if ch == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if synth == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "0.0.0.0", Port: 8000}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		store:     store,
		files:     files,
		chunker:   ch,
		extractor: extractor.New(),
		retriever: retriever.NewLexical(),
		auditor:   audit.New(),
		synth:     synth,
		logger:    logger,
		config:    cfg,
		started:   time.Now(),
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", s.handleMetrics)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/ingest", s.handleIngest)
	v1.POST("/extract", s.handleExtract)
	v1.GET("/documents", s.handleListDocuments)
	v1.GET("/documents/:document_id", s.handleGetDocument)
	v1.POST("/ask", s.handleAsk)
	v1.POST("/stream", s.handleStream)
	v1.POST("/audit", s.handleAudit)
}

// RootResponse is the response body for GET /.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Health  string `json:"health"`
	Metrics string `json:"metrics"`
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// MetricsResponse is the response body for GET /metrics.
type MetricsResponse struct {
	TotalDocuments     int64   `json:"total_documents"`
	TotalExtractions   int64   `json:"total_extractions"`
	TotalAuditFindings int64   `json:"total_audit_findings"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, RootResponse{
		Name:    "Contract Intelligence API",
		Version: Version,
		Status:  "running",
		Health:  "/healthz",
		Metrics: "/metrics",
	})
}

// handleHealth reports overall and database health. A broken database
// degrades the service instead of failing the check outright.
func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("database health check failed", zap.Error(err))
		status = "degraded"
		dbStatus = "unhealthy"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Database:  dbStatus,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleMetrics(c echo.Context) error {
	docs, extractions, findings, err := s.store.Counts(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to collect metrics", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to retrieve metrics")
	}

	return c.JSON(http.StatusOK, MetricsResponse{
		TotalDocuments:     docs,
		TotalExtractions:   extractions,
		TotalAuditFindings: findings,
		UptimeSeconds:      time.Since(s.started).Seconds(),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
