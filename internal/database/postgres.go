// Package database persists documents, chunks, extracted fields, and
// audit findings in PostgreSQL, so derived artifacts are computed once
// and re-served without recomputation.
package database

import (
	"context"
	"errors"
	"fmt"

	"contract-intel/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// DB represents the database connection.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection.
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Initialize sets up the database tables and indices.
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS documents (
            id BIGSERIAL PRIMARY KEY,
            document_id TEXT UNIQUE NOT NULL,
            filename TEXT NOT NULL,
            file_path TEXT NOT NULL,
            file_size BIGINT NOT NULL,
            mime_type TEXT NOT NULL DEFAULT 'application/pdf',
            num_pages INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS document_chunks (
            id BIGSERIAL PRIMARY KEY,
            document_id TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
            chunk_index INTEGER NOT NULL,
            text_content TEXT NOT NULL,
            page_number INTEGER,
            char_start INTEGER NOT NULL,
            char_end INTEGER NOT NULL
        );
        CREATE INDEX IF NOT EXISTS document_chunks_doc_idx
            ON document_chunks (document_id, chunk_index)
    `)
	if err != nil {
		return fmt.Errorf("failed to create document_chunks table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS extracted_fields (
            id BIGSERIAL PRIMARY KEY,
            document_id TEXT UNIQUE NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
            parties TEXT[],
            effective_date TEXT,
            term TEXT,
            governing_law TEXT,
            payment_terms TEXT,
            termination TEXT,
            auto_renewal TEXT,
            confidentiality TEXT,
            indemnity TEXT,
            liability_cap_amount DOUBLE PRECISION,
            liability_cap_currency TEXT,
            extraction_method TEXT NOT NULL,
            confidence_score DOUBLE PRECISION NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create extracted_fields table: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS audit_findings (
            id BIGSERIAL PRIMARY KEY,
            document_id TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
            finding_type TEXT NOT NULL,
            severity TEXT NOT NULL,
            description TEXT NOT NULL,
            evidence TEXT,
            page_number INTEGER,
            char_start INTEGER,
            char_end INTEGER,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create audit_findings table: %w", err)
	}

	return nil
}

// CreateDocument stores a document record and fills in its row id.
func (db *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO documents (document_id, filename, file_path, file_size, mime_type, num_pages)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `, doc.DocumentID, doc.Filename, doc.FilePath, doc.FileSize, doc.MimeType, doc.NumPages).
		Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocument fetches a document by its public identifier.
func (db *DB) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	err := db.Pool.QueryRow(ctx, `
        SELECT id, document_id, filename, file_path, file_size, mime_type, num_pages, created_at
        FROM documents
        WHERE document_id = $1
    `, documentID).Scan(&doc.ID, &doc.DocumentID, &doc.Filename, &doc.FilePath,
		&doc.FileSize, &doc.MimeType, &doc.NumPages, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns documents in insertion order with pagination.
func (db *DB) ListDocuments(ctx context.Context, skip, limit int) ([]models.Document, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, document_id, filename, file_path, file_size, mime_type, num_pages, created_at
        FROM documents
        ORDER BY id
        OFFSET $1 LIMIT $2
    `, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.DocumentID, &doc.Filename, &doc.FilePath,
			&doc.FileSize, &doc.MimeType, &doc.NumPages, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

// StoreChunks stores the chunks of one document.
func (db *DB) StoreChunks(ctx context.Context, chunks []models.Chunk) error {
	for _, chunk := range chunks {
		_, err := db.Pool.Exec(ctx, `
            INSERT INTO document_chunks (document_id, chunk_index, text_content, page_number, char_start, char_end)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, chunk.DocumentID, chunk.Index, chunk.Text, chunk.PageNumber, chunk.CharStart, chunk.CharEnd)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.Index, err)
		}
	}
	return nil
}

// GetChunks returns a document's chunks in chunk order.
func (db *DB) GetChunks(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, document_id, chunk_index, text_content, page_number, char_start, char_end
        FROM document_chunks
        WHERE document_id = $1
        ORDER BY chunk_index
    `, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Text,
			&chunk.PageNumber, &chunk.CharStart, &chunk.CharEnd); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}
	return chunks, nil
}

// UpsertFields stores or replaces the extracted fields of a document.
func (db *DB) UpsertFields(ctx context.Context, documentID string, f *models.Fields) error {
	var amount *float64
	var currency *string
	if f.LiabilityCap != nil {
		amount = &f.LiabilityCap.Amount
		currency = &f.LiabilityCap.Currency
	}

	_, err := db.Pool.Exec(ctx, `
        INSERT INTO extracted_fields (
            document_id, parties, effective_date, term, governing_law,
            payment_terms, termination, auto_renewal, confidentiality, indemnity,
            liability_cap_amount, liability_cap_currency, extraction_method, confidence_score
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        ON CONFLICT (document_id) DO UPDATE SET
            parties = EXCLUDED.parties,
            effective_date = EXCLUDED.effective_date,
            term = EXCLUDED.term,
            governing_law = EXCLUDED.governing_law,
            payment_terms = EXCLUDED.payment_terms,
            termination = EXCLUDED.termination,
            auto_renewal = EXCLUDED.auto_renewal,
            confidentiality = EXCLUDED.confidentiality,
            indemnity = EXCLUDED.indemnity,
            liability_cap_amount = EXCLUDED.liability_cap_amount,
            liability_cap_currency = EXCLUDED.liability_cap_currency,
            extraction_method = EXCLUDED.extraction_method,
            confidence_score = EXCLUDED.confidence_score
    `, documentID, f.Parties, f.EffectiveDate, f.Term, f.GoverningLaw,
		f.PaymentTerms, f.Termination, f.AutoRenewal, f.Confidentiality, f.Indemnity,
		amount, currency, f.Method, f.Confidence)
	if err != nil {
		return fmt.Errorf("failed to upsert extracted fields: %w", err)
	}
	return nil
}

// GetFields returns the stored extraction for a document, or nil when
// no extraction has been run yet.
func (db *DB) GetFields(ctx context.Context, documentID string) (*models.Fields, error) {
	var f models.Fields
	var amount *float64
	var currency *string
	err := db.Pool.QueryRow(ctx, `
        SELECT parties, effective_date, term, governing_law,
               payment_terms, termination, auto_renewal, confidentiality, indemnity,
               liability_cap_amount, liability_cap_currency, extraction_method, confidence_score
        FROM extracted_fields
        WHERE document_id = $1
    `, documentID).Scan(&f.Parties, &f.EffectiveDate, &f.Term, &f.GoverningLaw,
		&f.PaymentTerms, &f.Termination, &f.AutoRenewal, &f.Confidentiality, &f.Indemnity,
		&amount, &currency, &f.Method, &f.Confidence)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query extracted fields: %w", err)
	}

	if amount != nil {
		lc := models.LiabilityCap{Amount: *amount, Currency: "USD"}
		if currency != nil {
			lc.Currency = *currency
		}
		f.LiabilityCap = &lc
	}
	return &f, nil
}

// StoreFindings stores the audit findings of a document.
func (db *DB) StoreFindings(ctx context.Context, documentID string, findings []models.Finding) error {
	for _, f := range findings {
		_, err := db.Pool.Exec(ctx, `
            INSERT INTO audit_findings (document_id, finding_type, severity, description,
                                        evidence, page_number, char_start, char_end)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        `, documentID, f.Type, f.Severity, f.Description, f.Evidence,
			f.PageNumber, f.CharStart, f.CharEnd)
		if err != nil {
			return fmt.Errorf("failed to insert finding %s: %w", f.Type, err)
		}
	}
	return nil
}

// GetFindings returns the stored audit findings for a document.
func (db *DB) GetFindings(ctx context.Context, documentID string) ([]models.Finding, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT finding_type, severity, description, evidence, page_number, char_start, char_end
        FROM audit_findings
        WHERE document_id = $1
        ORDER BY id
    `, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.Type, &f.Severity, &f.Description, &f.Evidence,
			&f.PageNumber, &f.CharStart, &f.CharEnd); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating finding rows: %w", err)
	}
	return findings, nil
}

// Counts returns the totals served by the metrics endpoint.
func (db *DB) Counts(ctx context.Context) (documents, extractions, findings int64, err error) {
	err = db.Pool.QueryRow(ctx, `
        SELECT
            (SELECT count(*) FROM documents),
            (SELECT count(*) FROM extracted_fields),
            (SELECT count(*) FROM audit_findings)
    `).Scan(&documents, &extractions, &findings)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to query counts: %w", err)
	}
	return documents, extractions, findings, nil
}

// Ping checks database connectivity for health reporting.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the database connection.
func (db *DB) Close() {
	db.Pool.Close()
}
