package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	content_text TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	embedding_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_documents_state ON documents(state);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	max_documents INTEGER NOT NULL,
	max_queries INTEGER NOT NULL,
	document_count INTEGER NOT NULL DEFAULT 0,
	query_count INTEGER NOT NULL DEFAULT 0,
	query_window_start TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, tenant_id, filename, mime_type, size_bytes, content_text, state, chunk_count, embedding_count, error_message, active, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		doc.ID, doc.TenantID, doc.Filename, doc.MimeType, doc.SizeBytes, doc.Text,
		string(doc.State), doc.ChunkCount, doc.EmbeddingCount, doc.Error, doc.Active,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, filename, mime_type, size_bytes, content_text, state, chunk_count, embedding_count, error_message, active, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var state string

	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &doc.Text,
		&state, &doc.ChunkCount, &doc.EmbeddingCount, &doc.Error, &doc.Active,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document",
				fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.State = domain.ProcessingState(state)
	return &doc, nil
}

func (r *DocumentRepository) UpdateProgress(ctx context.Context, id string, state domain.ProcessingState, chunkCount, embeddingCount int, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET state = $2, chunk_count = $3, embedding_count = $4, error_message = $5, updated_at = $6
WHERE id = $1
`, id, string(state), chunkCount, embeddingCount, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document progress: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document progress",
			fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *DocumentRepository) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET active = $2, updated_at = $3
WHERE id = $1
`, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set document active: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "set document active",
			fmt.Errorf("id %s", id))
	}
	return nil
}
