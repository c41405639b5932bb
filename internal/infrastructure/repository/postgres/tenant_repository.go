package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

// TenantRepository enforces per-tenant quotas with conditional single-row
// updates, so concurrent submissions cannot both claim the last slot.
type TenantRepository struct {
	db          *sql.DB
	queryWindow time.Duration
}

func NewTenantRepository(db *sql.DB, queryWindow time.Duration) *TenantRepository {
	if queryWindow <= 0 {
		queryWindow = time.Hour
	}
	return &TenantRepository{db: db, queryWindow: queryWindow}
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, max_documents, max_queries, document_count, query_count, query_window_start, created_at
FROM tenants
WHERE id = $1
`, id)

	var t domain.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.MaxDocuments, &t.MaxQueries,
		&t.DocumentCount, &t.QueryCount, &t.QueryWindowStart, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTenantNotFound, "get tenant",
				fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &t, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO tenants (id, name, max_documents, max_queries, document_count, query_count, query_window_start, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, t.ID, t.Name, t.MaxDocuments, t.MaxQueries, t.DocumentCount, t.QueryCount, t.QueryWindowStart, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// ReserveDocumentSlot increments the document counter only while it is still
// below the quota. Zero rows affected means either the tenant is missing or
// the quota is full; a follow-up read tells the two apart.
func (r *TenantRepository) ReserveDocumentSlot(ctx context.Context, tenantID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tenants
SET document_count = document_count + 1
WHERE id = $1 AND document_count < max_documents
`, tenantID)
	if err != nil {
		return fmt.Errorf("reserve document slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve document slot: %w", err)
	}
	if affected == 1 {
		return nil
	}

	if _, err := r.GetByID(ctx, tenantID); err != nil {
		return err
	}
	return domain.WrapError(domain.ErrQuotaExceeded, "reserve document slot",
		fmt.Errorf("tenant %s is at its document limit", tenantID))
}

func (r *TenantRepository) ReleaseDocumentSlot(ctx context.Context, tenantID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE tenants
SET document_count = GREATEST(document_count - 1, 0)
WHERE id = $1
`, tenantID)
	if err != nil {
		return fmt.Errorf("release document slot: %w", err)
	}
	return nil
}

// ReserveQuery counts the query against the current rate window, resetting
// the window in the same statement when it has elapsed.
func (r *TenantRepository) ReserveQuery(ctx context.Context, tenantID string, now time.Time) error {
	windowStart := now.Add(-r.queryWindow)
	res, err := r.db.ExecContext(ctx, `
UPDATE tenants
SET query_count = CASE WHEN query_window_start <= $2 THEN 1 ELSE query_count + 1 END,
    query_window_start = CASE WHEN query_window_start <= $2 THEN $3 ELSE query_window_start END
WHERE id = $1 AND (query_window_start <= $2 OR query_count < max_queries)
`, tenantID, windowStart, now)
	if err != nil {
		return fmt.Errorf("reserve query: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve query: %w", err)
	}
	if affected == 1 {
		return nil
	}

	if _, err := r.GetByID(ctx, tenantID); err != nil {
		return err
	}
	return domain.WrapError(domain.ErrQuotaExceeded, "reserve query",
		fmt.Errorf("tenant %s is at its query limit", tenantID))
}
