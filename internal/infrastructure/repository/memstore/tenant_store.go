// Package memstore backs the single-binary deployment and the test suites
// with in-memory implementations of the persistence ports. Quota semantics
// match the postgres repositories: reservations are conditional increments
// performed under the store lock, never read-modify-write by the caller.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

type TenantStore struct {
	mu          sync.Mutex
	tenants     map[string]*domain.Tenant
	queryWindow time.Duration
}

func NewTenantStore(queryWindow time.Duration) *TenantStore {
	if queryWindow <= 0 {
		queryWindow = time.Hour
	}
	return &TenantStore{
		tenants:     make(map[string]*domain.Tenant),
		queryWindow: queryWindow,
	}
}

func (s *TenantStore) Create(_ context.Context, t *domain.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return domain.WrapError(domain.ErrInvalidInput, "create tenant",
			fmt.Errorf("tenant %s already exists", t.ID))
	}
	clone := *t
	s.tenants[t.ID] = &clone
	return nil
}

func (s *TenantStore) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrTenantNotFound, "get tenant",
			fmt.Errorf("id %s", id))
	}
	clone := *t
	return &clone, nil
}

func (s *TenantStore) ReserveDocumentSlot(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return domain.WrapError(domain.ErrTenantNotFound, "reserve document slot",
			fmt.Errorf("id %s", tenantID))
	}
	if !t.CanUploadDocument() {
		return domain.WrapError(domain.ErrQuotaExceeded, "reserve document slot",
			fmt.Errorf("tenant %s is at its document limit", tenantID))
	}
	t.DocumentCount++
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *TenantStore) ReleaseDocumentSlot(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return domain.WrapError(domain.ErrTenantNotFound, "release document slot",
			fmt.Errorf("id %s", tenantID))
	}
	if t.DocumentCount > 0 {
		t.DocumentCount--
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *TenantStore) ReserveQuery(_ context.Context, tenantID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return domain.WrapError(domain.ErrTenantNotFound, "reserve query",
			fmt.Errorf("id %s", tenantID))
	}
	if now.Sub(t.QueryWindowStart) >= s.queryWindow {
		t.QueryWindowStart = now
		t.QueryCount = 0
	}
	if t.QueryCount >= t.MaxQueries {
		return domain.WrapError(domain.ErrQuotaExceeded, "reserve query",
			fmt.Errorf("tenant %s is at its query limit", tenantID))
	}
	t.QueryCount++
	t.UpdatedAt = now
	return nil
}
