package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/core/ports"
)

// Store is a tenant-scoped in-memory vector store. Search is a brute-force
// scan over the tenant's embeddings; at the target scale that is cheaper
// than maintaining an index, and the ports.VectorStore contract lets an
// indexed implementation replace it.
type Store struct {
	mu      sync.RWMutex
	tenants map[string][]record
}

type record struct {
	embedding domain.Embedding
	deleted   bool
}

func NewStore() *Store {
	return &Store{tenants: make(map[string][]record)}
}

func (s *Store) Upsert(_ context.Context, embeddings []domain.Embedding) error {
	for _, e := range embeddings {
		if e.TenantID == "" || e.DocumentID == "" {
			return domain.WrapError(domain.ErrInvalidInput, "upsert embeddings",
				errors.New("embedding without tenant or document id"))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embeddings {
		s.tenants[e.TenantID] = append(s.tenants[e.TenantID], record{embedding: e})
	}
	return nil
}

func (s *Store) Search(_ context.Context, tenantID string, queryVector []float32, opts ports.SearchOptions) ([]domain.RetrievalMatch, error) {
	excluded := make(map[string]struct{}, len(opts.ExcludeDocumentIDs))
	for _, id := range opts.ExcludeDocumentIDs {
		excluded[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]domain.RetrievalMatch, 0, 16)
	for _, rec := range s.tenants[tenantID] {
		if rec.deleted {
			continue
		}
		if _, skip := excluded[rec.embedding.DocumentID]; skip {
			continue
		}
		similarity, err := Cosine(queryVector, rec.embedding.Vector)
		if err != nil {
			return nil, err
		}
		if similarity < opts.MinSimilarity {
			continue
		}
		matches = append(matches, domain.RetrievalMatch{Embedding: rec.embedding, Similarity: similarity})
	}

	// Stable keeps insertion order for equal similarities.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}

// DeleteDocument soft-deletes all embeddings of a document, in lockstep with
// the parent document's soft delete. Records stay allocated; they are only
// hidden from search.
func (s *Store) DeleteDocument(_ context.Context, tenantID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.tenants[tenantID]
	for i := range records {
		if records[i].embedding.DocumentID == documentID {
			records[i].deleted = true
		}
	}
	return nil
}
