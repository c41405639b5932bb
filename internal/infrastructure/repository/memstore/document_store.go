package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*domain.Document)}
}

func (s *DocumentStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; ok {
		return domain.WrapError(domain.ErrInvalidInput, "create document",
			fmt.Errorf("document %s already exists", doc.ID))
	}
	clone := *doc
	s.documents[doc.ID] = &clone
	return nil
}

func (s *DocumentStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document",
			fmt.Errorf("id %s", id))
	}
	clone := *doc
	return &clone, nil
}

func (s *DocumentStore) UpdateProgress(_ context.Context, id string, state domain.ProcessingState, chunkCount, embeddingCount int, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document progress",
			fmt.Errorf("id %s", id))
	}
	doc.State = state
	doc.ChunkCount = chunkCount
	doc.EmbeddingCount = embeddingCount
	doc.Error = errMessage
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *DocumentStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "set document active",
			fmt.Errorf("id %s", id))
	}
	doc.Active = active
	doc.UpdatedAt = time.Now().UTC()
	return nil
}
