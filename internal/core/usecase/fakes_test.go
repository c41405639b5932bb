package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/core/ports"
)

type fakeRepo struct {
	mu        sync.Mutex
	documents map[string]*domain.Document

	createErr   error
	progressErr error

	progressLog []int // embedding counts in UpdateProgress call order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{documents: map[string]*domain.Document{}}
}

func (r *fakeRepo) Create(_ context.Context, doc *domain.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *doc
	r.documents[doc.ID] = &clone
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	clone := *doc
	return &clone, nil
}

func (r *fakeRepo) UpdateProgress(_ context.Context, id string, state domain.ProcessingState, chunkCount, embeddingCount int, errMessage string) error {
	if r.progressErr != nil {
		return r.progressErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update progress", errors.New(id))
	}
	doc.State = state
	doc.ChunkCount = chunkCount
	doc.EmbeddingCount = embeddingCount
	doc.Error = errMessage
	r.progressLog = append(r.progressLog, embeddingCount)
	return nil
}

func (r *fakeRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "set active", errors.New(id))
	}
	doc.Active = active
	return nil
}

type fakeTenants struct {
	mu       sync.Mutex
	reserved int
	released int
	queries  int

	reserveSlotErr  error
	reserveQueryErr error
}

func (t *fakeTenants) GetByID(context.Context, string) (*domain.Tenant, error) {
	return &domain.Tenant{ID: "t1", MaxDocuments: 10, MaxQueries: 10}, nil
}

func (t *fakeTenants) ReserveDocumentSlot(context.Context, string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reserveSlotErr != nil {
		return t.reserveSlotErr
	}
	t.reserved++
	return nil
}

func (t *fakeTenants) ReleaseDocumentSlot(context.Context, string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released++
	return nil
}

func (t *fakeTenants) ReserveQuery(_ context.Context, _ string, _ time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.reserveQueryErr != nil {
		return t.reserveQueryErr
	}
	t.queries++
	return nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (q *fakeQueue) PublishDocumentSubmitted(_ context.Context, documentID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, documentID)
	return nil
}

func (q *fakeQueue) SubscribeDocumentSubmitted(context.Context, func(context.Context, string) error) error {
	return nil
}

// fakeEmbedder fails whole batches and individual texts on demand.
type fakeEmbedder struct {
	mu         sync.Mutex
	dimension  int
	batchCalls int
	itemCalls  int

	batchErr error
	failText func(text string) error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dimension: 3}
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.itemCalls++
	e.mu.Unlock()
	if e.failText != nil {
		if err := e.failText(text); err != nil {
			return nil, err
		}
	}
	return make([]float32, e.dimension), nil
}

func (e *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	if e.failText != nil {
		for _, text := range texts {
			if err := e.failText(text); err != nil {
				return nil, err
			}
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, e.dimension)
	}
	return out, nil
}

type fakeVectors struct {
	mu        sync.Mutex
	upserted  []domain.Embedding
	upsertErr error

	searchMatches []domain.RetrievalMatch
	searchErr     error
}

func (v *fakeVectors) Upsert(_ context.Context, embeddings []domain.Embedding) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.upsertErr != nil {
		return v.upsertErr
	}
	v.upserted = append(v.upserted, embeddings...)
	return nil
}

func (v *fakeVectors) Search(context.Context, string, []float32, ports.SearchOptions) ([]domain.RetrievalMatch, error) {
	if v.searchErr != nil {
		return nil, v.searchErr
	}
	return v.searchMatches, nil
}

func (v *fakeVectors) DeleteDocument(context.Context, string, string) error {
	return nil
}

type fakeChunker struct {
	chunks []string
}

func (c *fakeChunker) Split(string) []string {
	return c.chunks
}
