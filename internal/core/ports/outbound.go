package ports

import (
	"context"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

// DocumentRepository persists document state and ingestion progress.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateProgress(ctx context.Context, id string, state domain.ProcessingState, chunkCount, embeddingCount int, errMessage string) error
	SetActive(ctx context.Context, id string, active bool) error
}

// TenantStore owns the tenant quota counters. Reservations are atomic
// conditional increments; callers never read-modify-write counter state.
type TenantStore interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	ReserveDocumentSlot(ctx context.Context, tenantID string) error
	ReleaseDocumentSlot(ctx context.Context, tenantID string) error
	ReserveQuery(ctx context.Context, tenantID string, now time.Time) error
}

// TenantProvisioner registers new tenants with their quota limits. Kept
// separate from TenantStore so request paths only see the counter contract.
type TenantProvisioner interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
}

// JobQueue decouples document submission from processing.
type JobQueue interface {
	PublishDocumentSubmitted(ctx context.Context, documentID string) error
	SubscribeDocumentSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// Embedder converts text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type SearchOptions struct {
	Limit              int
	MinSimilarity      float64
	ExcludeDocumentIDs []string
}

// VectorStore indexes embeddings and answers tenant-scoped similarity
// queries. The contract deliberately hides the retrieval strategy so an
// indexed implementation can replace the brute-force one.
type VectorStore interface {
	Upsert(ctx context.Context, embeddings []domain.Embedding) error
	Search(ctx context.Context, tenantID string, queryVector []float32, opts SearchOptions) ([]domain.RetrievalMatch, error)
	DeleteDocument(ctx context.Context, tenantID, documentID string) error
}

// Chunker splits document text into bounded-size passages.
type Chunker interface {
	Split(text string) []string
}
