package ports

import (
	"context"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

// IngestionJobManager is the inbound contract for asynchronous document
// ingestion. Submit enqueues processing and returns immediately; Status is
// safely pollable at any time, including mid-processing.
type IngestionJobManager interface {
	Submit(ctx context.Context, doc *domain.Document) (domain.JobHandle, error)
	Status(ctx context.Context, documentID string) (domain.JobStatus, error)
}

// DocumentProcessor drives one submitted document to a terminal state. It is
// invoked by the job queue consumer, never by request handlers.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// QueryService is the inbound contract for answering natural-language
// questions against a tenant's knowledge base.
type QueryService interface {
	Answer(ctx context.Context, tenantID, question string) (*domain.Answer, error)
}
