package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/core/ports"
)

// SubmitDocumentUseCase is the front half of the ingestion job manager: it
// accepts a parsed document, reserves tenant quota, and hands the id to the
// job queue. The call returns as soon as the job is enqueued; processing
// happens on the queue consumer.
type SubmitDocumentUseCase struct {
	repo    ports.DocumentRepository
	tenants ports.TenantStore
	queue   ports.JobQueue
	tracker *JobTracker
}

func NewSubmitDocumentUseCase(
	repo ports.DocumentRepository,
	tenants ports.TenantStore,
	queue ports.JobQueue,
	tracker *JobTracker,
) *SubmitDocumentUseCase {
	return &SubmitDocumentUseCase{
		repo:    repo,
		tenants: tenants,
		queue:   queue,
		tracker: tracker,
	}
}

func (uc *SubmitDocumentUseCase) Submit(ctx context.Context, doc *domain.Document) (domain.JobHandle, error) {
	if doc == nil || doc.TenantID == "" {
		return domain.JobHandle{}, domain.WrapError(domain.ErrInvalidInput, "submit document",
			errors.New("tenant id is required"))
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if !uc.tracker.Begin(doc.ID) {
		return domain.JobHandle{}, domain.WrapError(domain.ErrJobAlreadyActive, "submit document",
			fmt.Errorf("document %s has an active job", doc.ID))
	}

	// The document counter reflects pending work immediately, so quota
	// checks see this submission before processing finishes.
	if err := uc.tenants.ReserveDocumentSlot(ctx, doc.TenantID); err != nil {
		uc.tracker.Release(doc.ID)
		return domain.JobHandle{}, fmt.Errorf("reserve document slot: %w", err)
	}

	now := time.Now().UTC()
	doc.State = domain.StatePending
	doc.Active = true
	doc.ChunkCount = 0
	doc.EmbeddingCount = 0
	doc.Error = ""
	if doc.SizeBytes == 0 {
		doc.SizeBytes = int64(len(doc.Text))
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := uc.repo.Create(ctx, doc); err != nil {
		uc.rollback(ctx, doc)
		return domain.JobHandle{}, fmt.Errorf("create document: %w", err)
	}

	if err := uc.queue.PublishDocumentSubmitted(ctx, doc.ID); err != nil {
		uc.rollback(ctx, doc)
		_ = uc.repo.UpdateProgress(ctx, doc.ID, domain.StateFailed, 0, 0,
			"enqueue processing: "+err.Error())
		return domain.JobHandle{}, fmt.Errorf("enqueue processing: %w", err)
	}

	return domain.JobHandle{DocumentID: doc.ID, SubmittedAt: now}, nil
}

// Status serves the tracker's lock-free snapshot when this process owns the
// job, otherwise the persisted document row.
func (uc *SubmitDocumentUseCase) Status(ctx context.Context, documentID string) (domain.JobStatus, error) {
	if st, ok := uc.tracker.Status(documentID); ok {
		return st, nil
	}

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return domain.JobStatus{}, fmt.Errorf("fetch document: %w", err)
	}
	return domain.JobStatus{
		DocumentID:      doc.ID,
		State:           doc.State,
		ProgressPercent: domain.Progress(doc.EmbeddingCount, doc.ChunkCount),
		ChunkCount:      doc.ChunkCount,
		EmbeddingCount:  doc.EmbeddingCount,
		Error:           doc.Error,
	}, nil
}

func (uc *SubmitDocumentUseCase) rollback(ctx context.Context, doc *domain.Document) {
	uc.tracker.Release(doc.ID)
	_ = uc.tenants.ReleaseDocumentSlot(ctx, doc.TenantID)
}
