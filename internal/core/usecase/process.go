package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/core/ports"
)

type ProcessConfig struct {
	BatchSize  int           // chunks per embedding call
	BatchPause time.Duration // pacing between consecutive batches
}

// ProcessDocumentUseCase drives one document from pending to a terminal
// state. Batches run strictly sequentially: batch N+1 starts only once batch
// N's outcome (success or exhausted per-chunk fallback) is resolved, which
// bounds provider load and keeps progress monotonic.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectors   ports.VectorStore
	tracker   *JobTracker
	limiter   *rate.Limiter
	batchSize int
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	tracker *JobTracker,
	cfg ProcessConfig,
) *ProcessDocumentUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchPause <= 0 {
		cfg.BatchPause = 200 * time.Millisecond
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		tracker:   tracker,
		limiter:   rate.NewLimiter(rate.Every(cfg.BatchPause), 1),
		batchSize: cfg.BatchSize,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if !uc.tracker.Start(documentID) {
		slog.Info("duplicate job delivery skipped", "document_id", documentID)
		return nil
	}

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		uc.tracker.Fail(documentID, "document could not be loaded")
		return fmt.Errorf("fetch document: %w", err)
	}

	if err := uc.repo.UpdateProgress(ctx, documentID, domain.StateProcessing, 0, 0, ""); err != nil {
		uc.tracker.Fail(documentID, "progress could not be persisted")
		return fmt.Errorf("set state=processing: %w", err)
	}

	chunks := uc.chunker.Split(doc.Text)
	if len(chunks) == 0 {
		return uc.fail(ctx, documentID, 0, 0,
			domain.WrapError(domain.ErrInvalidInput, "chunk document",
				errors.New("document text produced zero chunks")))
	}
	uc.tracker.SetChunkCount(documentID, len(chunks))
	if err := uc.repo.UpdateProgress(ctx, documentID, domain.StateProcessing, len(chunks), 0, ""); err != nil {
		slog.Warn("progress update failed", "document_id", documentID, "error", err)
	}

	embedded := 0
	var lastErr error
batches:
	for start := 0; start < len(chunks); start += uc.batchSize {
		if start > 0 {
			if err := uc.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}
		end := min(start+uc.batchSize, len(chunks))
		batch := chunks[start:end]

		embeddings, batchErr, permanent := uc.embedBatch(ctx, doc, batch, start)
		if batchErr != nil {
			lastErr = batchErr
		}

		if len(embeddings) > 0 {
			if err := uc.vectors.Upsert(ctx, embeddings); err != nil {
				lastErr = fmt.Errorf("upsert embeddings: %w", err)
			} else {
				embedded += len(embeddings)
				uc.tracker.AdvanceEmbeddings(documentID, len(embeddings))
				if err := uc.repo.UpdateProgress(ctx, documentID, domain.StateProcessing, len(chunks), embedded, ""); err != nil {
					slog.Warn("progress update failed", "document_id", documentID, "error", err)
				}
			}
		}

		if permanent {
			slog.Error("permanent embedding failure, abandoning remaining batches",
				"document_id", documentID, "embedded", embedded, "error", lastErr)
			break batches
		}
	}

	if embedded == 0 {
		if lastErr == nil {
			lastErr = errors.New("no chunks could be embedded")
		}
		return uc.fail(ctx, documentID, len(chunks), 0, lastErr)
	}

	// Partial success still completes; the shortfall stays visible through
	// embeddingCount < chunkCount.
	uc.tracker.Complete(documentID)
	if err := uc.repo.UpdateProgress(ctx, documentID, domain.StateCompleted, len(chunks), embedded, ""); err != nil {
		return fmt.Errorf("set state=completed: %w", err)
	}
	slog.Info("document processed",
		"document_id", documentID, "chunks", len(chunks), "embedded", embedded)
	return nil
}

// embedBatch embeds one batch, falling back to per-chunk calls when the
// batch call fails so a single bad chunk cannot sink the whole batch. The
// permanent flag tells the caller to stop scheduling further batches.
func (uc *ProcessDocumentUseCase) embedBatch(
	ctx context.Context,
	doc *domain.Document,
	batch []string,
	offset int,
) (embeddings []domain.Embedding, lastErr error, permanent bool) {
	vectors, err := uc.embedder.EmbedBatch(ctx, batch)
	if err == nil && len(vectors) == len(batch) {
		out := make([]domain.Embedding, len(batch))
		for i, text := range batch {
			out[i] = newEmbedding(doc, offset+i, text, vectors[i])
		}
		return out, nil, false
	}

	if err == nil {
		err = fmt.Errorf("embed batch: vectors/chunks mismatch: %d/%d", len(vectors), len(batch))
	}
	if isPermanentEmbedError(err) {
		return nil, err, true
	}
	slog.Warn("batch embedding failed, retrying chunks individually",
		"document_id", doc.ID, "batch_offset", offset, "error", err)

	out := make([]domain.Embedding, 0, len(batch))
	for i, text := range batch {
		vector, embedErr := uc.embedder.Embed(ctx, text)
		if embedErr != nil {
			lastErr = embedErr
			slog.Warn("chunk embedding dropped",
				"document_id", doc.ID, "chunk_index", offset+i, "error", embedErr)
			if isPermanentEmbedError(embedErr) {
				return out, lastErr, true
			}
			continue
		}
		out = append(out, newEmbedding(doc, offset+i, text, vector))
	}
	if lastErr == nil {
		lastErr = err
	}
	return out, lastErr, false
}

func (uc *ProcessDocumentUseCase) fail(ctx context.Context, documentID string, chunkCount, embedded int, cause error) error {
	uc.tracker.Fail(documentID, cause.Error())
	if err := uc.repo.UpdateProgress(ctx, documentID, domain.StateFailed, chunkCount, embedded, cause.Error()); err != nil {
		return fmt.Errorf("%w; mark failed state: %v", cause, err)
	}
	return cause
}

// isPermanentEmbedError marks error kinds no retry or fallback can fix.
func isPermanentEmbedError(err error) bool {
	return domain.IsKind(err, domain.ErrInvalidCredentials) ||
		domain.IsKind(err, domain.ErrQuotaExceeded)
}

func newEmbedding(doc *domain.Document, chunkIndex int, text string, vector []float32) domain.Embedding {
	return domain.Embedding{
		ID:         uuid.NewString(),
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		ChunkIndex: chunkIndex,
		Text:       text,
		Vector:     vector,
	}
}
