package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

func newProcessFixture(chunks []string) (*ProcessDocumentUseCase, *fakeRepo, *fakeEmbedder, *fakeVectors, *JobTracker) {
	repo := newFakeRepo()
	repo.documents["doc-1"] = &domain.Document{
		ID:       "doc-1",
		TenantID: "t1",
		Text:     "irrelevant, the chunker is faked",
		State:    domain.StatePending,
	}
	embedder := newFakeEmbedder()
	vectors := &fakeVectors{}
	tracker := NewJobTracker()
	tracker.Begin("doc-1")

	uc := NewProcessDocumentUseCase(repo, &fakeChunker{chunks: chunks}, embedder, vectors, tracker, ProcessConfig{
		BatchSize:  2,
		BatchPause: time.Millisecond,
	})
	return uc, repo, embedder, vectors, tracker
}

func TestProcessHappyPathBatches(t *testing.T) {
	uc, repo, embedder, vectors, tracker := newProcessFixture([]string{"a", "b", "c", "d", "e"})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if embedder.batchCalls != 3 {
		t.Fatalf("batch calls = %d, want 3", embedder.batchCalls)
	}
	if len(vectors.upserted) != 5 {
		t.Fatalf("upserted = %d, want 5", len(vectors.upserted))
	}
	for i, e := range vectors.upserted {
		if e.ChunkIndex != i {
			t.Fatalf("chunk index %d = %d", i, e.ChunkIndex)
		}
		if e.TenantID != "t1" || e.DocumentID != "doc-1" {
			t.Fatalf("embedding identity = %+v", e)
		}
	}

	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.State != domain.StateCompleted || doc.ChunkCount != 5 || doc.EmbeddingCount != 5 {
		t.Fatalf("document = %+v", doc)
	}

	st, _ := tracker.Status("doc-1")
	if st.State != domain.StateCompleted || st.ProgressPercent != 100 {
		t.Fatalf("tracker status = %+v", st)
	}
}

func TestProcessProgressIsMonotonic(t *testing.T) {
	uc, repo, _, _, _ := newProcessFixture([]string{"a", "b", "c", "d", "e", "f"})

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	last := -1
	for _, count := range repo.progressLog {
		if count < last {
			t.Fatalf("embedding count regressed: %v", repo.progressLog)
		}
		last = count
	}
}

func TestProcessZeroChunksFails(t *testing.T) {
	uc, repo, _, _, tracker := newProcessFixture(nil)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.State != domain.StateFailed {
		t.Fatalf("state = %s, want failed", doc.State)
	}
	if doc.Error == "" {
		t.Fatalf("expected error message on document")
	}

	st, _ := tracker.Status("doc-1")
	if st.State != domain.StateFailed {
		t.Fatalf("tracker state = %s, want failed", st.State)
	}
}

func TestProcessPartialFailureStillCompletes(t *testing.T) {
	uc, repo, embedder, vectors, _ := newProcessFixture([]string{"good-1", "bad", "good-2", "good-3"})
	embedder.failText = func(text string) error {
		if text == "bad" {
			return errors.New("provider hiccup")
		}
		return nil
	}

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if len(vectors.upserted) != 3 {
		t.Fatalf("upserted = %d, want 3", len(vectors.upserted))
	}
	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.State != domain.StateCompleted {
		t.Fatalf("state = %s, want completed", doc.State)
	}
	if doc.EmbeddingCount >= doc.ChunkCount {
		t.Fatalf("shortfall must be visible: %d/%d", doc.EmbeddingCount, doc.ChunkCount)
	}
}

func TestProcessAllChunksFailingIsTerminalFailure(t *testing.T) {
	uc, repo, embedder, _, _ := newProcessFixture([]string{"a", "b"})
	embedder.failText = func(string) error {
		return errors.New("provider down")
	}

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error when nothing embeds")
	}

	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.State != domain.StateFailed {
		t.Fatalf("state = %s, want failed", doc.State)
	}
	if doc.Error == "" {
		t.Fatalf("failure reason must be recorded")
	}
}

func TestProcessPermanentErrorAbortsRemainingBatches(t *testing.T) {
	uc, repo, embedder, vectors, _ := newProcessFixture([]string{"a", "b", "c", "d", "e", "f"})
	embedder.batchErr = domain.WrapError(domain.ErrInvalidCredentials, "embed", errors.New("401"))

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if embedder.batchCalls != 1 {
		t.Fatalf("batch calls = %d, want 1 (no retries of a permanent error)", embedder.batchCalls)
	}
	if embedder.itemCalls != 0 {
		t.Fatalf("no per-chunk fallback for permanent errors, got %d calls", embedder.itemCalls)
	}
	if len(vectors.upserted) != 0 {
		t.Fatalf("nothing may be upserted, got %d", len(vectors.upserted))
	}

	doc, _ := repo.GetByID(context.Background(), "doc-1")
	if doc.State != domain.StateFailed {
		t.Fatalf("state = %s, want failed", doc.State)
	}
}

func TestProcessDuplicateDeliveryIsIgnored(t *testing.T) {
	uc, _, embedder, _, tracker := newProcessFixture([]string{"a"})
	tracker.Start("doc-1") // simulate a concurrent consumer owning the job

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("duplicate delivery must be a no-op, got %v", err)
	}
	if embedder.batchCalls != 0 {
		t.Fatalf("duplicate delivery must not embed, got %d calls", embedder.batchCalls)
	}
}

func TestProcessMissingDocumentFailsTracker(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewJobTracker()
	tracker.Begin("ghost")
	uc := NewProcessDocumentUseCase(repo, &fakeChunker{}, newFakeEmbedder(), &fakeVectors{}, tracker, ProcessConfig{
		BatchSize:  2,
		BatchPause: time.Millisecond,
	})

	err := uc.ProcessByID(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}

	st, _ := tracker.Status("ghost")
	if st.State != domain.StateFailed {
		t.Fatalf("tracker state = %s, want failed", st.State)
	}
}
