package usecase

import (
	"context"
	"testing"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

func newSubmitFixture() (*SubmitDocumentUseCase, *fakeRepo, *fakeTenants, *fakeQueue, *JobTracker) {
	repo := newFakeRepo()
	tenants := &fakeTenants{}
	queue := &fakeQueue{}
	tracker := NewJobTracker()
	uc := NewSubmitDocumentUseCase(repo, tenants, queue, tracker)
	return uc, repo, tenants, queue, tracker
}

func TestSubmitHappyPath(t *testing.T) {
	uc, repo, tenants, queue, _ := newSubmitFixture()

	handle, err := uc.Submit(context.Background(), &domain.Document{
		TenantID: "t1",
		Filename: "notes.txt",
		Text:     "some content",
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if handle.DocumentID == "" {
		t.Fatalf("expected generated document id")
	}
	if len(queue.published) != 1 || queue.published[0] != handle.DocumentID {
		t.Fatalf("published = %v", queue.published)
	}
	if tenants.reserved != 1 {
		t.Fatalf("reserved = %d, want 1", tenants.reserved)
	}

	doc, err := repo.GetByID(context.Background(), handle.DocumentID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.State != domain.StatePending {
		t.Fatalf("state = %s, want pending", doc.State)
	}
	if doc.SizeBytes != int64(len("some content")) {
		t.Fatalf("size = %d", doc.SizeBytes)
	}
}

func TestSubmitRequiresTenant(t *testing.T) {
	uc, _, _, _, _ := newSubmitFixture()

	_, err := uc.Submit(context.Background(), &domain.Document{Text: "x"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitRefusesActiveDuplicate(t *testing.T) {
	uc, _, _, _, _ := newSubmitFixture()

	doc := &domain.Document{ID: "doc-1", TenantID: "t1", Text: "x"}
	if _, err := uc.Submit(context.Background(), doc); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	_, err := uc.Submit(context.Background(), &domain.Document{ID: "doc-1", TenantID: "t1", Text: "x"})
	if !domain.IsKind(err, domain.ErrJobAlreadyActive) {
		t.Fatalf("expected ErrJobAlreadyActive, got %v", err)
	}
}

func TestSubmitQuotaRefusalReleasesNothing(t *testing.T) {
	uc, _, tenants, queue, tracker := newSubmitFixture()
	tenants.reserveSlotErr = domain.WrapError(domain.ErrQuotaExceeded, "reserve", domain.ErrQuotaExceeded)

	_, err := uc.Submit(context.Background(), &domain.Document{ID: "doc-1", TenantID: "t1", Text: "x"})
	if !domain.IsKind(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if len(queue.published) != 0 {
		t.Fatalf("nothing may be enqueued on quota refusal")
	}
	if _, tracked := tracker.Status("doc-1"); tracked {
		t.Fatalf("tracker entry must be released on quota refusal")
	}
	// The same id must be submittable once quota frees up.
	tenants.reserveSlotErr = nil
	if _, err := uc.Submit(context.Background(), &domain.Document{ID: "doc-1", TenantID: "t1", Text: "x"}); err != nil {
		t.Fatalf("resubmit after refusal error = %v", err)
	}
}

func TestSubmitRollsBackOnPublishFailure(t *testing.T) {
	uc, repo, tenants, queue, tracker := newSubmitFixture()
	queue.publishErr = domain.WrapError(domain.ErrTemporary, "publish", domain.ErrTemporary)

	_, err := uc.Submit(context.Background(), &domain.Document{ID: "doc-1", TenantID: "t1", Text: "x"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if tenants.released != 1 {
		t.Fatalf("released = %d, want 1", tenants.released)
	}
	if _, tracked := tracker.Status("doc-1"); tracked {
		t.Fatalf("tracker entry must be released on publish failure")
	}

	doc, getErr := repo.GetByID(context.Background(), "doc-1")
	if getErr != nil {
		t.Fatalf("GetByID() error = %v", getErr)
	}
	if doc.State != domain.StateFailed {
		t.Fatalf("state = %s, want failed", doc.State)
	}
}

func TestStatusFallsBackToRepository(t *testing.T) {
	uc, repo, _, _, _ := newSubmitFixture()

	repo.documents["doc-9"] = &domain.Document{
		ID:             "doc-9",
		State:          domain.StateCompleted,
		ChunkCount:     8,
		EmbeddingCount: 8,
	}

	st, err := uc.Status(context.Background(), "doc-9")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.State != domain.StateCompleted || st.ProgressPercent != 100 {
		t.Fatalf("status = %+v", st)
	}
}

func TestStatusUnknownDocument(t *testing.T) {
	uc, _, _, _, _ := newSubmitFixture()

	_, err := uc.Status(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
