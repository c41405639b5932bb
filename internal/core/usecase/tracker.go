package usecase

import (
	"sync"
	"sync/atomic"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

// JobTracker is the in-process bookkeeping behind the at-most-one-job-per-
// document guarantee. Each job keeps its status in an atomic pointer that is
// replaced wholesale on every mutation, so Status readers get a
// self-consistent snapshot without taking any lock and without blocking an
// in-flight write.
type JobTracker struct {
	jobs sync.Map // document id -> *trackedJob
}

type trackedJob struct {
	snapshot atomic.Pointer[domain.JobStatus]
}

func newTrackedJob(documentID string) *trackedJob {
	job := &trackedJob{}
	job.snapshot.Store(&domain.JobStatus{DocumentID: documentID, State: domain.StatePending})
	return job
}

func NewJobTracker() *JobTracker {
	return &JobTracker{}
}

// Begin registers a pending job for the document. It returns false when a
// job for the same document is still active; a finished record is replaced.
func (t *JobTracker) Begin(documentID string) bool {
	fresh := newTrackedJob(documentID)
	for {
		actual, loaded := t.jobs.LoadOrStore(documentID, fresh)
		if !loaded {
			return true
		}
		existing := actual.(*trackedJob)
		if !existing.snapshot.Load().State.Terminal() {
			return false
		}
		if t.jobs.CompareAndSwap(documentID, actual, fresh) {
			return true
		}
	}
}

// Start moves a job into processing. The record is created on the fly when
// the submit happened in another process. Returns false on a duplicate
// delivery: the job is already processing or already finished.
func (t *JobTracker) Start(documentID string) bool {
	actual, _ := t.jobs.LoadOrStore(documentID, newTrackedJob(documentID))
	job := actual.(*trackedJob)
	for {
		cur := job.snapshot.Load()
		if cur.State != domain.StatePending {
			return false
		}
		next := *cur
		next.State = domain.StateProcessing
		if job.snapshot.CompareAndSwap(cur, &next) {
			return true
		}
	}
}

func (t *JobTracker) SetChunkCount(documentID string, chunkCount int) {
	t.update(documentID, func(st *domain.JobStatus) {
		st.ChunkCount = chunkCount
	})
}

func (t *JobTracker) AdvanceEmbeddings(documentID string, delta int) {
	t.update(documentID, func(st *domain.JobStatus) {
		st.EmbeddingCount += delta
	})
}

func (t *JobTracker) Complete(documentID string) {
	t.update(documentID, func(st *domain.JobStatus) {
		st.State = domain.StateCompleted
		st.Error = ""
	})
}

func (t *JobTracker) Fail(documentID, message string) {
	t.update(documentID, func(st *domain.JobStatus) {
		st.State = domain.StateFailed
		st.Error = message
	})
}

// Release drops the record entirely, undoing a Begin whose submission was
// rolled back.
func (t *JobTracker) Release(documentID string) {
	t.jobs.Delete(documentID)
}

func (t *JobTracker) Status(documentID string) (domain.JobStatus, bool) {
	actual, ok := t.jobs.Load(documentID)
	if !ok {
		return domain.JobStatus{}, false
	}
	return *actual.(*trackedJob).snapshot.Load(), true
}

func (t *JobTracker) update(documentID string, mutate func(*domain.JobStatus)) {
	actual, ok := t.jobs.Load(documentID)
	if !ok {
		return
	}
	job := actual.(*trackedJob)
	for {
		cur := job.snapshot.Load()
		next := *cur
		mutate(&next)
		next.ProgressPercent = domain.Progress(next.EmbeddingCount, next.ChunkCount)
		if job.snapshot.CompareAndSwap(cur, &next) {
			return
		}
	}
}
