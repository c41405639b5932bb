package domain

import (
	"math"
	"time"
)

type ProcessingState string

const (
	StatePending    ProcessingState = "pending"
	StateProcessing ProcessingState = "processing"
	StateCompleted  ProcessingState = "completed"
	StateFailed     ProcessingState = "failed"
)

// Terminal reports whether the state ends the processing lifecycle.
// Terminal states are final; a document is never re-processed automatically.
func (s ProcessingState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Document holds the parsed text of one uploaded file together with its
// processing state. Upstream parsing already produced Text as a flat string;
// this core never touches file formats.
type Document struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Filename       string          `json:"filename"`
	MimeType       string          `json:"mime_type"`
	SizeBytes      int64           `json:"size_bytes"`
	Text           string          `json:"-"`
	State          ProcessingState `json:"state"`
	ChunkCount     int             `json:"chunk_count"`
	EmbeddingCount int             `json:"embedding_count"`
	Error          string          `json:"error,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// JobHandle identifies an accepted ingestion job.
type JobHandle struct {
	DocumentID  string    `json:"document_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobStatus is the pollable snapshot of one ingestion job.
type JobStatus struct {
	DocumentID      string          `json:"document_id"`
	State           ProcessingState `json:"state"`
	ProgressPercent int             `json:"progress_percent"`
	ChunkCount      int             `json:"chunk_count"`
	EmbeddingCount  int             `json:"embedding_count"`
	Error           string          `json:"error,omitempty"`
}

// Progress returns round(embeddingCount/chunkCount*100), or 0 while the
// chunk count is still unknown.
func Progress(embeddingCount, chunkCount int) int {
	if chunkCount <= 0 {
		return 0
	}
	return int(math.Round(float64(embeddingCount) / float64(chunkCount) * 100))
}
