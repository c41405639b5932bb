package domain

// Embedding pairs one chunk of a document's text with its vector. All
// embeddings produced under the same provider configuration share one vector
// dimension; a length mismatch during similarity computation is a hard error.
type Embedding struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"-"`
}

// RetrievalMatch is the ephemeral result of a similarity query. Similarity is
// cosine similarity in [-1, 1]. Never persisted.
type RetrievalMatch struct {
	Embedding  Embedding `json:"embedding"`
	Similarity float64   `json:"similarity"`
}
