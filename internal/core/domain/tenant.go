package domain

import "time"

// Tenant is the isolation boundary. Every document and embedding belongs to
// exactly one tenant; cross-tenant reads are never permitted.
type Tenant struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	MaxDocuments     int64     `json:"max_documents"`
	MaxQueries       int64     `json:"max_queries"`
	DocumentCount    int64     `json:"document_count"`
	QueryCount       int64     `json:"query_count"`
	QueryWindowStart time.Time `json:"query_window_start"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (t *Tenant) CanUploadDocument() bool {
	return t.DocumentCount < t.MaxDocuments
}

// CanMakeQuery reports whether the tenant has query budget left in the
// current window. An elapsed window always has budget: the next reservation
// resets the counter.
func (t *Tenant) CanMakeQuery(now time.Time, period time.Duration) bool {
	if now.Sub(t.QueryWindowStart) >= period {
		return true
	}
	return t.QueryCount < t.MaxQueries
}
