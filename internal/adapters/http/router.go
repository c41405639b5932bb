package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/core/ports"
	"github.com/antonved/knowledge-engine/internal/observability/metrics"
)

// Router exposes the ingestion and query surfaces. Handlers stay thin: decode,
// call the use case, map the error kind to a status code.
type Router struct {
	jobs        ports.IngestionJobManager
	queries     ports.QueryService
	repo        ports.DocumentRepository
	vectors     ports.VectorStore
	tenants     ports.TenantStore
	provisioner ports.TenantProvisioner
	quotas      TenantQuotaDefaults
	metrics     *metrics.HTTPServerMetrics
	service     string
}

// TenantQuotaDefaults apply when a provisioning request leaves limits unset.
type TenantQuotaDefaults struct {
	MaxDocuments int64
	MaxQueries   int64
}

func NewRouter(
	jobs ports.IngestionJobManager,
	queries ports.QueryService,
	repo ports.DocumentRepository,
	vectors ports.VectorStore,
	tenants ports.TenantStore,
	provisioner ports.TenantProvisioner,
	quotas TenantQuotaDefaults,
	m *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		jobs:        jobs,
		queries:     queries,
		repo:        repo,
		vectors:     vectors,
		tenants:     tenants,
		provisioner: provisioner,
		quotas:      quotas,
		metrics:     m,
		service:     service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/tenants", rt.createTenant)
	mux.HandleFunc("POST /v1/tenants/{tenantID}/documents", rt.submitDocument)
	mux.HandleFunc("POST /v1/tenants/{tenantID}/query", rt.query)
	mux.HandleFunc("GET /v1/documents/{documentID}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{documentID}/status", rt.getJobStatus)
	mux.HandleFunc("DELETE /v1/documents/{documentID}", rt.deleteDocument)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createTenantRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MaxDocuments int64  `json:"max_documents"`
	MaxQueries   int64  `json:"max_queries"`
}

func (rt *Router) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:               strings.TrimSpace(req.ID),
		Name:             strings.TrimSpace(req.Name),
		MaxDocuments:     req.MaxDocuments,
		MaxQueries:       req.MaxQueries,
		QueryWindowStart: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	if tenant.MaxDocuments <= 0 {
		tenant.MaxDocuments = rt.quotas.MaxDocuments
	}
	if tenant.MaxQueries <= 0 {
		tenant.MaxQueries = rt.quotas.MaxQueries
	}

	if err := rt.provisioner.Create(r.Context(), tenant); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

type submitRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Text     string `json:"text"`
}

func (rt *Router) submitDocument(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenantID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	doc := documentFromSubmit(tenantID, req)
	handle, err := rt.jobs.Submit(r.Context(), doc)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, handle)
}

func (rt *Router) getJobStatus(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("documentID")

	status, err := rt.jobs.Status(r.Context(), documentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("documentID")

	doc, err := rt.repo.GetByID(r.Context(), documentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// deleteDocument retires a document from retrieval without destroying the
// processing record: the row stays, its vectors stop matching, and the
// tenant's document slot is given back. Deleting an already-inactive document
// is a no-op so a retried delete cannot release the slot twice.
func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("documentID")

	doc, err := rt.repo.GetByID(r.Context(), documentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !doc.Active {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := rt.repo.SetActive(r.Context(), documentID, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := rt.vectors.DeleteDocument(r.Context(), doc.TenantID, documentID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := rt.tenants.ReleaseDocumentSlot(r.Context(), doc.TenantID); err != nil {
		slog.Warn("document slot release failed",
			"request_id", requestIDFromContext(r.Context()),
			"tenant_id", doc.TenantID, "document_id", documentID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

type queryRequest struct {
	Question string `json:"question"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenantID")
	start := time.Now()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	answer, err := rt.queries.Answer(r.Context(), tenantID, req.Question)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordAnswer(rt.service, answer.Source, answer.Confidence,
			len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func documentFromSubmit(tenantID string, req submitRequest) *domain.Document {
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "untitled.txt"
	}
	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return &domain.Document{
		TenantID: tenantID,
		Filename: filename,
		MimeType: mimeType,
		Text:     req.Text,
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
