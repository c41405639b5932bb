package httpadapter

import (
	"net/http"

	"github.com/antonved/knowledge-engine/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrTenantNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrJobAlreadyActive):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
