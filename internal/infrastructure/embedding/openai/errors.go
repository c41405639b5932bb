package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/antonved/knowledge-engine/internal/core/domain"
	"github.com/antonved/knowledge-engine/internal/infrastructure/resilience"
)

// classifyAPIError maps provider errors onto the domain error kinds so
// callers can tell a retryable hiccup from a configuration problem.
func classifyAPIError(operation string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return domain.WrapError(domain.ErrInvalidCredentials, operation, err)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			if apiErr.Type == "insufficient_quota" {
				return domain.WrapError(domain.ErrQuotaExceeded, operation, err)
			}
			return domain.WrapError(domain.ErrRateLimited, operation, err)
		case apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func classifyEmbedError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case domain.IsKind(err, domain.ErrRateLimited), domain.IsKind(err, domain.ErrTemporary):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case domain.IsKind(err, domain.ErrInvalidCredentials),
		domain.IsKind(err, domain.ErrQuotaExceeded),
		domain.IsKind(err, domain.ErrDimensionMismatch):
		// Configuration problems, not provider health.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
