package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
	ErrTemporary          = errors.New("temporary failure")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrJobAlreadyActive   = errors.New("job already active")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
