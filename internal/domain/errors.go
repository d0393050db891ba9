package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrChargeNotFound is returned when a charge doesn't exist
	ErrChargeNotFound = errors.New("charge not found")

	// ErrRefundNotFound is returned when a refund doesn't exist
	ErrRefundNotFound = errors.New("refund not found")

	// ErrInsufficientBalance is returned when a refund exceeds the charge's
	// remaining refundable amount
	ErrInsufficientBalance = errors.New("refund exceeds remaining charge balance")

	// ErrDuplicateRequest is returned when an idempotency key is reused with
	// a different payload. This signals a client bug and is never silently
	// merged with the original request.
	ErrDuplicateRequest = errors.New("idempotency key reused with different payload")

	// ErrUnauthorized is returned when the Authorization Gate denies an
	// operation. The deny reason is attached via fmt.Errorf("%w: ...").
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStorageUnavailable is returned when the ledger backend times out or
	// is unreachable. Callers may retry with backoff.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")
)

// ValidationError reports a charge or refund request field that failed
// validation. It is a 4xx-class failure: retrying without fixing the input
// will fail again.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
