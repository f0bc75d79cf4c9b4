package domain

import (
	"errors"
	"fmt"
)

// ErrDomainValidation is the parent of every guard violation raised by an aggregate.
var ErrDomainValidation = errors.New("domain validation failed")

// Aggregate guard errors
var (
	ErrInvalidState    = fmt.Errorf("%w: invalid state transition", ErrDomainValidation)
	ErrSkuMismatch     = fmt.Errorf("%w: sku mismatch", ErrDomainValidation)
	ErrInvalidQuantity = fmt.Errorf("%w: invalid quantity", ErrDomainValidation)
	ErrInvalidValue    = fmt.Errorf("%w: invalid value", ErrDomainValidation)
	ErrTenantImmutable = fmt.Errorf("%w: tenant cannot change", ErrDomainValidation)
)

// Infrastructure and policy errors
var (
	ErrConcurrencyConflict   = errors.New("concurrency conflict")
	ErrLockTimeout           = errors.New("lock not acquired")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrMissingReferenceImage = errors.New("missing reference image")
	ErrStorageUnavailable    = errors.New("storage unavailable")
)

// ConflictError reports which stream failed its version check.
type ConflictError struct {
	StreamID string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stream %s: expected version %d, actual %d", e.StreamID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }
