// Package errors defines the coded errors returned over HTTP and through
// workflow activities. Codes are stable; messages are for humans.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"

	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeLockTimeout           = "LOCK_TIMEOUT"
	CodeMissingReferenceImage = "MISSING_REFERENCE_IMAGE"
	CodeUnsupportedEpcHeader  = "UNSUPPORTED_EPC_HEADER"
	CodeMalformedEpc          = "MALFORMED_EPC"
)

// AppError is the error body written by the error middleware. Retryable
// marks failures a caller may resolve by reloading and resubmitting.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Retryable  bool              `json:"retryable,omitempty"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap keeps cause reachable through errors.Is and errors.As
func (e *AppError) Wrap(cause error) *AppError {
	e.Err = cause
	return e
}

func NewAppError(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func retryable(e *AppError) *AppError {
	e.Retryable = true
	return e
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", http.StatusNotFound)
}

func ErrUnauthorized(message string) *AppError {
	return NewAppError(CodeUnauthorized, orDefault(message, "authentication required"), http.StatusUnauthorized)
}

func ErrForbidden(message string) *AppError {
	return NewAppError(CodeForbidden, orDefault(message, "access denied"), http.StatusForbidden)
}

func ErrInternal(message string) *AppError {
	return NewAppError(CodeInternalError, orDefault(message, "an internal error occurred"), http.StatusInternalServerError)
}

// ErrServiceUnavailable names the backing system that could not be reached.
func ErrServiceUnavailable(service string) *AppError {
	return retryable(NewAppError(CodeServiceUnavailable, service+" is temporarily unavailable", http.StatusServiceUnavailable))
}

func ErrTimeout(operation string) *AppError {
	return retryable(NewAppError(CodeTimeout, operation+" timed out", http.StatusGatewayTimeout))
}

// ErrConcurrencyConflict means the stream moved past the version the command
// was decided against.
func ErrConcurrencyConflict(streamID string) *AppError {
	return retryable(NewAppError(CodeConcurrencyConflict, "stream was modified concurrently", http.StatusConflict)).
		WithDetail("streamId", streamID)
}

func ErrLockTimeout(key string) *AppError {
	return retryable(NewAppError(CodeLockTimeout, "resource is locked by another operation", http.StatusConflict)).
		WithDetail("lockKey", key)
}

func ErrMissingReferenceImage(sku string) *AppError {
	return NewAppError(CodeMissingReferenceImage, "sku has no reference image", http.StatusUnprocessableEntity).
		WithDetail("sku", sku)
}

func ErrUnsupportedEpcHeader(epc string) *AppError {
	return NewAppError(CodeUnsupportedEpcHeader, "epc header is not supported", http.StatusBadRequest).
		WithDetail("epc", epc)
}

func ErrMalformedEpc(epc string) *AppError {
	return NewAppError(CodeMalformedEpc, "epc is malformed", http.StatusBadRequest).
		WithDetail("epc", epc)
}

func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}

// FromError returns err's AppError, or an internal error wrapping it
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
