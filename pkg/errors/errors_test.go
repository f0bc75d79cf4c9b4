package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      string
		status    int
		retryable bool
	}{
		{"validation", ErrValidation("bad"), CodeValidationError, http.StatusBadRequest, false},
		{"not found", ErrNotFound("lpn"), CodeNotFound, http.StatusNotFound, false},
		{"forbidden", ErrForbidden(""), CodeForbidden, http.StatusForbidden, false},
		{"conflict", ErrConcurrencyConflict("LPN0000000000000001"), CodeConcurrencyConflict, http.StatusConflict, true},
		{"lock", ErrLockTimeout("LOCK:LPN:LPN0000000000000001"), CodeLockTimeout, http.StatusConflict, true},
		{"unavailable", ErrServiceUnavailable("event store"), CodeServiceUnavailable, http.StatusServiceUnavailable, true},
		{"reference image", ErrMissingReferenceImage("SKU-1"), CodeMissingReferenceImage, http.StatusUnprocessableEntity, false},
		{"epc header", ErrUnsupportedEpcHeader("E280"), CodeUnsupportedEpcHeader, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "access denied", ErrForbidden("").Message)
	assert.Equal(t, "supervisor only", ErrForbidden("supervisor only").Message)
	assert.Equal(t, "lpn not found", ErrNotFound("lpn").Message)
}

func TestWrappedCauseStaysReachable(t *testing.T) {
	cause := errors.New("socket closed")
	err := fmt.Errorf("save: %w", ErrServiceUnavailable("event store").Wrap(cause))

	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, CodeServiceUnavailable, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "socket closed")
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := errors.New("boom")
	internal := FromError(plain)
	assert.Equal(t, CodeInternalError, internal.Code)
	assert.ErrorIs(t, internal, plain)

	coded := ErrValidation("qty must be positive")
	assert.Same(t, coded, FromError(fmt.Errorf("receive: %w", coded)))
	assert.Equal(t, map[string]string{"sku": "SKU-1"}, ErrMissingReferenceImage("SKU-1").Details)
}
