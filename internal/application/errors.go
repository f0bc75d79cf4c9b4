package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/internal/rfid"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/resilience"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// LockTimeoutError names the key that could not be acquired.
type LockTimeoutError struct {
	Key string
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock %s is held by another operation", e.Key)
}

func (e *LockTimeoutError) Unwrap() error { return domain.ErrLockTimeout }

type taskMismatchError struct {
	taskID, lpnID string
}

func (e *taskMismatchError) Error() string {
	return fmt.Sprintf("task %s is not for lpn %s", e.taskID, e.lpnID)
}

func (e *taskMismatchError) Unwrap() error { return domain.ErrInvalidValue }

// MapError converts a domain or infrastructure failure into an AppError.
// The original error stays reachable through errors.Is and errors.As.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}

	var (
		conflict *domain.ConflictError
		lockErr  *LockTimeoutError
	)
	switch {
	case errors.As(err, &conflict):
		return apperrors.ErrConcurrencyConflict(conflict.StreamID).Wrap(err)
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return apperrors.ErrConcurrencyConflict("").Wrap(err)
	case errors.As(err, &lockErr):
		return apperrors.ErrLockTimeout(lockErr.Key).Wrap(err)
	case errors.Is(err, domain.ErrLockTimeout):
		return apperrors.ErrLockTimeout("").Wrap(err)
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NewAppError(apperrors.CodeNotFound, err.Error(), http.StatusNotFound).Wrap(err)
	case errors.Is(err, tenant.ErrInsufficientRole):
		return apperrors.ErrForbidden(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, tenant.ErrMissingTenantContext),
		errors.Is(err, tenant.ErrUnauthorizedAccess):
		return apperrors.ErrUnauthorized(err.Error()).Wrap(err)
	case errors.Is(err, rfid.ErrUnsupportedEpcHeader):
		return apperrors.ErrUnsupportedEpcHeader("").Wrap(err)
	case errors.Is(err, rfid.ErrMalformedEpc):
		return apperrors.ErrMalformedEpc("").Wrap(err)
	case errors.Is(err, domain.ErrDomainValidation),
		errors.Is(err, domain.ErrWaveEmpty),
		errors.Is(err, domain.ErrWaveNotPlanned):
		return apperrors.ErrValidation(err.Error()).Wrap(err)
	case errors.Is(err, domain.ErrStorageUnavailable):
		return apperrors.ErrServiceUnavailable("event store").Wrap(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ErrServiceUnavailable("dependency").Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout("command").Wrap(err)
	default:
		return apperrors.ErrInternal("").Wrap(err)
	}
}

func errorCode(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Code
	}
	return apperrors.CodeInternalError
}
