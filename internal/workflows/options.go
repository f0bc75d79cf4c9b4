package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
)

// nonRetryableCodes are failures a second attempt cannot fix
var nonRetryableCodes = []string{
	apperrors.CodeValidationError,
	apperrors.CodeNotFound,
	apperrors.CodeUnauthorized,
	apperrors.CodeForbidden,
	apperrors.CodeBadRequest,
}

// allocationRetryPolicy retries lock contention, version conflicts and
// unavailable storage with backoff.
func allocationRetryPolicy() *temporal.RetryPolicy {
	return &temporal.RetryPolicy{
		InitialInterval:        time.Second,
		BackoffCoefficient:     2.0,
		MaximumInterval:        30 * time.Second,
		MaximumAttempts:        5,
		NonRetryableErrorTypes: nonRetryableCodes,
	}
}

func activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         allocationRetryPolicy(),
	}
}
