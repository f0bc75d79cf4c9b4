package workflows

import (
	"context"
	"errors"
	"slices"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/wms-platform/lpn-service/internal/application"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// Activity names as registered on the worker
const (
	AllocateWaveActivity = "AllocateWave"
	ReleaseWaveActivity  = "ReleaseWave"
)

// WaveAllocator is the slice of the wave service the activities drive
type WaveAllocator interface {
	AllocateWave(ctx context.Context, cmd application.AllocateWaveCommand) (*application.WaveDTO, error)
	ReleaseWave(ctx context.Context, waveID string) (*application.WaveDTO, error)
}

// AllocateWaveInput is the payload of the AllocateWave activity
type AllocateWaveInput struct {
	Tenant   tenant.Context `json:"tenant"`
	OrderIDs []string       `json:"orderIds"`
	ActorID  string         `json:"actorId,omitempty"`
}

// ReleaseWaveInput is the payload of the ReleaseWave activity
type ReleaseWaveInput struct {
	Tenant tenant.Context `json:"tenant"`
	WaveID string         `json:"waveId"`
}

// WaveActivities runs wave commands on behalf of workflows
type WaveActivities struct {
	waves  WaveAllocator
	logger *logging.Logger
}

func NewWaveActivities(waves WaveAllocator, logger *logging.Logger) *WaveActivities {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WaveActivities{waves: waves, logger: logger.WithComponent("wave-activities")}
}

// AllocateWave plans and allocates a wave under the caller's tenant
func (a *WaveActivities) AllocateWave(ctx context.Context, input AllocateWaveInput) (*application.WaveDTO, error) {
	info := activity.GetInfo(ctx)
	a.logger.WithContext(ctx).Info("Allocating wave",
		"orderCount", len(input.OrderIDs),
		"attempt", info.Attempt,
	)

	ctx = tenant.ToContext(ctx, &input.Tenant)
	wave, err := a.waves.AllocateWave(ctx, application.AllocateWaveCommand{
		OrderIDs: input.OrderIDs,
		Origin:   application.Origin{ActorID: input.ActorID},
	})
	if err != nil {
		return nil, activityError(err)
	}
	return wave, nil
}

// ReleaseWave hands an allocated wave to the floor
func (a *WaveActivities) ReleaseWave(ctx context.Context, input ReleaseWaveInput) (*application.WaveDTO, error) {
	ctx = tenant.ToContext(ctx, &input.Tenant)
	wave, err := a.waves.ReleaseWave(ctx, input.WaveID)
	if err != nil {
		return nil, activityError(err)
	}
	return wave, nil
}

// activityError tags the failure with its error code so the retry policy can
// tell business rejections from transient faults.
func activityError(err error) error {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return err
	}
	if !appErr.Retryable && isNonRetryable(appErr.Code) {
		return temporal.NewNonRetryableApplicationError(appErr.Message, appErr.Code, err)
	}
	return temporal.NewApplicationErrorWithCause(appErr.Message, appErr.Code, err)
}

func isNonRetryable(code string) bool {
	return slices.Contains(nonRetryableCodes, code)
}

// IsBusinessRejection reports whether err ended a workflow because the
// request itself was rejected.
func IsBusinessRejection(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && isNonRetryable(appErr.Type())
}
