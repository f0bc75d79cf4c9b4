package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/lpn-service/internal/application"
	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// WaveAllocationWorkflowName is the registered workflow type
const WaveAllocationWorkflowName = "WaveAllocationWorkflow"

// WaveAllocationInput starts a wave allocation
type WaveAllocationInput struct {
	Tenant      tenant.Context `json:"tenant"`
	OrderIDs    []string       `json:"orderIds"`
	ActorID     string         `json:"actorId,omitempty"`
	AutoRelease bool           `json:"autoRelease"`
}

// WaveAllocationResult summarizes the allocated wave
type WaveAllocationResult struct {
	WaveID      string `json:"waveId"`
	WaveNumber  int64  `json:"waveNumber"`
	Status      string `json:"status"`
	TaskCount   int    `json:"taskCount"`
	CycleCounts int    `json:"cycleCounts"`
	FullPallets int    `json:"fullPallets"`
	PickToTote  int    `json:"pickToTote"`
	Released    bool   `json:"released"`
}

// WaveAllocationWorkflow allocates a wave and optionally releases it to the
// floor. Allocation is a single activity so the LPN claims of one wave are
// booked by one worker.
func WaveAllocationWorkflow(ctx workflow.Context, input WaveAllocationInput) (*WaveAllocationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting wave allocation workflow",
		"tenantId", input.Tenant.TenantID,
		"orderCount", len(input.OrderIDs),
	)

	if len(input.OrderIDs) == 0 {
		return nil, fmt.Errorf("wave allocation: %w", domain.ErrWaveEmpty)
	}

	ctx = workflow.WithActivityOptions(ctx, activityOptions())

	var wave application.WaveDTO
	err := workflow.ExecuteActivity(ctx, AllocateWaveActivity, AllocateWaveInput{
		Tenant:   input.Tenant,
		OrderIDs: input.OrderIDs,
		ActorID:  input.ActorID,
	}).Get(ctx, &wave)
	if err != nil {
		logger.Error("Wave allocation failed", "error", err)
		return nil, err
	}

	result := summarize(&wave)
	logger.Info("Wave allocated",
		"waveId", wave.ID,
		"taskCount", result.TaskCount,
		"cycleCounts", result.CycleCounts,
	)

	if !input.AutoRelease {
		return result, nil
	}

	var released application.WaveDTO
	err = workflow.ExecuteActivity(ctx, ReleaseWaveActivity, ReleaseWaveInput{
		Tenant: input.Tenant,
		WaveID: wave.ID,
	}).Get(ctx, &released)
	if err != nil {
		// The wave stays allocated and can be released by hand.
		logger.Warn("Wave release failed", "waveId", wave.ID, "error", err)
		return result, nil
	}
	result.Status = released.Status
	result.Released = true
	return result, nil
}

func summarize(wave *application.WaveDTO) *WaveAllocationResult {
	result := &WaveAllocationResult{
		WaveID:     wave.ID,
		WaveNumber: wave.Number,
		Status:     wave.Status,
		TaskCount:  len(wave.Tasks),
	}
	for _, t := range wave.Tasks {
		switch domain.TaskType(t.Type) {
		case domain.TaskTypeCycleCount:
			result.CycleCounts++
		case domain.TaskTypeFullPalletMove:
			result.FullPallets++
		case domain.TaskTypePickToTote:
			result.PickToTote++
		}
	}
	return result
}

// Starter launches wave allocation workflows
type Starter struct {
	client    client.Client
	taskQueue string
}

func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartWaveAllocation starts a workflow and returns its workflow and run ids
func (s *Starter) StartWaveAllocation(ctx context.Context, input WaveAllocationInput) (string, string, error) {
	opts := client.StartWorkflowOptions{
		ID:        "wave-allocation-" + uuid.NewString(),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, WaveAllocationWorkflowName, input)
	if err != nil {
		return "", "", fmt.Errorf("failed to start wave allocation: %w", err)
	}
	return run.GetID(), run.GetRunID(), nil
}
