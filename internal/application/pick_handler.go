package application

import (
	"context"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// PickHandler picks allocated LPNs and closes the full pallet move that asked
// for them. The task is checked before the LPN is touched.
type PickHandler struct {
	*core
	tasks domain.TaskRepository
}

// NewPickHandler creates a PickHandler. tasks may be nil when picks are not
// driven by wave tasks.
func NewPickHandler(deps Deps, tasks domain.TaskRepository) *PickHandler {
	return &PickHandler{core: newCore(deps, "pick-handler"), tasks: tasks}
}

func (h *PickHandler) Handle(ctx context.Context, cmd PickCommand) (*LpnDTO, error) {
	return runCommand(ctx, h.core, "pick", func(ctx context.Context) (*LpnDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}

		var task *domain.Task
		if cmd.TaskID != "" && h.tasks != nil {
			if task, err = h.tasks.FindByID(ctx, cmd.TaskID); err != nil {
				return nil, err
			}
			if err := tc.ValidateOwnership(task.TenantID); err != nil {
				return nil, err
			}
			if err := task.AcceptsLpnPick(); err != nil {
				return nil, err
			}
			if task.LpnID != cmd.LpnID {
				return nil, &taskMismatchError{taskID: task.ID, lpnID: cmd.LpnID}
			}
		}

		picked, err := h.pick(ctx, tc, cmd)
		if err != nil {
			return nil, err
		}

		if task != nil {
			qty := cmd.PickedQuantity
			if qty <= 0 {
				qty = picked.Quantity
			}
			if err := task.Complete(qty, h.now()); err != nil {
				return nil, err
			}
			if err := h.tasks.Save(ctx, task); err != nil {
				return nil, err
			}
		}

		h.logger.WithContext(ctx).Info("LPN picked", "lpnId", picked.ID, "orderId", picked.SelectedOrderID, "taskId", cmd.TaskID)
		return ToLpnDTO(picked), nil
	})
}

func (h *PickHandler) pick(ctx context.Context, tc *tenant.Context, cmd PickCommand) (domain.Lpn, error) {
	return h.mutateLpn(ctx, tc, cmd.LpnID, func(l domain.Lpn) (domain.Lpn, []domain.LpnEvent, error) {
		return l.Pick(h.meta(tc, cmd.Origin))
	})
}
