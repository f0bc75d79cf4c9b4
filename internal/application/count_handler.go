package application

import (
	"context"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// ReportCountHandler records physical counts. The booked quantity is untouched.
type ReportCountHandler struct {
	*core
}

func NewReportCountHandler(deps Deps) *ReportCountHandler {
	return &ReportCountHandler{core: newCore(deps, "count-handler")}
}

func (h *ReportCountHandler) Handle(ctx context.Context, cmd ReportCountCommand) (*CountResult, error) {
	return runCommand(ctx, h.core, "report-count", func(ctx context.Context) (*CountResult, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		lpn, err := h.mutateLpn(ctx, tc, cmd.LpnID, func(l domain.Lpn) (domain.Lpn, []domain.LpnEvent, error) {
			return l.ReportCount(h.meta(tc, cmd.Origin), cmd.CountedQuantity)
		})
		if err != nil {
			return nil, err
		}
		result := &CountResult{
			LpnID:           lpn.ID,
			CountedQuantity: cmd.CountedQuantity,
			SystemQuantity:  lpn.Quantity,
			Variance:        cmd.CountedQuantity - lpn.Quantity,
		}
		h.logger.WithContext(ctx).Info("Count reported", "lpnId", lpn.ID, "counted", cmd.CountedQuantity, "variance", result.Variance)
		return result, nil
	})
}

// AuthorizeAdjustmentHandler applies supervisor quantity corrections.
type AuthorizeAdjustmentHandler struct {
	*core
}

func NewAuthorizeAdjustmentHandler(deps Deps) *AuthorizeAdjustmentHandler {
	return &AuthorizeAdjustmentHandler{core: newCore(deps, "adjustment-handler")}
}

// Handle sets the booked quantity. Only supervisors may call it.
func (h *AuthorizeAdjustmentHandler) Handle(ctx context.Context, cmd AuthorizeAdjustmentCommand) (*LpnDTO, error) {
	return runCommand(ctx, h.core, "authorize-adjustment", func(ctx context.Context) (*LpnDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		if err := tc.RequireRole(tenant.RoleSupervisor); err != nil {
			return nil, err
		}

		var previous int
		lpn, err := h.mutateLpn(ctx, tc, cmd.LpnID, func(l domain.Lpn) (domain.Lpn, []domain.LpnEvent, error) {
			previous = l.Quantity
			return l.AdjustQuantity(h.meta(tc, cmd.Origin), cmd.NewQuantity, cmd.Reason)
		})
		if err != nil {
			return nil, err
		}

		h.logger.Audit(ctx, "adjust-quantity", "lpn", lpn.ID, h.meta(tc, cmd.Origin).Actor, map[string]any{
			"previousQuantity": previous,
			"newQuantity":      cmd.NewQuantity,
			"reason":           cmd.Reason,
			"tenantId":         tc.TenantID,
		})
		return ToLpnDTO(lpn), nil
	})
}
