package application

import (
	"context"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// VoidHandler cancels an LPN and reverts every order allocation it backs.
type VoidHandler struct {
	*core
}

func NewVoidHandler(deps Deps) *VoidHandler {
	return &VoidHandler{core: newCore(deps, "void-handler")}
}

// Handle locks the LPN first to learn which orders it backs, then locks those
// orders. The LPN lock keeps that set stable in between.
func (h *VoidHandler) Handle(ctx context.Context, cmd VoidCommand) (*VoidResult, error) {
	return runCommand(ctx, h.core, "void", func(ctx context.Context) (*VoidResult, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}

		scope := h.scope()
		defer scope.release(ctx)
		if err := scope.acquire(ctx, LockPlan{LpnIDs: []string{cmd.LpnID}}); err != nil {
			return nil, err
		}
		lpn, err := h.loadLpn(ctx, tc, cmd.LpnID)
		if err != nil {
			return nil, err
		}
		orders := lpn.HeldFor()
		if err := scope.acquire(ctx, LockPlan{OrderIDs: orders}); err != nil {
			return nil, err
		}

		meta := h.meta(tc, cmd.Origin)
		result := &VoidResult{LpnID: lpn.ID, RevertedOrders: []string{}}
		cs := &changeSet{}
		for _, orderID := range orders {
			order, err := h.loadOrder(ctx, orderID)
			if err != nil {
				return nil, err
			}
			_, events, err := order.RevertLpn(meta, lpn.ID, cmd.Reason)
			if err != nil {
				return nil, err
			}
			for _, e := range events {
				if reverted, ok := e.(domain.OrderAllocationReverted); ok {
					result.RevertedUnits += reverted.Quantity
				}
			}
			if len(events) > 0 {
				result.RevertedOrders = append(result.RevertedOrders, orderID)
			}
			if err := cs.addOrder(order, events); err != nil {
				return nil, err
			}
		}

		next, events, err := lpn.Void(meta, cmd.Reason)
		if err != nil {
			return nil, err
		}
		if err := cs.addLpn(lpn.Version, next, events); err != nil {
			return nil, err
		}
		if err := h.commit(ctx, cs); err != nil {
			return nil, err
		}

		h.logger.Audit(ctx, "void", "lpn", lpn.ID, meta.Actor, map[string]any{
			"reason":         cmd.Reason,
			"revertedOrders": result.RevertedOrders,
			"revertedUnits":  result.RevertedUnits,
			"tenantId":       tc.TenantID,
		})
		return result, nil
	})
}

// QuarantineHandler takes an LPN out of circulation from any state.
type QuarantineHandler struct {
	*core
}

func NewQuarantineHandler(deps Deps) *QuarantineHandler {
	return &QuarantineHandler{core: newCore(deps, "quarantine-handler")}
}

func (h *QuarantineHandler) Handle(ctx context.Context, cmd QuarantineCommand) (*LpnDTO, error) {
	return runCommand(ctx, h.core, "quarantine", func(ctx context.Context) (*LpnDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		lpn, err := h.mutateLpn(ctx, tc, cmd.LpnID, func(l domain.Lpn) (domain.Lpn, []domain.LpnEvent, error) {
			return l.Quarantine(h.meta(tc, cmd.Origin), cmd.Reason)
		})
		if err != nil {
			return nil, err
		}
		h.logger.WithContext(ctx).Info("LPN quarantined", "lpnId", lpn.ID, "reason", cmd.Reason)
		return ToLpnDTO(lpn), nil
	})
}
