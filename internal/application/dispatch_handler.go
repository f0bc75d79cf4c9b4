package application

import (
	"context"
	"fmt"
	"slices"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// DispatchHandler ships LPNs and closes the order's fulfillment stream.
type DispatchHandler struct {
	*core
}

func NewDispatchHandler(deps Deps) *DispatchHandler {
	return &DispatchHandler{core: newCore(deps, "dispatch-handler")}
}

// Handle locks the LPNs, then the order, and commits every LPN stream plus the
// order stream together.
func (h *DispatchHandler) Handle(ctx context.Context, cmd DispatchCommand) (*DispatchResult, error) {
	return runCommand(ctx, h.core, "dispatch", func(ctx context.Context) (*DispatchResult, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		if cmd.OrderID == "" {
			return nil, fmt.Errorf("%w: order id is required", domain.ErrInvalidValue)
		}
		if len(cmd.LpnIDs) == 0 {
			return nil, fmt.Errorf("%w: nothing to dispatch", domain.ErrInvalidValue)
		}

		ids := slices.Clone(cmd.LpnIDs)
		slices.Sort(ids)
		ids = slices.Compact(ids)

		scope := h.scope()
		defer scope.release(ctx)
		if err := scope.acquire(ctx, LockPlan{LpnIDs: ids, OrderIDs: []string{cmd.OrderID}}); err != nil {
			return nil, err
		}

		meta := h.meta(tc, cmd.Origin)
		cs := &changeSet{}
		for _, id := range ids {
			lpn, err := h.loadLpn(ctx, tc, id)
			if err != nil {
				return nil, err
			}
			if lpn.SelectedOrderID != "" && lpn.SelectedOrderID != cmd.OrderID {
				return nil, fmt.Errorf("%w: lpn %s is allocated to %s", domain.ErrInvalidState, id, lpn.SelectedOrderID)
			}
			next, events, err := lpn.Ship(meta, cmd.OrderID)
			if err != nil {
				return nil, err
			}
			if err := cs.addLpn(lpn.Version, next, events); err != nil {
				return nil, err
			}
		}

		order, err := h.loadOrder(ctx, cmd.OrderID)
		if err != nil {
			return nil, err
		}
		_, orderEvents, err := order.Dispatch(meta, ids)
		if err != nil {
			return nil, err
		}
		if err := cs.addOrder(order, orderEvents); err != nil {
			return nil, err
		}
		if err := h.commit(ctx, cs); err != nil {
			return nil, err
		}

		h.logger.WithContext(ctx).Info("Order dispatched", "orderId", cmd.OrderID, "lpnCount", len(ids))
		return &DispatchResult{OrderID: cmd.OrderID, LpnIDs: ids}, nil
	})
}
