package application

import (
	"context"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// AllocateHandler claims a whole LPN for an outbound order.
type AllocateHandler struct {
	*core
}

func NewAllocateHandler(deps Deps) *AllocateHandler {
	return &AllocateHandler{core: newCore(deps, "allocate-handler")}
}

func (h *AllocateHandler) Handle(ctx context.Context, cmd AllocateCommand) (*LpnDTO, error) {
	return runCommand(ctx, h.core, "allocate", func(ctx context.Context) (*LpnDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}

		scope := h.scope()
		defer scope.release(ctx)
		if err := scope.acquire(ctx, LockPlan{LpnIDs: []string{cmd.LpnID}, OrderIDs: []string{cmd.OrderID}}); err != nil {
			return nil, err
		}

		lpn, err := h.loadLpn(ctx, tc, cmd.LpnID)
		if err != nil {
			return nil, err
		}
		order, err := h.loadOrder(ctx, cmd.OrderID)
		if err != nil {
			return nil, err
		}

		cs, err := claimLpn(h.meta(tc, cmd.Origin), lpn, order, cmd.SKU)
		if err != nil {
			return nil, err
		}
		if err := h.commit(ctx, cs); err != nil {
			return nil, err
		}

		h.logger.WithContext(ctx).Info("LPN allocated", "lpnId", lpn.ID, "orderId", cmd.OrderID, "quantity", lpn.Quantity)
		return ToLpnDTO(cs.lpns[0]), nil
	})
}

// claimLpn allocates the whole LPN to the order on both streams.
func claimLpn(meta domain.Meta, lpn domain.Lpn, order domain.OrderAllocation, sku string) (*changeSet, error) {
	next, lpnEvents, err := lpn.Allocate(meta, order.OrderID, sku)
	if err != nil {
		return nil, err
	}
	_, orderEvents, err := order.Allocate(meta, lpn.ID, sku, lpn.Quantity)
	if err != nil {
		return nil, err
	}
	cs := &changeSet{}
	if err := cs.addLpn(lpn.Version, next, lpnEvents); err != nil {
		return nil, err
	}
	if err := cs.addOrder(order, orderEvents); err != nil {
		return nil, err
	}
	return cs, nil
}

// reserveLpn holds quantity units of the LPN for the order on both streams.
func reserveLpn(meta domain.Meta, lpn domain.Lpn, order domain.OrderAllocation, quantity int) (*changeSet, error) {
	next, lpnEvents, err := lpn.Reserve(meta, order.OrderID, quantity)
	if err != nil {
		return nil, err
	}
	_, orderEvents, err := order.Allocate(meta, lpn.ID, lpn.SKU, quantity)
	if err != nil {
		return nil, err
	}
	cs := &changeSet{}
	if err := cs.addLpn(lpn.Version, next, lpnEvents); err != nil {
		return nil, err
	}
	if err := cs.addOrder(order, orderEvents); err != nil {
		return nil, err
	}
	return cs, nil
}
