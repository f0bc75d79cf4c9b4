package application

import (
	"context"
	"fmt"
	"slices"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// PackHandler packs picked LPNs into a container LPN.
type PackHandler struct {
	*core
}

func NewPackHandler(deps Deps) *PackHandler {
	return &PackHandler{core: newCore(deps, "pack-handler")}
}

// Handle locks the container and every child, then writes all child streams
// in one batch.
func (h *PackHandler) Handle(ctx context.Context, cmd PackCommand) (*PackResult, error) {
	return runCommand(ctx, h.core, "pack", func(ctx context.Context) (*PackResult, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		if len(cmd.LpnIDs) == 0 {
			return nil, fmt.Errorf("%w: nothing to pack", domain.ErrInvalidValue)
		}

		children := slices.Clone(cmd.LpnIDs)
		slices.Sort(children)
		children = slices.Compact(children)

		scope := h.scope()
		defer scope.release(ctx)
		if err := scope.acquire(ctx, LockPlan{LpnIDs: append([]string{cmd.ParentLpnID}, children...)}); err != nil {
			return nil, err
		}

		if _, err := h.loadLpn(ctx, tc, cmd.ParentLpnID); err != nil {
			return nil, err
		}

		meta := h.meta(tc, cmd.Origin)
		cs := &changeSet{}
		for _, id := range children {
			lpn, err := h.loadLpn(ctx, tc, id)
			if err != nil {
				return nil, err
			}
			next, events, err := lpn.Pack(meta, cmd.ParentLpnID)
			if err != nil {
				return nil, err
			}
			if err := cs.addLpn(lpn.Version, next, events); err != nil {
				return nil, err
			}
		}
		if err := h.commit(ctx, cs); err != nil {
			return nil, err
		}

		h.logger.WithContext(ctx).Info("LPNs packed", "parentLpnId", cmd.ParentLpnID, "count", len(children))
		return &PackResult{ParentLpnID: cmd.ParentLpnID, LpnIDs: children}, nil
	})
}
