package application

import (
	"context"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// PutawayHandler stores an LPN and occupies its location in one atomic write.
type PutawayHandler struct {
	*core
}

func NewPutawayHandler(deps Deps) *PutawayHandler {
	return &PutawayHandler{core: newCore(deps, "putaway-handler")}
}

// Handle moves the LPN into cmd.LocationCode. A location seen for the first
// time is created empty and then assigned.
func (h *PutawayHandler) Handle(ctx context.Context, cmd PutawayCommand) (*LpnDTO, error) {
	return runCommand(ctx, h.core, "putaway", func(ctx context.Context) (*LpnDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateLocationCode(cmd.LocationCode); err != nil {
			return nil, err
		}

		scope := h.scope()
		defer scope.release(ctx)
		if err := scope.acquire(ctx, LockPlan{
			LpnIDs:        []string{cmd.LpnID},
			LocationCodes: []string{cmd.LocationCode},
		}); err != nil {
			return nil, err
		}

		lpn, err := h.loadLpn(ctx, tc, cmd.LpnID)
		if err != nil {
			return nil, err
		}
		location, err := h.loadLocation(ctx, cmd.LocationCode)
		if err != nil {
			return nil, err
		}

		meta := h.meta(tc, cmd.Origin)
		var locationEvents []domain.LocationEvent
		nextLocation := location
		if !location.Exists() {
			nextLocation, locationEvents, err = domain.CreateLocation(meta, cmd.LocationCode, tc.TenantID)
			if err != nil {
				return nil, err
			}
		} else if err := tc.ValidateOwnership(location.TenantID); err != nil {
			return nil, err
		}

		nextLocation, assigned, err := nextLocation.AssignLpn(meta, lpn.Code)
		if err != nil {
			return nil, err
		}
		locationEvents = append(locationEvents, assigned...)

		nextLpn, lpnEvents, err := lpn.Putaway(meta, cmd.LocationCode)
		if err != nil {
			return nil, err
		}

		cs := &changeSet{}
		if err := cs.addLpn(lpn.Version, nextLpn, lpnEvents); err != nil {
			return nil, err
		}
		if err := cs.addLocation(location, nextLocation, locationEvents); err != nil {
			return nil, err
		}
		if err := h.commit(ctx, cs); err != nil {
			return nil, err
		}

		h.logger.WithContext(ctx).Info("LPN put away", "lpnId", lpn.ID, "location", cmd.LocationCode)
		return ToLpnDTO(cs.lpns[0]), nil
	})
}
