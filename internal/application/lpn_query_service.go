package application

import (
	"context"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// LpnQueryService answers read-only questions. Single LPNs are folded from
// their stream; lists come from the read model.
type LpnQueryService struct {
	store  domain.EventStore
	views  domain.LpnViewRepository
	logger *logging.Logger
}

func NewLpnQueryService(store domain.EventStore, views domain.LpnViewRepository, logger *logging.Logger) *LpnQueryService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LpnQueryService{store: store, views: views, logger: logger}
}

// GetLpn returns the current state of one LPN
func (s *LpnQueryService) GetLpn(ctx context.Context, lpnID string) (*LpnDTO, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	records, err := s.store.GetEvents(ctx, domain.LpnStreamID(lpnID))
	if err != nil {
		return nil, MapError(err)
	}
	l, err := domain.LoadLpn(records)
	if err != nil {
		return nil, MapError(err)
	}
	if !l.Exists() {
		return nil, MapError(&notFoundError{kind: "lpn", id: lpnID})
	}
	if err := tc.ValidateOwnership(l.TenantID); err != nil {
		return nil, MapError(err)
	}
	return ToLpnDTO(l), nil
}

// GetHistory returns the raw event stream of one LPN
func (s *LpnQueryService) GetHistory(ctx context.Context, lpnID string) ([]domain.EventRecord, error) {
	if _, err := s.GetLpn(ctx, lpnID); err != nil {
		return nil, err
	}
	records, err := s.store.GetEvents(ctx, domain.LpnStreamID(lpnID))
	if err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

// ListAvailable returns stored LPNs of sku that can still be allocated
func (s *LpnQueryService) ListAvailable(ctx context.Context, sku string) ([]domain.LpnView, error) {
	tc, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	if s.views == nil {
		return []domain.LpnView{}, nil
	}
	views, err := s.views.FindAvailable(ctx, tc.TenantID, sku)
	if err != nil {
		s.logger.WithContext(ctx).Error("Failed to query available LPNs", "sku", sku, "error", err)
		return nil, MapError(err)
	}
	return views, nil
}
