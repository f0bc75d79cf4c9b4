package application

import (
	"context"
	"time"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/logging"
)

// Projector keeps the LPN read model in step with committed events. It is
// best effort: the event stream stays the source of truth.
type Projector struct {
	views  domain.LpnViewRepository
	logger *logging.Logger
	clock  func() time.Time
}

// NewProjector returns a projector over views. A nil repository disables it.
func NewProjector(views domain.LpnViewRepository, logger *logging.Logger) *Projector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Projector{views: views, logger: logger, clock: time.Now}
}

// Project upserts the read-model row for each committed LPN state.
func (p *Projector) Project(ctx context.Context, lpns ...domain.Lpn) {
	if p == nil || p.views == nil {
		return
	}
	for _, l := range lpns {
		if err := p.views.Upsert(ctx, domain.ViewFromLpn(l, p.clock())); err != nil {
			p.logger.WithContext(ctx).Error("Failed to update projection", "lpnId", l.ID, "version", l.Version, "error", err)
		}
	}
}

// Rebuild refolds one LPN stream and overwrites its row.
func (p *Projector) Rebuild(ctx context.Context, store domain.EventStore, lpnID string) error {
	if p == nil || p.views == nil {
		return nil
	}
	records, err := store.GetEvents(ctx, domain.LpnStreamID(lpnID))
	if err != nil {
		return err
	}
	l, err := domain.LoadLpn(records)
	if err != nil {
		return err
	}
	if !l.Exists() {
		return &notFoundError{kind: "lpn", id: lpnID}
	}
	return p.views.Upsert(ctx, domain.ViewFromLpn(l, p.clock()))
}
