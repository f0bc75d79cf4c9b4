package application

import (
	"context"
	"errors"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/resilience"
)

// Collaborators are the lookups and repositories individual handlers need
// beyond Deps.
type Collaborators struct {
	Catalog  domain.ProductCatalog
	Inbound  domain.InboundOrderLookup
	Outbound domain.OutboundOrderQuery
	IDs      domain.LpnIDGenerator
	Waves    domain.WaveRepository
	Tasks    domain.TaskRepository
	Policy   *ReceivingPolicy
}

// Handlers bundles every command handler of the service.
type Handlers struct {
	Receive             *ReceiveHandler
	Putaway             *PutawayHandler
	Pick                *PickHandler
	Pack                *PackHandler
	Dispatch            *DispatchHandler
	Allocate            *AllocateHandler
	ReportCount         *ReportCountHandler
	AuthorizeAdjustment *AuthorizeAdjustmentHandler
	Void                *VoidHandler
	Quarantine          *QuarantineHandler
	Waves               *WaveService
	Queries             *LpnQueryService
}

// NewHandlers wires all handlers over the same Deps.
func NewHandlers(deps Deps, c Collaborators) *Handlers {
	if c.Policy != nil && deps.LockTTL == 0 {
		deps.LockTTL = c.Policy.LockTTL
	}
	return &Handlers{
		Receive:             NewReceiveHandler(deps, c.Catalog, c.Inbound, c.IDs, c.Policy),
		Putaway:             NewPutawayHandler(deps),
		Pick:                NewPickHandler(deps, c.Tasks),
		Pack:                NewPackHandler(deps),
		Dispatch:            NewDispatchHandler(deps),
		Allocate:            NewAllocateHandler(deps),
		ReportCount:         NewReportCountHandler(deps),
		AuthorizeAdjustment: NewAuthorizeAdjustmentHandler(deps),
		Void:                NewVoidHandler(deps),
		Quarantine:          NewQuarantineHandler(deps),
		Waves:               NewWaveService(deps, c.Outbound, c.Waves, c.Tasks),
		Queries:             NewLpnQueryService(deps.Store, deps.Views, deps.Logger),
	}
}

// RetryOnConflict reruns fn while it fails with a concurrency conflict, up to
// attempts times. Handlers reload their aggregates on every call, so fn is
// usually a bare Handle call. Handlers never retry on their own.
func RetryOnConflict[T any](ctx context.Context, attempts int, fn func(ctx context.Context) (T, error)) (T, error) {
	config := resilience.DefaultRetryConfig(func(err error) bool {
		return errors.Is(err, domain.ErrConcurrencyConflict)
	})
	if attempts > 0 {
		config.MaxAttempts = attempts
	}
	return resilience.RetryWithResult(ctx, config, fn)
}
