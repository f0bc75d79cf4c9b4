package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/internal/infrastructure/memory"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	records []domain.EventRecord
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, records []domain.EventRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, records...)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.records))
	for _, r := range p.records {
		out = append(out, r.EventType)
	}
	return out
}

type fixture struct {
	store     *memory.EventStore
	locks     *memory.LockService
	views     *memory.LpnViewRepository
	catalog   *memory.Catalog
	waves     *memory.WaveRepository
	tasks     *memory.TaskRepository
	published *recordingPublisher
	policy    *ReceivingPolicy
	h         *Handlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     memory.NewEventStore(),
		locks:     memory.NewLockService(nil),
		views:     memory.NewLpnViewRepository(),
		catalog:   memory.NewCatalog(),
		waves:     memory.NewWaveRepository(),
		tasks:     memory.NewTaskRepository(),
		published: &recordingPublisher{},
		policy:    DefaultReceivingPolicy(),
	}
	f.policy.PhotoStations = []string{"PS-1"}

	f.catalog.PutProduct(domain.Product{
		SKU:               "SKU-001",
		HasReferenceImage: true,
		Attributes:        domain.PhysicalAttributes{WeightKg: 12.5, LengthCm: 120},
	})
	f.catalog.PutProduct(domain.Product{SKU: "SKU-002", HasReferenceImage: true})
	f.catalog.PutProduct(domain.Product{SKU: "SKU-NOIMG"})
	f.catalog.PutProduct(domain.Product{SKU: "614141.812345", HasReferenceImage: true})
	f.catalog.PutInboundOrder(domain.InboundOrder{
		ID:                 "IN-1",
		TenantID:           "T1",
		ExpectedQuantities: map[string]int{"SKU-001": 100},
	})
	f.catalog.PutInboundOrder(domain.InboundOrder{
		ID:                    "IN-XD",
		TenantID:              "T1",
		Crossdock:             true,
		TargetOutboundOrderID: "OUT-9",
	})

	deps := Deps{
		Store:     f.store,
		Locks:     f.locks,
		Publisher: f.published,
		Views:     f.views,
		Clock:     func() time.Time { return fixedNow },
	}
	f.h = NewHandlers(deps, Collaborators{
		Catalog:  f.catalog,
		Inbound:  f.catalog,
		Outbound: f.catalog,
		IDs:      memory.NewLpnSequence(0),
		Waves:    f.waves,
		Tasks:    f.tasks,
		Policy:   f.policy,
	})
	return f
}

func operatorCtx() context.Context {
	return tenant.ToContext(context.Background(), &tenant.Context{TenantID: "T1", ActorID: "op-1", Role: tenant.RoleOperator})
}

func supervisorCtx() context.Context {
	return tenant.ToContext(context.Background(), &tenant.Context{TenantID: "T1", ActorID: "sup-1", Role: tenant.RoleSupervisor})
}

// stock receives one LPN of qty SKU-001 and puts it away at location.
func (f *fixture) stock(t *testing.T, qty int, location string) string {
	t.Helper()
	return f.stockSKU(t, "SKU-001", qty, location)
}

func (f *fixture) stockSKU(t *testing.T, sku string, qty int, location string) string {
	t.Helper()
	ctx := operatorCtx()
	received, err := f.h.Receive.Handle(ctx, ReceiveCommand{InboundOrderID: "IN-1", SKU: sku, Quantity: qty})
	require.NoError(t, err)
	require.Len(t, received.LpnIDs, 1)
	id := received.LpnIDs[0]
	_, err = f.h.Putaway.Handle(ctx, PutawayCommand{LpnID: id, LocationCode: location})
	require.NoError(t, err)
	return id
}

func (f *fixture) lpn(t *testing.T, id string) domain.Lpn {
	t.Helper()
	records, err := f.store.GetEvents(context.Background(), domain.LpnStreamID(id))
	require.NoError(t, err)
	l, err := domain.LoadLpn(records)
	require.NoError(t, err)
	return l
}

func (f *fixture) order(t *testing.T, id string) domain.OrderAllocation {
	t.Helper()
	records, err := f.store.GetEvents(context.Background(), domain.OrderStreamID(id))
	require.NoError(t, err)
	o, err := domain.LoadOrderAllocation(id, records)
	require.NoError(t, err)
	return o
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		is   error
	}{
		{"conflict", &domain.ConflictError{StreamID: "lpn-A", Expected: 1, Actual: 2}, apperrors.CodeConcurrencyConflict, domain.ErrConcurrencyConflict},
		{"lock", &LockTimeoutError{Key: "LPN:A"}, apperrors.CodeLockTimeout, domain.ErrLockTimeout},
		{"not found", &notFoundError{kind: "lpn", id: "A"}, apperrors.CodeNotFound, domain.ErrNotFound},
		{"guard", domain.ErrSkuMismatch, apperrors.CodeValidationError, domain.ErrDomainValidation},
		{"foreign tenant", tenant.ErrUnauthorizedAccess, apperrors.CodeUnauthorized, tenant.ErrUnauthorizedAccess},
		{"role", tenant.ErrInsufficientRole, apperrors.CodeForbidden, tenant.ErrInsufficientRole},
		{"storage", domain.ErrStorageUnavailable, apperrors.CodeServiceUnavailable, domain.ErrStorageUnavailable},
		{"empty wave", domain.ErrWaveEmpty, apperrors.CodeValidationError, domain.ErrWaveEmpty},
		{"unknown", errors.New("boom"), apperrors.CodeInternalError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			requireCode(t, mapped, tt.code)
			if tt.is != nil {
				assert.ErrorIs(t, mapped, tt.is)
			}
		})
	}

	assert.NoError(t, MapError(nil))
	already := apperrors.ErrValidation("x")
	assert.Same(t, already, MapError(already))
}

func TestConflictIsRetryable(t *testing.T) {
	err := MapError(&domain.ConflictError{StreamID: "lpn-A"})
	assert.True(t, apperrors.IsRetryable(err))
	assert.False(t, apperrors.IsRetryable(MapError(domain.ErrInvalidState)))
}

func TestLockPlanOrdersKeys(t *testing.T) {
	plan := LockPlan{
		OrderIDs:      []string{"OUT-2", "OUT-1"},
		LocationCodes: []string{"B-01", "A-01"},
		LpnIDs:        []string{"LPN0000000000000002", "LPN0000000000000001", "LPN0000000000000002"},
	}

	assert.Equal(t, []string{
		"LPN:LPN0000000000000001",
		"LPN:LPN0000000000000002",
		"LOC:A-01",
		"LOC:B-01",
		"ORDER:OUT-1",
		"ORDER:OUT-2",
	}, plan.Keys())
}

func TestLockScopeReleasesOnContention(t *testing.T) {
	locks := memory.NewLockService(nil)
	ctx := context.Background()
	ok, err := locks.AcquireLock(ctx, "LOC:A-01", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	scope := &lockScope{locks: locks, ttl: time.Minute, logger: logging.NewNop()}
	err = scope.acquire(ctx, LockPlan{LpnIDs: []string{"L1"}, LocationCodes: []string{"A-01"}})
	var lockErr *LockTimeoutError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, "LOC:A-01", lockErr.Key)
	assert.True(t, locks.Held("LPN:L1"))

	scope.release(ctx)
	assert.False(t, locks.Held("LPN:L1"))
	assert.True(t, locks.Held("LOC:A-01"))
}

func TestLockScopeReleasesAfterCancel(t *testing.T) {
	locks := memory.NewLockService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	scope := &lockScope{locks: locks, ttl: time.Minute, logger: logging.NewNop()}
	require.NoError(t, scope.acquire(ctx, LockPlan{LpnIDs: []string{"L1"}}))

	cancel()
	scope.release(ctx)
	assert.False(t, locks.Held("LPN:L1"))
}

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	got, err := RetryOnConflict(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", MapError(&domain.ConflictError{StreamID: "lpn-A"})
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = RetryOnConflict(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		return "", MapError(domain.ErrInvalidState)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 1, calls)
}

func TestCommandsRequireTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Putaway.Handle(context.Background(), PutawayCommand{LpnID: "LPN0000000000000001", LocationCode: "A-01"})
	requireCode(t, err, apperrors.CodeUnauthorized)
	assert.ErrorIs(t, err, tenant.ErrMissingTenantContext)
}

func TestForeignTenantCannotTouchLpn(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")

	other := tenant.ToContext(context.Background(), &tenant.Context{TenantID: "T2", ActorID: "op-9"})
	_, err := f.h.Quarantine.Handle(other, QuarantineCommand{LpnID: id, Reason: "x"})
	requireCode(t, err, apperrors.CodeUnauthorized)
	assert.Equal(t, domain.LpnStatusPutaway, f.lpn(t, id).Status)
}
