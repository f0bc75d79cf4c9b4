package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/wms-platform/lpn-service/internal/domain"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

func receiveOnly(t *testing.T, f *fixture, qty int) string {
	t.Helper()
	result, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: qty})
	require.NoError(t, err)
	return result.LpnIDs[0]
}

func TestPutawayWritesLpnAndLocationAtomically(t *testing.T) {
	f := newFixture(t)
	id := receiveOnly(t, f, 10)
	f.published.records = nil

	dto, err := f.h.Putaway.Handle(operatorCtx(), PutawayCommand{LpnID: id, LocationCode: "A-01-01"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LpnStatusPutaway), dto.Status)
	assert.Equal(t, "A-01-01", dto.LocationCode)
	assert.Equal(t, int64(4), dto.Version)

	want := []string{
		domain.EventLpnLocationChanged,
		domain.EventLpnPutawayCompleted,
		domain.EventLocationCreated,
		domain.EventLocationLpnAssigned,
	}
	if diff := cmp.Diff(want, f.published.types()); diff != "" {
		t.Errorf("published events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(2), f.store.Version(domain.LocationStreamID("A-01-01")))
	assert.False(t, f.locks.Held(domain.LpnLockKey(id)))
	assert.False(t, f.locks.Held(domain.LocationLockKey("A-01-01")))
}

func TestPutawayIntoOccupiedLocationFails(t *testing.T) {
	f := newFixture(t)
	f.stock(t, 10, "A-01-01")
	second := receiveOnly(t, f, 5)

	_, err := f.h.Putaway.Handle(operatorCtx(), PutawayCommand{LpnID: second, LocationCode: "A-01-01"})
	requireCode(t, err, apperrors.CodeValidationError)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, domain.LpnStatusReceived, f.lpn(t, second).Status)
}

func TestPutawayUnknownLpn(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Putaway.Handle(operatorCtx(), PutawayCommand{LpnID: "LPN0000000000000099", LocationCode: "A-01"})
	requireCode(t, err, apperrors.CodeNotFound)
	assert.Equal(t, int64(0), f.store.Version(domain.LocationStreamID("A-01")))
}

// Concurrent putaways into one location: exactly one wins, the others see the
// lock or the occupied location, and nothing is half written.
func TestConcurrentPutawayNeverOverlaps(t *testing.T) {
	f := newFixture(t)
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = receiveOnly(t, f, 1)
	}

	var succeeded atomic.Int32
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := f.h.Putaway.Handle(operatorCtx(), PutawayCommand{LpnID: id, LocationCode: "B-02-01"})
			switch {
			case err == nil:
				succeeded.Add(1)
				return nil
			case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, domain.ErrInvalidState):
				return nil
			default:
				return err
			}
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int64(2), f.store.Version(domain.LocationStreamID("B-02-01")))

	putaway := 0
	for _, id := range ids {
		if f.lpn(t, id).Status == domain.LpnStatusPutaway {
			putaway++
		}
	}
	assert.Equal(t, 1, putaway)
}

func TestAllocateClaimsLpnAndOrder(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")

	dto, err := f.h.Allocate.Handle(operatorCtx(), AllocateCommand{LpnID: id, OrderID: "OUT-1", SKU: "SKU-001"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LpnStatusAllocated), dto.Status)
	assert.Equal(t, 0, dto.Available)

	order := f.order(t, "OUT-1")
	assert.Equal(t, 10, order.AllocatedQuantity("SKU-001"))
}

func TestAllocateRejectsWrongSku(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")

	_, err := f.h.Allocate.Handle(operatorCtx(), AllocateCommand{LpnID: id, OrderID: "OUT-1", SKU: "SKU-002"})
	assert.ErrorIs(t, err, domain.ErrSkuMismatch)
	assert.Equal(t, int64(0), f.store.Version(domain.OrderStreamID("OUT-1")))
}

func TestPickCompletesTask(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")
	_, err := f.h.Allocate.Handle(operatorCtx(), AllocateCommand{LpnID: id, OrderID: "OUT-1", SKU: "SKU-001"})
	require.NoError(t, err)

	task := domain.NewTask("task-1", "T1", "wave-1", "OUT-1", domain.TaskTypeFullPalletMove, "A-01", id, "SKU-001", 10, fixedNow)
	require.NoError(t, f.tasks.Save(context.Background(), task))

	dto, err := f.h.Pick.Handle(operatorCtx(), PickCommand{LpnID: id, TaskID: "task-1"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LpnStatusPicked), dto.Status)

	stored, err := f.tasks.FindByID(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.Equal(t, 10, stored.PickedQuantity)
}

func TestPickLeavesLpnUntouchedWhenTaskCannotClose(t *testing.T) {
	tests := []struct {
		name    string
		task    func(lpnID string) *domain.Task
		wantErr error
	}{
		{
			name: "cancelled task",
			task: func(lpnID string) *domain.Task {
				task := domain.NewTask("task-1", "T1", "wave-1", "OUT-1", domain.TaskTypeFullPalletMove, "A-01", lpnID, "SKU-001", 10, fixedNow)
				require.NoError(t, task.Cancel())
				return task
			},
			wantErr: domain.ErrInvalidState,
		},
		{
			name: "loose pick task",
			task: func(lpnID string) *domain.Task {
				return domain.NewTask("task-1", "T1", "wave-1", "OUT-1", domain.TaskTypePickToTote, "A-01", lpnID, "SKU-001", 4, fixedNow)
			},
			wantErr: domain.ErrInvalidValue,
		},
		{
			name: "task for another lpn",
			task: func(string) *domain.Task {
				return domain.NewTask("task-1", "T1", "wave-1", "OUT-1", domain.TaskTypeFullPalletMove, "A-01", "LPN0000000000000099", "SKU-001", 10, fixedNow)
			},
			wantErr: domain.ErrInvalidValue,
		},
		{
			name: "task of another tenant",
			task: func(lpnID string) *domain.Task {
				return domain.NewTask("task-1", "T2", "wave-1", "OUT-1", domain.TaskTypeFullPalletMove, "A-01", lpnID, "SKU-001", 10, fixedNow)
			},
			wantErr: tenant.ErrUnauthorizedAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.stock(t, 10, "A-01")
			_, err := f.h.Allocate.Handle(operatorCtx(), AllocateCommand{LpnID: id, OrderID: "OUT-1", SKU: "SKU-001"})
			require.NoError(t, err)
			task := tt.task(id)
			require.NoError(t, f.tasks.Save(context.Background(), task))
			before := f.store.Version(domain.LpnStreamID(id))

			_, err = f.h.Pick.Handle(operatorCtx(), PickCommand{LpnID: id, TaskID: "task-1"})
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, domain.LpnStatusAllocated, f.lpn(t, id).Status)
			assert.Equal(t, before, f.store.Version(domain.LpnStreamID(id)))
			stored, err := f.tasks.FindByID(context.Background(), "task-1")
			require.NoError(t, err)
			assert.Equal(t, task.Status, stored.Status)
		})
	}
}

func TestPickRequiresAllocation(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")

	_, err := f.h.Pick.Handle(operatorCtx(), PickCommand{LpnID: id})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPackAndDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx()
	pallet := receiveOnly(t, f, 1)

	var children []string
	for i := 0; i < 2; i++ {
		id := f.stock(t, 5, fmt.Sprintf("C-0%d", i))
		_, err := f.h.Allocate.Handle(ctx, AllocateCommand{LpnID: id, OrderID: "OUT-7", SKU: "SKU-001"})
		require.NoError(t, err)
		_, err = f.h.Pick.Handle(ctx, PickCommand{LpnID: id})
		require.NoError(t, err)
		children = append(children, id)
	}

	packed, err := f.h.Pack.Handle(ctx, PackCommand{ParentLpnID: pallet, LpnIDs: children})
	require.NoError(t, err)
	assert.Equal(t, children, packed.LpnIDs)
	for _, id := range children {
		assert.Equal(t, pallet, f.lpn(t, id).ParentLpnID)
	}

	shipped, err := f.h.Dispatch.Handle(ctx, DispatchCommand{OrderID: "OUT-7", LpnIDs: children})
	require.NoError(t, err)
	assert.Equal(t, children, shipped.LpnIDs)
	for _, id := range children {
		assert.Equal(t, domain.LpnStatusDispatched, f.lpn(t, id).Status)
	}
	assert.True(t, f.order(t, "OUT-7").Dispatched)
}

func TestDispatchIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx()
	stored := f.stock(t, 5, "D-01")
	received := receiveOnly(t, f, 5)

	_, err := f.h.Dispatch.Handle(ctx, DispatchCommand{OrderID: "OUT-3", LpnIDs: []string{stored, received}})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, domain.LpnStatusPutaway, f.lpn(t, stored).Status)
	assert.Equal(t, int64(0), f.store.Version(domain.OrderStreamID("OUT-3")))
}

func TestDispatchRejectsLpnOfAnotherOrder(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx()
	id := f.stock(t, 5, "D-01")
	_, err := f.h.Allocate.Handle(ctx, AllocateCommand{LpnID: id, OrderID: "OUT-1", SKU: "SKU-001"})
	require.NoError(t, err)
	_, err = f.h.Pick.Handle(ctx, PickCommand{LpnID: id})
	require.NoError(t, err)

	_, err = f.h.Dispatch.Handle(ctx, DispatchCommand{OrderID: "OUT-2", LpnIDs: []string{id}})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReportCountLeavesQuantity(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")

	result, err := f.h.ReportCount.Handle(operatorCtx(), ReportCountCommand{LpnID: id, CountedQuantity: 7})
	require.NoError(t, err)
	assert.Equal(t, -3, result.Variance)
	assert.Equal(t, 10, f.lpn(t, id).Quantity)
}

func TestAuthorizeAdjustmentRequiresSupervisor(t *testing.T) {
	f := newFixture(t)
	id := f.stock(t, 10, "A-01")

	_, err := f.h.AuthorizeAdjustment.Handle(operatorCtx(), AuthorizeAdjustmentCommand{LpnID: id, NewQuantity: 7, Reason: "count"})
	requireCode(t, err, apperrors.CodeForbidden)
	assert.Equal(t, 10, f.lpn(t, id).Quantity)

	dto, err := f.h.AuthorizeAdjustment.Handle(supervisorCtx(), AuthorizeAdjustmentCommand{LpnID: id, NewQuantity: 7, Reason: "count"})
	require.NoError(t, err)
	assert.Equal(t, 7, dto.Quantity)

	view, err := f.views.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 7, view.Quantity)
}

func TestVoidRevertsEveryHoldingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx()
	f.catalog.PutOutboundOrder(domain.OutboundOrder{ID: "OUT-A", TenantID: "T1", Lines: []domain.OrderLine{{SKU: "SKU-001", Quantity: 3, Status: domain.OrderLineOpen}}})
	f.catalog.PutOutboundOrder(domain.OutboundOrder{ID: "OUT-B", TenantID: "T1", Lines: []domain.OrderLine{{SKU: "SKU-001", Quantity: 4, Status: domain.OrderLineApproved}}})
	id := f.stock(t, 10, "A-01")

	_, err := f.h.Waves.AllocateWave(ctx, AllocateWaveCommand{OrderIDs: []string{"OUT-A", "OUT-B"}})
	require.NoError(t, err)
	require.Equal(t, 7, f.lpn(t, id).Reserved)

	result, err := f.h.Void.Handle(ctx, VoidCommand{LpnID: id, Reason: "label damaged"})
	require.NoError(t, err)
	assert.Equal(t, []string{"OUT-A", "OUT-B"}, result.RevertedOrders)
	assert.Equal(t, 7, result.RevertedUnits)

	voided := f.lpn(t, id)
	assert.True(t, voided.Voided)
	assert.Equal(t, 0, voided.Reserved)
	assert.Equal(t, 0, f.order(t, "OUT-A").AllocatedQuantity("SKU-001"))
	assert.Equal(t, 0, f.order(t, "OUT-B").AllocatedQuantity("SKU-001"))

	available, err := f.views.FindAvailable(context.Background(), "T1", "SKU-001")
	require.NoError(t, err)
	assert.Empty(t, available)
}

func TestQuarantineFromAnyState(t *testing.T) {
	f := newFixture(t)
	id := receiveOnly(t, f, 3)

	dto, err := f.h.Quarantine.Handle(operatorCtx(), QuarantineCommand{LpnID: id, Reason: "crushed"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.LpnStatusQuarantine), dto.Status)
	assert.Equal(t, "crushed", dto.QuarantineReason)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t)
	f.published.err = errors.New("broker down")

	_, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.store.Version(domain.LpnStreamID("LPN0000000000000001")))
}

func TestLockTTLComesFromPolicy(t *testing.T) {
	policy := DefaultReceivingPolicy()
	policy.LockTTL = 5 * time.Second
	h := NewHandlers(Deps{}, Collaborators{Policy: policy})
	assert.Equal(t, 5*time.Second, h.Putaway.lockTTL)

	h = NewHandlers(Deps{}, Collaborators{})
	assert.Equal(t, DefaultLockTTL, h.Putaway.lockTTL)
}
