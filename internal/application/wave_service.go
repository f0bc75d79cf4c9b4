package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// WaveService plans waves and turns outbound demand into fulfillment tasks.
type WaveService struct {
	*core
	orders domain.OutboundOrderQuery
	waves  domain.WaveRepository
	tasks  domain.TaskRepository
	views  domain.LpnViewRepository
	newID  func() string
}

// NewWaveService creates a WaveService. Deps.Views is required: candidates
// are read from the LPN read model.
func NewWaveService(deps Deps, orders domain.OutboundOrderQuery, waves domain.WaveRepository, tasks domain.TaskRepository) *WaveService {
	return &WaveService{
		core:   newCore(deps, "wave-service"),
		orders: orders,
		waves:  waves,
		tasks:  tasks,
		views:  deps.Views,
		newID:  uuid.NewString,
	}
}

// AllocateWave plans a wave over orderIDs and allocates it. Orders are
// processed in id order and each order's SKUs in sorted order. For every SKU a
// whole LPN matching the outstanding quantity exactly is claimed first; failing
// that, LPNs are reserved largest available first. Whatever cannot be covered
// becomes a single cycle count task.
//
// Every order is fetched and checked before the first claim. When a later
// claim fails, the wave is saved with the tasks already backed by committed
// claims and the error is returned.
func (s *WaveService) AllocateWave(ctx context.Context, cmd AllocateWaveCommand) (*WaveDTO, error) {
	return runCommand(ctx, s.core, "allocate-wave", func(ctx context.Context) (*WaveDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}

		number, err := s.waves.NextWaveNumber(ctx)
		if err != nil {
			return nil, err
		}
		wave := domain.NewWave(s.newID(), tc.TenantID, number, s.now())
		for _, id := range cmd.OrderIDs {
			if err := wave.AddOrder(strings.TrimSpace(id)); err != nil {
				return nil, err
			}
		}
		if len(wave.OrderIDs) == 0 {
			return nil, domain.ErrWaveEmpty
		}

		demands, err := s.outstandingDemand(ctx, tc, wave.SortedOrderIDs())
		if err != nil {
			s.metrics.RecordWaveAllocated(false)
			return nil, err
		}

		meta := s.meta(tc, cmd.Origin)
		var tasks []*domain.Task
		for _, d := range demands {
			orderTasks, err := s.allocateOrder(ctx, tc, meta, wave, d)
			tasks = append(tasks, orderTasks...)
			if err != nil {
				s.metrics.RecordWaveAllocated(false)
				return nil, s.savePartial(ctx, wave, tasks, err)
			}
		}

		if err := s.save(ctx, wave, tasks); err != nil {
			return nil, err
		}
		s.metrics.RecordWaveAllocated(true)
		s.publishAllocated(ctx, meta, wave, tasks)

		s.logger.WithContext(ctx).Info("Wave allocated",
			"waveId", wave.ID,
			"waveNumber", wave.Number,
			"orderCount", len(wave.OrderIDs),
			"taskCount", len(tasks),
		)
		return ToWaveDTO(wave, tasks), nil
	})
}

// orderDemand is what an order still needs per SKU. Lines holds the full
// line quantities so the remainder can be recomputed under the order lock.
type orderDemand struct {
	orderID string
	lines   map[string]int
	open    map[string]int
}

func (d orderDemand) skus() []string {
	skus := make([]string, 0, len(d.open))
	for sku := range d.open {
		skus = append(skus, sku)
	}
	slices.Sort(skus)
	return skus
}

// outstandingDemand reads every order and subtracts what its allocation
// stream already holds. Dispatched orders need nothing.
func (s *WaveService) outstandingDemand(ctx context.Context, tc *tenant.Context, orderIDs []string) ([]orderDemand, error) {
	demands := make([]orderDemand, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		order, err := s.orders.GetOutboundOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := tc.ValidateOwnership(order.TenantID); err != nil {
			return nil, err
		}
		held, err := s.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}

		d := orderDemand{orderID: orderID, lines: make(map[string]int), open: make(map[string]int)}
		for _, line := range order.Lines {
			if line.Status.Allocatable() && line.Quantity > 0 {
				d.lines[line.SKU] += line.Quantity
			}
		}
		if !held.Dispatched {
			for sku, qty := range d.lines {
				if open := qty - held.AllocatedQuantity(sku); open > 0 {
					d.open[sku] = open
				}
			}
		}
		demands = append(demands, d)
	}
	return demands, nil
}

// allocateOrder returns the tasks created so far even when it fails.
func (s *WaveService) allocateOrder(ctx context.Context, tc *tenant.Context, meta domain.Meta, wave *domain.Wave, d orderDemand) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for _, sku := range d.skus() {
		skuTasks, err := s.allocateSku(ctx, tc, meta, wave, d.orderID, sku, d.lines[sku], d.open[sku])
		tasks = append(tasks, skuTasks...)
		if err != nil {
			return tasks, err
		}
	}
	return tasks, nil
}

func (s *WaveService) allocateSku(ctx context.Context, tc *tenant.Context, meta domain.Meta, wave *domain.Wave, orderID, sku string, lineQty, remaining int) ([]*domain.Task, error) {
	candidates, err := s.views.FindAvailable(ctx, tc.TenantID, sku)
	if err != nil {
		return nil, err
	}
	newTask := func(taskType domain.TaskType, source, lpnID string, qty int) *domain.Task {
		return domain.NewTask(s.newID(), wave.TenantID, wave.ID, orderID, taskType, source, lpnID, sku, qty, s.now())
	}

	for _, c := range candidates {
		if c.Quantity != remaining || c.Reserved != 0 {
			continue
		}
		claimed, err := s.claim(ctx, tc, meta, c.LpnID, orderID, sku, lineQty, remaining)
		if err != nil {
			return nil, err
		}
		if claimed {
			return []*domain.Task{newTask(domain.TaskTypeFullPalletMove, c.LocationCode, c.LpnID, remaining)}, nil
		}
	}

	slices.SortStableFunc(candidates, func(a, b domain.LpnView) int {
		if a.Available() != b.Available() {
			return b.Available() - a.Available()
		}
		return strings.Compare(a.LpnID, b.LpnID)
	})

	var tasks []*domain.Task
	for _, c := range candidates {
		if remaining == 0 {
			break
		}
		if c.Available() <= 0 {
			continue
		}
		reserved, err := s.reserve(ctx, tc, meta, c.LpnID, orderID, lineQty, min(c.Available(), remaining))
		if err != nil {
			return tasks, err
		}
		if reserved == 0 {
			continue
		}
		tasks = append(tasks, newTask(domain.TaskTypePickToTote, c.LocationCode, c.LpnID, reserved))
		remaining -= reserved
	}

	if remaining > 0 {
		source := domain.UnknownLocation
		if len(candidates) > 0 {
			source = candidates[len(candidates)-1].LocationCode
		}
		tasks = append(tasks, newTask(domain.TaskTypeCycleCount, source, "", remaining))
		s.logger.WithContext(ctx).Warn("Wave shortage", "orderId", orderID, "sku", sku, "short", remaining)
	}
	return tasks, nil
}

func (s *WaveService) save(ctx context.Context, wave *domain.Wave, tasks []*domain.Task) error {
	if err := wave.MarkAllocated(s.now()); err != nil {
		return err
	}
	if err := s.waves.Save(ctx, wave); err != nil {
		return err
	}
	if len(tasks) > 0 {
		if err := s.tasks.SaveAll(ctx, tasks); err != nil {
			return err
		}
	}
	for _, t := range tasks {
		s.metrics.RecordTaskCreated(string(t.Type))
	}
	return nil
}

// savePartial keeps committed claims reachable through their tasks after
// cause stopped the run. A rerun only allocates what the orders still lack.
func (s *WaveService) savePartial(ctx context.Context, wave *domain.Wave, tasks []*domain.Task, cause error) error {
	if len(tasks) == 0 {
		return cause
	}
	if err := s.save(ctx, wave, tasks); err != nil {
		return errors.Join(cause, err)
	}
	s.logger.WithContext(ctx).Warn("Wave partially allocated",
		"waveId", wave.ID,
		"taskCount", len(tasks),
		"error", cause,
	)
	return fmt.Errorf("wave %s partially allocated: %w", wave.ID, cause)
}

// claim allocates a whole LPN under its lock. It reports false, without
// error, when the LPN is locked elsewhere, no longer matches, or the order
// has meanwhile been covered by another allocation.
func (s *WaveService) claim(ctx context.Context, tc *tenant.Context, meta domain.Meta, lpnID, orderID, sku string, lineQty, quantity int) (bool, error) {
	scope := s.scope()
	defer scope.release(ctx)
	if err := scope.acquire(ctx, LockPlan{LpnIDs: []string{lpnID}, OrderIDs: []string{orderID}}); err != nil {
		return false, skipLocked(err)
	}

	lpn, err := s.loadLpn(ctx, tc, lpnID)
	if err != nil {
		return false, err
	}
	if lpn.Status != domain.LpnStatusPutaway || lpn.Voided || lpn.Reserved != 0 || lpn.Quantity != quantity {
		return false, nil
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if lineQty-order.AllocatedQuantity(sku) < quantity {
		return false, nil
	}
	cs, err := claimLpn(meta, lpn, order, sku)
	if err != nil {
		return false, err
	}
	if err := s.commit(ctx, cs); err != nil {
		return false, err
	}
	return true, nil
}

// reserve holds up to want units of the LPN under its lock and returns how
// many were reserved. It never takes the order past lineQty.
func (s *WaveService) reserve(ctx context.Context, tc *tenant.Context, meta domain.Meta, lpnID, orderID string, lineQty, want int) (int, error) {
	scope := s.scope()
	defer scope.release(ctx)
	if err := scope.acquire(ctx, LockPlan{LpnIDs: []string{lpnID}, OrderIDs: []string{orderID}}); err != nil {
		return 0, skipLocked(err)
	}

	lpn, err := s.loadLpn(ctx, tc, lpnID)
	if err != nil {
		return 0, err
	}
	if lpn.Status != domain.LpnStatusPutaway || lpn.Voided {
		return 0, nil
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	qty := min(lpn.Available(), want, lineQty-order.AllocatedQuantity(lpn.SKU))
	if qty <= 0 {
		return 0, nil
	}
	cs, err := reserveLpn(meta, lpn, order, qty)
	if err != nil {
		return 0, err
	}
	if err := s.commit(ctx, cs); err != nil {
		return 0, err
	}
	return qty, nil
}

// skipLocked turns lock contention into a skipped candidate.
func skipLocked(err error) error {
	if errors.Is(err, domain.ErrLockTimeout) {
		return nil
	}
	return err
}

func (s *WaveService) publishAllocated(ctx context.Context, meta domain.Meta, wave *domain.Wave, tasks []*domain.Task) {
	rec, err := domain.EncodeEvent(domain.WaveStreamID(wave.ID), wave.AllocatedEvent(meta, tasks))
	if err != nil {
		s.logger.WithContext(ctx).Warn("Failed to encode wave event", "waveId", wave.ID, "error", err)
		return
	}
	rec.Version = 1
	s.publish(ctx, []domain.EventRecord{rec})
}

// ReleaseWave hands an allocated wave to the floor.
func (s *WaveService) ReleaseWave(ctx context.Context, waveID string) (*WaveDTO, error) {
	return runCommand(ctx, s.core, "release-wave", func(ctx context.Context) (*WaveDTO, error) {
		wave, err := s.findWave(ctx, waveID)
		if err != nil {
			return nil, err
		}
		if err := wave.Release(s.now()); err != nil {
			return nil, err
		}
		if err := s.waves.Save(ctx, wave); err != nil {
			return nil, err
		}
		tasks, err := s.tasks.FindByWave(ctx, waveID)
		if err != nil {
			return nil, err
		}
		return ToWaveDTO(wave, tasks), nil
	})
}

// GetWave returns a wave with its tasks
func (s *WaveService) GetWave(ctx context.Context, waveID string) (*WaveDTO, error) {
	wave, err := s.findWave(ctx, waveID)
	if err != nil {
		return nil, MapError(err)
	}
	tasks, err := s.tasks.FindByWave(ctx, waveID)
	if err != nil {
		return nil, MapError(err)
	}
	return ToWaveDTO(wave, tasks), nil
}

// StartTask moves a pending task to in progress
func (s *WaveService) StartTask(ctx context.Context, taskID string) (*TaskDTO, error) {
	return s.updateTask(ctx, "start-task", taskID, func(t *domain.Task) error { return t.Start() })
}

// CompleteTask closes a task. A pick short of the requested quantity ends it Short.
func (s *WaveService) CompleteTask(ctx context.Context, cmd CompleteTaskCommand) (*TaskDTO, error) {
	return s.updateTask(ctx, "complete-task", cmd.TaskID, func(t *domain.Task) error {
		return t.Complete(cmd.PickedQuantity, s.now())
	})
}

// CancelTask abandons a task that has not finished
func (s *WaveService) CancelTask(ctx context.Context, taskID string) (*TaskDTO, error) {
	return s.updateTask(ctx, "cancel-task", taskID, func(t *domain.Task) error { return t.Cancel() })
}

// findWave loads a wave of the caller's tenant
func (s *WaveService) findWave(ctx context.Context, waveID string) (*domain.Wave, error) {
	tc, err := authorize(ctx, "")
	if err != nil {
		return nil, err
	}
	wave, err := s.waves.FindByID(ctx, waveID)
	if err != nil {
		return nil, err
	}
	if err := tc.ValidateOwnership(wave.TenantID); err != nil {
		return nil, err
	}
	return wave, nil
}

func (s *WaveService) updateTask(ctx context.Context, command, taskID string, update func(*domain.Task) error) (*TaskDTO, error) {
	return runCommand(ctx, s.core, command, func(ctx context.Context) (*TaskDTO, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		task, err := s.tasks.FindByID(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if err := tc.ValidateOwnership(task.TenantID); err != nil {
			return nil, err
		}
		if err := update(task); err != nil {
			return nil, err
		}
		if err := s.tasks.Save(ctx, task); err != nil {
			return nil, err
		}
		dto := ToTaskDTO(task)
		return &dto, nil
	})
}
