package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// WaveRepository stores waves in process
type WaveRepository struct {
	mu     sync.Mutex
	waves  map[string]domain.Wave
	number int64
}

func NewWaveRepository() *WaveRepository {
	return &WaveRepository{waves: make(map[string]domain.Wave)}
}

func (r *WaveRepository) NextWaveNumber(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.number++
	return r.number, nil
}

func (r *WaveRepository) Save(_ context.Context, wave *domain.Wave) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := *wave
	w.OrderIDs = slices.Clone(wave.OrderIDs)
	r.waves[w.ID] = w
	return nil
}

func (r *WaveRepository) FindByID(_ context.Context, waveID string) (*domain.Wave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waves[waveID]
	if !ok {
		return nil, fmt.Errorf("wave %s: %w", waveID, domain.ErrNotFound)
	}
	w.OrderIDs = slices.Clone(w.OrderIDs)
	return &w, nil
}

// TaskRepository stores tasks in process
type TaskRepository struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	order []string
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[string]domain.Task)}
}

func (r *TaskRepository) SaveAll(ctx context.Context, tasks []*domain.Task) error {
	for _, t := range tasks {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *TaskRepository) Save(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		r.order = append(r.order, task.ID)
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *TaskRepository) FindByID(_ context.Context, taskID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return &t, nil
}

// FindByWave returns the wave's tasks in creation order
func (r *TaskRepository) FindByWave(_ context.Context, waveID string) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Task
	for _, id := range r.order {
		if t := r.tasks[id]; t.WaveID == waveID {
			out = append(out, &t)
		}
	}
	return out, nil
}

// LpnViewRepository is the in-process LPN read model
type LpnViewRepository struct {
	mu    sync.RWMutex
	views map[string]domain.LpnView
}

func NewLpnViewRepository() *LpnViewRepository {
	return &LpnViewRepository{views: make(map[string]domain.LpnView)}
}

// Upsert ignores a view older than the stored one
func (r *LpnViewRepository) Upsert(_ context.Context, view domain.LpnView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.views[view.LpnID]; ok && cur.Version > view.Version {
		return nil
	}
	r.views[view.LpnID] = view
	return nil
}

func (r *LpnViewRepository) FindByID(_ context.Context, lpnID string) (*domain.LpnView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[lpnID]
	if !ok {
		return nil, fmt.Errorf("lpn %s: %w", lpnID, domain.ErrNotFound)
	}
	return &v, nil
}

// FindAvailable returns putaway, non-voided LPNs of sku ordered by id
func (r *LpnViewRepository) FindAvailable(_ context.Context, tenantID, sku string) ([]domain.LpnView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.LpnView
	for _, v := range r.views {
		if v.TenantID == tenantID && v.SKU == sku && v.Status == domain.LpnStatusPutaway && !v.Voided && v.Available() > 0 {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b domain.LpnView) int { return strings.Compare(a.LpnID, b.LpnID) })
	return out, nil
}

// Catalog serves products, inbound and outbound orders from maps. It backs
// the API in memory mode and the tests.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	inbound  map[string]domain.InboundOrder
	outbound map[string]domain.OutboundOrder
}

func NewCatalog() *Catalog {
	return &Catalog{
		products: make(map[string]domain.Product),
		inbound:  make(map[string]domain.InboundOrder),
		outbound: make(map[string]domain.OutboundOrder),
	}
}

func (c *Catalog) PutProduct(p domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.SKU] = p
}

func (c *Catalog) PutInboundOrder(o domain.InboundOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbound[o.ID] = o
}

func (c *Catalog) PutOutboundOrder(o domain.OutboundOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o.Lines = slices.Clone(o.Lines)
	c.outbound[o.ID] = o
}

func (c *Catalog) GetProduct(_ context.Context, sku string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[sku]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", sku, domain.ErrNotFound)
	}
	return &p, nil
}

func (c *Catalog) GetInboundOrder(_ context.Context, orderID string) (*domain.InboundOrder, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.inbound[orderID]
	if !ok {
		return nil, fmt.Errorf("inbound order %s: %w", orderID, domain.ErrNotFound)
	}
	return &o, nil
}

func (c *Catalog) GetOutboundOrder(_ context.Context, orderID string) (*domain.OutboundOrder, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.outbound[orderID]
	if !ok {
		return nil, fmt.Errorf("outbound order %s: %w", orderID, domain.ErrNotFound)
	}
	o.Lines = slices.Clone(o.Lines)
	return &o, nil
}
