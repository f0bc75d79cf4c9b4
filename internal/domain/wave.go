package domain

import (
	"errors"
	"slices"
	"time"
)

// Wave errors
var (
	ErrWaveNotPlanned = errors.New("wave is not in planned status")
	ErrWaveEmpty      = errors.New("wave must contain at least one order")
)

// EventWaveAllocated is published once a wave has been run through allocation.
const EventWaveAllocated = "wms.wave.allocated"

// WaveAllocated summarizes an allocation run. Waves are state-stored, so the
// event is published but never folded.
type WaveAllocated struct {
	Meta
	Number     int64          `json:"number"`
	OrderIDs   []string       `json:"orderIds"`
	TaskCounts map[string]int `json:"taskCounts"`
}

func (WaveAllocated) EventType() string { return EventWaveAllocated }

func init() {
	registerEvent[WaveAllocated]()
}

// AllocatedEvent builds the event announcing the allocation of w.
func (w *Wave) AllocatedEvent(meta Meta, tasks []*Task) WaveAllocated {
	counts := make(map[string]int)
	for _, t := range tasks {
		counts[string(t.Type)]++
	}
	return WaveAllocated{
		Meta:       meta.forAggregate(w.ID),
		Number:     w.Number,
		OrderIDs:   w.SortedOrderIDs(),
		TaskCounts: counts,
	}
}

// WaveStatus represents the status of a wave
type WaveStatus string

const (
	WaveStatusPlanned   WaveStatus = "PLANNED"
	WaveStatusAllocated WaveStatus = "ALLOCATED"
	WaveStatusReleased  WaveStatus = "RELEASED"
	WaveStatusCompleted WaveStatus = "COMPLETED"
)

// Wave groups outbound orders that are allocated and released together.
type Wave struct {
	ID          string     `bson:"_id" json:"id"`
	TenantID    string     `bson:"tenantId" json:"tenantId"`
	Number      int64      `bson:"number" json:"number"`
	Status      WaveStatus `bson:"status" json:"status"`
	OrderIDs    []string   `bson:"orderIds" json:"orderIds"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	AllocatedAt *time.Time `bson:"allocatedAt,omitempty" json:"allocatedAt,omitempty"`
	ReleasedAt  *time.Time `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewWave creates a planned wave owned by tenantID
func NewWave(id, tenantID string, number int64, now time.Time) *Wave {
	return &Wave{
		ID:        id,
		TenantID:  tenantID,
		Number:    number,
		Status:    WaveStatusPlanned,
		OrderIDs:  []string{},
		CreatedAt: now.UTC(),
	}
}

// AddOrder adds orderID to the wave. Adding an order twice is a no-op.
func (w *Wave) AddOrder(orderID string) error {
	if w.Status != WaveStatusPlanned {
		return ErrWaveNotPlanned
	}
	if orderID == "" || slices.Contains(w.OrderIDs, orderID) {
		return nil
	}
	w.OrderIDs = append(w.OrderIDs, orderID)
	return nil
}

// SortedOrderIDs returns the order ids in allocation order.
func (w *Wave) SortedOrderIDs() []string {
	ids := slices.Clone(w.OrderIDs)
	slices.Sort(ids)
	return ids
}

func (w *Wave) MarkAllocated(now time.Time) error {
	if w.Status != WaveStatusPlanned {
		return ErrWaveNotPlanned
	}
	if len(w.OrderIDs) == 0 {
		return ErrWaveEmpty
	}
	t := now.UTC()
	w.Status = WaveStatusAllocated
	w.AllocatedAt = &t
	return nil
}

func (w *Wave) Release(now time.Time) error {
	if w.Status != WaveStatusAllocated {
		return ErrInvalidState
	}
	t := now.UTC()
	w.Status = WaveStatusReleased
	w.ReleasedAt = &t
	return nil
}

func (w *Wave) Complete(now time.Time) error {
	if w.Status != WaveStatusReleased {
		return ErrInvalidState
	}
	t := now.UTC()
	w.Status = WaveStatusCompleted
	w.CompletedAt = &t
	return nil
}
