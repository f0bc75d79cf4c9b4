package domain

import (
	"fmt"
	"time"
)

// TaskType represents the kind of fulfillment work
type TaskType string

const (
	TaskTypePickToTote     TaskType = "PICK_TO_TOTE"
	TaskTypeFullPalletMove TaskType = "FULL_PALLET_MOVE"
	TaskTypeCycleCount     TaskType = "CYCLE_COUNT"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusShort      TaskStatus = "SHORT"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// IsFinal reports whether the task can no longer change.
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusCompleted || s == TaskStatusShort || s == TaskStatusCancelled
}

// Task is a unit of warehouse work produced by wave allocation
type Task struct {
	ID                string     `bson:"_id" json:"id"`
	TenantID          string     `bson:"tenantId" json:"tenantId"`
	WaveID            string     `bson:"waveId" json:"waveId"`
	OrderID           string     `bson:"orderId" json:"orderId"`
	Type              TaskType   `bson:"type" json:"type"`
	Status            TaskStatus `bson:"status" json:"status"`
	SourceLocation    string     `bson:"sourceLocation" json:"sourceLocation"`
	TargetLocation    string     `bson:"targetLocation,omitempty" json:"targetLocation,omitempty"`
	LpnID             string     `bson:"lpnId,omitempty" json:"lpnId,omitempty"`
	ProductID         string     `bson:"productId" json:"productId"`
	RequestedQuantity int        `bson:"requestedQuantity" json:"requestedQuantity"`
	PickedQuantity    int        `bson:"pickedQuantity" json:"pickedQuantity"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	CompletedAt       *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// NewTask creates a pending task. It belongs to the tenant of its wave.
func NewTask(id, tenantID, waveID, orderID string, taskType TaskType, source, lpnID, sku string, requested int, now time.Time) *Task {
	return &Task{
		ID:                id,
		TenantID:          tenantID,
		WaveID:            waveID,
		OrderID:           orderID,
		Type:              taskType,
		Status:            TaskStatusPending,
		SourceLocation:    source,
		LpnID:             lpnID,
		ProductID:         sku,
		RequestedQuantity: requested,
		CreatedAt:         now.UTC(),
	}
}

func (t *Task) Start() error {
	if t.Status != TaskStatusPending {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = TaskStatusInProgress
	return nil
}

// Complete closes the task. It ends Short when fewer units than requested were picked.
func (t *Task) Complete(picked int, now time.Time) error {
	if t.Status.IsFinal() {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidState, t.ID, t.Status)
	}
	if picked < 0 {
		return fmt.Errorf("%w: picked %d", ErrInvalidQuantity, picked)
	}
	done := now.UTC()
	t.PickedQuantity = picked
	t.CompletedAt = &done
	if picked < t.RequestedQuantity {
		t.Status = TaskStatusShort
	} else {
		t.Status = TaskStatusCompleted
	}
	return nil
}

func (t *Task) Cancel() error {
	if t.Status.IsFinal() {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = TaskStatusCancelled
	return nil
}

// AcceptsLpnPick fails unless picking the whole LPN may close the task.
// Loose picks leave their LPN in storage and are completed with the picked
// quantity instead.
func (t *Task) AcceptsLpnPick() error {
	if t.Status.IsFinal() {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidState, t.ID, t.Status)
	}
	if t.Type != TaskTypeFullPalletMove {
		return fmt.Errorf("%w: %s task %s is completed with its picked quantity", ErrInvalidValue, t.Type, t.ID)
	}
	return nil
}
