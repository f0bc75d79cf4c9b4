package application

import "github.com/wms-platform/lpn-service/internal/domain"

// ToLpnDTO converts a domain LPN to its DTO
func ToLpnDTO(l domain.Lpn) *LpnDTO {
	return &LpnDTO{
		ID:               l.ID,
		TenantID:         l.TenantID,
		Code:             l.Code,
		SKU:              l.SKU,
		Quantity:         l.Quantity,
		Reserved:         l.Reserved,
		Available:        l.Available(),
		Status:           string(l.Status),
		LocationCode:     l.CurrentLocation,
		SelectedOrderID:  l.SelectedOrderID,
		ParentLpnID:      l.ParentLpnID,
		QuarantineReason: l.QuarantineReason,
		Voided:           l.Voided,
		Attributes:       l.Attributes,
		Version:          l.Version,
	}
}

// ToTaskDTO converts a domain task to its DTO
func ToTaskDTO(t *domain.Task) TaskDTO {
	return TaskDTO{
		ID:                t.ID,
		TenantID:          t.TenantID,
		WaveID:            t.WaveID,
		OrderID:           t.OrderID,
		Type:              string(t.Type),
		Status:            string(t.Status),
		SourceLocation:    t.SourceLocation,
		LpnID:             t.LpnID,
		SKU:               t.ProductID,
		RequestedQuantity: t.RequestedQuantity,
		PickedQuantity:    t.PickedQuantity,
		CreatedAt:         t.CreatedAt,
		CompletedAt:       t.CompletedAt,
	}
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []*domain.Task) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, ToTaskDTO(t))
	}
	return dtos
}

// ToWaveDTO converts a wave and its tasks to a DTO
func ToWaveDTO(w *domain.Wave, tasks []*domain.Task) *WaveDTO {
	return &WaveDTO{
		ID:          w.ID,
		TenantID:    w.TenantID,
		Number:      w.Number,
		Status:      string(w.Status),
		OrderIDs:    w.SortedOrderIDs(),
		CreatedAt:   w.CreatedAt,
		AllocatedAt: w.AllocatedAt,
		ReleasedAt:  w.ReleasedAt,
		CompletedAt: w.CompletedAt,
		Tasks:       ToTaskDTOs(tasks),
	}
}
