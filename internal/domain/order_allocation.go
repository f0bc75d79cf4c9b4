package domain

import (
	"fmt"
	"slices"
)

// Order allocation event types
const (
	EventOrderLineAllocated      = "wms.order.line-allocated"
	EventOrderAllocationReverted = "wms.order.allocation-reverted"
	EventOrderDispatched         = "wms.order.dispatched"
)

// OrderEvent is the closed set of events on an outbound order's fulfillment stream.
type OrderEvent interface {
	DomainEvent
	isOrderEvent()
}

type OrderLineAllocated struct {
	Meta
	LpnID    string `json:"lpnId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type OrderAllocationReverted struct {
	Meta
	LpnID    string `json:"lpnId"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason,omitempty"`
}

type OrderDispatched struct {
	Meta
	LpnIDs []string `json:"lpnIds"`
}

func (OrderLineAllocated) EventType() string      { return EventOrderLineAllocated }
func (OrderAllocationReverted) EventType() string { return EventOrderAllocationReverted }
func (OrderDispatched) EventType() string         { return EventOrderDispatched }

func (OrderLineAllocated) isOrderEvent()      {}
func (OrderAllocationReverted) isOrderEvent() {}
func (OrderDispatched) isOrderEvent()         {}

func init() {
	registerEvent[OrderLineAllocated]()
	registerEvent[OrderAllocationReverted]()
	registerEvent[OrderDispatched]()
}

// Allocation is stock from one LPN committed to an order.
type Allocation struct {
	LpnID    string
	SKU      string
	Quantity int
}

// OrderAllocation tracks what inventory an outbound order holds. The stream is
// created by its first allocation.
type OrderAllocation struct {
	OrderID     string
	Allocations []Allocation
	Dispatched  bool
	Version     int64
}

// NewOrderAllocation returns the empty state for orderID.
func NewOrderAllocation(orderID string) OrderAllocation {
	return OrderAllocation{OrderID: orderID}
}

// AllocatedQuantity sums what is held for sku.
func (o OrderAllocation) AllocatedQuantity(sku string) int {
	total := 0
	for _, a := range o.Allocations {
		if a.SKU == sku {
			total += a.Quantity
		}
	}
	return total
}

func (o OrderAllocation) Allocate(meta Meta, lpnID, sku string, quantity int) (OrderAllocation, []OrderEvent, error) {
	if o.Dispatched {
		return o, nil, fmt.Errorf("%w: order %s already dispatched", ErrInvalidState, o.OrderID)
	}
	if quantity <= 0 {
		return o, nil, fmt.Errorf("%w: allocation of %d", ErrInvalidQuantity, quantity)
	}
	return o.emit(OrderLineAllocated{
		Meta:     meta.forAggregate(o.OrderID),
		LpnID:    lpnID,
		SKU:      sku,
		Quantity: quantity,
	})
}

// RevertLpn releases everything lpnID holds for the order. An LPN without
// allocations yields no events.
func (o OrderAllocation) RevertLpn(meta Meta, lpnID, reason string) (OrderAllocation, []OrderEvent, error) {
	var events []OrderEvent
	for _, a := range o.Allocations {
		if a.LpnID != lpnID {
			continue
		}
		events = append(events, OrderAllocationReverted{
			Meta:     meta.forAggregate(o.OrderID),
			LpnID:    a.LpnID,
			SKU:      a.SKU,
			Quantity: a.Quantity,
			Reason:   reason,
		})
	}
	return o.emit(events...)
}

func (o OrderAllocation) Dispatch(meta Meta, lpnIDs []string) (OrderAllocation, []OrderEvent, error) {
	if o.Dispatched {
		return o, nil, fmt.Errorf("%w: order %s already dispatched", ErrInvalidState, o.OrderID)
	}
	if len(lpnIDs) == 0 {
		return o, nil, fmt.Errorf("%w: nothing to dispatch", ErrInvalidValue)
	}
	ids := slices.Clone(lpnIDs)
	slices.Sort(ids)
	return o.emit(OrderDispatched{Meta: meta.forAggregate(o.OrderID), LpnIDs: ids})
}

func (o OrderAllocation) Apply(event OrderEvent) OrderAllocation {
	switch e := event.(type) {
	case OrderLineAllocated:
		o.Allocations = append(slices.Clip(o.Allocations), Allocation{LpnID: e.LpnID, SKU: e.SKU, Quantity: e.Quantity})
	case OrderAllocationReverted:
		kept := make([]Allocation, 0, len(o.Allocations))
		removed := false
		for _, a := range o.Allocations {
			if !removed && a.LpnID == e.LpnID && a.SKU == e.SKU && a.Quantity == e.Quantity {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		o.Allocations = kept
	case OrderDispatched:
		o.Dispatched = true
	}
	return o
}

func (o OrderAllocation) emit(events ...OrderEvent) (OrderAllocation, []OrderEvent, error) {
	next := o
	for _, e := range events {
		next = next.Apply(e)
	}
	return next, events, nil
}

// LoadOrderAllocation rebuilds the fulfillment state of orderID.
func LoadOrderAllocation(orderID string, records []EventRecord) (OrderAllocation, error) {
	o := NewOrderAllocation(orderID)
	for _, rec := range records {
		event, err := DecodeEvent(rec)
		if err != nil {
			return OrderAllocation{}, err
		}
		e, ok := event.(OrderEvent)
		if !ok {
			return OrderAllocation{}, fmt.Errorf("%w: %s is not an order event", ErrInvalidValue, rec.EventType)
		}
		o = o.Apply(e)
		o.Version = rec.Version
	}
	return o, nil
}
