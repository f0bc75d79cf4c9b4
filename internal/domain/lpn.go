package domain

import (
	"fmt"
	"slices"
)

// LpnStatus is the lifecycle state of a license plate
type LpnStatus string

const (
	LpnStatusCreated    LpnStatus = "CREATED"
	LpnStatusReceived   LpnStatus = "RECEIVED"
	LpnStatusPutaway    LpnStatus = "PUTAWAY"
	LpnStatusAllocated  LpnStatus = "ALLOCATED"
	LpnStatusPicked     LpnStatus = "PICKED"
	LpnStatusDispatched LpnStatus = "DISPATCHED"
	LpnStatusQuarantine LpnStatus = "QUARANTINE"
	LpnStatusBlocked    LpnStatus = "BLOCKED" // reserved, no transition produces it
)

// IsValid checks if the status is valid
func (s LpnStatus) IsValid() bool {
	switch s {
	case LpnStatusCreated, LpnStatusReceived, LpnStatusPutaway, LpnStatusAllocated,
		LpnStatusPicked, LpnStatusDispatched, LpnStatusQuarantine, LpnStatusBlocked:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further handling is possible.
func (s LpnStatus) IsTerminal() bool {
	return s == LpnStatusDispatched
}

// Lpn is a license plate: one identified handling unit holding a single SKU.
// It is a value. Commands return the next state and the events that produce it
// and never touch the receiver.
type Lpn struct {
	ID               string
	TenantID         string
	Code             string
	SKU              string
	Quantity         int
	Reserved         int
	Status           LpnStatus
	Attributes       PhysicalAttributes
	CurrentLocation  string
	ReceivedOrderID  string
	TargetOrderID    string
	SelectedOrderID  string
	ReservedFor      []string
	ParentLpnID      string
	QuarantineReason string
	Voided           bool

	// Version is the stream version the state was loaded at.
	Version int64
}

// Exists reports whether the LPN has a creation event.
func (l Lpn) Exists() bool { return l.ID != "" }

// Available is the quantity not yet reserved or allocated.
func (l Lpn) Available() int { return l.Quantity - l.Reserved }

// HeldFor lists the orders holding stock on the LPN, whole or partial, in id order.
func (l Lpn) HeldFor() []string {
	orders := slices.Clone(l.ReservedFor)
	if l.SelectedOrderID != "" && !slices.Contains(orders, l.SelectedOrderID) {
		orders = append(orders, l.SelectedOrderID)
	}
	slices.Sort(orders)
	return orders
}

// CreateLpn provisions a new LPN.
func CreateLpn(meta Meta, id, tenantID, code, sku string, quantity int, attrs PhysicalAttributes) (Lpn, []LpnEvent, error) {
	var l Lpn
	if err := ValidateLpnID(id); err != nil {
		return l, nil, err
	}
	if err := ValidateTenantID(tenantID); err != nil {
		return l, nil, err
	}
	if err := ValidateSKU(sku); err != nil {
		return l, nil, err
	}
	if err := ValidateQuantity(quantity); err != nil {
		return l, nil, err
	}
	if code == "" {
		code = id
	}

	return l.emit(LpnCreated{
		Meta:       meta.forAggregate(id),
		TenantID:   tenantID,
		Code:       code,
		SKU:        sku,
		Quantity:   quantity,
		Attributes: attrs,
	})
}

// Receive records the inbound order the LPN arrived on and the location it was routed to.
func (l Lpn) Receive(meta Meta, inboundOrderID, targetOrderID, locationCode string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Status.IsTerminal() || l.Voided {
		return l, nil, l.invalidTransition("receive")
	}
	if inboundOrderID == "" {
		return l, nil, fmt.Errorf("%w: inbound order id is required", ErrInvalidValue)
	}

	return l.emit(LpnReceived{
		Meta:           meta.forAggregate(l.ID),
		InboundOrderID: inboundOrderID,
		TargetOrderID:  targetOrderID,
		LocationCode:   locationCode,
	})
}

// Putaway moves the LPN into storage at locationCode.
func (l Lpn) Putaway(meta Meta, locationCode string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Voided {
		return l, nil, l.invalidTransition("put away")
	}
	if err := ValidateLocationCode(locationCode); err != nil {
		return l, nil, err
	}

	m := meta.forAggregate(l.ID)
	return l.emit(
		LpnLocationChanged{Meta: m, FromLocation: l.CurrentLocation, ToLocation: locationCode},
		LpnPutawayCompleted{Meta: m, LocationCode: locationCode},
	)
}

// Allocate claims the whole LPN for orderID. An LPN with loose-pick
// reservations cannot be claimed.
func (l Lpn) Allocate(meta Meta, orderID, sku string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Status != LpnStatusPutaway || l.Voided {
		return l, nil, l.invalidTransition("allocate")
	}
	if sku != l.SKU {
		return l, nil, fmt.Errorf("%w: lpn %s holds %s, requested %s", ErrSkuMismatch, l.ID, l.SKU, sku)
	}
	if l.Reserved != 0 {
		return l, nil, fmt.Errorf("%w: lpn %s has %d units reserved for loose picks", ErrInvalidState, l.ID, l.Reserved)
	}
	if orderID == "" {
		return l, nil, fmt.Errorf("%w: order id is required", ErrInvalidValue)
	}

	return l.emit(LpnAllocated{
		Meta:     meta.forAggregate(l.ID),
		OrderID:  orderID,
		SKU:      sku,
		Quantity: l.Quantity,
	})
}

// Reserve holds quantity units for a loose pick without changing status.
func (l Lpn) Reserve(meta Meta, orderID string, quantity int) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Status != LpnStatusPutaway || l.Voided {
		return l, nil, l.invalidTransition("reserve")
	}
	if quantity <= 0 || quantity > l.Available() {
		return l, nil, fmt.Errorf("%w: cannot reserve %d of %d available", ErrInvalidQuantity, quantity, l.Available())
	}

	return l.emit(LpnQuantityReserved{
		Meta:     meta.forAggregate(l.ID),
		OrderID:  orderID,
		Quantity: quantity,
	})
}

func (l Lpn) Pick(meta Meta) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Status != LpnStatusAllocated || l.Voided {
		return l, nil, l.invalidTransition("pick")
	}
	return l.emit(LpnPicked{Meta: meta.forAggregate(l.ID), OrderID: l.SelectedOrderID})
}

// Pack records the container LPN this one was packed into.
func (l Lpn) Pack(meta Meta, parentLpnID string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Status != LpnStatusPicked || l.Voided {
		return l, nil, l.invalidTransition("pack")
	}
	if parentLpnID == "" || parentLpnID == l.ID {
		return l, nil, fmt.Errorf("%w: invalid parent lpn %q", ErrInvalidValue, parentLpnID)
	}
	return l.emit(LpnPacked{Meta: meta.forAggregate(l.ID), ParentLpnID: parentLpnID})
}

// Ship dispatches the LPN. Putaway stock may ship directly.
func (l Lpn) Ship(meta Meta, orderID string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if (l.Status != LpnStatusPicked && l.Status != LpnStatusPutaway) || l.Voided {
		return l, nil, l.invalidTransition("ship")
	}
	return l.emit(LpnDispatched{Meta: meta.forAggregate(l.ID), OrderID: orderID})
}

// ReportCount records a physical count. The LPN itself is unchanged.
func (l Lpn) ReportCount(meta Meta, counted int) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if err := ValidateQuantity(counted); err != nil {
		return l, nil, err
	}
	return l.emit(LpnCountReported{
		Meta:            meta.forAggregate(l.ID),
		CountedQuantity: counted,
		SystemQuantity:  l.Quantity,
	})
}

// AdjustQuantity books a corrected quantity. It may not drop below what is
// already reserved; those allocations must be voided first.
func (l Lpn) AdjustQuantity(meta Meta, quantity int, reason string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	if l.Voided {
		return l, nil, l.invalidTransition("adjust")
	}
	if err := ValidateQuantity(quantity); err != nil {
		return l, nil, err
	}
	if quantity < l.Reserved {
		return l, nil, fmt.Errorf("%w: lpn %s has %d units reserved, cannot adjust to %d", ErrInvalidQuantity, l.ID, l.Reserved, quantity)
	}
	return l.emit(LpnQuantityAdjusted{
		Meta:             meta.forAggregate(l.ID),
		PreviousQuantity: l.Quantity,
		NewQuantity:      quantity,
		Reason:           reason,
	})
}

// Quarantine is accepted from any state.
func (l Lpn) Quarantine(meta Meta, reason string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	return l.emit(LpnQuarantined{Meta: meta.forAggregate(l.ID), Reason: reason})
}

func (l Lpn) Void(meta Meta, reason string) (Lpn, []LpnEvent, error) {
	if err := l.mustExist(); err != nil {
		return l, nil, err
	}
	return l.emit(LpnVoided{Meta: meta.forAggregate(l.ID), Reason: reason, OrderID: l.SelectedOrderID})
}

// Apply folds one event into the state.
func (l Lpn) Apply(event LpnEvent) Lpn {
	switch e := event.(type) {
	case LpnCreated:
		l.ID = e.Aggregate
		l.TenantID = e.TenantID
		l.Code = e.Code
		l.SKU = e.SKU
		l.Quantity = e.Quantity
		l.Attributes = e.Attributes
		l.Status = LpnStatusCreated
	case LpnReceived:
		l.Status = LpnStatusReceived
		l.ReceivedOrderID = e.InboundOrderID
		l.TargetOrderID = e.TargetOrderID
		l.CurrentLocation = e.LocationCode
	case LpnLocationChanged:
		l.CurrentLocation = e.ToLocation
	case LpnPutawayCompleted:
		l.Status = LpnStatusPutaway
		l.CurrentLocation = e.LocationCode
	case LpnAllocated:
		l.Status = LpnStatusAllocated
		l.SelectedOrderID = e.OrderID
		l.Reserved = l.Quantity
	case LpnQuantityReserved:
		l.Reserved += e.Quantity
		if !slices.Contains(l.ReservedFor, e.OrderID) {
			l.ReservedFor = append(slices.Clip(l.ReservedFor), e.OrderID)
		}
	case LpnPicked:
		l.Status = LpnStatusPicked
	case LpnPacked:
		l.ParentLpnID = e.ParentLpnID
	case LpnDispatched:
		l.Status = LpnStatusDispatched
	case LpnCountReported:
	case LpnQuantityAdjusted:
		l.Quantity = e.NewQuantity
	case LpnQuarantined:
		l.Status = LpnStatusQuarantine
		l.QuarantineReason = e.Reason
	case LpnVoided:
		l.Voided = true
		l.SelectedOrderID = ""
		l.ReservedFor = nil
		l.Reserved = 0
	}
	return l
}

func (l Lpn) emit(events ...LpnEvent) (Lpn, []LpnEvent, error) {
	next := l
	for _, e := range events {
		next = next.Apply(e)
	}
	return next, events, nil
}

func (l Lpn) mustExist() error {
	if !l.Exists() {
		return fmt.Errorf("lpn: %w", ErrNotFound)
	}
	return nil
}

func (l Lpn) invalidTransition(op string) error {
	if l.Voided {
		return fmt.Errorf("%w: cannot %s voided lpn %s", ErrInvalidState, op, l.ID)
	}
	return fmt.Errorf("%w: cannot %s lpn %s in status %s", ErrInvalidState, op, l.ID, l.Status)
}

// LoadLpn rebuilds an LPN by folding its persisted stream.
func LoadLpn(records []EventRecord) (Lpn, error) {
	var l Lpn
	for _, rec := range records {
		event, err := DecodeEvent(rec)
		if err != nil {
			return Lpn{}, err
		}
		e, ok := event.(LpnEvent)
		if !ok {
			return Lpn{}, fmt.Errorf("%w: %s is not an lpn event", ErrInvalidValue, rec.EventType)
		}
		l = l.Apply(e)
		l.Version = rec.Version
	}
	return l, nil
}
