package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wms-platform/lpn-service/internal/domain"
	"github.com/wms-platform/lpn-service/internal/rfid"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// ReceiveHandler books inbound stock into new LPNs.
type ReceiveHandler struct {
	*core
	catalog domain.ProductCatalog
	inbound domain.InboundOrderLookup
	ids     domain.LpnIDGenerator
	policy  *ReceivingPolicy
}

// NewReceiveHandler creates a ReceiveHandler. A nil policy uses the defaults.
func NewReceiveHandler(deps Deps, catalog domain.ProductCatalog, inbound domain.InboundOrderLookup, ids domain.LpnIDGenerator, policy *ReceivingPolicy) *ReceiveHandler {
	if policy == nil {
		policy = DefaultReceivingPolicy()
	}
	return &ReceiveHandler{
		core:    newCore(deps, "receive-handler"),
		catalog: catalog,
		inbound: inbound,
		ids:     ids,
		policy:  policy,
	}
}

// receipt is the resolved plan shared by every LPN of one receive command.
type receipt struct {
	sku         string
	lpnID       string
	units       int
	count       int
	location    string
	targetOrder string
	attributes  domain.PhysicalAttributes
	quarantine  string
}

// Handle receives cmd. LPNs are committed one at a time, so on failure the
// result still lists the LPNs that were created before it.
func (h *ReceiveHandler) Handle(ctx context.Context, cmd ReceiveCommand) (*ReceiveResult, error) {
	return runCommand(ctx, h.core, "receive", func(ctx context.Context) (*ReceiveResult, error) {
		tc, err := authorize(ctx, "")
		if err != nil {
			return nil, err
		}
		plan, err := h.plan(ctx, tc, cmd)
		if err != nil {
			return nil, err
		}

		result := &ReceiveResult{
			SKU:          plan.sku,
			LocationCode: plan.location,
			UnitsPerLpn:  plan.units,
			Quarantined:  plan.quarantine != "",
			LpnIDs:       make([]string, 0, plan.count),
		}
		meta := h.meta(tc, cmd.Origin)

		for i := 0; i < plan.count; i++ {
			lpnID := plan.lpnID
			if i > 0 || lpnID == "" {
				if lpnID, err = h.ids.NextLpnID(ctx); err != nil {
					return result, fmt.Errorf("generate lpn id: %w", err)
				}
			}
			if err := h.receiveOne(ctx, tc, meta, lpnID, cmd.InboundOrderID, plan); err != nil {
				return result, err
			}
			result.LpnIDs = append(result.LpnIDs, lpnID)
		}

		h.logger.WithContext(ctx).Info("Received stock",
			"inboundOrderId", cmd.InboundOrderID,
			"sku", plan.sku,
			"lpnCount", len(result.LpnIDs),
			"location", plan.location,
			"quarantined", result.Quarantined,
		)
		return result, nil
	})
}

func (h *ReceiveHandler) plan(ctx context.Context, tc *tenant.Context, cmd ReceiveCommand) (*receipt, error) {
	if strings.TrimSpace(cmd.InboundOrderID) == "" {
		return nil, fmt.Errorf("%w: inbound order id is required", domain.ErrInvalidValue)
	}

	sku, lpnID := h.resolveScan(ctx, cmd)
	p := &receipt{sku: sku, lpnID: lpnID, count: cmd.LpnCount}
	if p.count <= 0 {
		p.count = 1
	}

	order, err := h.inbound.GetInboundOrder(ctx, cmd.InboundOrderID)
	if err != nil {
		return nil, err
	}
	if order.TenantID != "" {
		if err := tc.ValidateOwnership(order.TenantID); err != nil {
			return nil, err
		}
	}

	var product *domain.Product
	if sku != domain.UnknownSKU {
		product, err = h.catalog.GetProduct(ctx, sku)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	var master domain.PhysicalAttributes
	if product != nil {
		master = product.Attributes
	}
	p.attributes = domain.ResolveAttributes(cmd.Attributes, master)

	photo := cmd.PhotoSample || h.policy.IsPhotoStation(cmd.StationID)
	p.location = h.policy.Route(photo, order.Crossdock)
	if order.Crossdock && !photo {
		p.targetOrder = order.TargetOutboundOrderID
	}

	if !photo && (product == nil || !product.HasReferenceImage) {
		return nil, apperrors.ErrMissingReferenceImage(sku).Wrap(domain.ErrMissingReferenceImage)
	}

	p.units = cmd.Quantity
	if cmd.UnitsPerLpn > 0 {
		p.units = cmd.UnitsPerLpn
	}
	if photo {
		p.units = 1
	}
	if p.units <= 0 {
		return nil, fmt.Errorf("%w: receive quantity %d", domain.ErrInvalidQuantity, p.units)
	}

	if p.count == 1 {
		if expected, ok := order.ExpectedQuantities[sku]; ok && p.units > expected {
			p.quarantine = fmt.Sprintf("overage: received %d, expected %d", p.units, expected)
		}
	}
	return p, nil
}

// resolveScan turns the raw scan into a sku or an LPN id. Explicit fields win
// over the scan. An EPC that cannot be decoded leaves the sku unresolved.
func (h *ReceiveHandler) resolveScan(ctx context.Context, cmd ReceiveCommand) (sku, lpnID string) {
	sku, lpnID = strings.TrimSpace(cmd.SKU), strings.TrimSpace(cmd.LpnID)
	raw := strings.TrimSpace(cmd.RawScan)
	if raw != "" {
		switch rfid.Classify(raw) {
		case rfid.ScanRFID:
			tag, err := rfid.ParseSGTIN96(raw)
			if err != nil {
				h.metrics.RecordRFIDRead("rejected")
				h.logger.WithContext(ctx).Warn("Unreadable EPC on receipt", "epc", raw, "error", err)
			} else {
				h.metrics.RecordRFIDRead("accepted")
				if sku == "" {
					sku = tag.SKU()
				}
			}
		case rfid.ScanLPN:
			if lpnID == "" {
				lpnID = raw
			}
		case rfid.ScanSKU:
			if sku == "" {
				sku = raw
			}
		}
	}
	if sku == "" {
		sku = domain.UnknownSKU
	}
	return sku, lpnID
}

func (h *ReceiveHandler) receiveOne(ctx context.Context, tc *tenant.Context, meta domain.Meta, lpnID, inboundOrderID string, p *receipt) error {
	scope := h.scope()
	defer scope.release(ctx)
	if err := scope.acquire(ctx, LockPlan{LpnIDs: []string{lpnID}}); err != nil {
		return err
	}

	records, err := h.store.GetEvents(ctx, domain.LpnStreamID(lpnID))
	if err != nil {
		return err
	}
	current, err := domain.LoadLpn(records)
	if err != nil {
		return err
	}

	var (
		next   domain.Lpn
		events []domain.LpnEvent
	)
	if current.Exists() {
		if err := tc.ValidateOwnership(current.TenantID); err != nil {
			return err
		}
		if current.SKU != p.sku {
			return fmt.Errorf("%w: lpn %s holds %s, received %s", domain.ErrSkuMismatch, lpnID, current.SKU, p.sku)
		}
		next = current
	} else {
		next, events, err = domain.CreateLpn(meta, lpnID, tc.TenantID, "", p.sku, p.units, p.attributes)
		if err != nil {
			return err
		}
	}

	next, received, err := next.Receive(meta, inboundOrderID, p.targetOrder, p.location)
	if err != nil {
		return err
	}
	events = append(events, received...)

	if p.quarantine != "" {
		var quarantined []domain.LpnEvent
		next, quarantined, err = next.Quarantine(meta, p.quarantine)
		if err != nil {
			return err
		}
		events = append(events, quarantined...)
	}

	cs := &changeSet{}
	if err := cs.addLpn(current.Version, next, events); err != nil {
		return err
	}
	return h.commit(ctx, cs)
}
