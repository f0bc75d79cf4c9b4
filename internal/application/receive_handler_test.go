package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/lpn-service/internal/domain"
	apperrors "github.com/wms-platform/lpn-service/pkg/errors"
)

func TestReceiveCreatesLpnAtReceivingStage(t *testing.T) {
	f := newFixture(t)

	result, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{
		InboundOrderID: "IN-1",
		SKU:            "SKU-001",
		Quantity:       10,
		Origin:         Origin{StationID: "RCV-3"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"LPN0000000000000001"}, result.LpnIDs)
	assert.Equal(t, DefaultReceivingStageLocation, result.LocationCode)
	assert.False(t, result.Quarantined)

	l := f.lpn(t, "LPN0000000000000001")
	assert.Equal(t, domain.LpnStatusReceived, l.Status)
	assert.Equal(t, "T1", l.TenantID)
	assert.Equal(t, 10, l.Quantity)
	assert.Equal(t, "IN-1", l.ReceivedOrderID)
	assert.Equal(t, 12.5, l.Attributes.WeightKg)
	assert.Equal(t, int64(2), l.Version)

	require.Len(t, f.published.records, 2)
	assert.Equal(t, int64(1), f.published.records[0].Version)
	assert.Equal(t, int64(2), f.published.records[1].Version)
	assert.Equal(t, "op-1", f.published.records[0].ActorID)
	assert.Equal(t, "RCV-3", f.published.records[0].StationID)

	view, err := f.views.FindByID(context.Background(), "LPN0000000000000001")
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Version)
}

func TestReceiveRouting(t *testing.T) {
	tests := []struct {
		name      string
		cmd       ReceiveCommand
		location  string
		units     int
		targetOrd string
	}{
		{
			name:     "receiving stage",
			cmd:      ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 8},
			location: DefaultReceivingStageLocation,
			units:    8,
		},
		{
			name:     "photo flag wins and receives one unit",
			cmd:      ReceiveCommand{InboundOrderID: "IN-XD", SKU: "SKU-NOIMG", Quantity: 8, PhotoSample: true},
			location: DefaultPhotoStationLocation,
			units:    1,
		},
		{
			name:     "photo station",
			cmd:      ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 8, Origin: Origin{StationID: "PS-1"}},
			location: DefaultPhotoStationLocation,
			units:    1,
		},
		{
			name:      "crossdock",
			cmd:       ReceiveCommand{InboundOrderID: "IN-XD", SKU: "SKU-001", Quantity: 8},
			location:  DefaultCrossdockLocation,
			units:     8,
			targetOrd: "OUT-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			result, err := f.h.Receive.Handle(operatorCtx(), tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.location, result.LocationCode)

			l := f.lpn(t, result.LpnIDs[0])
			assert.Equal(t, tt.location, l.CurrentLocation)
			assert.Equal(t, tt.units, l.Quantity)
			assert.Equal(t, tt.targetOrd, l.TargetOrderID)
		})
	}
}

func TestReceiveAttributeOverride(t *testing.T) {
	f := newFixture(t)
	override := &domain.PhysicalAttributes{WeightKg: 3}

	result, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 1, Attributes: override})
	require.NoError(t, err)
	assert.Equal(t, *override, f.lpn(t, result.LpnIDs[0]).Attributes)
}

func TestReceiveRequiresReferenceImage(t *testing.T) {
	f := newFixture(t)

	_, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-NOIMG", Quantity: 5})
	requireCode(t, err, apperrors.CodeMissingReferenceImage)
	assert.ErrorIs(t, err, domain.ErrMissingReferenceImage)
	assert.Equal(t, int64(0), f.store.Version(domain.LpnStreamID("LPN0000000000000001")))
	assert.Empty(t, f.published.records)
}

func TestReceiveOverageIsQuarantined(t *testing.T) {
	f := newFixture(t)

	result, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 120})
	require.NoError(t, err)
	assert.True(t, result.Quarantined)

	l := f.lpn(t, result.LpnIDs[0])
	assert.Equal(t, domain.LpnStatusQuarantine, l.Status)
	assert.Contains(t, l.QuarantineReason, "expected 100")
	assert.Equal(t, []string{domain.EventLpnCreated, domain.EventLpnReceived, domain.EventLpnQuarantined}, f.published.types())
}

func TestReceiveBulkUsesExplicitIDFirst(t *testing.T) {
	f := newFixture(t)

	result, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{
		InboundOrderID: "IN-1",
		SKU:            "SKU-001",
		LpnID:          "LPN0000000000000500",
		LpnCount:       3,
		UnitsPerLpn:    40,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"LPN0000000000000500", "LPN0000000000000001", "LPN0000000000000002"}, result.LpnIDs)
	assert.False(t, result.Quarantined, "overage only applies to single-LPN receipts")
	for _, id := range result.LpnIDs {
		assert.Equal(t, 40, f.lpn(t, id).Quantity)
	}
}

func TestReceiveResolvesScans(t *testing.T) {
	tests := []struct {
		name  string
		scan  string
		sku   string
		lpnID string
	}{
		{"rfid", "303A57BF43194E4000001A85", "614141.812345", "LPN0000000000000001"},
		{"sku", "SKU-001", "SKU-001", "LPN0000000000000001"},
		{"lpn", "LPN0000000000000777", domain.UnknownSKU, "LPN0000000000000777"},
		{"unsupported epc", "3674257BF400000000000001", domain.UnknownSKU, "LPN0000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cmd := ReceiveCommand{InboundOrderID: "IN-1", RawScan: tt.scan, Quantity: 1}
			if tt.sku == domain.UnknownSKU {
				cmd.PhotoSample = true
			}

			result, err := f.h.Receive.Handle(operatorCtx(), cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.sku, result.SKU)
			assert.Equal(t, []string{tt.lpnID}, result.LpnIDs)
		})
	}
}

func TestReceiveUnknownInboundOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-404", SKU: "SKU-001", Quantity: 1})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestReceiveLockTimeoutPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ok, err := f.locks.AcquireLock(context.Background(), "LPN:LPN0000000000000042", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.h.Receive.Handle(operatorCtx(), ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 1, LpnID: "LPN0000000000000042"})
	requireCode(t, err, apperrors.CodeLockTimeout)
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	assert.Equal(t, int64(0), f.store.Version(domain.LpnStreamID("LPN0000000000000042")))
}

func TestReceiveExistingLpnMustMatchSku(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx()
	_, err := f.h.Receive.Handle(ctx, ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-001", Quantity: 1, LpnID: "LPN0000000000000042"})
	require.NoError(t, err)

	_, err = f.h.Receive.Handle(ctx, ReceiveCommand{InboundOrderID: "IN-1", SKU: "SKU-002", Quantity: 1, LpnID: "LPN0000000000000042"})
	requireCode(t, err, apperrors.CodeValidationError)
	assert.ErrorIs(t, err, domain.ErrSkuMismatch)
}
