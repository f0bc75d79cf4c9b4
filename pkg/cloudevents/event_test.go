package cloudevents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

func TestCreateEventCarriesContext(t *testing.T) {
	ctx := tenant.WithTenantID(context.Background(), "T1")
	ctx = logging.ContextWithCorrelationID(ctx, "corr-1")

	f := NewEventFactory(SourceLpnService)
	e := f.CreateEvent(ctx, "wms.lpn.created", "lpn/LPN0000000000000001", map[string]int{"quantity": 4})

	assert.Equal(t, "1.0", e.SpecVersion)
	assert.Equal(t, SourceLpnService, e.Source)
	assert.Equal(t, "wms.lpn.created", e.Type)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "T1", e.TenantID)
	assert.Equal(t, "corr-1", e.CorrelationID)
	assert.Equal(t, map[string]string{ExtTenantID: "T1", ExtCorrelationID: "corr-1"}, e.Extensions())
}

func TestCreateEventWithoutContextValues(t *testing.T) {
	e := NewEventFactory(SourceLpnService).CreateEvent(context.Background(), "wms.wave.allocated", "wave/1", nil)

	assert.Empty(t, e.TenantID)
	assert.Empty(t, e.CorrelationID)
	assert.Empty(t, e.Extensions())
}
