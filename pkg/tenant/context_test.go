package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := ToContext(context.Background(), &Context{
		TenantID:    "T1",
		WarehouseID: "WH-1",
		ActorID:     "u-7",
		Role:        RoleSupervisor,
	})

	tc, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", tc.TenantID)
	assert.Equal(t, "WH-1", tc.WarehouseID)
	assert.Equal(t, "u-7", tc.ActorID)
	assert.Equal(t, RoleSupervisor, tc.Role)
	assert.Equal(t, "T1", GetTenantID(ctx))
}

func TestFromContextRequiresTenant(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenantContext)
}

func TestValidateOwnership(t *testing.T) {
	tc := &Context{TenantID: "T1"}

	assert.NoError(t, tc.ValidateOwnership("T1"))
	assert.ErrorIs(t, tc.ValidateOwnership("T2"), ErrUnauthorizedAccess)
	assert.ErrorIs(t, tc.ValidateOwnership(""), ErrUnauthorizedAccess)
	assert.ErrorIs(t, (&Context{}).ValidateOwnership("T1"), ErrUnauthorizedAccess)
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, (&Context{Role: RoleSupervisor}).RequireRole(RoleSupervisor))
	assert.ErrorIs(t, (&Context{Role: RoleOperator}).RequireRole(RoleSupervisor), ErrInsufficientRole)
}
