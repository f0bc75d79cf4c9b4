package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/lpn-service/pkg/cloudevents"
	"github.com/wms-platform/lpn-service/pkg/errors"
	"github.com/wms-platform/lpn-service/pkg/logging"
	"github.com/wms-platform/lpn-service/pkg/tenant"
)

// TenantAuthConfig holds configuration for tenant authorization middleware
type TenantAuthConfig struct {
	// Required rejects requests without a tenant header
	Required bool
	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string
}

// TenantAuth reads the tenant, warehouse, actor and role headers into the
// request context.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = &TenantAuthConfig{Required: true}
	}

	return func(c *gin.Context) {
		tc := &tenant.Context{
			TenantID:    c.GetHeader(cloudevents.HeaderTenantID),
			WarehouseID: c.GetHeader(cloudevents.HeaderWarehouseID),
			ActorID:     c.GetHeader(cloudevents.HeaderActorID),
			Role:        tenant.Role(c.GetHeader(cloudevents.HeaderRole)),
		}
		if tc.TenantID == "" && !config.Required {
			tc.TenantID = config.DefaultTenantID
		}
		if tc.Role == "" {
			tc.Role = tenant.RoleOperator
		}

		if err := tc.Validate(); err != nil {
			AbortWithAppError(c, errors.ErrUnauthorized("tenant context is required"))
			return
		}
		if tc.Role != tenant.RoleOperator && tc.Role != tenant.RoleSupervisor {
			AbortWithAppError(c, errors.ErrForbidden("unknown role").WithDetail("role", string(tc.Role)))
			return
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		if tc.ActorID != "" {
			ctx = logging.ContextWithActorID(ctx, tc.ActorID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set("tenantContext", tc)

		c.Next()
	}
}

// GetTenantContext retrieves the tenant context stored by TenantAuth
func GetTenantContext(c *gin.Context) *tenant.Context {
	if v, ok := c.Get("tenantContext"); ok {
		if tc, ok := v.(*tenant.Context); ok {
			return tc
		}
	}
	return nil
}
