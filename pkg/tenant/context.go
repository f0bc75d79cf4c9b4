package tenant

import (
	"context"
	"errors"
)

type contextKey string

const (
	tenantIDKey    contextKey = "tenantId"
	warehouseIDKey contextKey = "warehouseId"
	actorIDKey     contextKey = "actorId"
	roleKey        contextKey = "role"
)

// Errors for tenant context operations
var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to tenant resource")
	ErrMissingTenantID      = errors.New("tenantId is required")
	ErrInsufficientRole     = errors.New("operation requires a higher role")
)

// Role is the operator role attached to a request.
type Role string

const (
	RoleOperator   Role = "operator"
	RoleSupervisor Role = "supervisor"
)

// Context scopes every inventory command to one tenant and identifies who issued it.
type Context struct {
	TenantID    string `json:"tenantId"`
	WarehouseID string `json:"warehouseId,omitempty"`
	ActorID     string `json:"actorId,omitempty"`
	Role        Role   `json:"role,omitempty"`
}

// FromContext extracts the tenant Context from ctx.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{
		TenantID:    stringValue(ctx, tenantIDKey),
		WarehouseID: stringValue(ctx, warehouseIDKey),
		ActorID:     stringValue(ctx, actorIDKey),
		Role:        Role(stringValue(ctx, roleKey)),
	}
	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// ToContext adds tenant values to ctx.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.WarehouseID != "" {
		ctx = context.WithValue(ctx, warehouseIDKey, tc.WarehouseID)
	}
	if tc.ActorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, tc.ActorID)
	}
	if tc.Role != "" {
		ctx = context.WithValue(ctx, roleKey, string(tc.Role))
	}
	return ctx
}

// WithTenantID returns a new context with the tenant ID set
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, tenantIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// Validate checks that the tenant ID is present.
func (tc *Context) Validate() error {
	if tc.TenantID == "" {
		return ErrMissingTenantID
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to this tenant.
// A resource with no recorded tenant is treated as foreign.
func (tc *Context) ValidateOwnership(resourceTenantID string) error {
	if tc.TenantID == "" || resourceTenantID != tc.TenantID {
		return ErrUnauthorizedAccess
	}
	return nil
}

// RequireRole fails unless the caller holds role.
func (tc *Context) RequireRole(role Role) error {
	if tc.Role != role {
		return ErrInsufficientRole
	}
	return nil
}
