package domain

import "github.com/google/uuid"

// Role is the permission level carried in the caller's token.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleStaff    Role = "staff"
	RoleOperator Role = "operator" // platform operator, not tied to one tenant
)

// RequestContext is the resolved, request-scoped identity for one inbound
// request. It is created by the context resolver, checked by the access
// guard, and discarded at request end. Never persisted.
type RequestContext struct {
	CallerTenantID   uuid.UUID
	ResourceTenantID uuid.UUID
	UserID           uuid.UUID
	Role             Role
}

// Operator reports whether the caller is a platform operator. Operators
// act outside any single tenant and bypass the tenant-equality guard.
func (rc RequestContext) Operator() bool {
	return rc.Role == RoleOperator
}

// Allowed applies the access-guard invariant: the caller's tenant must
// equal the tenant of the addressed resource. This comparison runs before
// any tenant-scoped query is issued.
func (rc RequestContext) Allowed() bool {
	if rc.Operator() {
		return true
	}
	return rc.CallerTenantID != uuid.Nil && rc.CallerTenantID == rc.ResourceTenantID
}
