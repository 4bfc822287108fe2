package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditKind classifies an audit event.
type AuditKind string

const (
	// Security events. Cross-tenant attempts and unknown-tenant lookups
	// are logged distinctly so that probing can be told apart from stale
	// clients hitting deactivated tenants.
	AuditCrossTenantDenied AuditKind = "access.cross_tenant_denied"
	AuditUnknownTenant     AuditKind = "access.unknown_tenant"

	// Lifecycle events.
	AuditTenantRegistered  AuditKind = "tenant.registered"
	AuditTenantActivated   AuditKind = "tenant.activated"
	AuditTenantSuspended   AuditKind = "tenant.suspended"
	AuditTenantResumed     AuditKind = "tenant.resumed"
	AuditTenantDeactivated AuditKind = "tenant.deactivated"
	AuditTenantPurged      AuditKind = "tenant.purged"
)

// AuditEvent is one entry in the platform audit trail.
type AuditEvent struct {
	ID         uuid.UUID `json:"event_id"`
	Kind       AuditKind `json:"kind"`
	TenantID   uuid.UUID `json:"tenant_id,omitempty"`
	CallerID   uuid.UUID `json:"caller_tenant_id,omitempty"`
	UserID     uuid.UUID `json:"user_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditPublisher delivers audit events to the platform audit trail.
// Publishing is best-effort: a failed publish must never fail the request
// that produced the event.
type AuditPublisher interface {
	Publish(ctx context.Context, event AuditEvent) error
}
