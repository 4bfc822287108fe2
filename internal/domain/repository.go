package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantRepository is the persistence interface for the system-wide
// tenant registry table.
type TenantRepository interface {
	// Create inserts a new tenant record in PENDING status.
	Create(ctx context.Context, t *Tenant) error

	// FindByID returns the record regardless of status, or
	// ErrTenantNotFound if no row exists. Status filtering (hiding
	// DEACTIVATED records) is usecase policy, not storage policy.
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByEmail returns the most recent non-deactivated tenant owned
	// by the given contact email, or ErrTenantNotFound.
	FindByEmail(ctx context.Context, email string) (*Tenant, error)

	// Update persists mutable fields (business name, contact, plan) and
	// bumps updated_at. Identity fields are never touched.
	Update(ctx context.Context, t *Tenant) error

	// UpdateStatus transitions the lifecycle status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status TenantStatus) error

	// List enumerates tenants ordered by creation time, newest first.
	// statusFilter narrows to one status when non-empty.
	List(ctx context.Context, offset, limit int, statusFilter TenantStatus) ([]*Tenant, int, error)

	// FindStalePending returns tenants that have been PENDING for longer
	// than olderThan, for provisioning reconciliation.
	FindStalePending(ctx context.Context, olderThan time.Duration) ([]*Tenant, error)
}

// Provisioner creates and removes per-tenant schemas. It is the only
// component permitted to run schema-level DDL.
type Provisioner interface {
	// Provision creates the schema and its full fixed table set in one
	// transaction. On any failure the whole transaction rolls back and
	// no partial schema persists.
	Provision(ctx context.Context, schemaName string) error

	// Deprovision drops the schema and everything in it. Only the
	// privileged hard-delete path calls this; normal deactivation keeps
	// the schema for compliance and export.
	Deprovision(ctx context.Context, schemaName string) error
}

// TenantCache is a read-through cache in front of the registry for the
// resolver hot path. All methods are best-effort: a cache failure must
// degrade to a registry lookup, never to a request failure.
type TenantCache interface {
	Get(ctx context.Context, id uuid.UUID) (*Tenant, error)
	Set(ctx context.Context, t *Tenant) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}
