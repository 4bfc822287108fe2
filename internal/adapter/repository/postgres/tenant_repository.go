package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/plateful/tenantcore/internal/domain"
)

// The registry table lives outside any tenant schema and is the single
// source of truth for tenant existence, plan, schema name and status.
const registryTableSQL = `
CREATE TABLE IF NOT EXISTS tenant_registry (
    tenant_id       UUID PRIMARY KEY,
    business_name   TEXT NOT NULL,
    contact_email   TEXT NOT NULL,
    contact_phone   TEXT NOT NULL DEFAULT '',
    contact_address TEXT NOT NULL DEFAULT '',
    subscription_plan TEXT NOT NULL,
    schema_name     TEXT NOT NULL UNIQUE,
    status          TEXT NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tenant_registry_email ON tenant_registry (contact_email);
CREATE INDEX IF NOT EXISTS idx_tenant_registry_status ON tenant_registry (status);
`

// TenantRepository implements domain.TenantRepository against the
// system-wide tenant_registry table.
type TenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTenantRepository creates the repository and ensures the registry
// table exists.
func NewTenantRepository(ctx context.Context, db *sql.DB, logger *slog.Logger) (*TenantRepository, error) {
	if _, err := db.ExecContext(ctx, registryTableSQL); err != nil {
		return nil, &domain.DatabaseError{Op: "init registry table", Err: err}
	}
	return &TenantRepository{db: db, logger: logger.With("component", "tenant_repository")}, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	query := `
        INSERT INTO tenant_registry (
            tenant_id, business_name, contact_email, contact_phone, contact_address,
            subscription_plan, schema_name, status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.BusinessName,
		t.Contact.Email,
		t.Contact.Phone,
		t.Contact.Address,
		t.Plan,
		t.SchemaName,
		t.Status,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return domain.ErrConflict
		}
		return &domain.DatabaseError{Op: "create tenant", Err: err}
	}

	return nil
}

const tenantColumns = `tenant_id, business_name, contact_email, contact_phone, contact_address,
        subscription_plan, schema_name, status, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(
		&t.ID,
		&t.BusinessName,
		&t.Contact.Email,
		&t.Contact.Phone,
		&t.Contact.Address,
		&t.Plan,
		&t.SchemaName,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant_registry WHERE tenant_id = $1`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, &domain.DatabaseError{Op: "find tenant by id", Err: err}
	}
	return t, nil
}

func (r *TenantRepository) FindByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	query := `
        SELECT ` + tenantColumns + `
        FROM tenant_registry
        WHERE contact_email = $1 AND status <> $2
        ORDER BY created_at DESC
        LIMIT 1
    `

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, email, domain.StatusDeactivated))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, &domain.DatabaseError{Op: "find tenant by email", Err: err}
	}
	return t, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	// Identity fields (tenant_id, schema_name) are deliberately absent
	// from the SET list.
	query := `
        UPDATE tenant_registry
        SET business_name = $2, contact_email = $3, contact_phone = $4,
            contact_address = $5, subscription_plan = $6, updated_at = $7
        WHERE tenant_id = $1
    `

	res, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.BusinessName,
		t.Contact.Email,
		t.Contact.Phone,
		t.Contact.Address,
		t.Plan,
		time.Now().UTC(),
	)
	if err != nil {
		return &domain.DatabaseError{Op: "update tenant", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *TenantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TenantStatus) error {
	query := `UPDATE tenant_registry SET status = $2, updated_at = $3 WHERE tenant_id = $1`

	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return &domain.DatabaseError{Op: "update tenant status", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *TenantRepository) List(ctx context.Context, offset, limit int, statusFilter domain.TenantStatus) ([]*domain.Tenant, int, error) {
	var (
		rows  *sql.Rows
		total int
		err   error
	)

	if statusFilter != "" {
		countQuery := `SELECT COUNT(*) FROM tenant_registry WHERE status = $1`
		if err = r.db.QueryRowContext(ctx, countQuery, statusFilter).Scan(&total); err != nil {
			return nil, 0, &domain.DatabaseError{Op: "count tenants", Err: err}
		}
		query := `SELECT ` + tenantColumns + ` FROM tenant_registry WHERE status = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3`
		rows, err = r.db.QueryContext(ctx, query, statusFilter, offset, limit)
	} else {
		countQuery := `SELECT COUNT(*) FROM tenant_registry`
		if err = r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, &domain.DatabaseError{Op: "count tenants", Err: err}
		}
		query := `SELECT ` + tenantColumns + ` FROM tenant_registry ORDER BY created_at DESC OFFSET $1 LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, offset, limit)
	}
	if err != nil {
		return nil, 0, &domain.DatabaseError{Op: "list tenants", Err: err}
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, &domain.DatabaseError{Op: "scan tenant row", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.DatabaseError{Op: "iterate tenant rows", Err: err}
	}

	return out, total, nil
}

func (r *TenantRepository) FindStalePending(ctx context.Context, olderThan time.Duration) ([]*domain.Tenant, error) {
	query := `
        SELECT ` + tenantColumns + `
        FROM tenant_registry
        WHERE status = $1 AND created_at < $2
        ORDER BY created_at ASC
    `

	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := r.db.QueryContext(ctx, query, domain.StatusPending, cutoff)
	if err != nil {
		return nil, &domain.DatabaseError{Op: "find stale pending tenants", Err: err}
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, &domain.DatabaseError{Op: "scan tenant row", Err: err}
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DatabaseError{Op: "iterate tenant rows", Err: err}
	}

	return out, nil
}
