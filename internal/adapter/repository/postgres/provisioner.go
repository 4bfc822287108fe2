package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/plateful/tenantcore/internal/domain"
)

// tenantTables is the fixed table set created inside every tenant schema,
// in dependency order. Every foreign key references a table in the same
// schema; no cross-schema reference is ever emitted.
var tenantTables = []struct {
	name string
	ddl  string // %[1]s is the qualified table, %[2]s the quoted schema
}{
	{"outlets", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            name        TEXT NOT NULL,
            address     TEXT NOT NULL DEFAULT '',
            phone       TEXT NOT NULL DEFAULT '',
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )`},
	{"menu_categories", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            outlet_id   UUID NOT NULL REFERENCES %[2]s."outlets" (id) ON DELETE CASCADE,
            name        TEXT NOT NULL,
            position    INT NOT NULL DEFAULT 0
        )`},
	{"menu_items", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            category_id UUID NOT NULL REFERENCES %[2]s."menu_categories" (id) ON DELETE CASCADE,
            name        TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price_cents BIGINT NOT NULL,
            available   BOOLEAN NOT NULL DEFAULT TRUE
        )`},
	{"dining_tables", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            outlet_id   UUID NOT NULL REFERENCES %[2]s."outlets" (id) ON DELETE CASCADE,
            label       TEXT NOT NULL,
            seats       INT NOT NULL DEFAULT 2
        )`},
	{"staff", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            outlet_id   UUID NOT NULL REFERENCES %[2]s."outlets" (id) ON DELETE CASCADE,
            email       TEXT NOT NULL UNIQUE,
            full_name   TEXT NOT NULL,
            role        TEXT NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )`},
	{"customers", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            email       TEXT NOT NULL DEFAULT '',
            phone       TEXT NOT NULL DEFAULT '',
            full_name   TEXT NOT NULL,
            created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )`},
	{"orders", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            outlet_id   UUID NOT NULL REFERENCES %[2]s."outlets" (id),
            table_id    UUID REFERENCES %[2]s."dining_tables" (id),
            customer_id UUID REFERENCES %[2]s."customers" (id),
            status      TEXT NOT NULL,
            total_cents BIGINT NOT NULL DEFAULT 0,
            placed_at   TIMESTAMPTZ NOT NULL DEFAULT now()
        )`},
	{"order_items", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id           UUID PRIMARY KEY,
            order_id     UUID NOT NULL REFERENCES %[2]s."orders" (id) ON DELETE CASCADE,
            menu_item_id UUID NOT NULL REFERENCES %[2]s."menu_items" (id),
            quantity     INT NOT NULL,
            price_cents  BIGINT NOT NULL
        )`},
	{"inventory_items", `
        CREATE TABLE IF NOT EXISTS %[1]s (
            id          UUID PRIMARY KEY,
            outlet_id   UUID NOT NULL REFERENCES %[2]s."outlets" (id) ON DELETE CASCADE,
            name        TEXT NOT NULL,
            unit        TEXT NOT NULL DEFAULT 'unit',
            quantity    NUMERIC(12,3) NOT NULL DEFAULT 0,
            reorder_at  NUMERIC(12,3) NOT NULL DEFAULT 0,
            updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
        )`},
}

// ProvisionStatements builds the ordered DDL for a tenant schema. The
// schema name must carry the tenant prefix and pass the identifier
// allow-list; everything else is rejected before any SQL is built.
func ProvisionStatements(schemaName string) ([]string, error) {
	if !strings.HasPrefix(schemaName, domain.SchemaPrefix) {
		return nil, fmt.Errorf("schema %q lacks the %q prefix", schemaName, domain.SchemaPrefix)
	}
	quotedSchema, err := SafeIdent(schemaName)
	if err != nil {
		return nil, err
	}

	stmts := make([]string, 0, len(tenantTables)+1)
	stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+quotedSchema)
	for _, tbl := range tenantTables {
		qualified, err := QualifyTable(schemaName, tbl.name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, fmt.Sprintf(tbl.ddl, qualified, quotedSchema))
	}
	return stmts, nil
}

// Provisioner is the only component that executes schema-level DDL.
type Provisioner struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProvisioner(db *sql.DB, logger *slog.Logger) *Provisioner {
	return &Provisioner{db: db, logger: logger.With("component", "provisioner")}
}

// Provision creates the tenant schema and its full table set inside one
// transaction. On any failure the transaction rolls back and no partial
// schema persists. Statements use IF NOT EXISTS so a retry after a crash
// does not trip over objects left by a half-applied earlier attempt.
func (p *Provisioner) Provision(ctx context.Context, schemaName string) error {
	stmts, err := ProvisionStatements(schemaName)
	if err != nil {
		return &domain.ValidationError{Field: "schemaName", Reason: err.Error()}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.DatabaseError{Op: "begin provisioning", Err: err}
	}
	defer tx.Rollback() // no-op after Commit

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			p.logger.Error("provisioning statement failed, rolling back",
				"schema", schemaName, "error", err)
			return &domain.DatabaseError{Op: "provision schema", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.DatabaseError{Op: "commit provisioning", Err: err}
	}

	p.logger.Info("tenant schema provisioned", "schema", schemaName, "tables", len(tenantTables))
	return nil
}

// Deprovision drops the tenant schema and all its contents. Normal
// deactivation never calls this; only the privileged hard-delete path
// does.
func (p *Provisioner) Deprovision(ctx context.Context, schemaName string) error {
	if !strings.HasPrefix(schemaName, domain.SchemaPrefix) {
		return &domain.ValidationError{Field: "schemaName", Reason: "not a tenant schema"}
	}
	quoted, err := SafeIdent(schemaName)
	if err != nil {
		return &domain.ValidationError{Field: "schemaName", Reason: err.Error()}
	}

	if _, err := p.db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+quoted+" CASCADE"); err != nil {
		return &domain.DatabaseError{Op: "drop schema", Err: err}
	}

	p.logger.Info("tenant schema dropped", "schema", schemaName)
	return nil
}

// SchemaExists reports whether the schema is present in the catalog.
// Used by tests and the reaper to verify the atomicity invariant.
func (p *Provisioner) SchemaExists(ctx context.Context, schemaName string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)`,
		schemaName,
	).Scan(&exists)
	if err != nil {
		return false, &domain.DatabaseError{Op: "check schema existence", Err: err}
	}
	return exists, nil
}
