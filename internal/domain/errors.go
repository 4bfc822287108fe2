package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is returned for unknown or deactivated tenants.
	// Deactivated records stay in storage for audit but are invisible to
	// normal lookups.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrConflict is returned when a registration collides with an
	// existing non-deactivated tenant (same contact email).
	ErrConflict = errors.New("tenant already registered")

	// ErrUnauthorized is returned when no caller tenant identity can be
	// determined for a protected route.
	ErrUnauthorized = errors.New("missing or invalid tenant identity")

	// ErrForbidden is returned when the caller's tenant does not match
	// the tenant of the addressed resource. It must be raised before any
	// tenant-scoped query runs.
	ErrForbidden = errors.New("cross-tenant access denied")

	// ErrServiceUnavailable is returned by the gateway when no healthy
	// backend instance exists for the target service.
	ErrServiceUnavailable = errors.New("no healthy backend available")
)

// ValidationError reports a rejected input field. It never reaches the
// database layer; handlers translate it to a 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DatabaseError wraps a storage or DDL failure. The wrapped error is kept
// for logs; handlers translate it to a 500 without leaking detail.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
