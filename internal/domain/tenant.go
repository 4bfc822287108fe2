package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the lifecycle state of a tenant account.
type TenantStatus string

const (
	StatusPending     TenantStatus = "PENDING"
	StatusActive      TenantStatus = "ACTIVE"
	StatusSuspended   TenantStatus = "SUSPENDED"
	StatusDeactivated TenantStatus = "DEACTIVATED"
)

// SubscriptionPlan selects the feature limits applied to a tenant.
type SubscriptionPlan string

const (
	PlanBasic      SubscriptionPlan = "BASIC"
	PlanPremium    SubscriptionPlan = "PREMIUM"
	PlanEnterprise SubscriptionPlan = "ENTERPRISE"
)

// ValidPlan reports whether p is one of the known subscription plans.
func ValidPlan(p SubscriptionPlan) bool {
	switch p {
	case PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// ContactInfo holds the business contact details for a tenant.
type ContactInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// Tenant represents one isolated restaurant business account. It is the
// unit of data isolation: every tenant owns exactly one database schema,
// named deterministically from its ID and never reused.
type Tenant struct {
	ID           uuid.UUID        `json:"tenant_id"`
	BusinessName string           `json:"business_name"`
	Contact      ContactInfo      `json:"contact_info"`
	Plan         SubscriptionPlan `json:"subscription_plan"`
	SchemaName   string           `json:"schema_name"`
	Status       TenantStatus     `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// FeatureLimits are the plan-derived caps enforced by the business services.
// A zero value for MaxOutlets or MaxStaff means unlimited.
type FeatureLimits struct {
	MaxOutlets    int  `json:"max_outlets"`
	MaxStaff      int  `json:"max_staff"`
	CustomReports bool `json:"custom_reports"`
}

// Unlimited marks a limit field as uncapped.
const Unlimited = 0

// FeaturesFor maps a subscription plan to its fixed feature limits.
// Unknown plans get BASIC limits.
func FeaturesFor(plan SubscriptionPlan) FeatureLimits {
	switch plan {
	case PlanPremium:
		return FeatureLimits{MaxOutlets: 5, MaxStaff: 50, CustomReports: true}
	case PlanEnterprise:
		return FeatureLimits{MaxOutlets: Unlimited, MaxStaff: Unlimited, CustomReports: true}
	default:
		return FeatureLimits{MaxOutlets: 1, MaxStaff: 10, CustomReports: false}
	}
}

// SchemaPrefix is the fixed prefix of every per-tenant schema name.
const SchemaPrefix = "tenant_"

// SchemaNameFor derives the schema name for a tenant ID. The derivation is
// a pure function of the ID: two creation flows never need to coordinate,
// and uniqueness of the ID structurally guarantees uniqueness of the name.
// The UUID's hyphens are stripped so the result is a plain SQL identifier.
func SchemaNameFor(id uuid.UUID) string {
	return SchemaPrefix + strings.ReplaceAll(id.String(), "-", "")
}
