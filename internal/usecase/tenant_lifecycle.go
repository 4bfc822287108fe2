package usecase

import (
	"context"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/domain"
)

// UpdatePatch carries the whitelisted mutable fields of a tenant record.
// Nil pointers mean "leave unchanged". Identity fields (tenant ID, schema
// name) have no representation here and therefore can never be patched.
type UpdatePatch struct {
	BusinessName *string                  `json:"business_name,omitempty"`
	Contact      *domain.ContactInfo      `json:"contact_info,omitempty"`
	Plan         *domain.SubscriptionPlan `json:"subscription_plan,omitempty"`
}

func (p UpdatePatch) empty() bool {
	return p.BusinessName == nil && p.Contact == nil && p.Plan == nil
}

// ListResult is one page of the operator tenant enumeration.
type ListResult struct {
	Tenants []*domain.Tenant `json:"tenants"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
}

// TenantLifecycleUseCase covers every post-creation tenant operation:
// lookup, update, suspend/resume, deactivate, purge and enumeration.
type TenantLifecycleUseCase struct {
	repo        domain.TenantRepository
	provisioner domain.Provisioner
	cache       domain.TenantCache
	audit       domain.AuditPublisher
	logger      *slog.Logger
	metrics     *metrics.RegistryMetrics
}

func NewTenantLifecycleUseCase(
	repo domain.TenantRepository,
	provisioner domain.Provisioner,
	cache domain.TenantCache,
	audit domain.AuditPublisher,
	logger *slog.Logger,
	m *metrics.RegistryMetrics,
) *TenantLifecycleUseCase {
	return &TenantLifecycleUseCase{
		repo:        repo,
		provisioner: provisioner,
		cache:       cache,
		audit:       audit,
		logger:      logger.With("component", "tenant_lifecycle"),
		metrics:     m,
	}
}

// Get returns the tenant record. Deactivated tenants are invisible to
// normal lookups; they remain in storage for audit only.
func (uc *TenantLifecycleUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	if cached, err := uc.cache.Get(ctx, id); err == nil && cached != nil {
		uc.metrics.CacheHits.Inc()
		if cached.Status == domain.StatusDeactivated {
			return nil, domain.ErrTenantNotFound
		}
		return cached, nil
	} else if err != nil {
		uc.logger.Warn("tenant cache read failed, falling through", "tenant_id", id, "error", err)
	}
	uc.metrics.CacheMisses.Inc()

	tenant, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status == domain.StatusDeactivated {
		return nil, domain.ErrTenantNotFound
	}

	if err := uc.cache.Set(ctx, tenant); err != nil {
		uc.logger.Warn("tenant cache write failed", "tenant_id", id, "error", err)
	}
	return tenant, nil
}

// Update applies a partial update to the whitelisted mutable fields.
func (uc *TenantLifecycleUseCase) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*domain.Tenant, error) {
	if patch.empty() {
		return nil, &domain.ValidationError{Field: "body", Reason: "no updatable fields supplied"}
	}

	tenant, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.BusinessName != nil {
		if *patch.BusinessName == "" {
			return nil, &domain.ValidationError{Field: "business_name", Reason: "must not be empty"}
		}
		tenant.BusinessName = *patch.BusinessName
	}
	if patch.Contact != nil {
		if patch.Contact.Email == "" {
			return nil, &domain.ValidationError{Field: "contact_info.email", Reason: "must not be empty"}
		}
		if _, err := mail.ParseAddress(patch.Contact.Email); err != nil {
			return nil, &domain.ValidationError{Field: "contact_info.email", Reason: "not a valid email address"}
		}
		tenant.Contact = *patch.Contact
	}
	if patch.Plan != nil {
		if !domain.ValidPlan(*patch.Plan) {
			return nil, &domain.ValidationError{Field: "subscription_plan", Reason: "unknown plan"}
		}
		tenant.Plan = *patch.Plan
	}

	if err := uc.repo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	if err := uc.cache.Invalidate(ctx, id); err != nil {
		uc.logger.Warn("cache invalidation failed", "tenant_id", id, "error", err)
	}

	return uc.repo.FindByID(ctx, id)
}

// Deactivate soft-deletes the tenant. The schema is retained for
// compliance and export. Deactivating an already deactivated tenant is a
// no-op success.
func (uc *TenantLifecycleUseCase) Deactivate(ctx context.Context, id uuid.UUID) error {
	tenant, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if tenant.Status == domain.StatusDeactivated {
		return nil
	}

	if err := uc.repo.UpdateStatus(ctx, id, domain.StatusDeactivated); err != nil {
		return err
	}
	if err := uc.cache.Invalidate(ctx, id); err != nil {
		uc.logger.Warn("cache invalidation failed", "tenant_id", id, "error", err)
	}
	uc.publishAudit(ctx, domain.AuditTenantDeactivated, id, "")

	return nil
}

// Suspend pauses an active tenant without touching its data.
func (uc *TenantLifecycleUseCase) Suspend(ctx context.Context, id uuid.UUID) error {
	return uc.transition(ctx, id, domain.StatusActive, domain.StatusSuspended, domain.AuditTenantSuspended)
}

// Resume reactivates a suspended tenant.
func (uc *TenantLifecycleUseCase) Resume(ctx context.Context, id uuid.UUID) error {
	return uc.transition(ctx, id, domain.StatusSuspended, domain.StatusActive, domain.AuditTenantResumed)
}

func (uc *TenantLifecycleUseCase) transition(ctx context.Context, id uuid.UUID, from, to domain.TenantStatus, kind domain.AuditKind) error {
	tenant, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if tenant.Status == domain.StatusDeactivated {
		return domain.ErrTenantNotFound
	}
	if tenant.Status == to {
		return nil
	}
	if tenant.Status != from {
		return &domain.ValidationError{Field: "status", Reason: "tenant is " + string(tenant.Status)}
	}

	if err := uc.repo.UpdateStatus(ctx, id, to); err != nil {
		return err
	}
	if err := uc.cache.Invalidate(ctx, id); err != nil {
		uc.logger.Warn("cache invalidation failed", "tenant_id", id, "error", err)
	}
	uc.publishAudit(ctx, kind, id, "")

	return nil
}

// Purge is the privileged hard delete: the tenant schema is dropped with
// everything in it, and the registry record is deactivated. The registry
// row itself is never physically removed, and the schema name is never
// reused.
func (uc *TenantLifecycleUseCase) Purge(ctx context.Context, id uuid.UUID) error {
	tenant, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.provisioner.Deprovision(ctx, tenant.SchemaName); err != nil {
		return err
	}
	if tenant.Status != domain.StatusDeactivated {
		if err := uc.repo.UpdateStatus(ctx, id, domain.StatusDeactivated); err != nil {
			return err
		}
	}
	if err := uc.cache.Invalidate(ctx, id); err != nil {
		uc.logger.Warn("cache invalidation failed", "tenant_id", id, "error", err)
	}
	uc.publishAudit(ctx, domain.AuditTenantPurged, id, "schema="+tenant.SchemaName)

	return nil
}

// List enumerates tenants for operators. Page numbers start at 1.
func (uc *TenantLifecycleUseCase) List(ctx context.Context, page, limit int, statusFilter domain.TenantStatus) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if statusFilter != "" {
		switch statusFilter {
		case domain.StatusPending, domain.StatusActive, domain.StatusSuspended, domain.StatusDeactivated:
		default:
			return nil, &domain.ValidationError{Field: "status", Reason: "unknown status"}
		}
	}

	tenants, total, err := uc.repo.List(ctx, (page-1)*limit, limit, statusFilter)
	if err != nil {
		return nil, err
	}

	return &ListResult{Tenants: tenants, Total: total, Page: page, Limit: limit}, nil
}

// FeaturesFor exposes the plan limit table to business services.
func (uc *TenantLifecycleUseCase) FeaturesFor(plan domain.SubscriptionPlan) (domain.FeatureLimits, error) {
	if !domain.ValidPlan(plan) {
		return domain.FeatureLimits{}, &domain.ValidationError{Field: "plan", Reason: "unknown plan"}
	}
	return domain.FeaturesFor(plan), nil
}

func (uc *TenantLifecycleUseCase) publishAudit(ctx context.Context, kind domain.AuditKind, tenantID uuid.UUID, detail string) {
	event := domain.AuditEvent{
		ID:         uuid.New(),
		Kind:       kind,
		TenantID:   tenantID,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
	if err := uc.audit.Publish(ctx, event); err != nil {
		uc.logger.Warn("audit publish failed", "kind", kind, "error", err)
	}
}
