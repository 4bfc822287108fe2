package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/domain"
)

// RegisterRequest carries the caller-supplied fields for a new tenant.
type RegisterRequest struct {
	BusinessName string                  `json:"business_name"`
	Contact      domain.ContactInfo      `json:"contact_info"`
	Plan         domain.SubscriptionPlan `json:"subscription_plan,omitempty"`
}

// RegisterTenantUseCase orchestrates tenant creation: registry insert in
// PENDING, schema provisioning, then activation. The two database steps
// are strictly sequenced; a tenant is never ACTIVE without a committed
// schema.
type RegisterTenantUseCase struct {
	repo             domain.TenantRepository
	provisioner      domain.Provisioner
	cache            domain.TenantCache
	audit            domain.AuditPublisher
	logger           *slog.Logger
	metrics          *metrics.RegistryMetrics
	provisionTimeout time.Duration
	allowDupEmail    bool
}

func NewRegisterTenantUseCase(
	repo domain.TenantRepository,
	provisioner domain.Provisioner,
	cache domain.TenantCache,
	audit domain.AuditPublisher,
	logger *slog.Logger,
	m *metrics.RegistryMetrics,
	provisionTimeout time.Duration,
	allowDupEmail bool,
) *RegisterTenantUseCase {
	return &RegisterTenantUseCase{
		repo:             repo,
		provisioner:      provisioner,
		cache:            cache,
		audit:            audit,
		logger:           logger.With("component", "register_tenant"),
		metrics:          m,
		provisionTimeout: provisionTimeout,
		allowDupEmail:    allowDupEmail,
	}
}

func (uc *RegisterTenantUseCase) validate(req *RegisterRequest) error {
	if req.BusinessName == "" {
		return &domain.ValidationError{Field: "business_name", Reason: "must not be empty"}
	}
	if req.Contact.Email == "" {
		return &domain.ValidationError{Field: "contact_info.email", Reason: "must not be empty"}
	}
	if _, err := mail.ParseAddress(req.Contact.Email); err != nil {
		return &domain.ValidationError{Field: "contact_info.email", Reason: "not a valid email address"}
	}
	if req.Plan == "" {
		req.Plan = domain.PlanBasic
	}
	if !domain.ValidPlan(req.Plan) {
		return &domain.ValidationError{Field: "subscription_plan", Reason: "unknown plan"}
	}
	return nil
}

// Register creates a tenant. The call is synchronous: it does not return
// success until the schema creation transaction has committed and the
// record has been activated.
func (uc *RegisterTenantUseCase) Register(ctx context.Context, req RegisterRequest) (*domain.Tenant, error) {
	if err := uc.validate(&req); err != nil {
		return nil, err
	}

	if !uc.allowDupEmail {
		if _, err := uc.repo.FindByEmail(ctx, req.Contact.Email); err == nil {
			return nil, domain.ErrConflict
		} else if !errors.Is(err, domain.ErrTenantNotFound) {
			return nil, err
		}
	}

	now := time.Now().UTC()
	id := uuid.New()
	tenant := &domain.Tenant{
		ID:           id,
		BusinessName: req.BusinessName,
		Contact:      req.Contact,
		Plan:         req.Plan,
		SchemaName:   domain.SchemaNameFor(id),
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}
	uc.publishAudit(ctx, domain.AuditTenantRegistered, tenant.ID, "plan="+string(tenant.Plan))

	if err := uc.provisionAndActivate(ctx, tenant); err != nil {
		return nil, err
	}

	if err := uc.cache.Set(ctx, tenant); err != nil {
		uc.logger.Warn("failed to warm tenant cache", "tenant_id", tenant.ID, "error", err)
	}
	uc.metrics.TenantsCreated.Inc()

	return tenant, nil
}

// provisionAndActivate runs the DDL transaction and, only after it has
// committed, flips the record to ACTIVE. The DDL runs on a context that
// is detached from request cancellation: an API-boundary timeout must
// never kill a connection mid-transaction with its outcome unresolved.
// On failure the record stays PENDING and the reaper may retry.
func (uc *RegisterTenantUseCase) provisionAndActivate(ctx context.Context, tenant *domain.Tenant) error {
	ddlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.provisionTimeout)
	defer cancel()

	start := time.Now()
	if err := uc.provisioner.Provision(ddlCtx, tenant.SchemaName); err != nil {
		uc.metrics.ProvisionFailures.Inc()
		uc.logger.Error("schema provisioning failed, tenant remains PENDING",
			"tenant_id", tenant.ID, "schema", tenant.SchemaName, "error", err)
		return err
	}
	uc.metrics.ProvisionDuration.Observe(time.Since(start).Seconds())

	if err := uc.repo.UpdateStatus(ddlCtx, tenant.ID, domain.StatusActive); err != nil {
		// The schema exists but the record is still PENDING; the reaper
		// re-runs provisioning idempotently and finishes the activation.
		uc.logger.Error("activation failed after committed provisioning",
			"tenant_id", tenant.ID, "error", err)
		return err
	}
	tenant.Status = domain.StatusActive
	uc.publishAudit(ctx, domain.AuditTenantActivated, tenant.ID, "schema="+tenant.SchemaName)

	return nil
}

func (uc *RegisterTenantUseCase) publishAudit(ctx context.Context, kind domain.AuditKind, tenantID uuid.UUID, detail string) {
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
