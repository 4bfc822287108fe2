package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/domain"
)

// PendingReaper reconciles tenants stuck in PENDING after a failed or
// interrupted provisioning. Provisioning is idempotent-safe, so the
// reaper simply re-runs it and finishes the activation. Tenants that
// keep failing past maxRetries are left PENDING and flagged for an
// operator; schemas are never dropped automatically.
type PendingReaper struct {
	repo        domain.TenantRepository
	provisioner domain.Provisioner
	audit       domain.AuditPublisher
	logger      *slog.Logger
	metrics     *metrics.RegistryMetrics

	pendingTTL time.Duration
	interval   time.Duration
	maxRetries int

	mu      sync.Mutex
	retries map[uuid.UUID]int
}

func NewPendingReaper(
	repo domain.TenantRepository,
	provisioner domain.Provisioner,
	audit domain.AuditPublisher,
	logger *slog.Logger,
	m *metrics.RegistryMetrics,
	pendingTTL, interval time.Duration,
	maxRetries int,
) *PendingReaper {
	return &PendingReaper{
		repo:        repo,
		provisioner: provisioner,
		audit:       audit,
		logger:      logger.With("component", "pending_reaper"),
		metrics:     m,
		pendingTTL:  pendingTTL,
		interval:    interval,
		maxRetries:  maxRetries,
		retries:     make(map[uuid.UUID]int),
	}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (r *PendingReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting stale-PENDING reaper",
		"pending_ttl", r.pendingTTL, "interval", r.interval, "max_retries", r.maxRetries)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping stale-PENDING reaper")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one reconciliation pass. Exposed for tests.
func (r *PendingReaper) Sweep(ctx context.Context) {
	stale, err := r.repo.FindStalePending(ctx, r.pendingTTL)
	if err != nil {
		r.logger.Error("failed to list stale PENDING tenants", "error", err)
		return
	}

	for _, tenant := range stale {
		if r.exhausted(tenant.ID) {
			continue
		}
		r.retry(ctx, tenant)
	}
}

func (r *PendingReaper) exhausted(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retries[id] >= r.maxRetries
}

func (r *PendingReaper) recordAttempt(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries[id]++
	return r.retries[id]
}

func (r *PendingReaper) retry(ctx context.Context, tenant *domain.Tenant) {
	attempt := r.recordAttempt(tenant.ID)
	r.metrics.StalePendingReaped.Inc()
	r.logger.Info("retrying provisioning for stale PENDING tenant",
		"tenant_id", tenant.ID, "schema", tenant.SchemaName, "attempt", attempt)

	if err := r.provisioner.Provision(ctx, tenant.SchemaName); err != nil {
		r.metrics.ProvisionFailures.Inc()
		if attempt >= r.maxRetries {
			// Left for the operator: the record stays PENDING, visible
			// via the list endpoint's status filter.
			r.logger.Error("provisioning retries exhausted, operator action required",
				"tenant_id", tenant.ID, "schema", tenant.SchemaName, "error", err)
		} else {
			r.logger.Warn("provisioning retry failed",
				"tenant_id", tenant.ID, "attempt", attempt, "error", err)
		}
		return
	}

	if err := r.repo.UpdateStatus(ctx, tenant.ID, domain.StatusActive); err != nil {
		r.logger.Error("activation failed after reaper provisioning",
			"tenant_id", tenant.ID, "error", err)
		return
	}

	r.mu.Lock()
	delete(r.retries, tenant.ID)
	r.mu.Unlock()

	event := domain.AuditEvent{
		ID:         uuid.New(),
		Kind:       domain.AuditTenantActivated,
		TenantID:   tenant.ID,
		Detail:     "activated by reaper",
		OccurredAt: time.Now().UTC(),
	}
	if err := r.audit.Publish(ctx, event); err != nil {
		r.logger.Warn("audit publish failed", "error", err)
	}
	r.logger.Info("stale PENDING tenant recovered", "tenant_id", tenant.ID)
}
