package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/domain"
)

// TenantResolver looks up a tenant for guard-time status checks. The
// lifecycle usecase satisfies this.
type TenantResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// Guard enforces the access-guard invariant on tenant-scoped routes: the
// caller's tenant must equal the tenant addressed by the {tenantID} URL
// parameter. The identity comparison runs first, with zero queries, so a
// cross-tenant request is denied before any tenant-scoped SQL could be
// issued. Only requests that pass the comparison touch the registry, to
// reject unknown, deactivated or suspended tenants.
type Guard struct {
	resolver TenantResolver
	audit    domain.AuditPublisher
	logger   *slog.Logger
	metrics  *metrics.RegistryMetrics
}

func NewGuard(resolver TenantResolver, audit domain.AuditPublisher, logger *slog.Logger, m *metrics.RegistryMetrics) *Guard {
	return &Guard{
		resolver: resolver,
		audit:    audit,
		logger:   logger.With("component", "access_guard"),
		metrics:  m,
	}
}

// Middleware wires the guard into a chi route carrying a {tenantID}
// parameter.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := RequestContextFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		resourceID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}
		rc.ResourceTenantID = resourceID

		if !rc.Allowed() {
			// Cross-tenant attempt: denied on the identity comparison
			// alone, and logged as a security event distinct from an
			// ordinary 404.
			g.metrics.CrossTenantDenied.Inc()
			g.publish(r.Context(), domain.AuditCrossTenantDenied, rc, r.URL.Path)
			g.logger.Warn("cross-tenant access denied",
				"caller_tenant_id", rc.CallerTenantID,
				"resource_tenant_id", rc.ResourceTenantID,
				"user_id", rc.UserID,
				"path", r.URL.Path,
			)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if !rc.Operator() {
			tenant, err := g.resolver.Get(r.Context(), resourceID)
			if err != nil {
				if errors.Is(err, domain.ErrTenantNotFound) {
					g.metrics.UnknownTenantDenied.Inc()
					g.publish(r.Context(), domain.AuditUnknownTenant, rc, r.URL.Path)
					g.logger.Warn("unknown tenant",
						"resource_tenant_id", resourceID, "path", r.URL.Path)
					http.Error(w, "tenant not found", http.StatusNotFound)
					return
				}
				g.logger.Error("tenant resolution failed", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if tenant.Status == domain.StatusSuspended {
				http.Error(w, "tenant suspended", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
	})
}

// RequireOperator restricts a route to platform operators.
func (g *Guard) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, ok := RequestContextFrom(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if !rc.Operator() {
			g.metrics.CrossTenantDenied.Inc()
			g.publish(r.Context(), domain.AuditCrossTenantDenied, rc, r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) publish(ctx context.Context, kind domain.AuditKind, rc domain.RequestContext, path string) {
	event := domain.AuditEvent{
		ID:         uuid.New(),
		Kind:       kind,
		TenantID:   rc.ResourceTenantID,
		CallerID:   rc.CallerTenantID,
		UserID:     rc.UserID,
		Detail:     path,
		OccurredAt: time.Now().UTC(),
	}
	if err := g.audit.Publish(ctx, event); err != nil {
		g.logger.Warn("audit publish failed", "kind", kind, "error", err)
	}
}
