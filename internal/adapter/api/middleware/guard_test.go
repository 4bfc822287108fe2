package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/domain/mocks"
)

var testMetrics = metrics.NewRegistryMetrics()

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// countingResolver counts lookups so tests can assert that denied
// requests issue zero queries.
type countingResolver struct {
	tenants map[uuid.UUID]*domain.Tenant
	calls   int
}

func (r *countingResolver) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	r.calls++
	t, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func guardedRouter(guard *Guard, rc domain.RequestContext, handlerCalled *bool) http.Handler {
	r := chi.NewRouter()
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(WithRequestContext(req.Context(), rc)))
			})
		})
		r.Use(guard.Middleware)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			*handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func TestGuard(t *testing.T) {
	callerID := uuid.New()
	otherID := uuid.New()

	activeTenant := &domain.Tenant{ID: callerID, Status: domain.StatusActive}

	t.Run("Same Tenant Allowed", func(t *testing.T) {
		resolver := &countingResolver{tenants: map[uuid.UUID]*domain.Tenant{callerID: activeTenant}}
		auditPub := &mocks.MockAuditPublisher{}
		guard := NewGuard(resolver, auditPub, testLogger, testMetrics)

		var handlerCalled bool
		rc := domain.RequestContext{CallerTenantID: callerID, Role: domain.RoleOwner}
		router := guardedRouter(guard, rc, &handlerCalled)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+callerID.String(), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !handlerCalled {
			t.Error("handler not reached")
		}
	})

	t.Run("Cross Tenant Denied Before Any Query", func(t *testing.T) {
		resolver := &countingResolver{tenants: map[uuid.UUID]*domain.Tenant{callerID: activeTenant}}
		auditPub := &mocks.MockAuditPublisher{}
		guard := NewGuard(resolver, auditPub, testLogger, testMetrics)

		var handlerCalled bool
		rc := domain.RequestContext{CallerTenantID: callerID, Role: domain.RoleOwner}
		router := guardedRouter(guard, rc, &handlerCalled)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+otherID.String(), nil))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		if handlerCalled {
			t.Error("handler must not run on a denied request")
		}
		if resolver.calls != 0 {
			t.Errorf("expected 0 lookups on a cross-tenant denial, got %d", resolver.calls)
		}
		if len(auditPub.EventsOfKind(domain.AuditCrossTenantDenied)) != 1 {
			t.Error("expected a cross-tenant security event")
		}
		if len(auditPub.EventsOfKind(domain.AuditUnknownTenant)) != 0 {
			t.Error("cross-tenant denial must not be logged as unknown tenant")
		}
	})

	t.Run("Unknown Tenant Is Distinct From Cross Tenant", func(t *testing.T) {
		resolver := &countingResolver{tenants: map[uuid.UUID]*domain.Tenant{}}
		auditPub := &mocks.MockAuditPublisher{}
		guard := NewGuard(resolver, auditPub, testLogger, testMetrics)

		var handlerCalled bool
		rc := domain.RequestContext{CallerTenantID: callerID, Role: domain.RoleOwner}
		router := guardedRouter(guard, rc, &handlerCalled)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+callerID.String(), nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if handlerCalled {
			t.Error("handler must not run for an unknown tenant")
		}
		if len(auditPub.EventsOfKind(domain.AuditUnknownTenant)) != 1 {
			t.Error("expected an unknown-tenant security event")
		}
		if len(auditPub.EventsOfKind(domain.AuditCrossTenantDenied)) != 0 {
			t.Error("unknown tenant must not be logged as cross-tenant")
		}
	})

	t.Run("Suspended Tenant Denied", func(t *testing.T) {
		suspended := &domain.Tenant{ID: callerID, Status: domain.StatusSuspended}
		resolver := &countingResolver{tenants: map[uuid.UUID]*domain.Tenant{callerID: suspended}}
		guard := NewGuard(resolver, &mocks.MockAuditPublisher{}, testLogger, testMetrics)

		var handlerCalled bool
		rc := domain.RequestContext{CallerTenantID: callerID, Role: domain.RoleOwner}
		router := guardedRouter(guard, rc, &handlerCalled)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+callerID.String(), nil))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("Operator Bypasses Tenant Equality", func(t *testing.T) {
		resolver := &countingResolver{tenants: map[uuid.UUID]*domain.Tenant{}}
		guard := NewGuard(resolver, &mocks.MockAuditPublisher{}, testLogger, testMetrics)

		var handlerCalled bool
		rc := domain.RequestContext{UserID: uuid.New(), Role: domain.RoleOperator}
		router := guardedRouter(guard, rc, &handlerCalled)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+otherID.String(), nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if resolver.calls != 0 {
			t.Error("operator access must not trigger a tenant-status lookup")
		}
	})

	t.Run("Missing Context Unauthorized", func(t *testing.T) {
		guard := NewGuard(&countingResolver{}, &mocks.MockAuditPublisher{}, testLogger, testMetrics)

		r := chi.NewRouter()
		r.With(guard.Middleware).Get("/tenants/{tenantID}", func(w http.ResponseWriter, req *http.Request) {})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+uuid.NewString(), nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestRequireOperator(t *testing.T) {
	guard := NewGuard(&countingResolver{}, &mocks.MockAuditPublisher{}, testLogger, testMetrics)

	router := chi.NewRouter()
	router.With(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rc := domain.RequestContext{CallerTenantID: uuid.New(), Role: domain.RoleOwner}
			next.ServeHTTP(w, req.WithContext(WithRequestContext(req.Context(), rc)))
		})
	}, guard.RequireOperator).Get("/tenants", func(w http.ResponseWriter, req *http.Request) {})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-operator, got %d", rec.Code)
	}
}
