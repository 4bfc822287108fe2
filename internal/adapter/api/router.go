package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plateful/tenantcore/internal/adapter/api/handler"
	"github.com/plateful/tenantcore/internal/adapter/api/middleware"
)

// NewRouter configures the tenant registry HTTP surface.
//
// POST /tenants and the plan-features lookup are deliberately public:
// registration happens before a tenant has any token, and plan limits
// are not tenant data. Everything under /tenants/{tenantID} passes the
// context resolver and the access guard, in that order.
func NewRouter(
	jwtSecret string,
	logger *slog.Logger,
	guard *middleware.Guard,
	tenantHandler *handler.TenantHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))

	auth := middleware.Auth(jwtSecret, logger)

	// Public carve-out: no tenant context on registration.
	r.Post("/tenants", tenantHandler.Register)
	r.Get("/plans/{plan}/features", tenantHandler.Features)

	// Operator enumeration: authenticated, never tenant-scoped.
	r.With(auth, guard.RequireOperator).Get("/tenants", tenantHandler.List)

	// Tenant-scoped routes: resolver then guard.
	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Use(auth)
		r.Use(guard.Middleware)

		r.Get("/", tenantHandler.Get)
		r.Put("/", tenantHandler.Update)
		r.Delete("/", tenantHandler.Deactivate)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireOperator)
			r.Post("/suspend", tenantHandler.Suspend)
			r.Post("/resume", tenantHandler.Resume)
			r.Delete("/purge", tenantHandler.Purge)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
