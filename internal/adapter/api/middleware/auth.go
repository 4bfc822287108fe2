package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/domain"
	"github.com/plateful/tenantcore/internal/pkg/token"
)

type ctxKey int

const requestContextKey ctxKey = 0

// TenantHeader carries the gateway-authoritative tenant identity on
// forwarded requests. Downstream services treat it as trusted only
// because the gateway overwrites it from verified claims.
const TenantHeader = "X-Tenant-Id"

// RequestContextFrom returns the resolved request context, if any.
func RequestContextFrom(ctx context.Context) (domain.RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(domain.RequestContext)
	return rc, ok
}

// WithRequestContext attaches a resolved request context. Exposed for
// handler tests.
func WithRequestContext(ctx context.Context, rc domain.RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// Auth is the context resolver: it validates the bearer token and
// derives the caller's tenant identity from its verified claims. A
// request with no determinable caller tenant is rejected with 401 here,
// before anything else runs.
func Auth(secretKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				logger.Warn("missing bearer token", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := token.Validate(strings.TrimPrefix(header, "Bearer "), secretKey)
			if err != nil {
				logger.Warn("invalid token", "path", r.URL.Path, "error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			rc := domain.RequestContext{
				CallerTenantID: claims.TenantID,
				UserID:         claims.UserID,
				Role:           claims.Role,
			}
			if rc.CallerTenantID == uuid.Nil && !rc.Operator() {
				// Token verified but carries no tenant claim.
				logger.Warn("token carries no tenant claim", "user_id", claims.UserID)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
		})
	}
}
