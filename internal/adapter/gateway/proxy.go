package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/plateful/tenantcore/internal/adapter/api/middleware"
	"github.com/plateful/tenantcore/internal/adapter/metrics"
	"github.com/plateful/tenantcore/internal/pkg/token"
)

// Router is the single network entry point. It resolves the target
// logical service from the first path segment, attaches the verified
// tenant context, and forwards to a healthy backend instance.
type Router struct {
	registry  *ServiceRegistry
	limiter   *TenantLimiter
	logger    *slog.Logger
	metrics   *metrics.GatewayMetrics
	jwtSecret string

	// transport is swappable in tests.
	transport http.RoundTripper
}

func NewRouter(
	registry *ServiceRegistry,
	limiter *TenantLimiter,
	logger *slog.Logger,
	m *metrics.GatewayMetrics,
	jwtSecret string,
) *Router {
	return &Router{
		registry:  registry,
		limiter:   limiter,
		logger:    logger.With("component", "gateway_router"),
		metrics:   m,
		jwtSecret: jwtSecret,
		transport: http.DefaultTransport,
	}
}

// WithTransport replaces the proxy transport. Used by tests.
func (rt *Router) WithTransport(t http.RoundTripper) *Router {
	rt.transport = t
	return rt
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// splitService returns the logical service name (first path segment)
// and the remaining path forwarded to the backend.
func splitService(path string) (service, rest string) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "/"
	}
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i:]
	}
	return trimmed, "/"
}

// isPublic reports whether the route bypasses tenant-context attachment.
// Tenant registration and login happen before any token exists; this is
// a deliberate carve-out, limited to exactly these routes.
func isPublic(service, rest string, method string) bool {
	switch service {
	case "auth":
		return true
	case "tenants":
		return method == http.MethodPost && rest == "/"
	}
	return false
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	service, rest := splitService(r.URL.Path)
	if service == "" || !rt.registry.Known(service) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown route"})
		return
	}

	// A caller-supplied tenant header is never trusted. It is dropped
	// here and, on protected routes, replaced from verified claims.
	suppliedHeader := r.Header.Get(middleware.TenantHeader)
	r.Header.Del(middleware.TenantHeader)

	if !isPublic(service, rest, r.Method) {
		claims, err := rt.authenticate(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		if claims.TenantID != uuid.Nil {
			r.Header.Set(middleware.TenantHeader, claims.TenantID.String())
			if suppliedHeader != "" && suppliedHeader != claims.TenantID.String() {
				rt.metrics.HeaderRewrites.Inc()
				rt.logger.Warn("overwrote spoofed tenant header",
					"supplied", suppliedHeader,
					"verified_tenant_id", claims.TenantID,
					"user_id", claims.UserID,
					"path", r.URL.Path,
				)
			}

			if rt.limiter != nil && !rt.limiter.Allow(r.Context(), claims.TenantID) {
				rt.metrics.RateLimited.Inc()
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
		}
	}

	target, err := rt.registry.Pick(service)
	if err != nil {
		rt.metrics.NoBackendErrors.WithLabelValues(service).Inc()
		rt.logger.Error("no healthy backend", "service", service)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "service unavailable",
			"service": service,
		})
		return
	}

	rt.forward(w, r, service, target, rest)
}

var errMissingToken = errors.New("missing bearer token")

func (rt *Router) authenticate(r *http.Request) (*token.Claims, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, errMissingToken
	}
	return token.Validate(strings.TrimPrefix(header, "Bearer "), rt.jwtSecret)
}

func (rt *Router) forward(w http.ResponseWriter, r *http.Request, service string, target *url.URL, rest string) {
	proxy := &httputil.ReverseProxy{
		Transport: rt.transport,
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.URL.Path = rest
			req.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			rt.logger.Error("backend request failed",
				"service", service, "instance", target.Host, "error", err)
			rt.metrics.ProxiedRequests.WithLabelValues(service, "5xx").Inc()
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error":   "bad gateway",
				"service": service,
			})
		},
		ModifyResponse: func(resp *http.Response) error {
			rt.metrics.ProxiedRequests.WithLabelValues(service, statusClass(resp.StatusCode)).Inc()
			return nil
		},
	}

	proxy.ServeHTTP(w, r)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
