package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistryMetrics holds Prometheus metrics for the tenant registry service.
type RegistryMetrics struct {
	TenantsCreated      prometheus.Counter
	ProvisionFailures   prometheus.Counter
	ProvisionDuration   prometheus.Histogram
	StalePendingReaped  prometheus.Counter
	CrossTenantDenied   prometheus.Counter
	UnknownTenantDenied prometheus.Counter
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
}

// NewRegistryMetrics initializes and registers the registry metrics.
func NewRegistryMetrics() *RegistryMetrics {
	return &RegistryMetrics{
		TenantsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "registry",
			Name:      "tenants_created_total",
			Help:      "Total number of tenants successfully created and activated.",
		}),
		ProvisionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "provisioner",
			Name:      "failures_total",
			Help:      "Total number of schema provisioning attempts that rolled back.",
		}),
		ProvisionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tenantcore",
			Subsystem: "provisioner",
			Name:      "duration_seconds",
			Help:      "Duration of schema provisioning transactions.",
			Buckets:   prometheus.DefBuckets,
		}),
		StalePendingReaped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "provisioner",
			Name:      "stale_pending_retries_total",
			Help:      "Total number of stale PENDING tenants retried by the reaper.",
		}),
		CrossTenantDenied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "guard",
			Name:      "cross_tenant_denied_total",
			Help:      "Total number of requests denied for addressing another tenant's resources.",
		}),
		UnknownTenantDenied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "guard",
			Name:      "unknown_tenant_denied_total",
			Help:      "Total number of requests denied for an unknown or deactivated tenant.",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "cache",
			Name:      "tenant_hits_total",
			Help:      "Total number of tenant lookups served from the cache.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "cache",
			Name:      "tenant_misses_total",
			Help:      "Total number of tenant lookups that fell through to the registry.",
		}),
	}
}

// GatewayMetrics holds Prometheus metrics for the gateway router.
type GatewayMetrics struct {
	ProxiedRequests *prometheus.CounterVec
	BackendHealthy  *prometheus.GaugeVec
	NoBackendErrors *prometheus.CounterVec
	RateLimited     prometheus.Counter
	HeaderRewrites  prometheus.Counter
}

// NewGatewayMetrics initializes and registers the gateway metrics.
func NewGatewayMetrics() *GatewayMetrics {
	return &GatewayMetrics{
		ProxiedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "gateway",
			Name:      "proxied_requests_total",
			Help:      "Total number of proxied requests by service and status class.",
		}, []string{"service", "status"}),
		BackendHealthy: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tenantcore",
			Subsystem: "gateway",
			Name:      "backend_healthy",
			Help:      "Whether a backend instance is currently selectable (1) or ejected (0).",
		}, []string{"service", "instance"}),
		NoBackendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "gateway",
			Name:      "no_backend_errors_total",
			Help:      "Total number of requests failed fast because no healthy backend existed.",
		}, []string{"service"}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "gateway",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the per-tenant rate limiter.",
		}),
		HeaderRewrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "tenantcore",
			Subsystem: "gateway",
			Name:      "tenant_header_rewrites_total",
			Help:      "Total number of caller-supplied tenant headers overwritten from verified claims.",
		}),
	}
}
