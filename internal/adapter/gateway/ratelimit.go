package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/plateful/tenantcore/internal/domain"
)

// Per-tenant request rates by subscription plan, in requests per second.
// The burst is a fixed multiple configured at construction.
var planRates = map[domain.SubscriptionPlan]rate.Limit{
	domain.PlanBasic:      5,
	domain.PlanPremium:    20,
	domain.PlanEnterprise: 100,
}

// TenantLimiter keeps one token bucket per tenant, sized by the tenant's
// plan. Plans come from the shared tenant cache; a miss falls back to
// BASIC, the most restrictive tier, until the cache warms up.
type TenantLimiter struct {
	cache  domain.TenantCache
	logger *slog.Logger
	burst  int

	mu       sync.Mutex
	limiters map[uuid.UUID]*tenantBucket
}

type tenantBucket struct {
	limiter *rate.Limiter
	plan    domain.SubscriptionPlan
}

func NewTenantLimiter(cache domain.TenantCache, logger *slog.Logger, burst int) *TenantLimiter {
	return &TenantLimiter{
		cache:    cache,
		logger:   logger.With("component", "tenant_limiter"),
		burst:    burst,
		limiters: make(map[uuid.UUID]*tenantBucket),
	}
}

// Allow reports whether the tenant may proceed under its plan's rate.
func (l *TenantLimiter) Allow(ctx context.Context, tenantID uuid.UUID) bool {
	plan := l.planFor(ctx, tenantID)

	l.mu.Lock()
	bucket, ok := l.limiters[tenantID]
	if !ok || bucket.plan != plan {
		bucket = &tenantBucket{
			limiter: rate.NewLimiter(planRates[plan], l.burst),
			plan:    plan,
		}
		l.limiters[tenantID] = bucket
	}
	l.mu.Unlock()

	return bucket.limiter.Allow()
}

func (l *TenantLimiter) planFor(ctx context.Context, tenantID uuid.UUID) domain.SubscriptionPlan {
	if l.cache == nil {
		return domain.PlanBasic
	}
	tenant, err := l.cache.Get(ctx, tenantID)
	if err != nil || tenant == nil || !domain.ValidPlan(tenant.Plan) {
		return domain.PlanBasic
	}
	return tenant.Plan
}
