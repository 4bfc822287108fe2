package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/plateful/tenantcore/internal/domain"
)

const tenantKeyPrefix = "tenant:"

// TenantCache is a read-through cache of tenant records in front of the
// registry. The registry stays the source of truth: every method is
// best-effort and callers fall through to Postgres on miss or error.
type TenantCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewTenantCache(client *redis.Client, logger *slog.Logger, ttl time.Duration) *TenantCache {
	return &TenantCache{
		client: client,
		logger: logger.With("component", "tenant_cache"),
		ttl:    ttl,
	}
}

// Get returns the cached record, or (nil, nil) on a miss.
func (c *TenantCache) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	raw, err := c.client.Get(ctx, tenantKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var t domain.Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		// Corrupt entry: drop it and treat as a miss.
		c.logger.Warn("dropping unreadable cache entry", "tenant_id", id, "error", err)
		c.client.Del(ctx, tenantKeyPrefix+id.String())
		return nil, nil
	}
	return &t, nil
}

func (c *TenantCache) Set(ctx context.Context, t *domain.Tenant) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, tenantKeyPrefix+t.ID.String(), raw, c.ttl).Err()
}

func (c *TenantCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, tenantKeyPrefix+id.String()).Err()
}
