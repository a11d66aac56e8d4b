package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"voip-router/internal/models"
)

// TenantCache is a read-through redis cache in front of the tenant lookups.
// It only remembers which tenant id a domain, slug or DID maps to; the
// tenant itself is read by id on every request so status changes apply at
// once. A cache that cannot be reached never fails a request.
type TenantCache struct {
	Repository
	client *redis.Client
	ttl    time.Duration
}

func NewTenantCache(inner Repository, client *redis.Client, ttl time.Duration) *TenantCache {
	return &TenantCache{Repository: inner, client: client, ttl: ttl}
}

func (c *TenantCache) TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	return c.readThrough(ctx, "tenant:domain:"+domain, func() (*models.Tenant, error) {
		return c.Repository.TenantByDomain(ctx, domain)
	})
}

func (c *TenantCache) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return c.readThrough(ctx, "tenant:slug:"+slug, func() (*models.Tenant, error) {
		return c.Repository.TenantBySlug(ctx, slug)
	})
}

func (c *TenantCache) TenantByDID(ctx context.Context, dids ...string) (*models.Tenant, error) {
	raw, normalized := didCandidates(dids)
	key := fmt.Sprintf("tenant:did:%s:%s", raw, normalized)
	return c.readThrough(ctx, key, func() (*models.Tenant, error) {
		return c.Repository.TenantByDID(ctx, dids...)
	})
}

func (c *TenantCache) readThrough(ctx context.Context, key string, load func() (*models.Tenant, error)) (*models.Tenant, error) {
	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		id, perr := uuid.Parse(val)
		if perr != nil {
			slog.Warn("tenant cache entry unreadable", "key", key)
			break
		}
		t, err := c.Repository.TenantByID(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		// Tenant was deleted; drop the mapping and look the key up again.
		if err := c.client.Del(ctx, key).Err(); err != nil {
			slog.Warn("tenant cache delete failed", "key", key, "error", err)
		}
	case errors.Is(err, redis.Nil):
	default:
		slog.Warn("tenant cache get failed", "key", key, "error", err)
	}

	t, err := load()
	if err != nil {
		return nil, err
	}

	if err := c.client.Set(ctx, key, t.ID.String(), c.ttl).Err(); err != nil {
		slog.Warn("tenant cache set failed", "key", key, "error", err)
	}
	return t, nil
}
