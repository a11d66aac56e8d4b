package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"voip-router/internal/models"
)

// countingRepo answers tenant lookups from a fixed tenant. calls counts key
// lookups and byID counts reads by primary key.
type countingRepo struct {
	Repository
	tenant *models.Tenant
	calls  int
	byID   int
}

func (r *countingRepo) TenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.byID++
	if r.tenant == nil || id != r.tenant.ID {
		return nil, models.ErrNotFound
	}
	return r.tenant, nil
}

func (r *countingRepo) TenantByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	r.calls++
	if domain != r.tenant.Domain {
		return nil, models.ErrNotFound
	}
	return r.tenant, nil
}

func (r *countingRepo) TenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	r.calls++
	if slug != r.tenant.Slug {
		return nil, models.ErrNotFound
	}
	return r.tenant, nil
}

func (r *countingRepo) TenantByDID(_ context.Context, _ ...string) (*models.Tenant, error) {
	r.calls++
	return r.tenant, nil
}

func newCache(t *testing.T) (*TenantCache, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{tenant: &models.Tenant{
		ID:     uuid.New(),
		Name:   "Acme",
		Slug:   "acme",
		Domain: "acme.example.com",
		Status: models.TenantStatusActive,
	}}
	return NewTenantCache(repo, client, 30*time.Second), repo, mr
}

func TestTenantCacheReadThrough(t *testing.T) {
	t.Parallel()
	cache, repo, mr := newCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.TenantByDomain(ctx, "acme.example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID != repo.tenant.ID || got.Status != models.TenantStatusActive {
			t.Fatalf("unexpected tenant %+v", got)
		}
	}
	if repo.calls != 1 || repo.byID != 2 {
		t.Fatalf("expected one key lookup and two reads by id, got %d and %d", repo.calls, repo.byID)
	}
	if ttl := mr.TTL("tenant:domain:acme.example.com"); ttl != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %s", ttl)
	}
	if v, _ := mr.Get("tenant:domain:acme.example.com"); v != repo.tenant.ID.String() {
		t.Fatalf("expected only the tenant id cached, got %q", v)
	}

	mr.FastForward(31 * time.Second)
	if _, err := cache.TenantByDomain(ctx, "acme.example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("expected reload after expiry, got %d lookups", repo.calls)
	}
}

func TestTenantCacheDoesNotCacheMisses(t *testing.T) {
	t.Parallel()
	cache, repo, mr := newCache(t)

	for i := 0; i < 2; i++ {
		if _, err := cache.TenantBySlug(context.Background(), "nobody"); !errors.Is(err, models.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if repo.calls != 2 {
		t.Fatalf("expected every miss to reach the store, got %d", repo.calls)
	}
	if mr.Exists("tenant:slug:nobody") {
		t.Fatal("miss must not be cached")
	}
}

func TestTenantCacheFallsBackWhenRedisDown(t *testing.T) {
	t.Parallel()
	cache, repo, mr := newCache(t)
	mr.Close()

	got, err := cache.TenantByDID(context.Background(), "0612345678", "612345678")
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if got.Slug != "acme" || repo.calls != 1 {
		t.Fatalf("unexpected result %+v after %d lookups", got, repo.calls)
	}
}

func TestTenantCacheSeesStatusChanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		change     func(repo *countingRepo)
		wantStatus models.TenantStatus
		wantErr    error
		wantCalls  int
	}{
		{
			name: "suspended after caching",
			change: func(repo *countingRepo) {
				suspended := *repo.tenant
				suspended.Status = models.TenantStatusSuspended
				repo.tenant = &suspended
			},
			wantStatus: models.TenantStatusSuspended,
			wantCalls:  1,
		},
		{
			name:      "deleted after caching",
			change:    func(repo *countingRepo) { repo.tenant = &models.Tenant{ID: uuid.New(), Domain: "elsewhere.example.com"} },
			wantErr:   models.ErrNotFound,
			wantCalls: 2,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cache, repo, mr := newCache(t)
			ctx := context.Background()

			if _, err := cache.TenantByDomain(ctx, "acme.example.com"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tc.change(repo)

			got, err := cache.TenantByDomain(ctx, "acme.example.com")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && got.Status != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, got.Status)
			}
			if tc.wantErr != nil && mr.Exists("tenant:domain:acme.example.com") {
				t.Fatal("stale mapping must be dropped")
			}
			if repo.calls != tc.wantCalls {
				t.Fatalf("expected %d key lookups, got %d", tc.wantCalls, repo.calls)
			}
		})
	}
}
