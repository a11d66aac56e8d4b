package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"voip-router/internal/models"
)

// ErrStoreUnavailable wraps any failure to reach the backing store in time.
var ErrStoreUnavailable = errors.New("store unavailable")

// maxOutboundRoutes bounds the per-tenant outbound route scan.
const maxOutboundRoutes = 256

// Querier is the subset of *pgxpool.Pool the repositories need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type TenantRepository interface {
	TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	// TenantByDID returns the tenant owning an inbound route for any of the given number forms.
	TenantByDID(ctx context.Context, dids ...string) (*models.Tenant, error)
}

type ExtensionRepository interface {
	ExtensionByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*models.Extension, error)
}

type RouteRepository interface {
	InboundRouteByDID(ctx context.Context, tenantID uuid.UUID, dids ...string) (*models.InboundRoute, error)
	// OutboundRoutes returns enabled routes ordered by priority, created_at, id.
	OutboundRoutes(ctx context.Context, tenantID uuid.UUID) ([]models.OutboundRoute, error)
	TrunkByID(ctx context.Context, tenantID, trunkID uuid.UUID) (*models.Trunk, error)
}

type TimeConditionRepository interface {
	TimeConditionByID(ctx context.Context, tenantID, id uuid.UUID) (*models.TimeCondition, error)
}

type IvrMenuRepository interface {
	IvrMenuByExtension(ctx context.Context, tenantID uuid.UUID, extension string) (*models.IvrMenu, error)
}

// Repository is everything the routing engine reads.
type Repository interface {
	TenantRepository
	ExtensionRepository
	RouteRepository
	TimeConditionRepository
	IvrMenuRepository
}

// Postgres implements Repository on top of a pgx pool.
type Postgres struct {
	db Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

var _ Repository = (*Postgres)(nil)

// lookupErr maps pgx errors onto the engine's taxonomy.
func lookupErr(what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	if errors.Is(err, models.ErrConfigInvalid) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, what, err)
}

// didCandidates de-duplicates number forms so queries can match either.
func didCandidates(dids []string) (string, string) {
	switch len(dids) {
	case 0:
		return "", ""
	case 1:
		return dids[0], dids[0]
	default:
		return dids[0], dids[1]
	}
}
