package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"voip-router/internal/models"
)

const tenantColumns = `t.id, t.name, t.slug, t.sip_domain, t.status, t.created_at`

func scanTenant(row pgx.Row) (*models.Tenant, error) {
	var t models.Tenant
	var status string
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Domain, &status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = models.TenantStatus(status)
	return &t, nil
}

func (p *Postgres) TenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, err := scanTenant(p.db.QueryRow(ctx, `
        SELECT `+tenantColumns+`
        FROM voip.tenants t
        WHERE t.id = $1
    `, id))
	if err != nil {
		return nil, lookupErr("tenant by id", err)
	}
	return t, nil
}

func (p *Postgres) TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	t, err := scanTenant(p.db.QueryRow(ctx, `
        SELECT `+tenantColumns+`
        FROM voip.tenants t
        WHERE t.sip_domain = $1
        LIMIT 1
    `, domain))
	if err != nil {
		return nil, lookupErr("tenant by domain", err)
	}
	return t, nil
}

func (p *Postgres) TenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	t, err := scanTenant(p.db.QueryRow(ctx, `
        SELECT `+tenantColumns+`
        FROM voip.tenants t
        WHERE t.slug = $1
        LIMIT 1
    `, slug))
	if err != nil {
		return nil, lookupErr("tenant by slug", err)
	}
	return t, nil
}

func (p *Postgres) TenantByDID(ctx context.Context, dids ...string) (*models.Tenant, error) {
	raw, normalized := didCandidates(dids)
	t, err := scanTenant(p.db.QueryRow(ctx, `
        SELECT `+tenantColumns+`
        FROM voip.tenants t
        JOIN voip.inbound_routes r ON r.tenant_id = t.id
        WHERE r.did_number IN ($1, $2)
          AND r.enabled = TRUE
        ORDER BY r.created_at, r.id
        LIMIT 1
    `, raw, normalized))
	if err != nil {
		return nil, lookupErr("tenant by did", err)
	}
	return t, nil
}

func (p *Postgres) ExtensionByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*models.Extension, error) {
	var e models.Extension
	var status string
	err := p.db.QueryRow(ctx, `
        SELECT id, tenant_id, extension, password, COALESCE(display_name, ''), status
        FROM voip.extensions
        WHERE tenant_id = $1
          AND extension = $2
        LIMIT 1
    `, tenantID, number).Scan(&e.ID, &e.TenantID, &e.Number, &e.Secret, &e.DisplayName, &status)
	if err != nil {
		return nil, lookupErr("extension by number", err)
	}
	e.Status = models.ExtensionStatus(status)
	return &e, nil
}
