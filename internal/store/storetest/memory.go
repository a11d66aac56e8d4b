// Package storetest provides an in-memory store.Repository for tests.
package storetest

import (
	"context"

	"github.com/google/uuid"

	"voip-router/internal/models"
	"voip-router/internal/store"
)

type Memory struct {
	Tenants        []*models.Tenant
	Extensions     []*models.Extension
	Inbound        []*models.InboundRoute
	Outbound       []models.OutboundRoute
	Trunks         []*models.Trunk
	TimeConditions []*models.TimeCondition
	Menus          []*models.IvrMenu
	// Err, when set, is returned by every lookup.
	Err error
}

var _ store.Repository = (*Memory)(nil)

func (m *Memory) tenantWhere(match func(*models.Tenant) bool) (*models.Tenant, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.Tenants {
		if match(t) {
			return t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *Memory) TenantByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	return m.tenantWhere(func(t *models.Tenant) bool { return t.ID == id })
}

func (m *Memory) TenantByDomain(_ context.Context, domain string) (*models.Tenant, error) {
	return m.tenantWhere(func(t *models.Tenant) bool { return t.Domain == domain })
}

func (m *Memory) TenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	return m.tenantWhere(func(t *models.Tenant) bool { return t.Slug == slug })
}

func (m *Memory) TenantByDID(ctx context.Context, dids ...string) (*models.Tenant, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.Inbound {
		if r.Enabled && contains(dids, r.DIDNumber) {
			return m.tenantWhere(func(t *models.Tenant) bool { return t.ID == r.TenantID })
		}
	}
	return nil, models.ErrNotFound
}

func (m *Memory) ExtensionByNumber(_ context.Context, tenantID uuid.UUID, number string) (*models.Extension, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, e := range m.Extensions {
		if e.TenantID == tenantID && e.Number == number {
			return e, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *Memory) InboundRouteByDID(_ context.Context, tenantID uuid.UUID, dids ...string) (*models.InboundRoute, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, r := range m.Inbound {
		if r.TenantID == tenantID && r.Enabled && contains(dids, r.DIDNumber) {
			return r, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *Memory) OutboundRoutes(_ context.Context, tenantID uuid.UUID) ([]models.OutboundRoute, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.OutboundRoute
	for _, r := range m.Outbound {
		if r.TenantID == tenantID && r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) TrunkByID(_ context.Context, tenantID, trunkID uuid.UUID) (*models.Trunk, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.Trunks {
		if t.TenantID == tenantID && t.ID == trunkID {
			return t, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *Memory) TimeConditionByID(_ context.Context, tenantID, id uuid.UUID) (*models.TimeCondition, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.TimeConditions {
		if c.TenantID == tenantID && c.ID == id {
			return c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *Memory) IvrMenuByExtension(_ context.Context, tenantID uuid.UUID, extension string) (*models.IvrMenu, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, menu := range m.Menus {
		if menu.TenantID == tenantID && menu.Extension == extension && menu.Enabled {
			return menu, nil
		}
	}
	return nil, models.ErrNotFound
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
