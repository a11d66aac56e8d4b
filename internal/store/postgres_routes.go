package store

import (
	"context"

	"github.com/google/uuid"

	"voip-router/internal/models"
)

func (p *Postgres) InboundRouteByDID(ctx context.Context, tenantID uuid.UUID, dids ...string) (*models.InboundRoute, error) {
	raw, normalized := didCandidates(dids)

	var r models.InboundRoute
	var destType, destValue, failType, failValue string
	err := p.db.QueryRow(ctx, `
        SELECT id, tenant_id, name, did_number,
               destination_type, COALESCE(destination_value, ''),
               time_condition_id,
               failover_enabled,
               COALESCE(failover_destination_type, ''), COALESCE(failover_destination_value, ''),
               enabled
        FROM voip.inbound_routes
        WHERE tenant_id = $1
          AND did_number IN ($2, $3)
          AND enabled = TRUE
        ORDER BY created_at, id
        LIMIT 1
    `, tenantID, raw, normalized).Scan(
		&r.ID, &r.TenantID, &r.Name, &r.DIDNumber,
		&destType, &destValue,
		&r.TimeConditionID,
		&r.Failover.Enabled,
		&failType, &failValue,
		&r.Enabled,
	)
	if err != nil {
		return nil, lookupErr("inbound route by did", err)
	}

	if r.Destination, err = models.ParseAction(destType, destValue); err != nil {
		return nil, lookupErr("inbound route destination", err)
	}
	if r.Failover.Enabled && failType != "" {
		if r.Failover.Destination, err = models.ParseAction(failType, failValue); err != nil {
			return nil, lookupErr("inbound route failover", err)
		}
	}
	return &r, nil
}

func (p *Postgres) OutboundRoutes(ctx context.Context, tenantID uuid.UUID) ([]models.OutboundRoute, error) {
	rows, err := p.db.Query(ctx, `
        SELECT id, tenant_id, name, dial_pattern, priority,
               strip_digits, COALESCE(prefix, ''), COALESCE(add_digits, ''),
               trunk_id, failover_trunk_id, enabled, created_at
        FROM voip.outbound_routes
        WHERE tenant_id = $1
          AND enabled = TRUE
        ORDER BY priority ASC, created_at ASC, id ASC
        LIMIT $2
    `, tenantID, maxOutboundRoutes)
	if err != nil {
		return nil, lookupErr("outbound routes", err)
	}
	defer rows.Close()

	var out []models.OutboundRoute
	for rows.Next() {
		var r models.OutboundRoute
		if err := rows.Scan(
			&r.ID, &r.TenantID, &r.Name, &r.DialPattern, &r.Priority,
			&r.StripDigits, &r.Prefix, &r.AddDigits,
			&r.TrunkID, &r.FailoverTrunkID, &r.Enabled, &r.CreatedAt,
		); err != nil {
			return nil, lookupErr("scan outbound route", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, lookupErr("outbound routes", err)
	}
	return out, nil
}

func (p *Postgres) TrunkByID(ctx context.Context, tenantID, trunkID uuid.UUID) (*models.Trunk, error) {
	var t models.Trunk
	err := p.db.QueryRow(ctx, `
        SELECT id, tenant_id, name, COALESCE(gateway_name, ''), enabled, healthy
        FROM voip.trunks
        WHERE tenant_id = $1
          AND id = $2
    `, tenantID, trunkID).Scan(&t.ID, &t.TenantID, &t.Name, &t.GatewayName, &t.Enabled, &t.Healthy)
	if err != nil {
		return nil, lookupErr("trunk by id", err)
	}
	return &t, nil
}
