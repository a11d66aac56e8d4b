package trunkhealth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Report is one health observation for a tenant trunk. Exactly one of
// TrunkID and Gateway identifies the trunk.
type Report struct {
	TenantID uuid.UUID
	TrunkID  *uuid.UUID
	Gateway  string
	Healthy  bool
}

// payload accepts both the plain JSON report and a FreeSWITCH gateway
// event serialized as JSON.
type payload struct {
	TenantID string `json:"tenant_id"`
	TrunkID  string `json:"trunk_id"`
	Gateway  string `json:"gateway"`
	Healthy  *bool  `json:"healthy"`

	EventGateway  string `json:"Gateway"`
	EventState    string `json:"State"`
	PingStatus    string `json:"Ping-Status"`
	EventTenantID string `json:"variable_tenant_id"`
}

// TxStarter is the minimal interface needed from a pgx pool for Apply.
type TxStarter interface {
	BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error)
}

var (
	// ErrInvalidReport is returned when the payload cannot be understood.
	ErrInvalidReport = errors.New("invalid trunk health report")
	// ErrUnknownTrunk is returned when no trunk of the tenant matches.
	ErrUnknownTrunk = errors.New("unknown trunk")
)

// Parse decodes a raw report body.
func Parse(raw []byte) (Report, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		slog.Warn("failed to unmarshal trunk health report", "error", err)
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	tenant := firstNonEmpty(p.TenantID, p.EventTenantID)
	if tenant == "" {
		return Report{}, fmt.Errorf("%w: missing tenant_id", ErrInvalidReport)
	}
	tenantID, err := uuid.Parse(tenant)
	if err != nil {
		return Report{}, fmt.Errorf("%w: invalid tenant_id", ErrInvalidReport)
	}

	r := Report{TenantID: tenantID, Gateway: firstNonEmpty(p.Gateway, p.EventGateway)}
	if id := strings.TrimSpace(p.TrunkID); id != "" {
		trunkID, err := uuid.Parse(id)
		if err != nil {
			return Report{}, fmt.Errorf("%w: invalid trunk_id", ErrInvalidReport)
		}
		r.TrunkID = &trunkID
		r.Gateway = ""
	}
	if r.TrunkID == nil && r.Gateway == "" {
		return Report{}, fmt.Errorf("%w: missing trunk_id or gateway", ErrInvalidReport)
	}

	switch {
	case p.Healthy != nil:
		r.Healthy = *p.Healthy
	default:
		healthy, ok := stateHealth(firstNonEmpty(p.PingStatus, p.EventState))
		if !ok {
			return Report{}, fmt.Errorf("%w: missing or unknown state", ErrInvalidReport)
		}
		r.Healthy = healthy
	}

	return r, nil
}

// stateHealth maps sofia gateway states and ping statuses to health.
func stateHealth(state string) (healthy, ok bool) {
	switch strings.ToUpper(state) {
	case "UP", "REGED":
		return true, true
	case "DOWN", "FAILED", "FAIL_WAIT", "UNREGED":
		return false, true
	default:
		return false, false
	}
}

// Apply records r against voip.trunks. It reports whether the stored flag
// changed; repeating a report is a no-op.
func Apply(ctx context.Context, pool TxStarter, r Report) (changed bool, err error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil || !changed {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				slog.Error("failed to rollback trunk health transaction", "error", rbErr)
			}
			return
		}

		if commitErr := tx.Commit(ctx); commitErr != nil {
			changed = false
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	var (
		id      uuid.UUID
		current bool
	)
	if r.TrunkID != nil {
		err = tx.QueryRow(ctx, `
            SELECT id, healthy FROM voip.trunks
            WHERE tenant_id = $1 AND id = $2
            FOR UPDATE
        `, r.TenantID, *r.TrunkID).Scan(&id, &current)
	} else {
		err = tx.QueryRow(ctx, `
            SELECT id, healthy FROM voip.trunks
            WHERE tenant_id = $1 AND gateway_name = $2
            ORDER BY id
            LIMIT 1
            FOR UPDATE
        `, r.TenantID, r.Gateway).Scan(&id, &current)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			slog.Info("trunk health report for unknown trunk", "tenant_id", r.TenantID, "trunk_id", r.TrunkID, "gateway", r.Gateway)
			return false, ErrUnknownTrunk
		}
		return false, fmt.Errorf("lookup trunk: %w", err)
	}

	if current == r.Healthy {
		return false, nil
	}

	if _, err = tx.Exec(ctx, `
        UPDATE voip.trunks
        SET healthy = $3
        WHERE tenant_id = $1 AND id = $2
    `, r.TenantID, id, r.Healthy); err != nil {
		return false, fmt.Errorf("update trunk health: %w", err)
	}

	slog.Info("trunk health changed", "tenant_id", r.TenantID, "trunk_id", id, "healthy", r.Healthy)
	return true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
