package trunkhealth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

var (
	tenantID = uuid.MustParse("6f1c2d4e-1111-4a8b-9c0d-000000000001")
	trunkID  = uuid.MustParse("6f1c2d4e-2222-4a8b-9c0d-000000000002")
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantErr     error
		wantGateway string
		wantTrunk   bool
		wantHealthy bool
	}{
		{
			name:        "json by trunk id",
			raw:         `{"tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001","trunk_id":"6f1c2d4e-2222-4a8b-9c0d-000000000002","healthy":true}`,
			wantTrunk:   true,
			wantHealthy: true,
		},
		{
			name:        "json by gateway",
			raw:         `{"tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001","gateway":"carrier","healthy":false}`,
			wantGateway: "carrier",
		},
		{
			name:        "gateway event up",
			raw:         `{"Event-Name":"CUSTOM","Gateway":"carrier","State":"REGED","variable_tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001"}`,
			wantGateway: "carrier",
			wantHealthy: true,
		},
		{
			name:        "ping status wins over state",
			raw:         `{"Gateway":"carrier","State":"REGED","Ping-Status":"DOWN","variable_tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001"}`,
			wantGateway: "carrier",
		},
		{
			name:    "unknown state",
			raw:     `{"Gateway":"carrier","State":"TRYING","variable_tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001"}`,
			wantErr: ErrInvalidReport,
		},
		{
			name:    "missing tenant",
			raw:     `{"gateway":"carrier","healthy":true}`,
			wantErr: ErrInvalidReport,
		},
		{
			name:    "bad trunk id",
			raw:     `{"tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001","trunk_id":"nope","healthy":true}`,
			wantErr: ErrInvalidReport,
		},
		{
			name:    "no trunk reference",
			raw:     `{"tenant_id":"6f1c2d4e-1111-4a8b-9c0d-000000000001","healthy":true}`,
			wantErr: ErrInvalidReport,
		},
		{
			name:    "not json",
			raw:     `healthy`,
			wantErr: ErrInvalidReport,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := Parse([]byte(tc.raw))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}
			if r.TenantID != tenantID {
				t.Fatalf("expected tenant %s, got %s", tenantID, r.TenantID)
			}
			if (r.TrunkID != nil) != tc.wantTrunk {
				t.Fatalf("expected trunk id set=%v, got %v", tc.wantTrunk, r.TrunkID)
			}
			if r.Gateway != tc.wantGateway {
				t.Fatalf("expected gateway %q, got %q", tc.wantGateway, r.Gateway)
			}
			if r.Healthy != tc.wantHealthy {
				t.Fatalf("expected healthy=%v, got %v", tc.wantHealthy, r.Healthy)
			}
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		report      Report
		setupMock   func(pgxmock.PgxPoolIface)
		wantChanged bool
		wantErr     error
		// wantAnyErr accepts any error that is not a sentinel.
		wantAnyErr bool
	}{
		{
			name:   "marks trunk unhealthy",
			report: Report{TenantID: tenantID, TrunkID: &trunkID, Healthy: false},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id, healthy FROM voip\.trunks\s+WHERE tenant_id = \$1 AND id = \$2`).
					WithArgs(tenantID, trunkID).
					WillReturnRows(pgxmock.NewRows([]string{"id", "healthy"}).AddRow(trunkID, true))
				mock.ExpectExec(`UPDATE voip\.trunks`).
					WithArgs(tenantID, trunkID, false).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectCommit()
			},
			wantChanged: true,
		},
		{
			name:   "repeated report is a no-op",
			report: Report{TenantID: tenantID, Gateway: "carrier", Healthy: true},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`WHERE tenant_id = \$1 AND gateway_name = \$2`).
					WithArgs(tenantID, "carrier").
					WillReturnRows(pgxmock.NewRows([]string{"id", "healthy"}).AddRow(trunkID, true))
				mock.ExpectRollback()
			},
		},
		{
			name:   "unknown trunk",
			report: Report{TenantID: tenantID, Gateway: "ghost", Healthy: true},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FROM voip\.trunks`).
					WithArgs(tenantID, "ghost").
					WillReturnRows(pgxmock.NewRows([]string{"id", "healthy"}))
				mock.ExpectRollback()
			},
			wantErr: ErrUnknownTrunk,
		},
		{
			name:   "update failure rolls back",
			report: Report{TenantID: tenantID, TrunkID: &trunkID, Healthy: true},
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectQuery(`FROM voip\.trunks`).
					WithArgs(tenantID, trunkID).
					WillReturnRows(pgxmock.NewRows([]string{"id", "healthy"}).AddRow(trunkID, false))
				mock.ExpectExec(`UPDATE voip\.trunks`).
					WithArgs(tenantID, trunkID, true).
					WillReturnError(errors.New("deadlock detected"))
				mock.ExpectRollback()
			},
			wantAnyErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create pgx mock: %v", err)
			}
			defer mock.Close()

			tc.setupMock(mock)

			changed, err := Apply(context.Background(), mock, tc.report)
			if tc.wantAnyErr {
				if err == nil {
					t.Fatal("expected an error from the failed update")
				}
			} else if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if changed != tc.wantChanged {
				t.Fatalf("expected changed=%v, got %v", tc.wantChanged, changed)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}
