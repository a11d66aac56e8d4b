package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"voip-router/internal/models"
)

var (
	tenantID = uuid.MustParse("6f1c2d4e-1111-4a8b-9c0d-000000000001")
	created  = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
)

func tenantRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "slug", "sip_domain", "status", "created_at"}).
		AddRow(tenantID, "Acme", "acme", "acme.example.com", "active", created)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestTenantByDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupMock func(pgxmock.PgxPoolIface)
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM voip\.tenants t\s+WHERE t\.sip_domain = \$1\s+LIMIT 1`).
					WithArgs("acme.example.com").
					WillReturnRows(tenantRows())
			},
		},
		{
			name: "unknown domain",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM voip\.tenants`).
					WithArgs("acme.example.com").
					WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "sip_domain", "status", "created_at"}))
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "connection failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM voip\.tenants`).
					WithArgs("acme.example.com").
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: ErrStoreUnavailable,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mock := newMock(t)
			tc.setupMock(mock)

			got, err := NewPostgres(mock).TenantByDomain(context.Background(), "acme.example.com")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil {
				if got.Slug != "acme" || got.Status != models.TenantStatusActive || got.ID != tenantID {
					t.Fatalf("unexpected tenant %+v", got)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestTenantByDIDMatchesEitherForm(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectQuery(`JOIN voip\.inbound_routes r ON r\.tenant_id = t\.id\s+WHERE r\.did_number IN \(\$1, \$2\)`).
		WithArgs("+390612345678", "612345678").
		WillReturnRows(tenantRows())

	got, err := NewPostgres(mock).TenantByDID(context.Background(), "+390612345678", "612345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Domain != "acme.example.com" {
		t.Fatalf("unexpected tenant %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTenantByIDReadsCurrentStatus(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	mock.ExpectQuery(`FROM voip\.tenants t\s+WHERE t\.id = \$1`).
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug", "sip_domain", "status", "created_at"}).
			AddRow(tenantID, "Acme", "acme", "acme.example.com", "suspended", created))

	got, err := NewPostgres(mock).TenantByID(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.TenantStatusSuspended {
		t.Fatalf("expected suspended tenant, got %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExtensionByNumberIsTenantScoped(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	extID := uuid.New()
	mock.ExpectQuery(`FROM voip\.extensions\s+WHERE tenant_id = \$1\s+AND extension = \$2`).
		WithArgs(tenantID, "1001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "extension", "password", "display_name", "status"}).
			AddRow(extID, tenantID, "1001", "s3cret", "", "active"))

	got, err := NewPostgres(mock).ExtensionByNumber(context.Background(), tenantID, "1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Secret != "s3cret" || got.CallerIDName() != "1001" || got.Status != models.ExtensionStatusActive {
		t.Fatalf("unexpected extension %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInboundRouteByDID(t *testing.T) {
	t.Parallel()

	cols := []string{
		"id", "tenant_id", "name", "did_number",
		"destination_type", "destination_value",
		"time_condition_id",
		"failover_enabled",
		"failover_destination_type", "failover_destination_value",
		"enabled",
	}
	tcID := uuid.New()

	tests := []struct {
		name    string
		row     []any
		wantErr error
		check   func(t *testing.T, r *models.InboundRoute)
	}{
		{
			name: "extension with time condition and failover",
			row:  []any{uuid.New(), tenantID, "Main", "0612345678", "extension", "1001", &tcID, true, "voicemail", "1001", true},
			check: func(t *testing.T, r *models.InboundRoute) {
				if r.Destination.Type != models.ActionExtension || r.Destination.Destination != "1001" {
					t.Fatalf("unexpected destination %+v", r.Destination)
				}
				if r.TimeConditionID == nil || *r.TimeConditionID != tcID {
					t.Fatalf("expected time condition %s, got %v", tcID, r.TimeConditionID)
				}
				if !r.Failover.Enabled || r.Failover.Destination.Type != models.ActionVoicemail {
					t.Fatalf("unexpected failover %+v", r.Failover)
				}
			},
		},
		{
			name: "no time condition",
			row:  []any{uuid.New(), tenantID, "Main", "0612345678", "queue", "support", nil, false, "", "", true},
			check: func(t *testing.T, r *models.InboundRoute) {
				if r.TimeConditionID != nil {
					t.Fatalf("expected no time condition, got %v", *r.TimeConditionID)
				}
				if r.Failover.Enabled {
					t.Fatal("expected failover disabled")
				}
			},
		},
		{
			name:    "unknown destination type",
			row:     []any{uuid.New(), tenantID, "Main", "0612345678", "fax", "1", nil, false, "", "", true},
			wantErr: models.ErrConfigInvalid,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mock := newMock(t)
			mock.ExpectQuery(`FROM voip\.inbound_routes\s+WHERE tenant_id = \$1\s+AND did_number IN \(\$2, \$3\)`).
				WithArgs(tenantID, "0612345678", "612345678").
				WillReturnRows(pgxmock.NewRows(cols).AddRow(tc.row...))

			got, err := NewPostgres(mock).InboundRouteByDID(context.Background(), tenantID, "0612345678", "612345678")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.check != nil {
				tc.check(t, got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestOutboundRoutesOrderedAndBounded(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	trunk := uuid.New()
	failover := uuid.New()
	cols := []string{
		"id", "tenant_id", "name", "dial_pattern", "priority",
		"strip_digits", "prefix", "add_digits",
		"trunk_id", "failover_trunk_id", "enabled", "created_at",
	}
	mock.ExpectQuery(`FROM voip\.outbound_routes\s+WHERE tenant_id = \$1\s+AND enabled = TRUE\s+ORDER BY priority ASC, created_at ASC, id ASC\s+LIMIT \$2`).
		WithArgs(tenantID, maxOutboundRoutes).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(uuid.New(), tenantID, "Mobile", `^3\d+$`, 10, 0, "", "", trunk, &failover, true, created).
			AddRow(uuid.New(), tenantID, "National", `^0\d+$`, 20, 1, "0039", "", trunk, nil, true, created))

	got, err := NewPostgres(mock).OutboundRoutes(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Mobile" || got[1].Name != "National" {
		t.Fatalf("unexpected routes %+v", got)
	}
	if got[0].FailoverTrunkID == nil || *got[0].FailoverTrunkID != failover {
		t.Fatalf("expected failover trunk on first route")
	}
	if got[1].FailoverTrunkID != nil || got[1].StripDigits != 1 || got[1].Prefix != "0039" {
		t.Fatalf("unexpected second route %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimeConditionByID(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	id := uuid.New()
	cols := []string{
		"id", "tenant_id", "name", "timezone",
		"business_hours", "holidays",
		"business_hours_action", "business_hours_destination",
		"after_hours_action", "after_hours_destination",
		"holiday_action", "holiday_destination",
		"enabled",
	}
	hours := []byte(`{"monday":{"enabled":true,"start_time":"09:00","end_time":"18:00"},"saturday":{"enabled":false,"start_time":"09:00","end_time":"13:00"}}`)
	holidays := []byte(`[{"date":"2025-12-25","name":"Natale","enabled":true}]`)

	mock.ExpectQuery(`FROM voip\.time_conditions\s+WHERE tenant_id = \$1\s+AND id = \$2`).
		WithArgs(tenantID, id).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(id, tenantID, "Office", "Europe/Rome", hours, holidays, "continue", "", "voicemail", "1001", "hangup", "", true))

	got, err := NewPostgres(mock).TimeConditionByID(context.Background(), tenantID, id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day := got.BusinessHours[time.Monday]; !day.Enabled || day.StartTime != "09:00" {
		t.Fatalf("unexpected monday schedule %+v", day)
	}
	if got.BusinessHours[time.Saturday].Enabled {
		t.Fatal("expected saturday disabled")
	}
	if len(got.Holidays) != 1 || got.Holidays[0].Date != "2025-12-25" {
		t.Fatalf("unexpected holidays %+v", got.Holidays)
	}
	if got.BusinessHoursAction.Type != models.ActionContinue || got.AfterHoursAction.Destination != "1001" {
		t.Fatalf("unexpected actions %+v / %+v", got.BusinessHoursAction, got.AfterHoursAction)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIvrMenuByExtension(t *testing.T) {
	t.Parallel()

	cols := []string{
		"id", "tenant_id", "name", "extension",
		"greeting_sound", "invalid_sound", "exit_sound",
		"timeout", "max_failures",
		"options", "timeout_action", "invalid_action",
		"enabled",
	}

	tests := []struct {
		name    string
		options []byte
		wantErr error
	}{
		{
			name:    "options in both shapes",
			options: []byte(`{"1":{"action":"extension","destination":"1001"},"2":{"type":"submenu","destination":"801"},"0":{"action":"hangup"}}`),
		},
		{
			name:    "malformed options",
			options: []byte(`{"1":`),
			wantErr: models.ErrConfigInvalid,
		},
		{
			name:    "unknown option type",
			options: []byte(`{"1":{"action":"fax","destination":"1"}}`),
			wantErr: models.ErrConfigInvalid,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mock := newMock(t)
			mock.ExpectQuery(`FROM voip\.ivr_menus\s+WHERE tenant_id = \$1\s+AND extension = \$2\s+AND enabled = TRUE`).
				WithArgs(tenantID, "800").
				WillReturnRows(pgxmock.NewRows(cols).AddRow(
					uuid.New(), tenantID, "Main", "800",
					"ivr/welcome.wav", "ivr/invalid.wav", "",
					5, 3,
					tc.options, []byte(`{"action":"repeat"}`), []byte(`{"action":"hangup"}`),
					true,
				))

			got, err := NewPostgres(mock).IvrMenuByExtension(context.Background(), tenantID, "800")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil {
				if got.Options["1"].Type != models.ActionExtension || got.Options["2"].Type != models.ActionSubmenu {
					t.Fatalf("unexpected options %+v", got.Options)
				}
				if got.TimeoutAction.Type != models.ActionRepeat || got.InvalidAction.Type != models.ActionHangup {
					t.Fatalf("unexpected fallbacks %+v / %+v", got.TimeoutAction, got.InvalidAction)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestTrunkByIDMissing(t *testing.T) {
	t.Parallel()
	mock := newMock(t)

	id := uuid.New()
	mock.ExpectQuery(`FROM voip\.trunks`).
		WithArgs(tenantID, id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "gateway_name", "enabled", "healthy"}))

	_, err := NewPostgres(mock).TrunkByID(context.Background(), tenantID, id)
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
