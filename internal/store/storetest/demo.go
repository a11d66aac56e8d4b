package storetest

import (
	"time"

	"github.com/google/uuid"

	"voip-router/internal/models"
)

// Demo is a small but complete tenant configuration:
//   - tenant "demo" on demo.example.it with extension 1001
//   - a suspended tenant on shut.example.it
//   - DID 0612345678 routed to 1001
//   - mobile numbers out via a healthy trunk with a backup
//   - IVR 800 (1 -> 1001, 2 -> submenu 801) and IVR 801
type Demo struct {
	*Memory
	Tenant    *models.Tenant
	Suspended *models.Tenant
	Extension *models.Extension
	Trunk     *models.Trunk
	Backup    *models.Trunk
	Main      *models.IvrMenu
	Sales     *models.IvrMenu
}

func NewDemo() *Demo {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tenant := &models.Tenant{ID: uuid.New(), Name: "Demo", Slug: "demo", Domain: "demo.example.it", Status: models.TenantStatusActive, CreatedAt: created}
	suspended := &models.Tenant{ID: uuid.New(), Name: "Shut", Slug: "shut", Domain: "shut.example.it", Status: models.TenantStatusSuspended, CreatedAt: created}

	ext := &models.Extension{ID: uuid.New(), TenantID: tenant.ID, Number: "1001", Secret: "s3cr3t&<pw>", DisplayName: "Reception", Status: models.ExtensionStatusActive}
	shutExt := &models.Extension{ID: uuid.New(), TenantID: suspended.ID, Number: "1001", Secret: "other", Status: models.ExtensionStatusActive}

	trunk := &models.Trunk{ID: uuid.New(), TenantID: tenant.ID, Name: "Carrier", GatewayName: "carrier", Enabled: true, Healthy: true}
	backup := &models.Trunk{ID: uuid.New(), TenantID: tenant.ID, Name: "Backup", GatewayName: "backup", Enabled: true, Healthy: true}

	main := &models.IvrMenu{
		ID: uuid.New(), TenantID: tenant.ID, Name: "Main", Extension: "800",
		GreetingSound: "ivr/welcome.wav", InvalidSound: "ivr/invalid.wav", ExitSound: "ivr/goodbye.wav",
		Timeout: 5, MaxFailures: 3,
		Options: map[string]models.Action{
			"1": {Type: models.ActionExtension, Destination: "1001"},
			"2": {Type: models.ActionSubmenu, Destination: "801"},
		},
		TimeoutAction: models.Action{Type: models.ActionVoicemail, Destination: "1001"},
		InvalidAction: models.HangupAction(),
		Enabled:       true,
	}
	sales := &models.IvrMenu{
		ID: uuid.New(), TenantID: tenant.ID, Name: "Sales", Extension: "801",
		Timeout: 5, MaxFailures: 2,
		Options: map[string]models.Action{
			"1": {Type: models.ActionQueue, Destination: "sales"},
			"*": {Type: models.ActionSubmenu, Destination: "800"},
		},
		TimeoutAction: models.Action{Type: models.ActionRepeat},
		InvalidAction: models.HangupAction(),
		Enabled:       true,
	}

	return &Demo{
		Memory: &Memory{
			Tenants:    []*models.Tenant{tenant, suspended},
			Extensions: []*models.Extension{ext, shutExt},
			Inbound: []*models.InboundRoute{{
				ID: uuid.New(), TenantID: tenant.ID, Name: "Main line", DIDNumber: "612345678",
				Destination: models.Action{Type: models.ActionExtension, Destination: "1001"},
				Failover:    models.Failover{Enabled: true, Destination: models.Action{Type: models.ActionVoicemail, Destination: "1001"}},
				Enabled:     true,
			}},
			Outbound: []models.OutboundRoute{{
				ID: uuid.New(), TenantID: tenant.ID, Name: "mobile", DialPattern: `^3\d{9}$`, Priority: 100,
				TrunkID: trunk.ID, FailoverTrunkID: &backup.ID, Enabled: true, CreatedAt: created,
			}},
			Trunks: []*models.Trunk{trunk, backup},
			Menus:  []*models.IvrMenu{main, sales},
		},
		Tenant:    tenant,
		Suspended: suspended,
		Extension: ext,
		Trunk:     trunk,
		Backup:    backup,
		Main:      main,
		Sales:     sales,
	}
}
