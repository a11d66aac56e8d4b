package fsxml

import (
	"voip-router/internal/models"
)

const dialString = "{presence_id=${dialed_user}@${dialed_domain}}${sofia_contact(${dialed_user}@${dialed_domain})}"

// Directory builds the registration record for exactly one extension of
// one tenant.
func Directory(tenant *models.Tenant, ext *models.Extension) *Document {
	return &Document{
		Type: documentType,
		Section: []Section{
			{
				Name: string(models.SectionDirectory),
				Domain: &DomainNode{
					Name:   tenant.Domain,
					Params: []ParamNode{{Name: "dial-string", Value: dialString}},
					Groups: []GroupNode{
						{
							Name: "default",
							Users: []UserNode{
								{
									ID: ext.Number,
									Params: []ParamNode{
										{Name: "password", Value: ext.Secret},
										{Name: "vm-password", Value: ext.Number},
									},
									Vars: []VariableNode{
										{Name: "tenant_id", Value: tenant.ID.String()},
										{Name: "tenant_slug", Value: tenant.Slug},
										{Name: "user_context", Value: tenant.Slug},
										{Name: "domain_name", Value: tenant.Domain},
										{Name: "toll_allow", Value: "domestic,international,local"},
										{Name: "accountcode", Value: ext.Number},
										{Name: "effective_caller_id_name", Value: ext.CallerIDName()},
										{Name: "effective_caller_id_number", Value: ext.Number},
										{Name: "outbound_caller_id_number", Value: ext.Number},
										{Name: "callgroup", Value: tenant.ID.String()},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
