package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"voip-router/internal/models"
	"voip-router/internal/phone"
	"voip-router/internal/store"
)

var (
	realmFields     = []string{"variable_domain_name", "sip_to_host", "sip_req_host", "sip_auth_realm"}
	compositeFields = []string{"user", "sip_from_uri", "sip_req_uri"}
	userFields      = []string{"user", "sip_auth_username", "sip_to_user", "sip_from_user"}
	contextFields   = []string{"context", "Hunt-Context", "Caller-Context"}
	destFields      = []string{"Hunt-Destination-Number", "Caller-Destination-Number", "destination_number"}
)

// Resolver turns the parameter bag of one xml_curl request into a tenant
// and, for directory lookups, the extension being authenticated.
type Resolver struct {
	Tenants       store.TenantRepository
	Extensions    store.ExtensionRepository
	CountryCode   string
	PublicContext string
}

func (r *Resolver) Resolve(ctx context.Context, params url.Values) (models.ResolvedIdentity, error) {
	id := models.ResolvedIdentity{
		Section:     models.Section(strings.ToLower(First(params, "section", "section[0]"))),
		User:        User(params),
		Context:     First(params, contextFields...),
		Destination: First(params, destFields...),
		Direction:   models.DirectionInternal,
	}

	switch id.Section {
	case models.SectionDirectory, models.SectionDialplan:
	default:
		return id, fmt.Errorf("section %q: %w", id.Section, models.ErrNotFound)
	}

	tenant, err := r.resolveTenant(ctx, &id, params)
	if err != nil {
		return id, err
	}
	if !tenant.IsActive() {
		return id, fmt.Errorf("tenant %s is %s: %w", tenant.Slug, tenant.Status, models.ErrNotFound)
	}
	id.Tenant = tenant

	if id.Section == models.SectionDirectory {
		if id.User == "" {
			return id, fmt.Errorf("directory request without user: %w", models.ErrNotFound)
		}
		ext, err := r.Extensions.ExtensionByNumber(ctx, tenant.ID, id.User)
		if err != nil {
			return id, err
		}
		if ext.Status != models.ExtensionStatusActive {
			return id, fmt.Errorf("extension %s is %s: %w", ext.Number, ext.Status, models.ErrNotFound)
		}
		id.Extension = ext
	}

	return id, nil
}

func (r *Resolver) resolveTenant(ctx context.Context, id *models.ResolvedIdentity, params url.Values) (*models.Tenant, error) {
	// The public context carries unauthenticated carrier traffic: only an
	// owned DID may select a tenant there, never a caller-supplied host.
	if id.Section == models.SectionDialplan && r.PublicContext != "" && id.Context == r.PublicContext {
		if id.Destination == "" {
			return nil, fmt.Errorf("public context without destination: %w", models.ErrNotFound)
		}
		did := phone.Normalize(id.Destination, r.CountryCode)
		tenant, err := r.Tenants.TenantByDID(ctx, id.Destination, did)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				slog.Debug("no tenant owns dialed number", "destination", id.Destination)
			}
			return nil, err
		}
		id.Direction = models.DirectionInbound
		return tenant, nil
	}

	if domain := Domain(params); domain != "" {
		return r.Tenants.TenantByDomain(ctx, domain)
	}

	if id.Section == models.SectionDialplan && id.Context != "" {
		return r.Tenants.TenantBySlug(ctx, id.Context)
	}

	return nil, fmt.Errorf("no routing domain in request: %w", models.ErrNotFound)
}

// Domain applies the domain precedence: explicit field, realm fields, the
// structured tag pair, then composite user@domain fields.
func Domain(params url.Values) string {
	if d := hostPart(First(params, "domain")); d != "" {
		return d
	}
	for _, f := range realmFields {
		if d := hostPart(First(params, f)); d != "" {
			return d
		}
	}
	if strings.EqualFold(First(params, "tag_name"), "domain") {
		if key := First(params, "key_name"); key == "" || key == "name" {
			if d := hostPart(First(params, "key_value")); d != "" {
				return d
			}
		}
		if First(params, "tag_attr_name") == "name" {
			if d := hostPart(First(params, "tag_attr_val")); d != "" {
				return d
			}
		}
	}
	for _, f := range compositeFields {
		if v := First(params, f); strings.Contains(v, "@") {
			if d := hostPart(v); d != "" {
				return d
			}
		}
	}
	return ""
}

// User returns the user part of the first user-bearing field.
func User(params url.Values) string {
	for _, f := range userFields {
		if u := userPart(First(params, f)); u != "" {
			return u
		}
	}
	for _, f := range []string{"key_value", "tag_attr_val"} {
		if v, ok := strings.CutPrefix(First(params, f), "user "); ok {
			if u := userPart(v); u != "" {
				return u
			}
		}
	}
	return ""
}

// First returns the first non-empty value among keys.
func First(params url.Values, keys ...string) string {
	for _, k := range keys {
		for _, v := range params[k] {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// hostPart splits "user@host:port" on @ (right part), then on : (left part).
func hostPart(v string) string {
	if i := strings.LastIndex(v, "@"); i >= 0 {
		v = v[i+1:]
	}
	if i := strings.Index(v, ":"); i >= 0 {
		v = v[:i]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

func userPart(v string) string {
	if i := strings.Index(v, "@"); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimPrefix(strings.TrimSpace(v), "sip:")
	return v
}
