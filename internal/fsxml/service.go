package fsxml

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"voip-router/internal/identity"
	"voip-router/internal/ivr"
	"voip-router/internal/models"
	"voip-router/internal/routing"
	"voip-router/internal/store"
)

type Resolver interface {
	Resolve(ctx context.Context, params url.Values) (models.ResolvedIdentity, error)
}

// Service answers one xml_curl request with a directory or dialplan document.
type Service struct {
	Resolver Resolver
	Dialplan *DialplanBuilder
}

type Options struct {
	CountryCode      string
	PublicContext    string
	EmergencyNumbers []string
	DefaultTimezone  string
	Now              func() time.Time
}

// NewService wires the resolver, route matcher and IVR engine over repo.
func NewService(repo store.Repository, opts Options) *Service {
	return &Service{
		Resolver: &identity.Resolver{
			Tenants:       repo,
			Extensions:    repo,
			CountryCode:   opts.CountryCode,
			PublicContext: opts.PublicContext,
		},
		Dialplan: &DialplanBuilder{
			Routes: &routing.Matcher{
				Routes:          repo,
				TimeConditions:  repo,
				CountryCode:     opts.CountryCode,
				DefaultTimezone: opts.DefaultTimezone,
				Now:             opts.Now,
			},
			Menus:            &ivr.Engine{Menus: repo},
			EmergencyNumbers: opts.EmergencyNumbers,
		},
	}
}

func (s *Service) Lookup(ctx context.Context, params url.Values) (*Document, models.ResolvedIdentity, error) {
	id, err := s.Resolver.Resolve(ctx, params)
	if err != nil {
		return nil, id, err
	}

	switch id.Section {
	case models.SectionDirectory:
		return Directory(id.Tenant, id.Extension), id, nil
	case models.SectionDialplan:
		req := DialplanRequest{
			Identity:    id,
			IvrFailures: atoiOrZero(identity.First(params, "ivr_failures", "variable_ivr_failures")),
		}
		if id.Destination == IvrStepDestination {
			menu := identity.First(params, "ivr_menu", "variable_ivr_menu")
			if menu == "" {
				return nil, id, fmt.Errorf("ivr step without menu: %w", models.ErrNotFound)
			}
			req.IvrStep = &ivr.Step{
				Menu:     menu,
				Digit:    identity.First(params, "ivr_digit", "variable_ivr_digit"),
				Failures: req.IvrFailures,
			}
		}
		doc, err := s.Dialplan.Build(ctx, req)
		return doc, id, err
	default:
		return nil, id, fmt.Errorf("section %q: %w", id.Section, models.ErrNotFound)
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Encode writes doc with the XML declaration the switch expects.
func Encode(w io.Writer, doc *Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
