package fsxml

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"voip-router/internal/ivr"
	"voip-router/internal/models"
	"voip-router/internal/routing"
)

// IvrStepDestination is the pseudo number the IVR prompt transfers to once
// the caller has pressed a digit or the prompt timed out.
const IvrStepDestination = "ivr_step"

const voicemailCheck = "*97"

var (
	internalPattern = regexp.MustCompile(`^\d{3,5}$`)
	menuPattern     = regexp.MustCompile(`^\d{3,4}$`)
)

type RouteMatcher interface {
	MatchInbound(ctx context.Context, tenant *models.Tenant, did string) (routing.InboundMatch, error)
	MatchOutbound(ctx context.Context, tenant *models.Tenant, dialed string) (routing.OutboundMatch, error)
	EmergencyTrunk(ctx context.Context, tenant *models.Tenant) (*models.Trunk, error)
}

type MenuEngine interface {
	Entry(ctx context.Context, tenant *models.Tenant, extension string) (*models.IvrMenu, error)
	Decide(ctx context.Context, tenant *models.Tenant, step ivr.Step) (ivr.Decision, error)
}

type DialplanRequest struct {
	Identity models.ResolvedIdentity
	// IvrStep is set when the switch comes back from a menu prompt.
	IvrStep *ivr.Step
	// IvrFailures is the failure count carried on the channel, used when
	// re-entering a menu.
	IvrFailures int
}

type DialplanBuilder struct {
	Routes           RouteMatcher
	Menus            MenuEngine
	EmergencyNumbers []string
}

// Build renders the dialplan for one destination. Rules are ordered so an
// on-net number is always matched before any trunk rule.
func (b *DialplanBuilder) Build(ctx context.Context, req DialplanRequest) (*Document, error) {
	id := req.Identity
	if id.Tenant == nil {
		return nil, fmt.Errorf("dialplan without tenant: %w", models.ErrNotFound)
	}
	if id.Destination == "" {
		return nil, fmt.Errorf("dialplan without destination: %w", models.ErrNotFound)
	}

	var (
		exts []ExtensionNode
		err  error
	)
	if id.Direction == models.DirectionInbound {
		exts, err = b.inbound(ctx, id)
	} else {
		exts, err = b.tenantContext(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	contextName := id.Context
	if contextName == "" {
		contextName = id.Tenant.Slug
	}

	return &Document{
		Type: documentType,
		Section: []Section{
			{
				Name:    string(models.SectionDialplan),
				Context: &ContextNode{Name: contextName, Extension: exts},
			},
		},
	}, nil
}

func exact(number string) string {
	return "^" + regexp.QuoteMeta(number) + "$"
}

func rule(name, expr string, actions []ActionNode) ExtensionNode {
	return ExtensionNode{
		Name: name,
		Condition: []ConditionNode{
			{Field: "destination_number", Expr: expr, Action: actions},
		},
	}
}

func (b *DialplanBuilder) inbound(ctx context.Context, id models.ResolvedIdentity) ([]ExtensionNode, error) {
	tenant := id.Tenant
	match, err := b.Routes.MatchInbound(ctx, tenant, id.Destination)
	if err != nil {
		return nil, err
	}

	actions := tags(tenant, models.DirectionInbound)
	actions = append(actions, set("domain_name="+tenant.Domain))
	if match.Classification != "" {
		actions = append(actions, set("time_condition="+string(match.Classification)))
	}
	if match.Failover != nil {
		actions = append(actions, set("continue_on_fail=true"))
	}

	dest, err := b.renderAction(ctx, tenant, match.Action, nil)
	if err != nil {
		return nil, err
	}
	actions = append(actions, dest...)

	if match.Failover != nil {
		fo, err := b.renderAction(ctx, tenant, *match.Failover, nil)
		if err != nil {
			return nil, fmt.Errorf("inbound failover: %w", err)
		}
		actions = append(actions, fo...)
	}

	return []ExtensionNode{
		rule(fmt.Sprintf("%s_inbound_%s", tenant.Slug, match.Route.DIDNumber), exact(id.Destination), actions),
	}, nil
}

func (b *DialplanBuilder) tenantContext(ctx context.Context, req DialplanRequest) ([]ExtensionNode, error) {
	id := req.Identity
	tenant := id.Tenant
	dest := id.Destination

	if req.IvrStep != nil {
		ext, err := b.ivrStep(ctx, tenant, *req.IvrStep)
		if err != nil {
			return nil, err
		}
		return []ExtensionNode{ext}, nil
	}

	if b.isEmergency(dest) {
		return b.emergency(ctx, tenant, dest)
	}

	if dest == voicemailCheck {
		actions := append(tags(tenant, models.DirectionInternal),
			ActionNode{App: "answer"},
			ActionNode{App: "voicemail", Data: fmt.Sprintf("check default %s ${caller_id_number}", tenant.Domain)},
		)
		return []ExtensionNode{rule(tenant.Slug+"_voicemail_check", exact(dest), actions)}, nil
	}

	if menuPattern.MatchString(dest) {
		menu, err := b.Menus.Entry(ctx, tenant, dest)
		switch {
		case err == nil:
			return []ExtensionNode{ivrEntry(tenant, menu, req.IvrFailures)}, nil
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}

	internal := tags(tenant, models.DirectionInternal)
	internal = append(internal,
		set("hangup_after_bridge=true"),
		ActionNode{App: "bridge", Data: "user/$1@" + tenant.Domain},
	)
	exts := []ExtensionNode{rule(tenant.Slug+"_internal", `^(\d{3,5})$`, internal)}

	if internalPattern.MatchString(dest) {
		return exts, nil
	}

	match, err := b.Routes.MatchOutbound(ctx, tenant, dest)
	switch {
	case err == nil:
		actions := append(tags(tenant, models.DirectionOutbound), outboundActions(match.Trunk, match.Failover, match.Number)...)
		exts = append(exts, rule(fmt.Sprintf("%s_outbound_%s", tenant.Slug, match.Route.Name), exact(dest), actions))
	case errors.Is(err, routing.ErrNoRoute):
		exts = append(exts, noRoute(tenant, dest))
	default:
		return nil, err
	}
	return exts, nil
}

func (b *DialplanBuilder) isEmergency(dest string) bool {
	for _, n := range b.EmergencyNumbers {
		if n == dest {
			return true
		}
	}
	return false
}

func (b *DialplanBuilder) emergency(ctx context.Context, tenant *models.Tenant, dest string) ([]ExtensionNode, error) {
	trunk, err := b.Routes.EmergencyTrunk(ctx, tenant)
	if errors.Is(err, routing.ErrNoRoute) {
		return []ExtensionNode{noRoute(tenant, dest)}, nil
	}
	if err != nil {
		return nil, err
	}

	quoted := make([]string, 0, len(b.EmergencyNumbers))
	for _, n := range b.EmergencyNumbers {
		quoted = append(quoted, regexp.QuoteMeta(n))
	}
	actions := append(tags(tenant, models.DirectionEmergency),
		gatewayBridge(trunk, "${destination_number}"),
	)
	return []ExtensionNode{
		rule(tenant.Slug+"_emergency", "^("+strings.Join(quoted, "|")+")$", actions),
	}, nil
}

func noRoute(tenant *models.Tenant, dest string) ExtensionNode {
	actions := append(tags(tenant, models.DirectionOutbound),
		ActionNode{App: "hangup", Data: "NO_ROUTE_DESTINATION"},
	)
	return rule(tenant.Slug+"_no_route", exact(dest), actions)
}

func ivrEntry(tenant *models.Tenant, menu *models.IvrMenu, failures int) ExtensionNode {
	greeting := menu.GreetingSound
	if greeting == "" {
		greeting = "silence_stream://250"
	}
	invalid := menu.InvalidSound
	if invalid == "" {
		invalid = "silence_stream://250"
	}
	pagd := fmt.Sprintf("1 1 1 %d none %s %s ivr_digit [0-9*#]", menu.Timeout*1000, greeting, invalid)

	actions := append(tags(tenant, models.DirectionIVR),
		ActionNode{App: "answer"},
		set("ivr_menu="+menu.Extension),
		set("ivr_failures="+strconv.Itoa(failures)),
		ActionNode{App: "unset", Data: "ivr_digit"},
		ActionNode{App: "play_and_get_digits", Data: pagd},
		transfer(IvrStepDestination, tenant),
	)
	return rule(fmt.Sprintf("%s_ivr_%s", tenant.Slug, menu.Extension), exact(menu.Extension), actions)
}

func (b *DialplanBuilder) ivrStep(ctx context.Context, tenant *models.Tenant, step ivr.Step) (ExtensionNode, error) {
	d, err := b.Menus.Decide(ctx, tenant, step)
	if err != nil {
		return ExtensionNode{}, err
	}

	actions := tags(tenant, models.DirectionIVR)
	switch d.Outcome {
	case ivr.Transition:
		actions = append(actions,
			set("ivr_failures="+strconv.Itoa(d.Failures)),
			transfer(d.Next.Extension, tenant),
		)
	case ivr.Reprompt:
		if d.Menu.InvalidSound != "" {
			actions = append(actions, ActionNode{App: "playback", Data: d.Menu.InvalidSound})
		}
		actions = append(actions,
			set("ivr_failures="+strconv.Itoa(d.Failures)),
			transfer(d.Menu.Extension, tenant),
		)
	case ivr.Dispatch:
		if d.Terminal && d.Menu.ExitSound != "" {
			actions = append(actions, ActionNode{App: "playback", Data: d.Menu.ExitSound})
		}
		actions = append(actions, set("ivr_failures=0"))
		dest, err := b.renderAction(ctx, tenant, d.Action, d.Menu)
		if err != nil {
			return ExtensionNode{}, err
		}
		actions = append(actions, dest...)
	default:
		return ExtensionNode{}, fmt.Errorf("%w: unknown ivr outcome %s", models.ErrConfigInvalid, d.Outcome)
	}

	return rule(tenant.Slug+"_ivr_step", exact(IvrStepDestination), actions), nil
}
