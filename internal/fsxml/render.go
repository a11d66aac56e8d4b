package fsxml

import (
	"context"
	"fmt"

	"voip-router/internal/models"
)

func set(kv string) ActionNode {
	return ActionNode{App: "set", Data: kv}
}

func transfer(extension string, tenant *models.Tenant) ActionNode {
	return ActionNode{App: "transfer", Data: fmt.Sprintf("%s XML %s", extension, tenant.Slug)}
}

func gatewayBridge(t *models.Trunk, number string) ActionNode {
	return ActionNode{App: "bridge", Data: fmt.Sprintf("sofia/gateway/%s/%s", t.Gateway(), number)}
}

// tags are the correlation variables every rule sets first.
func tags(tenant *models.Tenant, dir models.Direction) []ActionNode {
	return []ActionNode{
		set("tenant_id=" + tenant.ID.String()),
		set("tenant_slug=" + tenant.Slug),
		set("call_direction=" + string(dir)),
	}
}

// renderAction maps one routing action onto switch applications. menu is
// the IVR menu the action came from, if any, and is needed for repeat.
func (b *DialplanBuilder) renderAction(ctx context.Context, tenant *models.Tenant, act models.Action, menu *models.IvrMenu) ([]ActionNode, error) {
	switch act.Type {
	case models.ActionExtension:
		return []ActionNode{
			set("hangup_after_bridge=true"),
			{App: "bridge", Data: fmt.Sprintf("user/%s@%s", act.Destination, tenant.Domain)},
		}, nil
	case models.ActionQueue:
		return []ActionNode{
			{App: "answer"},
			{App: "callcenter", Data: fmt.Sprintf("%s@%s", act.Destination, tenant.Slug)},
		}, nil
	case models.ActionConference:
		return []ActionNode{
			{App: "answer"},
			{App: "conference", Data: act.Destination + "@default"},
		}, nil
	case models.ActionVoicemail:
		return []ActionNode{
			{App: "answer"},
			{App: "voicemail", Data: fmt.Sprintf("default %s %s", tenant.Domain, act.Destination)},
		}, nil
	case models.ActionIVR, models.ActionSubmenu:
		return []ActionNode{transfer(act.Destination, tenant)}, nil
	case models.ActionExternal:
		match, err := b.Routes.MatchOutbound(ctx, tenant, act.Destination)
		if err != nil {
			return nil, fmt.Errorf("external destination %s: %w", act.Destination, err)
		}
		return outboundActions(match.Trunk, match.Failover, match.Number), nil
	case models.ActionHangup:
		return []ActionNode{{App: "hangup", Data: "NORMAL_CLEARING"}}, nil
	case models.ActionRepeat:
		if menu == nil {
			return nil, fmt.Errorf("%w: repeat outside an ivr menu", models.ErrConfigInvalid)
		}
		return []ActionNode{transfer(menu.Extension, tenant)}, nil
	default:
		return nil, fmt.Errorf("%w: cannot render %s action", models.ErrConfigInvalid, act.Type)
	}
}

func outboundActions(primary, failover *models.Trunk, number string) []ActionNode {
	out := []ActionNode{
		set("effective_caller_id_number=${outbound_caller_id_number}"),
		set("hangup_after_bridge=true"),
	}
	if failover != nil {
		out = append(out, set("continue_on_fail=true"))
	}
	out = append(out, gatewayBridge(primary, number))
	if failover != nil {
		out = append(out, gatewayBridge(failover, number))
	}
	return out
}
