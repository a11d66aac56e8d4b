package ivr

import (
	"context"
	"fmt"
	"log/slog"

	"voip-router/internal/models"
	"voip-router/internal/store"
)

type Outcome int

const (
	// Dispatch executes Decision.Action and leaves the menu.
	Dispatch Outcome = iota
	// Transition re-enters the IVR at Decision.Next.
	Transition
	// Reprompt plays the menu again with Decision.Failures.
	Reprompt
)

func (o Outcome) String() string {
	switch o {
	case Dispatch:
		return "dispatch"
	case Transition:
		return "transition"
	case Reprompt:
		return "reprompt"
	default:
		return "unknown"
	}
}

// Step is the menu state the switch sends back on every request.
type Step struct {
	Menu     string
	Digit    string
	Failures int
}

type Decision struct {
	Menu    *models.IvrMenu
	Outcome Outcome
	// Action is what the input resolved to: the option's action, or the
	// menu's timeout/invalid action.
	Action models.Action
	Next   *models.IvrMenu
	// Failures is the count the switch must send with the next step.
	Failures int
	// Terminal is set when the failure budget is spent.
	Terminal bool
}

type Engine struct {
	Menus store.IvrMenuRepository
}

// Entry loads an enabled menu for the first prompt.
func (e *Engine) Entry(ctx context.Context, tenant *models.Tenant, extension string) (*models.IvrMenu, error) {
	return e.load(ctx, tenant, extension)
}

// load reads a menu and rejects rows that would not pass Validate.
func (e *Engine) load(ctx context.Context, tenant *models.Tenant, extension string) (*models.IvrMenu, error) {
	menu, err := e.Menus.IvrMenuByExtension(ctx, tenant.ID, extension)
	if err != nil {
		return nil, err
	}
	if err := Validate(menu); err != nil {
		slog.Warn("stored ivr menu is invalid", "tenant_id", tenant.ID, "menu", extension, "error", err)
		return nil, fmt.Errorf("menu %s: %w", extension, err)
	}
	return menu, nil
}

// Decide resolves exactly one menu step. Submenus are looked up but never
// entered here, so cyclic menu graphs need no detection.
func (e *Engine) Decide(ctx context.Context, tenant *models.Tenant, step Step) (Decision, error) {
	menu, err := e.load(ctx, tenant, step.Menu)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{Menu: menu}

	if act, ok := menu.Options[step.Digit]; ok && step.Digit != "" {
		d.Action = act
		switch act.Type {
		case models.ActionSubmenu, models.ActionIVR:
			next, err := e.load(ctx, tenant, act.Destination)
			if err != nil {
				return Decision{}, fmt.Errorf("submenu %s of menu %s: %w", act.Destination, menu.Extension, err)
			}
			d.Outcome = Transition
			d.Next = next
		case models.ActionRepeat:
			d.Outcome = Transition
			d.Next = menu
			d.Failures = step.Failures
		default:
			d.Outcome = Dispatch
		}
		return d, nil
	}

	if step.Digit == "" {
		d.Action = menu.TimeoutAction
	} else {
		d.Action = menu.InvalidAction
	}

	failures := step.Failures + 1
	d.Failures = failures
	if failures < menu.MaxFailures {
		d.Outcome = Reprompt
		return d, nil
	}

	d.Terminal = true
	switch d.Action.Type {
	case models.ActionRepeat, models.ActionContinue, models.ActionUnknown:
		// Nothing left to repeat once the budget is spent.
		slog.Info("ivr failure budget spent", "menu", menu.Extension, "failures", failures)
		d.Action = models.HangupAction()
		d.Outcome = Dispatch
	case models.ActionSubmenu, models.ActionIVR:
		next, err := e.load(ctx, tenant, d.Action.Destination)
		if err != nil {
			return Decision{}, fmt.Errorf("fallback submenu %s of menu %s: %w", d.Action.Destination, menu.Extension, err)
		}
		d.Outcome = Transition
		d.Next = next
		d.Failures = 0
	default:
		d.Outcome = Dispatch
	}
	return d, nil
}
