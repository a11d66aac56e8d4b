package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType is the closed set of things a route, time condition or IVR
// option can send a call to.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionExtension
	ActionQueue
	ActionConference
	ActionVoicemail
	ActionSubmenu
	ActionIVR
	ActionExternal
	ActionHangup
	ActionContinue
	ActionRepeat
)

var actionNames = map[ActionType]string{
	ActionExtension:  "extension",
	ActionQueue:      "queue",
	ActionConference: "conference",
	ActionVoicemail:  "voicemail",
	ActionSubmenu:    "submenu",
	ActionIVR:        "ivr",
	ActionExternal:   "external",
	ActionHangup:     "hangup",
	ActionContinue:   "continue",
	ActionRepeat:     "repeat",
}

func (t ActionType) String() string {
	if name, ok := actionNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseActionType maps a stored type name onto ActionType. Unknown names are
// reported as ErrConfigInvalid.
func ParseActionType(s string) (ActionType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range actionNames {
		if n == name {
			return t, nil
		}
	}
	return ActionUnknown, fmt.Errorf("%w: unknown action type %q", ErrConfigInvalid, s)
}

// NeedsDestination is false only for actions that carry no target.
func (t ActionType) NeedsDestination() bool {
	switch t {
	case ActionHangup, ActionContinue, ActionRepeat:
		return false
	default:
		return true
	}
}

type Action struct {
	Type        ActionType
	Destination string
}

func HangupAction() Action {
	return Action{Type: ActionHangup}
}

func (a Action) IsZero() bool {
	return a.Type == ActionUnknown && a.Destination == ""
}

// Validate checks that the action declares a type and, where required, a destination.
func (a Action) Validate() error {
	if a.Type == ActionUnknown {
		return fmt.Errorf("%w: action type is required", ErrConfigInvalid)
	}
	if a.Type.NeedsDestination() && strings.TrimSpace(a.Destination) == "" {
		return fmt.Errorf("%w: %s action requires a destination", ErrConfigInvalid, a.Type)
	}
	return nil
}

// ParseAction builds an action from the type/destination column pair.
func ParseAction(typ, destination string) (Action, error) {
	t, err := ParseActionType(typ)
	if err != nil {
		return Action{}, err
	}
	return Action{Type: t, Destination: strings.TrimSpace(destination)}, nil
}

type actionJSON struct {
	Type        string `json:"type,omitempty"`
	Action      string `json:"action,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// UnmarshalJSON accepts both {"type":..} and the IVR option form {"action":..}.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	typ := raw.Type
	if typ == "" {
		typ = raw.Action
	}
	if typ == "" {
		*a = Action{Destination: raw.Destination}
		return nil
	}
	parsed, err := ParseAction(typ, raw.Destination)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{Type: a.Type.String(), Destination: a.Destination})
}
