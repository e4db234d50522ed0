package schemas

import (
	"encoding/json"
	"fmt"
)

// ActionType is the wire discriminator of a computer-use action.
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionScroll     ActionType = "scroll"
	ActionTypeText   ActionType = "type"
	ActionKeypress   ActionType = "keypress"
	ActionWait       ActionType = "wait"
	ActionScreenshot ActionType = "screenshot"
)

// MouseButton names a pointer button as sent by the remote service.
type MouseButton string

const (
	ButtonLeft    MouseButton = "left"
	ButtonRight   MouseButton = "right"
	ButtonWheel   MouseButton = "wheel"
	ButtonBack    MouseButton = "back"
	ButtonForward MouseButton = "forward"
)

// Action is a single UI operation requested by the remote service. The set of
// implementations is closed; tags this client does not understand decode to
// UnrecognizedAction so they can be reported instead of silently misapplied.
type Action interface {
	Kind() ActionType
}

// ClickAction dispatches a pointer click at viewport coordinates.
type ClickAction struct {
	X      int64       `json:"x"`
	Y      int64       `json:"y"`
	Button MouseButton `json:"button,omitempty"`
}

// ScrollAction moves the pointer and scrolls the viewport by a delta.
type ScrollAction struct {
	X       int64 `json:"x"`
	Y       int64 `json:"y"`
	ScrollX int64 `json:"scroll_x"`
	ScrollY int64 `json:"scroll_y"`
}

// TypeTextAction types literal text into the focused element.
type TypeTextAction struct {
	Text string `json:"text"`
}

// KeypressAction presses each named key in order.
type KeypressAction struct {
	Keys []string `json:"keys"`
}

// WaitAction gives the page time to settle.
type WaitAction struct{}

// ScreenshotAction asks for a fresh frame only.
type ScreenshotAction struct{}

// UnrecognizedAction carries any tag outside the supported set.
type UnrecognizedAction struct {
	Type string `json:"type"`
}

func (ClickAction) Kind() ActionType          { return ActionClick }
func (ScrollAction) Kind() ActionType         { return ActionScroll }
func (TypeTextAction) Kind() ActionType       { return ActionTypeText }
func (KeypressAction) Kind() ActionType       { return ActionKeypress }
func (WaitAction) Kind() ActionType           { return ActionWait }
func (ScreenshotAction) Kind() ActionType     { return ActionScreenshot }
func (a UnrecognizedAction) Kind() ActionType { return ActionType(a.Type) }

// Effective returns the button to press, defaulting to the primary button.
func (a ClickAction) Effective() MouseButton {
	if a.Button == "" {
		return ButtonLeft
	}
	return a.Button
}

// DecodeAction turns the raw action object of a computer call into its variant.
func DecodeAction(raw json.RawMessage) (Action, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("failed to read action type: %w", err)
	}

	switch ActionType(head.Type) {
	case ActionClick:
		var a ClickAction
		return decodeInto(raw, head.Type, &a)
	case ActionScroll:
		var a ScrollAction
		return decodeInto(raw, head.Type, &a)
	case ActionTypeText:
		var a TypeTextAction
		return decodeInto(raw, head.Type, &a)
	case ActionKeypress:
		var a KeypressAction
		return decodeInto(raw, head.Type, &a)
	case ActionWait:
		return WaitAction{}, nil
	case ActionScreenshot:
		return ScreenshotAction{}, nil
	default:
		return UnrecognizedAction{Type: head.Type}, nil
	}
}

// decodeInto unmarshals raw into a pointer to one of the concrete variants and
// returns the dereferenced value.
func decodeInto[T Action](raw json.RawMessage, tag string, dst *T) (Action, error) {
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, fmt.Errorf("failed to decode %q action: %w", tag, err)
	}
	return *dst, nil
}
