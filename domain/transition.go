package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType enumerates the concrete user actions a Transition can
// record. This is the domain's authoritative enum: adapter-side values
// that don't appear here (legacy probe vocab like "KEY" or "NAVIGATION")
// must be normalized into it via NormalizeActionType before reaching the
// store.
type ActionType string

const (
	ActionClick          ActionType = "click"
	ActionDoubleClick    ActionType = "double_click"
	ActionRightClick     ActionType = "right_click"
	ActionKeyPress       ActionType = "key_press"
	ActionTextInput      ActionType = "text_input"
	ActionFocus          ActionType = "focus"
	ActionHover          ActionType = "hover"
	ActionScroll         ActionType = "scroll"
	ActionTouchTap       ActionType = "touch_tap"
	ActionTouchLongPress ActionType = "touch_long_press"
	ActionGesture        ActionType = "gesture"
	ActionOther          ActionType = "other"
)

// Valid reports whether t is one of the domain's known action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionClick, ActionDoubleClick, ActionRightClick, ActionKeyPress,
		ActionTextInput, ActionFocus, ActionHover, ActionScroll,
		ActionTouchTap, ActionTouchLongPress, ActionGesture, ActionOther:
		return true
	}
	return false
}

// legacyActionAliases maps UI-probe-adapter vocabulary that never made it
// into the domain enum onto the authoritative ActionType values. Adapters
// emitting these values (e.g. a UIA/AT-SPI driver using "KEY" for a key
// event, or "NAVIGATION" for a browser back/forward) are normalized here
// rather than widening the domain enum to match adapter drift.
var legacyActionAliases = map[string]ActionType{
	"KEY":        ActionKeyPress,
	"NAVIGATION": ActionOther,
}

// NormalizeActionType maps a raw action-type string onto the domain's
// ActionType enum, resolving known adapter aliases and leaving already
// valid values untouched. An unrecognized value is reported as an error
// rather than silently coerced.
func NormalizeActionType(raw string) (ActionType, error) {
	if alias, ok := legacyActionAliases[raw]; ok {
		return alias, nil
	}
	t := ActionType(strings.ToLower(raw))
	if t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("domain: unrecognized action type %q", raw)
}

// Action is the concrete user action carried by a Transition.
type Action struct {
	Type      ActionType             `json:"type"`
	ElementID string                 `json:"element_id,omitempty"`
	RawInput  string                 `json:"raw_input,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Validate enforces that the action carries a recognized type.
func (a Action) Validate() error {
	if !a.Type.Valid() {
		return fmt.Errorf("domain: unrecognized action type %q", a.Type)
	}
	return nil
}

// Transition is a directed edge representing a user action that moved
// the UI from a source state to a target state within a context.
type Transition struct {
	ID            string                 `json:"id"`
	SourceStateID string                 `json:"source_state_id"`
	TargetStateID string                 `json:"target_state_id"`
	Action        Action                 `json:"action"`
	IntentID      string                 `json:"intent_id,omitempty"`
	Confidence    float64                `json:"confidence"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

var transitionKnownFields = map[string]struct{}{
	"id": {}, "source_state_id": {}, "target_state_id": {}, "action": {},
	"intent_id": {}, "confidence": {}, "metadata": {},
}

// UnmarshalJSON decodes a Transition, folding any top-level field not
// named above into Metadata instead of dropping it. See unknownFields.
func (t *Transition) UnmarshalJSON(data []byte) error {
	type alias Transition
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, transitionKnownFields)
	if err != nil {
		return err
	}
	*t = Transition(a)
	t.Metadata = mergeMetadata(t.Metadata, extra)
	return nil
}

// Validate enforces Transition invariants that don't require store
// access: a non-empty id, distinct-looking endpoints are NOT required
// (self-loops are legal), a valid action, and confidence in [0,1].
func (t Transition) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("domain: transition id is required")
	}
	if t.SourceStateID == "" || t.TargetStateID == "" {
		return fmt.Errorf("domain: transition source_state_id and target_state_id are required")
	}
	if err := t.Action.Validate(); err != nil {
		return err
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("domain: confidence must be within [0,1], got %v", t.Confidence)
	}
	return nil
}
