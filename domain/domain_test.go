package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Validate(t *testing.T) {
	valid := Context{ContextID: "ctx-1", AppID: "app-1", Platform: PlatformWeb}
	assert.NoError(t, valid.Validate())

	missingID := Context{AppID: "app-1"}
	assert.Error(t, missingID.Validate())

	badPlatform := Context{ContextID: "ctx-1", AppID: "app-1", Platform: "toaster"}
	assert.Error(t, badPlatform.Validate())
}

func TestUIState_ValidateElements(t *testing.T) {
	state := UIState{
		ID:    "state-1",
		AppID: "app-1",
		Elements: []InteractiveElement{
			{ID: "el-1", Role: "button", Box: &BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}},
		},
	}
	assert.NoError(t, state.Validate())

	state.Elements = append(state.Elements, InteractiveElement{ID: ""})
	assert.Error(t, state.Validate())
}

func TestBoundingBox_RejectsNegative(t *testing.T) {
	assert.Error(t, BoundingBox{X: -1}.Validate())
	assert.NoError(t, BoundingBox{X: 0, Y: 0, Width: 0, Height: 0}.Validate())
}

func TestUIState_JSONRoundTrip(t *testing.T) {
	original := UIState{
		ID:           "state-1",
		AppID:        "app-1",
		Platform:     PlatformAndroid,
		Fingerprints: map[string]string{FingerprintStructural: "abc123"},
		Elements: []InteractiveElement{
			{ID: "el-1", Role: "button", Enabled: true, Visible: true},
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded UIState
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, decoded)
}

func TestNormalizeActionType_LegacyAliases(t *testing.T) {
	keyType, err := NormalizeActionType("KEY")
	require.NoError(t, err)
	assert.Equal(t, ActionKeyPress, keyType)

	navType, err := NormalizeActionType("NAVIGATION")
	require.NoError(t, err)
	assert.Equal(t, ActionOther, navType)
}

func TestNormalizeActionType_AlreadyValid(t *testing.T) {
	clickType, err := NormalizeActionType("click")
	require.NoError(t, err)
	assert.Equal(t, ActionClick, clickType)
}

func TestNormalizeActionType_Unrecognized(t *testing.T) {
	_, err := NormalizeActionType("SOMETHING_ELSE")
	assert.Error(t, err)
}

func TestAction_Validate(t *testing.T) {
	assert.NoError(t, Action{Type: ActionClick}.Validate())
	assert.Error(t, Action{Type: "bogus"}.Validate())
}

func TestTransition_Validate(t *testing.T) {
	valid := Transition{
		ID:            "t-1",
		SourceStateID: "s-1",
		TargetStateID: "s-2",
		Action:        Action{Type: ActionClick},
		Confidence:    0.9,
	}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.ID = ""
	assert.Error(t, missingID.Validate())

	badConfidence := valid
	badConfidence.Confidence = 1.5
	assert.Error(t, badConfidence.Validate())

	selfLoop := valid
	selfLoop.TargetStateID = selfLoop.SourceStateID
	assert.NoError(t, selfLoop.Validate())
}

func TestContext_UnmarshalJSON_PreservesUnknownTopLevelFields(t *testing.T) {
	raw := []byte(`{
		"context_id": "ctx-1",
		"app_id": "app-1",
		"capture_session": "sess-42",
		"metadata": {"note": "kept"}
	}`)

	var ctx Context
	require.NoError(t, json.Unmarshal(raw, &ctx))

	assert.Equal(t, "ctx-1", ctx.ContextID)
	assert.Equal(t, "sess-42", ctx.Metadata["capture_session"])
	assert.Equal(t, "kept", ctx.Metadata["note"])
}

func TestTransition_UnmarshalJSON_PreservesUnknownTopLevelFields(t *testing.T) {
	raw := []byte(`{
		"id": "t-1",
		"source_state_id": "s-1",
		"target_state_id": "s-2",
		"action": {"type": "click"},
		"confidence": 0.5,
		"driver_trace_id": "trace-9"
	}`)

	var tr Transition
	require.NoError(t, json.Unmarshal(raw, &tr))

	assert.Equal(t, "t-1", tr.ID)
	assert.Equal(t, "trace-9", tr.Metadata["driver_trace_id"])
}

func TestUIState_UnmarshalJSON_ExplicitMetadataWinsOnCollision(t *testing.T) {
	raw := []byte(`{
		"id": "s-1",
		"app_id": "app-1",
		"tag": "from_unknown_field",
		"metadata": {"tag": "from_metadata_field"}
	}`)

	var s UIState
	require.NoError(t, json.Unmarshal(raw, &s))

	assert.Equal(t, "from_metadata_field", s.Metadata["tag"])
}
