package records

import (
	"encoding/json"
	"testing"
	"time"

	"atlasgraph.dev/atlas/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransitionRecord_ClampsTimesObserved(t *testing.T) {
	transition := domain.Transition{ID: "t-1", SourceStateID: "s-1", TargetStateID: "s-2"}

	rec := NewTransitionRecord("ctx-1", transition, time.Now(), 0, nil)
	assert.Equal(t, 1, rec.TimesObserved)

	rec = NewTransitionRecord("ctx-1", transition, time.Now(), -5, nil)
	assert.Equal(t, 1, rec.TimesObserved)

	rec = NewTransitionRecord("ctx-1", transition, time.Now(), 7, nil)
	assert.Equal(t, 7, rec.TimesObserved)
}

func TestWorkflow_PreservesTransitionOrder(t *testing.T) {
	wf := Workflow{
		WorkflowID:    "wf-1",
		ContextID:     "ctx-1",
		Label:         "checkout",
		TransitionIDs: []string{"t-3", "t-1", "t-2"},
	}
	assert.Equal(t, []string{"t-3", "t-1", "t-2"}, wf.TransitionIDs)
}

func TestStateRecord_UnmarshalJSON_PreservesUnknownTopLevelFields(t *testing.T) {
	raw := []byte(`{
		"context_id": "ctx-1",
		"state": {"id": "s-1", "app_id": "app-1"},
		"discovered_at": "2026-01-01T00:00:00Z",
		"classifier_version": "v3"
	}`)

	var rec StateRecord
	require.NoError(t, json.Unmarshal(raw, &rec))

	assert.Equal(t, "ctx-1", rec.ContextID)
	assert.Equal(t, "v3", rec.Metadata["classifier_version"])
}

func TestWorkflow_UnmarshalJSON_PreservesUnknownTopLevelFields(t *testing.T) {
	raw := []byte(`{
		"workflow_id": "wf-1",
		"context_id": "ctx-1",
		"label": "checkout",
		"transition_ids": ["t-1"],
		"authored_by": "probe-7"
	}`)

	var wf Workflow
	require.NoError(t, json.Unmarshal(raw, &wf))

	assert.Equal(t, "wf-1", wf.WorkflowID)
	assert.Equal(t, "probe-7", wf.Metadata["authored_by"])
}
