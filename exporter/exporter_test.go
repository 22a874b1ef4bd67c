package exporter

import (
	"testing"

	"atlasgraph.dev/atlas/domain"
	"atlasgraph.dev/atlas/statetracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresTrackerAndTransitions(t *testing.T) {
	_, err := New(nil, []domain.Transition{}, ContextOverrides{}, EntryPolicy{})
	assert.Error(t, err)

	tracker := statetracker.New(nil, false, true)
	_, err = New(tracker, nil, ContextOverrides{}, EntryPolicy{})
	assert.Error(t, err)

	_, err = New(tracker, []domain.Transition{}, ContextOverrides{}, EntryPolicy{})
	assert.NoError(t, err)
}

func TestBuildContext_InfersFromEarliestTrackedState(t *testing.T) {
	tracker := statetracker.New([]string{domain.FingerprintStructural}, false, true)
	a := domain.UIState{AppID: "myapp", Platform: domain.PlatformWeb, Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	_, _, err := tracker.Observe(&a)
	require.NoError(t, err)

	exp, err := New(tracker, []domain.Transition{}, ContextOverrides{}, EntryPolicy{})
	require.NoError(t, err)

	ctx, err := exp.BuildContext()
	require.NoError(t, err)
	assert.Equal(t, "myapp", ctx.AppID)
	assert.Equal(t, domain.PlatformWeb, ctx.Platform)
	assert.NotEmpty(t, ctx.ContextID)
}

func TestBuildContext_FailsWithoutAppID(t *testing.T) {
	tracker := statetracker.New(nil, false, true)
	exp, err := New(tracker, []domain.Transition{}, ContextOverrides{}, EntryPolicy{})
	require.NoError(t, err)

	_, err = exp.BuildContext()
	assert.Error(t, err)
}

func TestBuildStateRecords_EntryByZeroIncoming(t *testing.T) {
	tracker := statetracker.New([]string{domain.FingerprintStructural}, false, true)
	a := domain.UIState{ID: "s1", AppID: "app", Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	b := domain.UIState{ID: "s2", AppID: "app", Fingerprints: map[string]string{domain.FingerprintStructural: "h2"}}
	_, _, err := tracker.Observe(&a)
	require.NoError(t, err)
	_, _, err = tracker.Observe(&b)
	require.NoError(t, err)

	transitions := []domain.Transition{
		{ID: "t1", SourceStateID: "s1", TargetStateID: "s2", Action: domain.Action{Type: domain.ActionClick}},
	}
	exp, err := New(tracker, transitions, ContextOverrides{}, EntryPolicy{MarkTerminal: true})
	require.NoError(t, err)

	states := exp.BuildStateRecords()
	byID := map[string]bool{}
	terminalByID := map[string]bool{}
	for _, s := range states {
		byID[s.State.ID] = s.IsEntry
		terminalByID[s.State.ID] = s.IsTerminal
	}
	assert.True(t, byID["s1"])
	assert.False(t, byID["s2"])
	assert.True(t, terminalByID["s2"])
	assert.False(t, terminalByID["s1"])
}

func TestBuildTransitionRecords_TimesObservedOne(t *testing.T) {
	tracker := statetracker.New(nil, false, true)
	transitions := []domain.Transition{
		{ID: "t1", SourceStateID: "s1", TargetStateID: "s2", Action: domain.Action{Type: domain.ActionClick}},
	}
	exp, err := New(tracker, transitions, ContextOverrides{}, EntryPolicy{})
	require.NoError(t, err)

	recs := exp.BuildTransitionRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].TimesObserved)
}

func TestBuildBundle_StampsContextIDOntoRecords(t *testing.T) {
	tracker := statetracker.New([]string{domain.FingerprintStructural}, false, true)
	a := domain.UIState{ID: "s1", AppID: "app", Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	_, _, err := tracker.Observe(&a)
	require.NoError(t, err)

	exp, err := New(tracker, []domain.Transition{}, ContextOverrides{ContextID: "ctx-fixed"}, EntryPolicy{})
	require.NoError(t, err)

	bundle, err := exp.BuildBundle()
	require.NoError(t, err)
	require.Len(t, bundle.States, 1)
	assert.Equal(t, "ctx-fixed", bundle.States[0].ContextID)
	assert.Equal(t, "ctx-fixed", bundle.Context.ContextID)
}
