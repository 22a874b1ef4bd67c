package statetracker

import (
	"testing"

	"atlasgraph.dev/atlas/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObserve_DedupByStructuralFingerprint is Scenario F.
func TestObserve_DedupByStructuralFingerprint(t *testing.T) {
	tr := New([]string{domain.FingerprintStructural}, false, true)

	x := domain.UIState{Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	idX, isNewX, err := tr.Observe(&x)
	require.NoError(t, err)
	assert.True(t, isNewX)
	assert.NotEmpty(t, idX)

	y := domain.UIState{ID: "other", Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	idY, isNewY, err := tr.Observe(&y)
	require.NoError(t, err)
	assert.False(t, isNewY)
	assert.Equal(t, idX, idY)

	assert.Len(t, tr.All(), 1)
}

func TestObserve_DistinctFingerprintsAreDistinctStates(t *testing.T) {
	tr := New([]string{domain.FingerprintStructural}, false, true)

	a := domain.UIState{Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	b := domain.UIState{Fingerprints: map[string]string{domain.FingerprintStructural: "h2"}}

	idA, _, err := tr.Observe(&a)
	require.NoError(t, err)
	idB, _, err := tr.Observe(&b)
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
	assert.Len(t, tr.All(), 2)
}

func TestObserve_IDFallback(t *testing.T) {
	tr := New([]string{domain.FingerprintStructural}, true, false)

	state := domain.UIState{ID: "s1"}
	id, isNew, err := tr.Observe(&state)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "s1", id)

	state2 := domain.UIState{ID: "s1"}
	id2, isNew2, err := tr.Observe(&state2)
	require.NoError(t, err)
	assert.False(t, isNew2)
	assert.Equal(t, id, id2)
}

func TestObserve_NoKeyNoAutoGenerateFails(t *testing.T) {
	tr := New([]string{domain.FingerprintStructural}, false, false)
	state := domain.UIState{}
	_, _, err := tr.Observe(&state)
	assert.Error(t, err)
}

func TestObserve_TracksSeenStats(t *testing.T) {
	tr := New([]string{domain.FingerprintStructural}, false, true)
	state := domain.UIState{Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}

	id, _, err := tr.Observe(&state)
	require.NoError(t, err)

	second := domain.UIState{Fingerprints: map[string]string{domain.FingerprintStructural: "h1"}}
	_, _, err = tr.Observe(&second)
	require.NoError(t, err)

	ts, ok := tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, 2, ts.TimesSeen)
}
