// Package statetracker deduplicates UI states observed by exploration
// drivers before they reach ingest: the same screen seen twice should
// resolve to the same canonical id, keyed by a priority list of
// fingerprint algorithms with an id fallback.
package statetracker

import (
	"fmt"
	"sync"
	"time"

	"atlasgraph.dev/atlas/domain"
	"github.com/google/uuid"
)

// TrackedState is one canonical identity the Tracker has assigned,
// along with its observation statistics.
type TrackedState struct {
	CanonicalID string
	State       domain.UIState
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	TimesSeen   int
}

// Tracker deduplicates observed UIState values by fingerprint-key
// priority, with an optional fallback to the state's own id and
// optional auto-generation of ids for states that arrive without one.
type Tracker struct {
	PreferredFingerprintKeys []string
	AllowIDFallback          bool
	AutoGenerateIDs          bool

	mu      sync.Mutex
	byKey   map[string]string // dedup key -> canonical id
	tracked map[string]TrackedState
	now     func() time.Time
}

// New constructs a Tracker. A nil or empty preferredKeys defaults to
// [structural, visual, semantic], matching the well-known fingerprint
// keys in the domain model.
func New(preferredKeys []string, allowIDFallback, autoGenerateIDs bool) *Tracker {
	if len(preferredKeys) == 0 {
		preferredKeys = []string{domain.FingerprintStructural, domain.FingerprintVisual, domain.FingerprintSemantic}
	}
	return &Tracker{
		PreferredFingerprintKeys: preferredKeys,
		AllowIDFallback:          allowIDFallback,
		AutoGenerateIDs:          autoGenerateIDs,
		byKey:                    make(map[string]string),
		tracked:                 make(map[string]TrackedState),
		now:                     time.Now,
	}
}

// Observe assigns or coalesces state to a canonical identity. It
// mutates state.ID in place when auto-generation fills in a blank id.
func (tr *Tracker) Observe(state *domain.UIState) (canonicalID string, isNew bool, err error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if state.ID == "" && tr.AutoGenerateIDs {
		state.ID = uuid.NewString()
	}

	key, hasKey := tr.dedupKey(*state)
	now := tr.now()

	if hasKey {
		if existingID, ok := tr.byKey[key]; ok {
			ts := tr.tracked[existingID]
			ts.TimesSeen++
			ts.LastSeenAt = now
			tr.tracked[existingID] = ts
			return existingID, false, nil
		}
	}

	if state.ID == "" {
		return "", false, fmt.Errorf("statetracker: state has no id and auto-generation is disabled")
	}

	canonicalID = state.ID
	tr.tracked[canonicalID] = TrackedState{
		CanonicalID: canonicalID,
		State:       *state,
		FirstSeenAt: now,
		LastSeenAt:  now,
		TimesSeen:   1,
	}
	if hasKey {
		tr.byKey[key] = canonicalID
	}
	return canonicalID, true, nil
}

// dedupKey computes the first configured fingerprint key whose value is
// a non-empty string in state.Fingerprints, formatted as "key:value";
// falling back to "id:<id>" when AllowIDFallback is set and state.ID is
// non-empty. Returns ok=false when neither yields a key.
func (tr *Tracker) dedupKey(state domain.UIState) (string, bool) {
	for _, key := range tr.PreferredFingerprintKeys {
		if val, ok := state.Fingerprints[key]; ok && val != "" {
			return fmt.Sprintf("%s:%s", key, val), true
		}
	}
	if tr.AllowIDFallback && state.ID != "" {
		return fmt.Sprintf("id:%s", state.ID), true
	}
	return "", false
}

// All returns a snapshot copy of every tracked state.
func (tr *Tracker) All() []TrackedState {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]TrackedState, 0, len(tr.tracked))
	for _, ts := range tr.tracked {
		out = append(out, ts)
	}
	return out
}

// Get returns the TrackedState registered under canonicalID.
func (tr *Tracker) Get(canonicalID string) (TrackedState, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	ts, ok := tr.tracked[canonicalID]
	return ts, ok
}
