// Package exporter assembles a Context + states + transitions bundle
// from a statetracker.Tracker and the Transitions observed alongside
// it, inferring entry/terminal flags for the exported states.
package exporter

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"atlasgraph.dev/atlas/domain"
	"atlasgraph.dev/atlas/records"
	"atlasgraph.dev/atlas/statetracker"
)

// ContextOverrides supplies explicit values that take priority over
// values inferred from the earliest tracked state.
type ContextOverrides struct {
	ContextID string
	AppID     string
	Version   string
	Platform  domain.Platform
	Locale    string
}

// EntryPolicy controls how BuildStateRecords infers is_entry. Explicit
// ids take priority over zero-incoming-edge inference, which in turn
// takes priority over falling back to the earliest tracked state.
type EntryPolicy struct {
	ExplicitEntryIDs []string
	MarkTerminal     bool
}

// Exporter assembles export bundles from a Tracker and the Transitions
// observed during the same exploration run. Both are required
// constructor arguments: treating transitions as optional, as one
// teacher call site historically did, silently produced bundles with
// no edges.
type Exporter struct {
	tracker     *statetracker.Tracker
	transitions []domain.Transition
	overrides   ContextOverrides
	entryPolicy EntryPolicy
}

// New constructs an Exporter. tracker and transitions are both
// mandatory.
func New(tracker *statetracker.Tracker, transitions []domain.Transition, overrides ContextOverrides, entryPolicy EntryPolicy) (*Exporter, error) {
	if tracker == nil {
		return nil, fmt.Errorf("exporter: tracker is required")
	}
	if transitions == nil {
		return nil, fmt.Errorf("exporter: transitions is required (pass an empty slice, not nil, for no observed edges)")
	}
	return &Exporter{tracker: tracker, transitions: transitions, overrides: overrides, entryPolicy: entryPolicy}, nil
}

// BuildContext returns the exported Context, preferring explicit
// overrides and otherwise inferring app_id/version/platform/locale from
// the earliest tracked state (the one whose FirstSeenAt time is
// earliest).
func (e *Exporter) BuildContext() (domain.Context, error) {
	ctx := domain.Context{
		ContextID: e.overrides.ContextID,
		AppID:     e.overrides.AppID,
		Version:   e.overrides.Version,
		Platform:  e.overrides.Platform,
		Locale:    e.overrides.Locale,
	}

	if ctx.AppID == "" || ctx.Version == "" || ctx.Platform == "" || ctx.Locale == "" {
		earliest, ok := e.earliestTrackedState()
		if ok {
			if ctx.AppID == "" {
				ctx.AppID = earliest.State.AppID
			}
			if ctx.Version == "" {
				ctx.Version = earliest.State.Version
			}
			if ctx.Platform == "" {
				ctx.Platform = earliest.State.Platform
			}
			if ctx.Locale == "" {
				ctx.Locale = earliest.State.Locale
			}
		}
	}

	if ctx.AppID == "" {
		return domain.Context{}, fmt.Errorf("exporter: no app_id could be determined")
	}
	if ctx.ContextID == "" {
		ctx.ContextID = fmt.Sprintf("%s-%s", sanitizeForID(ctx.AppID), randomHex8())
	}
	return ctx, nil
}

func (e *Exporter) earliestTrackedState() (statetracker.TrackedState, bool) {
	all := e.tracker.All()
	if len(all) == 0 {
		return statetracker.TrackedState{}, false
	}
	earliest := all[0]
	for _, ts := range all[1:] {
		if ts.FirstSeenAt.Before(earliest.FirstSeenAt) {
			earliest = ts
		}
	}
	return earliest, true
}

func sanitizeForID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func randomHex8() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf)
}

// BuildStateRecords returns one StateRecord per tracked state, with
// is_entry and is_terminal inferred from incidence among the observed
// Transitions.
func (e *Exporter) BuildStateRecords() []records.StateRecord {
	all := e.tracker.All()
	outgoingCount := map[string]int{}
	incomingCount := map[string]int{}
	for _, t := range e.transitions {
		outgoingCount[t.SourceStateID]++
		incomingCount[t.TargetStateID]++
	}

	explicitEntry := map[string]bool{}
	for _, id := range e.entryPolicy.ExplicitEntryIDs {
		explicitEntry[id] = true
	}

	hasZeroIncoming := false
	for _, ts := range all {
		if incomingCount[ts.CanonicalID] == 0 {
			hasZeroIncoming = true
			break
		}
	}

	earliestID := ""
	if earliest, ok := e.earliestTrackedState(); ok {
		earliestID = earliest.CanonicalID
	}

	out := make([]records.StateRecord, 0, len(all))
	for _, ts := range all {
		isEntry := false
		switch {
		case len(explicitEntry) > 0:
			isEntry = explicitEntry[ts.CanonicalID]
		case hasZeroIncoming:
			isEntry = incomingCount[ts.CanonicalID] == 0
		default:
			isEntry = ts.CanonicalID == earliestID
		}

		isTerminal := false
		if e.entryPolicy.MarkTerminal {
			isTerminal = outgoingCount[ts.CanonicalID] == 0
		}

		out = append(out, records.StateRecord{
			State:        ts.State,
			DiscoveredAt: ts.FirstSeenAt,
			IsEntry:      isEntry,
			IsTerminal:   isTerminal,
		})
	}
	return out
}

// BuildTransitionRecords returns one TransitionRecord per observed
// Transition, each with TimesObserved = 1; the downstream store merges
// repeated observations on ingest.
func (e *Exporter) BuildTransitionRecords() []records.TransitionRecord {
	out := make([]records.TransitionRecord, 0, len(e.transitions))
	for _, t := range e.transitions {
		out = append(out, records.TransitionRecord{Transition: t, TimesObserved: 1})
	}
	return out
}

// Bundle is the exporter's assembled output shape.
type Bundle struct {
	Context     domain.Context             `json:"context"`
	States      []records.StateRecord      `json:"states"`
	Transitions []records.TransitionRecord `json:"transitions"`
}

// BuildBundle assembles {context, states, transitions}, stamping the
// built context id onto every state and transition record.
func (e *Exporter) BuildBundle() (Bundle, error) {
	ctx, err := e.BuildContext()
	if err != nil {
		return Bundle{}, err
	}
	states := e.BuildStateRecords()
	for i := range states {
		states[i].ContextID = ctx.ContextID
	}
	transitions := e.BuildTransitionRecords()
	for i := range transitions {
		transitions[i].ContextID = ctx.ContextID
	}
	return Bundle{Context: ctx, States: states, Transitions: transitions}, nil
}
