// Package records defines the store-facing record shapes that wrap a
// domain value with the provenance and bookkeeping fields graphstore,
// ingest, query, workflowstore, and exporter all share: discovery
// timestamps, observation counts, tags, and free-form metadata.
package records

import (
	"encoding/json"
	"time"

	"atlasgraph.dev/atlas/domain"
)

// StateRecord pairs a domain.UIState with its context membership and
// discovery/classification bookkeeping.
type StateRecord struct {
	ContextID    string                 `json:"context_id"`
	State        domain.UIState         `json:"state"`
	DiscoveredAt time.Time              `json:"discovered_at"`
	IsEntry      bool                   `json:"is_entry"`
	IsTerminal   bool                   `json:"is_terminal"`
	Tags         []string               `json:"tags,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// TransitionRecord pairs a domain.Transition with its context membership
// and observation bookkeeping. TimesObserved is clamped to a minimum of
// 1 by NewTransitionRecord: a transition that exists in the store has,
// by definition, been observed at least once.
type TransitionRecord struct {
	ContextID     string                 `json:"context_id"`
	Transition    domain.Transition      `json:"transition"`
	DiscoveredAt  time.Time              `json:"discovered_at"`
	TimesObserved int                    `json:"times_observed"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

var stateRecordKnownFields = map[string]struct{}{
	"context_id": {}, "state": {}, "discovered_at": {}, "is_entry": {},
	"is_terminal": {}, "tags": {}, "metadata": {},
}

// UnmarshalJSON decodes a StateRecord, folding any top-level field not
// named above into Metadata instead of dropping it.
func (r *StateRecord) UnmarshalJSON(data []byte) error {
	type alias StateRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, stateRecordKnownFields)
	if err != nil {
		return err
	}
	*r = StateRecord(a)
	r.Metadata = mergeMetadata(r.Metadata, extra)
	return nil
}

var transitionRecordKnownFields = map[string]struct{}{
	"context_id": {}, "transition": {}, "discovered_at": {},
	"times_observed": {}, "metadata": {},
}

// UnmarshalJSON decodes a TransitionRecord, folding any top-level field
// not named above into Metadata instead of dropping it.
func (r *TransitionRecord) UnmarshalJSON(data []byte) error {
	type alias TransitionRecord
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, transitionRecordKnownFields)
	if err != nil {
		return err
	}
	*r = TransitionRecord(a)
	r.Metadata = mergeMetadata(r.Metadata, extra)
	return nil
}

// NewTransitionRecord builds a TransitionRecord, clamping timesObserved
// to a minimum of 1.
func NewTransitionRecord(contextID string, transition domain.Transition, discoveredAt time.Time, timesObserved int, metadata map[string]interface{}) TransitionRecord {
	if timesObserved < 1 {
		timesObserved = 1
	}
	return TransitionRecord{
		ContextID:     contextID,
		Transition:    transition,
		DiscoveredAt:  discoveredAt,
		TimesObserved: timesObserved,
		Metadata:      metadata,
	}
}

// Workflow is a named, ordered sequence of transition ids within one
// context. Ordering is significant and is preserved verbatim by
// workflowstore; validity of the referenced transition ids is enforced
// at write time only, not on every read.
type Workflow struct {
	WorkflowID    string                 `json:"workflow_id"`
	ContextID     string                 `json:"context_id"`
	Label         string                 `json:"label"`
	Description   string                 `json:"description,omitempty"`
	TransitionIDs []string               `json:"transition_ids"`
	IntentID      *string                `json:"intent_id,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

var workflowKnownFields = map[string]struct{}{
	"workflow_id": {}, "context_id": {}, "label": {}, "description": {},
	"transition_ids": {}, "intent_id": {}, "tags": {}, "metadata": {},
}

// UnmarshalJSON decodes a Workflow, folding any top-level field not
// named above into Metadata instead of dropping it.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	type alias Workflow
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unknownFields(data, workflowKnownFields)
	if err != nil {
		return err
	}
	*w = Workflow(a)
	w.Metadata = mergeMetadata(w.Metadata, extra)
	return nil
}
