// Package workflowstore owns named, ordered sequences of transition
// ids within a context. It holds only identifiers into a graphstore —
// it is unaware of whether those transitions are later mutated — and
// validates referenced ids exist only at write time.
package workflowstore

import (
	"strings"
	"sync"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/graphstore"
	"atlasgraph.dev/atlas/records"
)

// Store owns workflow entries and a secondary context -> workflow-id
// index, under its own lock discipline separate from the graph store
// it validates against.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]records.Workflow
	byContext map[string]map[string]struct{}
	graph     *graphstore.Store
}

// New constructs an empty Store that validates workflow writes against
// graph.
func New(graph *graphstore.Store) *Store {
	return &Store{
		workflows: make(map[string]records.Workflow),
		byContext: make(map[string]map[string]struct{}),
		graph:     graph,
	}
}

// UpsertWorkflow validates that w.ContextID exists and every id in
// w.TransitionIDs exists under that context, then inserts or replaces
// w. Validation happens only here, at write time; later changes to the
// underlying transitions are not re-checked.
func (s *Store) UpsertWorkflow(w records.Workflow) error {
	if w.WorkflowID == "" {
		return atlaserrors.New(atlaserrors.KindValidationFailure, "workflowstore: workflow_id is required")
	}
	if !s.graph.ContextExists(w.ContextID) {
		return atlaserrors.New(atlaserrors.KindReferentialIntegrity, "workflowstore: context %q not found", w.ContextID)
	}
	for _, tid := range w.TransitionIDs {
		if _, err := s.graph.GetTransition(w.ContextID, tid); err != nil {
			return atlaserrors.New(atlaserrors.KindReferentialIntegrity, "workflowstore: transition %q not found in context %q", tid, w.ContextID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.workflows[w.WorkflowID]; exists && old.ContextID != w.ContextID {
		removeFromIndex(s.byContext, old.ContextID, old.WorkflowID)
	}
	s.workflows[w.WorkflowID] = w
	addToIndex(s.byContext, w.ContextID, w.WorkflowID)
	return nil
}

func addToIndex(index map[string]map[string]struct{}, contextID, workflowID string) {
	set, ok := index[contextID]
	if !ok {
		set = make(map[string]struct{})
		index[contextID] = set
	}
	set[workflowID] = struct{}{}
}

func removeFromIndex(index map[string]map[string]struct{}, contextID, workflowID string) {
	if set, ok := index[contextID]; ok {
		delete(set, workflowID)
	}
}

// ExpandedWorkflow carries a Workflow alongside its resolved
// TransitionRecords when expansion is requested.
type ExpandedWorkflow struct {
	Workflow    records.Workflow           `json:"workflow"`
	Transitions []records.TransitionRecord `json:"transitions,omitempty"`
}

// GetWorkflow returns the workflow stored under id. When expand is
// true, it also resolves each referenced transition id into its
// TransitionRecord, silently skipping ids no longer resolvable in the
// graph store; the workflow metadata itself is returned verbatim
// either way.
func (s *Store) GetWorkflow(id string, expand bool) (ExpandedWorkflow, error) {
	s.mu.RLock()
	w, ok := s.workflows[id]
	s.mu.RUnlock()
	if !ok {
		return ExpandedWorkflow{}, atlaserrors.New(atlaserrors.KindNotFound, "workflowstore: workflow %q not found", id)
	}

	out := ExpandedWorkflow{Workflow: w}
	if !expand {
		return out, nil
	}
	for _, tid := range w.TransitionIDs {
		rec, err := s.graph.GetTransition(w.ContextID, tid)
		if err != nil {
			continue
		}
		out.Transitions = append(out.Transitions, rec)
	}
	return out, nil
}

// WorkflowFilter narrows a ListWorkflows call.
type WorkflowFilter struct {
	ContextID string
	IntentID  string
	Tag       string
}

// ListWorkflows returns every workflow matching filter.
func (s *Store) ListWorkflows(filter WorkflowFilter) []records.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]records.Workflow, 0, len(s.workflows))
	for _, w := range s.workflows {
		if filter.ContextID != "" && w.ContextID != filter.ContextID {
			continue
		}
		if filter.IntentID != "" && (w.IntentID == nil || *w.IntentID != filter.IntentID) {
			continue
		}
		if filter.Tag != "" && !hasTag(w.Tags, filter.Tag) {
			continue
		}
		out = append(out, w)
	}
	return out
}

func hasTag(tags []string, want string) bool {
	want = strings.TrimSpace(strings.ToLower(want))
	for _, t := range tags {
		if strings.TrimSpace(strings.ToLower(t)) == want {
			return true
		}
	}
	return false
}

// DeleteWorkflow removes the workflow stored under id, reporting
// whether anything was deleted.
func (s *Store) DeleteWorkflow(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.workflows[id]
	if !ok {
		return false
	}
	delete(s.workflows, id)
	removeFromIndex(s.byContext, w.ContextID, id)
	return true
}
