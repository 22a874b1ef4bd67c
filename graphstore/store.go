// Package graphstore implements Atlas's in-memory, context-partitioned
// multigraph: the sole owner of every Context, StateRecord, and
// TransitionRecord for the life of the process, plus the incidence
// indices that make incoming/outgoing lookups and shortest-path queries
// cheap. Locking and snapshot-copy discipline follow the teacher's
// operation-tracking manager: one mutex guards every map, and readers
// copy what they need before releasing it.
package graphstore

import (
	"sort"
	"strings"
	"sync"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/domain"
	"atlasgraph.dev/atlas/records"
)

// Limits bounds the store's growth. Zero means unbounded for that
// dimension.
type Limits struct {
	MaxContexts              int
	MaxStatesPerContext      int
	MaxTransitionsPerContext int
}

type contextPartition struct {
	states       map[string]records.StateRecord
	transitions  map[string]records.TransitionRecord
	outgoing     map[string]map[string]struct{}
	incoming     map[string]map[string]struct{}
}

func newContextPartition() *contextPartition {
	return &contextPartition{
		states:      make(map[string]records.StateRecord),
		transitions: make(map[string]records.TransitionRecord),
		outgoing:    make(map[string]map[string]struct{}),
		incoming:    make(map[string]map[string]struct{}),
	}
}

// Store is Atlas's graph storage engine: a context-partitioned
// multigraph with incidence indices, guarded by a single lock.
//
// The lock is a plain sync.Mutex, not reentrant: every exported method
// acquires it itself and none call each other while holding it.
// Internal helpers that need to run under an already-held lock take an
// unexported name ending in "Locked" and are never exported, which
// keeps the non-reentrant mutex safe without the bookkeeping a
// reentrant-lock emulation would add (see DESIGN.md's note on this
// Open Question).
type Store struct {
	mu         sync.Mutex
	limits     Limits
	contexts   map[string]domain.Context
	partitions map[string]*contextPartition
}

// New constructs an empty Store with the given capacity limits.
func New(limits Limits) *Store {
	return &Store{
		limits:     limits,
		contexts:   make(map[string]domain.Context),
		partitions: make(map[string]*contextPartition),
	}
}

func (s *Store) partitionLocked(contextID string) *contextPartition {
	p, ok := s.partitions[contextID]
	if !ok {
		p = newContextPartition()
		s.partitions[contextID] = p
	}
	return p
}

// UpsertContext inserts or replaces ctx. A new context beyond
// MaxContexts fails with CapacityExceeded; replacing an existing one
// never does, and never touches that context's state/transition
// partition.
func (s *Store) UpsertContext(ctx domain.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.contexts[ctx.ContextID]
	if !exists && s.limits.MaxContexts > 0 && len(s.contexts) >= s.limits.MaxContexts {
		return atlaserrors.New(atlaserrors.KindCapacityExceeded, "graphstore: max_contexts (%d) reached", s.limits.MaxContexts)
	}
	s.contexts[ctx.ContextID] = ctx
	s.partitionLocked(ctx.ContextID)
	return nil
}

// GetContext returns a copy of the Context stored under id.
func (s *Store) GetContext(contextID string) (domain.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.contexts[contextID]
	if !ok {
		return domain.Context{}, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	return ctx, nil
}

// ListContexts returns a snapshot copy of every stored Context.
func (s *Store) ListContexts() []domain.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Context, 0, len(s.contexts))
	for _, ctx := range s.contexts {
		out = append(out, ctx)
	}
	return out
}

// ContextExists reports whether contextID has been upserted.
func (s *Store) ContextExists(contextID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.contexts[contextID]
	return ok
}

// UpsertState inserts or replaces rec. Incidence indices are untouched:
// a state's identity carries no incidence of its own.
func (s *Store) UpsertState(rec records.StateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	part := s.partitionLocked(rec.ContextID)
	_, exists := part.states[rec.State.ID]
	if !exists && s.limits.MaxStatesPerContext > 0 && len(part.states) >= s.limits.MaxStatesPerContext {
		return atlaserrors.New(atlaserrors.KindCapacityExceeded, "graphstore: max_states_per_context (%d) reached for context %q", s.limits.MaxStatesPerContext, rec.ContextID)
	}
	part.states[rec.State.ID] = rec
	return nil
}

// GetState returns a copy of the StateRecord stored under (contextID, stateID).
func (s *Store) GetState(contextID, stateID string) (records.StateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return records.StateRecord{}, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	rec, ok := part.states[stateID]
	if !ok {
		return records.StateRecord{}, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: state %q not found in context %q", stateID, contextID)
	}
	return rec, nil
}

// StateExists reports whether stateID is present in contextID.
func (s *Store) StateExists(contextID, stateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	part, ok := s.partitions[contextID]
	if !ok {
		return false
	}
	_, ok = part.states[stateID]
	return ok
}

// ListStates returns a snapshot copy of every StateRecord in contextID.
func (s *Store) ListStates(contextID string) ([]records.StateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return nil, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	out := make([]records.StateRecord, 0, len(part.states))
	for _, rec := range part.states {
		out = append(out, rec)
	}
	return out, nil
}

// FindStatesByTag returns every StateRecord in contextID carrying tag,
// matched case-insensitively and trimmed of surrounding whitespace.
func (s *Store) FindStatesByTag(contextID, tag string) ([]records.StateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return nil, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	want := strings.TrimSpace(strings.ToLower(tag))
	var out []records.StateRecord
	for _, rec := range part.states {
		for _, t := range rec.Tags {
			if strings.TrimSpace(strings.ToLower(t)) == want {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// UpsertTransition inserts or replaces rec, maintaining outgoing/incoming
// incidence indices per the four-step algorithm: remove stale incidence
// if an endpoint changed, enforce capacity on a genuinely new id,
// overwrite times_observed when incrementObserved is set, store the
// record, then (re)insert current incidence.
func (s *Store) UpsertTransition(rec records.TransitionRecord, incrementObserved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	part := s.partitionLocked(rec.ContextID)
	tid := rec.Transition.ID

	if old, exists := part.transitions[tid]; exists {
		oldSource := old.Transition.SourceStateID
		oldTarget := old.Transition.TargetStateID
		if oldSource != rec.Transition.SourceStateID {
			removeFromSet(part.outgoing[oldSource], tid)
		}
		if oldTarget != rec.Transition.TargetStateID {
			removeFromSet(part.incoming[oldTarget], tid)
		}
		if incrementObserved {
			rec.TimesObserved = old.TimesObserved + 1
		}
	} else if s.limits.MaxTransitionsPerContext > 0 && len(part.transitions) >= s.limits.MaxTransitionsPerContext {
		return atlaserrors.New(atlaserrors.KindCapacityExceeded, "graphstore: max_transitions_per_context (%d) reached for context %q", s.limits.MaxTransitionsPerContext, rec.ContextID)
	}

	if rec.TimesObserved < 1 {
		rec.TimesObserved = 1
	}
	part.transitions[tid] = rec

	addToSet(part.outgoing, rec.Transition.SourceStateID, tid)
	addToSet(part.incoming, rec.Transition.TargetStateID, tid)
	return nil
}

func addToSet(index map[string]map[string]struct{}, key, member string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[member] = struct{}{}
}

func removeFromSet(set map[string]struct{}, member string) {
	if set == nil {
		return
	}
	delete(set, member)
}

// GetTransition returns a copy of the TransitionRecord stored under
// (contextID, transitionID).
func (s *Store) GetTransition(contextID, transitionID string) (records.TransitionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return records.TransitionRecord{}, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	rec, ok := part.transitions[transitionID]
	if !ok {
		return records.TransitionRecord{}, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: transition %q not found in context %q", transitionID, contextID)
	}
	return rec, nil
}

// ListTransitions returns a snapshot copy of every TransitionRecord in contextID.
func (s *Store) ListTransitions(contextID string) ([]records.TransitionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return nil, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	out := make([]records.TransitionRecord, 0, len(part.transitions))
	for _, rec := range part.transitions {
		out = append(out, rec)
	}
	return out, nil
}

// ListOutgoing returns the TransitionRecords whose source is stateID.
func (s *Store) ListOutgoing(contextID, stateID string) ([]records.TransitionRecord, error) {
	return s.listIncident(contextID, stateID, true)
}

// ListIncoming returns the TransitionRecords whose target is stateID.
func (s *Store) ListIncoming(contextID, stateID string) ([]records.TransitionRecord, error) {
	return s.listIncident(contextID, stateID, false)
}

func (s *Store) listIncident(contextID, stateID string, outgoing bool) ([]records.TransitionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return nil, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}
	index := part.incoming
	if outgoing {
		index = part.outgoing
	}
	ids := index[stateID]
	out := make([]records.TransitionRecord, 0, len(ids))
	for id := range ids {
		out = append(out, part.transitions[id])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Transition.ID < out[j].Transition.ID
	})
	return out, nil
}

// ErrNoPath is returned by ShortestPath when target is unreachable from
// source within maxDepth (or at all).
var ErrNoPath = atlaserrors.New(atlaserrors.KindNotFound, "graphstore: no path between states")

// ShortestPath runs a breadth-first search over outgoing adjacency from
// source to target, bounded by maxDepth edges when non-nil. It returns
// the ordered list of TransitionRecords traversed; an empty, non-nil
// slice means source == target (zero edges).
func (s *Store) ShortestPath(contextID, source, target string, maxDepth *int) ([]records.TransitionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	part, ok := s.partitions[contextID]
	if !ok {
		return nil, atlaserrors.New(atlaserrors.KindNotFound, "graphstore: context %q not found", contextID)
	}

	if source == target {
		return []records.TransitionRecord{}, nil
	}
	if len(part.transitions) == 0 {
		return nil, ErrNoPath
	}

	type parentLink struct {
		prevState    string
		viaTransition string
	}
	visited := map[string]bool{source: true}
	parents := map[string]parentLink{}

	type queued struct {
		state string
		depth int
	}
	queue := []queued{{state: source, depth: 0}}

	found := false
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if maxDepth != nil && cur.depth >= *maxDepth {
			continue
		}

		ids := make([]string, 0, len(part.outgoing[cur.state]))
		for id := range part.outgoing[cur.state] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, tid := range ids {
			rec := part.transitions[tid]
			next := rec.Transition.TargetStateID
			if visited[next] {
				continue
			}
			visited[next] = true
			parents[next] = parentLink{prevState: cur.state, viaTransition: tid}
			if next == target {
				found = true
				break
			}
			queue = append(queue, queued{state: next, depth: cur.depth + 1})
		}
		if found {
			break
		}
	}

	if !found {
		return nil, ErrNoPath
	}

	var reversed []records.TransitionRecord
	at := target
	for at != source {
		link := parents[at]
		reversed = append(reversed, part.transitions[link.viaTransition])
		at = link.prevState
	}
	path := make([]records.TransitionRecord, len(reversed))
	for i, rec := range reversed {
		path[len(reversed)-1-i] = rec
	}
	return path, nil
}
