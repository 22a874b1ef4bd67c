// Package query is the read side layered over a graphstore.Store: tag
// and metadata filters, incidence lookups, a shortest-path wrapper, and
// a health summary. Every not-found condition surfaces as a NotFound
// atlaserrors.Error.
package query

import (
	"strings"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/domain"
	"atlasgraph.dev/atlas/graphstore"
	"atlasgraph.dev/atlas/records"
)

// Querier wraps a graphstore.Store with the filtered read contracts.
type Querier struct {
	store *graphstore.Store
}

// New constructs a Querier over store.
func New(store *graphstore.Store) *Querier {
	return &Querier{store: store}
}

// GetContext returns a single context by id, or a NotFound
// atlaserrors.Error if it does not exist.
func (q *Querier) GetContext(contextID string) (domain.Context, error) {
	return q.store.GetContext(contextID)
}

// ListContexts returns every context in the store. Never fails.
func (q *Querier) ListContexts() []domain.Context {
	return q.store.ListContexts()
}

// StateFilter narrows a ListStates call. A zero value matches every
// state in the context.
type StateFilter struct {
	Tag          string
	Source       string
	ReviewStatus string
}

// TransitionFilter narrows a ListTransitions/ListOutgoing/ListIncoming
// call.
type TransitionFilter struct {
	Source       string
	ReviewStatus string
	IntentID     string
}

func metadataString(metadata map[string]interface{}, key string) (string, bool) {
	v, ok := metadata[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func matchesTag(tags []string, want string) bool {
	want = strings.TrimSpace(strings.ToLower(want))
	for _, t := range tags {
		if strings.TrimSpace(strings.ToLower(t)) == want {
			return true
		}
	}
	return false
}

func matchesStateFilter(rec records.StateRecord, filter StateFilter) bool {
	if filter.Tag != "" && !matchesTag(rec.Tags, filter.Tag) {
		return false
	}
	if filter.Source != "" {
		v, ok := metadataString(rec.Metadata, "source")
		if !ok || v != filter.Source {
			return false
		}
	}
	if filter.ReviewStatus != "" {
		v, ok := metadataString(rec.Metadata, "review_status")
		if !ok || v != filter.ReviewStatus {
			return false
		}
	}
	return true
}

func matchesTransitionFilter(rec records.TransitionRecord, filter TransitionFilter) bool {
	if filter.Source != "" {
		v, ok := metadataString(rec.Metadata, "source")
		if !ok || v != filter.Source {
			return false
		}
	}
	if filter.ReviewStatus != "" {
		v, ok := metadataString(rec.Metadata, "review_status")
		if !ok || v != filter.ReviewStatus {
			return false
		}
	}
	if filter.IntentID != "" && rec.Transition.IntentID != filter.IntentID {
		return false
	}
	return true
}

// ListStates returns the states in context matching filter. The tag
// predicate is applied exactly once, regardless of which other filters
// are combined with it.
func (q *Querier) ListStates(contextID string, filter StateFilter) ([]records.StateRecord, error) {
	var base []records.StateRecord
	var err error
	if filter.Tag != "" {
		base, err = q.store.FindStatesByTag(contextID, filter.Tag)
	} else {
		base, err = q.store.ListStates(contextID)
	}
	if err != nil {
		return nil, err
	}

	out := make([]records.StateRecord, 0, len(base))
	for _, rec := range base {
		if filter.Tag != "" {
			// already tag-filtered by the store; only check the remaining predicates
			if filter.Source != "" {
				if v, ok := metadataString(rec.Metadata, "source"); !ok || v != filter.Source {
					continue
				}
			}
			if filter.ReviewStatus != "" {
				if v, ok := metadataString(rec.Metadata, "review_status"); !ok || v != filter.ReviewStatus {
					continue
				}
			}
			out = append(out, rec)
			continue
		}
		if matchesStateFilter(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListTransitions returns the transitions in context matching filter.
func (q *Querier) ListTransitions(contextID string, filter TransitionFilter) ([]records.TransitionRecord, error) {
	base, err := q.store.ListTransitions(contextID)
	if err != nil {
		return nil, err
	}
	return filterTransitions(base, filter), nil
}

// ListOutgoing returns the outgoing transitions of state matching filter.
func (q *Querier) ListOutgoing(contextID, stateID string, filter TransitionFilter) ([]records.TransitionRecord, error) {
	base, err := q.store.ListOutgoing(contextID, stateID)
	if err != nil {
		return nil, err
	}
	return filterTransitions(base, filter), nil
}

// ListIncoming returns the incoming transitions of state matching filter.
func (q *Querier) ListIncoming(contextID, stateID string, filter TransitionFilter) ([]records.TransitionRecord, error) {
	base, err := q.store.ListIncoming(contextID, stateID)
	if err != nil {
		return nil, err
	}
	return filterTransitions(base, filter), nil
}

func filterTransitions(base []records.TransitionRecord, filter TransitionFilter) []records.TransitionRecord {
	out := make([]records.TransitionRecord, 0, len(base))
	for _, rec := range base {
		if matchesTransitionFilter(rec, filter) {
			out = append(out, rec)
		}
	}
	return out
}

// PathResult is the shortest-path response shape.
type PathResult struct {
	ContextID     string                     `json:"context_id"`
	SourceStateID string                     `json:"source_state_id"`
	TargetStateID string                     `json:"target_state_id"`
	Path          []records.TransitionRecord `json:"path"`
}

// ShortestPath validates that context and both endpoint states exist,
// then delegates to the store. A missing path is reported as a nil
// Path, not an error.
func (q *Querier) ShortestPath(contextID, source, target string, maxDepth *int) (PathResult, error) {
	if !q.store.ContextExists(contextID) {
		return PathResult{}, atlaserrors.New(atlaserrors.KindNotFound, "query: context %q not found", contextID)
	}
	if !q.store.StateExists(contextID, source) {
		return PathResult{}, atlaserrors.New(atlaserrors.KindNotFound, "query: state %q not found", source)
	}
	if !q.store.StateExists(contextID, target) {
		return PathResult{}, atlaserrors.New(atlaserrors.KindNotFound, "query: state %q not found", target)
	}

	path, err := q.store.ShortestPath(contextID, source, target, maxDepth)
	if err != nil {
		if err == graphstore.ErrNoPath {
			return PathResult{ContextID: contextID, SourceStateID: source, TargetStateID: target, Path: nil}, nil
		}
		return PathResult{}, err
	}
	return PathResult{ContextID: contextID, SourceStateID: source, TargetStateID: target, Path: path}, nil
}

// HealthSummary is the response shape for Health.
type HealthSummary struct {
	Status  string        `json:"status"`
	Details HealthDetails `json:"details"`
}

// HealthDetails carries the per-entity counts that make up a health
// summary.
type HealthDetails struct {
	Contexts    int `json:"contexts"`
	States      int `json:"states"`
	Transitions int `json:"transitions"`
}

// Health returns an overall summary of the store's size, without any
// graph traversal.
func (q *Querier) Health() (HealthSummary, error) {
	contexts := q.store.ListContexts()
	details := HealthDetails{Contexts: len(contexts)}
	for _, ctx := range contexts {
		states, err := q.store.ListStates(ctx.ContextID)
		if err != nil {
			return HealthSummary{}, err
		}
		transitions, err := q.store.ListTransitions(ctx.ContextID)
		if err != nil {
			return HealthSummary{}, err
		}
		details.States += len(states)
		details.Transitions += len(transitions)
	}
	return HealthSummary{Status: "ok", Details: details}, nil
}
