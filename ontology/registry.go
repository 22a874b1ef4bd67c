// Package ontology holds the static, read-mostly registries mapping
// semantic identifiers (ontology terms, intents) to descriptions,
// synonyms, and external references. Registration is additive: a
// conflicting redefinition of an existing id is rejected, while
// re-registering an identical entry is a no-op, mirroring how the
// teacher's action-handler registry treated duplicate registration as
// an error while leaving lookup and removal unconditional.
package ontology

import (
	"reflect"
	"sync"

	"atlasgraph.dev/atlas/atlaserrors"
)

// OntologyTerm is a named concept in the UI-interaction vocabulary —
// a role, a screen category, anything worth giving a stable id and a
// human description.
type OntologyTerm struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Synonyms     []string `json:"synonyms,omitempty"`
	ExternalRefs []string `json:"external_refs,omitempty"`
}

// Intent is a semantic tag attachable to a transition (e.g. "save",
// "cancel", "navigate_back"), drawn from a registry with synonyms.
type Intent struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms,omitempty"`
}

// TermRegistry is a mutex-protected, append-mostly map of OntologyTerm
// keyed by id.
type TermRegistry struct {
	mu    sync.RWMutex
	terms map[string]OntologyTerm
}

// NewTermRegistry returns an empty TermRegistry. Call
// MustRegisterBuiltins once, at construction time, to seed the fixed
// built-in vocabulary.
func NewTermRegistry() *TermRegistry {
	return &TermRegistry{terms: make(map[string]OntologyTerm)}
}

// Register adds term to the registry. Registering an id that already
// exists with an identical term is a no-op; registering an id that
// already exists with a different term is rejected.
func (r *TermRegistry) Register(term OntologyTerm) error {
	if term.ID == "" {
		return atlaserrors.New(atlaserrors.KindValidationFailure, "ontology: term id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.terms[term.ID]; ok {
		if reflect.DeepEqual(existing, term) {
			return nil
		}
		return atlaserrors.New(atlaserrors.KindConflict, "ontology: term %q already registered with different definition", term.ID)
	}
	r.terms[term.ID] = term
	return nil
}

// MustRegister registers term and panics on error. Intended for
// built-in seeding at construction time, where a failure indicates a
// programming error rather than a runtime condition.
func (r *TermRegistry) MustRegister(term OntologyTerm) {
	if err := r.Register(term); err != nil {
		panic(err)
	}
}

// Get returns the term registered under id.
func (r *TermRegistry) Get(id string) (OntologyTerm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.terms[id]
	return t, ok
}

// List returns a snapshot copy of every registered term.
func (r *TermRegistry) List() []OntologyTerm {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]OntologyTerm, 0, len(r.terms))
	for _, t := range r.terms {
		out = append(out, t)
	}
	return out
}

// MustRegisterBuiltins seeds the fixed built-in term set. Safe to call
// more than once per registry; a repeat call is a no-op since every
// built-in re-registers identically.
func (r *TermRegistry) MustRegisterBuiltins() {
	for _, t := range builtinTerms {
		r.MustRegister(t)
	}
}

var builtinTerms = []OntologyTerm{
	{ID: "screen", Description: "A full-window or full-viewport UI state"},
	{ID: "dialog", Description: "A modal or transient overlay UI state", Synonyms: []string{"modal"}},
	{ID: "form", Description: "A UI state primarily composed of input elements"},
	{ID: "list_view", Description: "A UI state presenting a scrollable collection of items", Synonyms: []string{"list", "collection_view"}},
}

// IntentRegistry mirrors TermRegistry's semantics for Intent values.
type IntentRegistry struct {
	mu      sync.RWMutex
	intents map[string]Intent
}

// NewIntentRegistry returns an empty IntentRegistry.
func NewIntentRegistry() *IntentRegistry {
	return &IntentRegistry{intents: make(map[string]Intent)}
}

// Register adds intent to the registry, rejecting a conflicting
// redefinition of an existing id and accepting an identical
// re-registration as a no-op.
func (r *IntentRegistry) Register(intent Intent) error {
	if intent.ID == "" {
		return atlaserrors.New(atlaserrors.KindValidationFailure, "ontology: intent id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.intents[intent.ID]; ok {
		if reflect.DeepEqual(existing, intent) {
			return nil
		}
		return atlaserrors.New(atlaserrors.KindConflict, "ontology: intent %q already registered with different definition", intent.ID)
	}
	r.intents[intent.ID] = intent
	return nil
}

// MustRegister registers intent and panics on error.
func (r *IntentRegistry) MustRegister(intent Intent) {
	if err := r.Register(intent); err != nil {
		panic(err)
	}
}

// Get returns the intent registered under id.
func (r *IntentRegistry) Get(id string) (Intent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.intents[id]
	return i, ok
}

// List returns a snapshot copy of every registered intent.
func (r *IntentRegistry) List() []Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Intent, 0, len(r.intents))
	for _, i := range r.intents {
		out = append(out, i)
	}
	return out
}

// MustRegisterBuiltins seeds the fixed built-in intent set.
func (r *IntentRegistry) MustRegisterBuiltins() {
	for _, i := range builtinIntents {
		r.MustRegister(i)
	}
}

var builtinIntents = []Intent{
	{ID: "save", Description: "Persist the current state or form data"},
	{ID: "cancel", Description: "Abandon the current flow without persisting", Synonyms: []string{"dismiss"}},
	{ID: "navigate_back", Description: "Return to the previous state", Synonyms: []string{"back"}},
	{ID: "submit", Description: "Submit a completed form or input"},
}
