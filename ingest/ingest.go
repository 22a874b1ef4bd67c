// Package ingest validates incoming payloads, enforces referential
// integrity across context -> state -> transition, and dispatches
// validated records into a graphstore.Store. All failures are raised as
// atlaserrors.Error with a Kind drawn from ValidationFailure,
// ReferentialIntegrity, or Conflict, or, passed through from the store,
// CapacityExceeded.
package ingest

import (
	"bytes"
	"encoding/json"
	"time"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/atlaslog"
	"atlasgraph.dev/atlas/domain"
	"atlasgraph.dev/atlas/graphstore"
	"atlasgraph.dev/atlas/records"
	"github.com/sirupsen/logrus"
)

// Ingestor wraps a graphstore.Store with the validated-insertion
// pipeline described by the ingest protocol.
type Ingestor struct {
	store  *graphstore.Store
	now    func() time.Time
	logger *logrus.Entry
}

// New constructs an Ingestor over store. logger may be nil, in which
// case ingest operations proceed without audit-style logging.
func New(store *graphstore.Store, logger *logrus.Entry) *Ingestor {
	return &Ingestor{store: store, now: time.Now, logger: logger}
}

// logOutcome emits one structured line per ingest operation via
// atlaslog.IngestFields. Audit-style only: Atlas keeps no durable
// record of who ingested what, just a log line.
func (in *Ingestor) logOutcome(contextID, op string, ids []string, err error) {
	if in.logger == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	in.logger.WithFields(atlaslog.IngestFields(contextID, op, ids, outcome)).Info("ingest")
}

// BatchResult aggregates the outcome of a batch ingest call.
type BatchResult struct {
	Count            int      `json:"count"`
	IDs              []string `json:"ids"`
	UniqueContextIDs []string `json:"unique_context_ids"`
}

// BundleResult aggregates the outcome of IngestBundle.
type BundleResult struct {
	Context     *domain.Context  `json:"context,omitempty"`
	States      *BatchResult     `json:"states,omitempty"`
	Transitions *BatchResult     `json:"transitions,omitempty"`
}

// Bundle is the wire shape accepted by IngestBundle: any member may be
// omitted or null, but execution order (context, states, transitions)
// is fixed and significant for referential integrity.
type Bundle struct {
	Context     json.RawMessage   `json:"context,omitempty"`
	States      []json.RawMessage `json:"states,omitempty"`
	Transitions []json.RawMessage `json:"transitions,omitempty"`
}

func decodeInto(payload []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return atlaserrors.Wrap(atlaserrors.KindValidationFailure, err, "ingest: invalid payload")
	}
	return nil
}

// IngestContext decodes payload as a domain.Context and upserts it.
// If the context already exists and overwrite is false, the call fails
// with Conflict.
func (in *Ingestor) IngestContext(payload []byte, overwrite bool) (ctx domain.Context, err error) {
	defer func() { in.logOutcome(ctx.ContextID, "ingest_context", []string{ctx.ContextID}, err) }()

	if err = decodeInto(payload, &ctx); err != nil {
		return domain.Context{}, err
	}
	if verr := ctx.Validate(); verr != nil {
		err = atlaserrors.Wrap(atlaserrors.KindValidationFailure, verr, "ingest: invalid context")
		return domain.Context{}, err
	}
	if !overwrite && in.store.ContextExists(ctx.ContextID) {
		err = atlaserrors.New(atlaserrors.KindConflict, "ingest: context %q already exists", ctx.ContextID)
		return domain.Context{}, err
	}
	if serr := in.store.UpsertContext(ctx); serr != nil {
		err = serr
		return domain.Context{}, err
	}
	return ctx, nil
}

// stateRecordPayload is the wire shape for a single ingested state: a
// records.StateRecord, whose UnmarshalJSON folds unrecognized top-level
// keys into Metadata. Its discovered_at is replaced on ingest.
type stateRecordPayload = records.StateRecord

// IngestStateRecord decodes payload as a StateRecord. The target
// context must already exist.
func (in *Ingestor) IngestStateRecord(payload []byte) (rec records.StateRecord, err error) {
	defer func() { in.logOutcome(rec.ContextID, "ingest_state", []string{rec.State.ID}, err) }()

	var p stateRecordPayload
	if err = decodeInto(payload, &p); err != nil {
		return records.StateRecord{}, err
	}
	rec.ContextID, rec.State = p.ContextID, p.State
	if verr := p.State.Validate(); verr != nil {
		err = atlaserrors.Wrap(atlaserrors.KindValidationFailure, verr, "ingest: invalid state")
		return rec, err
	}
	if !in.store.ContextExists(p.ContextID) {
		err = atlaserrors.New(atlaserrors.KindReferentialIntegrity, "ingest: context %q not found", p.ContextID)
		return rec, err
	}
	rec = records.StateRecord{
		ContextID:    p.ContextID,
		State:        p.State,
		DiscoveredAt: in.now(),
		IsEntry:      p.IsEntry,
		IsTerminal:   p.IsTerminal,
		Tags:         p.Tags,
		Metadata:     p.Metadata,
	}
	if serr := in.store.UpsertState(rec); serr != nil {
		err = serr
		return records.StateRecord{}, err
	}
	return rec, nil
}

// transitionRecordPayload is the wire shape for a single ingested
// transition: a records.TransitionRecord, whose UnmarshalJSON folds
// unrecognized top-level keys into Metadata. Its discovered_at and
// times_observed are not taken from the payload.
type transitionRecordPayload = records.TransitionRecord

// IngestTransitionRecord decodes payload as a TransitionRecord. The
// target context and both endpoint states must already exist.
// increment_observed is always true for this entry point.
func (in *Ingestor) IngestTransitionRecord(payload []byte) (rec records.TransitionRecord, err error) {
	defer func() { in.logOutcome(rec.ContextID, "ingest_transition", []string{rec.Transition.ID}, err) }()

	var p transitionRecordPayload
	if err = decodeInto(payload, &p); err != nil {
		return records.TransitionRecord{}, err
	}
	rec.ContextID, rec.Transition = p.ContextID, p.Transition
	if verr := p.Transition.Validate(); verr != nil {
		err = atlaserrors.Wrap(atlaserrors.KindValidationFailure, verr, "ingest: invalid transition")
		return rec, err
	}
	if !in.store.ContextExists(p.ContextID) {
		err = atlaserrors.New(atlaserrors.KindReferentialIntegrity, "ingest: context %q not found", p.ContextID)
		return rec, err
	}
	if !in.store.StateExists(p.ContextID, p.Transition.SourceStateID) {
		err = atlaserrors.New(atlaserrors.KindReferentialIntegrity, "ingest: source state %q not found", p.Transition.SourceStateID)
		return rec, err
	}
	if !in.store.StateExists(p.ContextID, p.Transition.TargetStateID) {
		err = atlaserrors.New(atlaserrors.KindReferentialIntegrity, "ingest: target state %q not found", p.Transition.TargetStateID)
		return rec, err
	}
	rec = records.NewTransitionRecord(p.ContextID, p.Transition, in.now(), 1, p.Metadata)
	if serr := in.store.UpsertTransition(rec, true); serr != nil {
		err = serr
		return rec, err
	}
	return rec, nil
}

// IngestStates ingests each element of payloads independently. A
// failure at element k does not roll back elements 0..k-1.
func (in *Ingestor) IngestStates(payloads []json.RawMessage) (BatchResult, error) {
	var result BatchResult
	contextSeen := map[string]struct{}{}
	for _, p := range payloads {
		rec, err := in.IngestStateRecord(p)
		if err != nil {
			return result, err
		}
		result.Count++
		result.IDs = append(result.IDs, rec.State.ID)
		if _, ok := contextSeen[rec.ContextID]; !ok {
			contextSeen[rec.ContextID] = struct{}{}
			result.UniqueContextIDs = append(result.UniqueContextIDs, rec.ContextID)
		}
	}
	return result, nil
}

// IngestTransitions ingests each element of payloads independently. A
// failure at element k does not roll back elements 0..k-1.
func (in *Ingestor) IngestTransitions(payloads []json.RawMessage) (BatchResult, error) {
	var result BatchResult
	contextSeen := map[string]struct{}{}
	for _, p := range payloads {
		rec, err := in.IngestTransitionRecord(p)
		if err != nil {
			return result, err
		}
		result.Count++
		result.IDs = append(result.IDs, rec.Transition.ID)
		if _, ok := contextSeen[rec.ContextID]; !ok {
			contextSeen[rec.ContextID] = struct{}{}
			result.UniqueContextIDs = append(result.UniqueContextIDs, rec.ContextID)
		}
	}
	return result, nil
}

// IngestBundle decodes payload as a Bundle and ingests its members in
// the fixed, significant order: context, then states, then
// transitions. This ordering is the referential-integrity discipline —
// a bundle is self-sufficient iff states precede the transitions that
// reference them. A failure partway through is not rolled back;
// earlier members remain committed.
func (in *Ingestor) IngestBundle(payload []byte) (BundleResult, error) {
	var bundle Bundle
	if err := decodeInto(payload, &bundle); err != nil {
		return BundleResult{}, err
	}

	var result BundleResult

	if len(bundle.Context) > 0 && string(bundle.Context) != "null" {
		ctx, err := in.IngestContext(bundle.Context, true)
		if err != nil {
			return result, err
		}
		result.Context = &ctx
	}

	if len(bundle.States) > 0 {
		states, err := in.IngestStates(bundle.States)
		if err != nil {
			return result, err
		}
		result.States = &states
	}

	if len(bundle.Transitions) > 0 {
		transitions, err := in.IngestTransitions(bundle.Transitions)
		if err != nil {
			return result, err
		}
		result.Transitions = &transitions
	}

	return result, nil
}
