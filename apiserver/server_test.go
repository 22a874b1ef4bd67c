package apiserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"atlasgraph.dev/atlas/atlaserrors"
	"atlasgraph.dev/atlas/domain"
	"atlasgraph.dev/atlas/graphstore"
	"atlasgraph.dev/atlas/ingest"
	"atlasgraph.dev/atlas/query"
	"atlasgraph.dev/atlas/records"
	"atlasgraph.dev/atlas/workflowstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	store := graphstore.New(graphstore.Limits{})
	in := ingest.New(store, nil)
	q := query.New(store)
	wf := workflowstore.New(store)
	return New(cfg, in, q, wf, nil)
}

func seedContext(t *testing.T, s *Server, contextID string) {
	t.Helper()
	payload, err := json.Marshal(domain.Context{
		ContextID: contextID,
		AppID:     "app-1",
		Version:   "1.0.0",
		Platform:  domain.PlatformWeb,
	})
	require.NoError(t, err)
	_, err = s.ingestor.IngestContext(payload, false)
	require.NoError(t, err)
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader([]byte{})
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_ReportsCounts(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	seedContext(t, s, "ctx-1")

	rec := doRequest(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), details["contexts"])
	assert.Equal(t, float64(0), details["states"])
	assert.Equal(t, float64(0), details["transitions"])
}

func TestHandleListContexts_ReturnsSeededContexts(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	seedContext(t, s, "ctx-1")
	seedContext(t, s, "ctx-2")

	rec := doRequest(s, http.MethodGet, "/contexts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Contexts []domain.Context `json:"contexts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Contexts, 2)
}

func TestHandleGetContext_ReturnsContext(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	seedContext(t, s, "ctx-1")

	rec := doRequest(s, http.MethodGet, "/contexts/ctx-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Context domain.Context `json:"context"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ctx-1", body.Context.ContextID)
}

func TestHandleGetContext_UnknownContext_NotFound(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := doRequest(s, http.MethodGet, "/contexts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(atlaserrors.KindNotFound), body["error"])
}

func TestHandleIngestContext_ThenGetState_NotFound(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	seedContext(t, s, "ctx-1")

	rec := doRequest(s, http.MethodGet, "/contexts/ctx-1/states/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(atlaserrors.KindNotFound), body["error"])
}

func TestHandleIngestBundle_RoundTrip(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	bundle := ingest.Bundle{
		Context: mustJSON(t, domain.Context{ContextID: "ctx-1", AppID: "app", Version: "1.0", Platform: domain.PlatformWeb}),
		States: []json.RawMessage{
			mustJSON(t, records.StateRecord{
				ContextID: "ctx-1",
				State:     domain.UIState{ID: "state-a", AppID: "app"},
			}),
			mustJSON(t, records.StateRecord{
				ContextID: "ctx-1",
				State:     domain.UIState{ID: "state-b", AppID: "app"},
			}),
		},
		Transitions: []json.RawMessage{
			mustJSON(t, records.TransitionRecord{
				ContextID: "ctx-1",
				Transition: domain.Transition{
					ID: "t-1", SourceStateID: "state-a", TargetStateID: "state-b",
					Action: domain.Action{Type: domain.ActionClick, ElementID: "btn"},
				},
			}),
		},
	}
	payload, err := json.Marshal(bundle)
	require.NoError(t, err)

	rec := doRequest(s, http.MethodPost, "/ingest/bundle", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	pathRec := doRequest(s, http.MethodGet, "/contexts/ctx-1/path?source=state-a&target=state-b", nil)
	assert.Equal(t, http.StatusOK, pathRec.Code)
}

func TestAPIKeyMiddleware_RejectsMissingKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	s := newTestServer(t, cfg)
	seedContext(t, s, "ctx-1")

	rec := doRequest(s, http.MethodGet, "/contexts/ctx-1/states", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyMiddleware_AllowsCorrectKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	s := newTestServer(t, cfg)
	seedContext(t, s, "ctx-1")

	req := httptest.NewRequest(http.MethodGet, "/contexts/ctx-1/states", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleDeleteWorkflow_ReportsWhetherDeleted(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := doRequest(s, http.MethodDelete, "/workflows/missing", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body["deleted"])
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
