package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/fieldgate/internal/audit"
	"github.com/rpattn/fieldgate/internal/auth"
	"github.com/rpattn/fieldgate/internal/changes"
	"github.com/rpattn/fieldgate/internal/domain"
	"github.com/rpattn/fieldgate/internal/gate"
	"github.com/rpattn/fieldgate/internal/repository"
	"github.com/rpattn/fieldgate/internal/workflow"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	server := NewServer(Dependencies{
		Gate:        gate.New(changes.NewDetector(changes.DefaultChildTableLimit), audit.NewLogger(store.ChangeLogs(), nil)),
		Workflows:   workflow.NewService(store.Definitions()),
		Schemas:     store.Schemas(),
		Definitions: store.Definitions(),
		ChangeLogs:  store.ChangeLogs(),
	})
	ts := &testServer{t: t, handler: server.Handler([]string{"http://localhost:3000"})}

	ts.mustDo(http.MethodPut, "/schemas/Sales%20Order", `{
		"fields": [
			{"name": "status", "label": "Status", "type": "SELECT"},
			{"name": "items", "label": "Items", "type": "TABLE", "options": "Sales Order Item"}
		]
	}`, http.StatusOK)
	ts.mustDo(http.MethodPut, "/schemas/Sales%20Order%20Item", `{
		"is_child": true,
		"fields": [{"name": "qty", "label": "Quantity", "type": "FLOAT"}]
	}`, http.StatusOK)
	ts.mustDo(http.MethodPut, "/workflows/SO%20Approval", `{
		"document_type": "Sales Order",
		"tracked_fields": [
			{"field_name": "status"},
			{"is_child_table_field": true, "child_table_name": "items", "child_field_name": "qty"}
		]
	}`, http.StatusOK)
	return ts
}

func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) mustDo(method, path, body string, status int) *httptest.ResponseRecorder {
	ts.t.Helper()
	rec := ts.do(method, path, body)
	require.Equal(ts.t, status, rec.Code, rec.Body.String())
	return rec
}

const changedItemsTransition = `{
	"document": {
		"document_type": "Sales Order",
		"name": "SO-0001",
		"values": {"status": "Draft", "items": [{"qty": 1}, {"qty": 5}]}
	},
	"before": {"status": "Draft", "items": [{"qty": 1}, {"qty": 2}]},
	"action": "Approve",
	"message": "Sales Order approved"
}`

func TestTransitionLogsChangesAndAugmentsNotification(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/hooks/transition", changedItemsTransition, auth.ActorHeader, "approver@example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp transitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Evaluation.Changed)
	assert.Equal(t, gate.StateLogged, resp.Result.State)
	assert.False(t, resp.Result.Skip)
	require.Len(t, resp.Result.Changes, 1)
	assert.Equal(t, "items.qty", resp.Result.Changes[0].Path)
	assert.Equal(t, []string{"items.qty: 2 → 5"}, resp.Result.Summary)
	assert.Equal(t, "Sales Order approved<br><b>Changed Fields:</b><ul><li><b>items.qty</b>: 2 → 5</li></ul>", resp.Notification)

	rec = ts.mustDo(http.MethodGet, "/change-logs?reference_type=Sales%20Order&reference_name=SO-0001", "", http.StatusOK)
	var entries []domain.ChangeLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "approver@example.com", entries[0].ChangedBy)
	assert.Equal(t, "SO Approval", entries[0].WorkflowName)
	assert.Equal(t, "Approve", entries[0].Action)
	assert.Equal(t, "2", *entries[0].OldValue)
	assert.Equal(t, "5", *entries[0].NewValue)

	path := "/change-logs/" + entries[0].ID.String()
	rec = ts.do(http.MethodPatch, path, `{"new_value": "7"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "is immutable")

	rec = ts.do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be deleted")

	ts.mustDo(http.MethodGet, path, "", http.StatusOK)
}

func TestTransitionWithoutTrackedChangeIsSkipped(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.mustDo(http.MethodPost, "/hooks/transition", `{
		"document": {"document_type": "Sales Order", "name": "SO-0002", "values": {"status": "Draft", "note": "edited"}},
		"before": {"status": "Draft", "note": "original"},
		"action": "Approve",
		"message": "Sales Order approved"
	}`, http.StatusOK)

	var resp transitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Skip)
	assert.Equal(t, gate.StateSuppressed, resp.Result.State)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, gate.SkipNotice, resp.Notices[0].Message)
	assert.Equal(t, "orange", resp.Notices[0].Indicator)
	assert.Equal(t, "Sales Order approved", resp.Notification)

	rec = ts.mustDo(http.MethodGet, "/change-logs", "", http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestTransitionKeepsLargeIntegersExact(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.mustDo(http.MethodPost, "/hooks/transition", `{
		"document": {"document_type": "Sales Order", "name": "SO-0003", "values": {"status": 9007199254740993}},
		"before": {"status": 9007199254740992},
		"action": "Approve"
	}`, http.StatusOK)

	var resp transitionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, gate.StateLogged, resp.Result.State)
	require.Len(t, resp.Result.Changes, 1)

	rec = ts.mustDo(http.MethodGet, "/change-logs?reference_name=SO-0003", "", http.StatusOK)
	var entries []domain.ChangeLogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "9007199254740992", *entries[0].OldValue)
	assert.Equal(t, "9007199254740993", *entries[0].NewValue)
}

func TestEvaluateDoesNotLog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.mustDo(http.MethodPost, "/hooks/evaluate", changedItemsTransition, http.StatusOK)
	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Evaluation.Gated)
	assert.True(t, resp.Evaluation.Changed)
	assert.Equal(t, "SO Approval", resp.Evaluation.Workflow)

	rec = ts.mustDo(http.MethodGet, "/change-logs", "", http.StatusOK)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestWorkflowValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/workflows/Broken", `{
		"document_type": "Sales Order",
		"tracked_fields": [{"is_child_table_field": true, "child_table_name": "items", "child_field_name": "rate"}]
	}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate")
	assert.Contains(t, rec.Body.String(), "unknown_field")

	rec = ts.do(http.MethodPost, "/workflows/validate", `{"name": "Empty", "document_type": "Sales Order", "tracked_fields": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_tracked_fields")

	rec = ts.do(http.MethodPost, "/workflows/validate", `{"name": "Ok", "document_type": "Sales Order", "tracked_fields": [{"field_name": "status"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var def domain.WorkflowDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.Equal(t, "Status", def.TrackedFields[0].Label)

	rec = ts.do(http.MethodPost, "/hooks/transition", `{"document": {"document_type": "Sales Order"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodPost, "/hooks/transition", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookupsReturnNotFound(t *testing.T) {
	ts := newTestServer(t)

	ts.mustDo(http.MethodGet, "/workflows/active/Invoice", "", http.StatusNotFound)
	ts.mustDo(http.MethodGet, "/schemas/Invoice", "", http.StatusNotFound)
	ts.mustDo(http.MethodDelete, "/change-logs/1b4e28ba-2fa1-11d2-883f-0016d3cca427", "", http.StatusNotFound)
	ts.mustDo(http.MethodDelete, "/change-logs/not-a-uuid", "", http.StatusBadRequest)

	rec := ts.mustDo(http.MethodGet, "/workflows/active/Sales%20Order", "", http.StatusOK)
	var def domain.WorkflowDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.Equal(t, "SO Approval", def.Name)
}

func TestExportAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.mustDo(http.MethodPost, "/hooks/transition", changedItemsTransition, http.StatusOK)

	rec := ts.mustDo(http.MethodGet, "/change-logs/export.xlsx?reference_name=SO-0001", "", http.StatusOK)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = ts.mustDo(http.MethodGet, "/metrics", "", http.StatusOK)
	assert.Contains(t, rec.Body.String(), "fieldgate_transitions_total")
}
