package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atendify/flowengine/internal/models"
	"github.com/atendify/flowengine/internal/testutil"
)

func stepRequestBody(def *models.FlowDefinition, owner, message string) models.StepRequest {
	return models.StepRequest{
		Flow:      *def,
		AccountID: "acc-1",
		OwnerID:   owner,
		Message:   message,
	}
}

func TestStepEndpoint(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/v1/step",
		stepRequestBody(testutil.LinearFlow(), "wa-5511999", "Oi"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "step request")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %T", response["result"])
	}
	segments, ok := result["segments"].([]interface{})
	if !ok {
		t.Fatalf("expected segments array, got %T", result["segments"])
	}
	if len(segments) == 0 {
		t.Error("expected at least one outbound segment")
	}
	if segments[0] != "Olá!" {
		t.Errorf("expected greeting as first segment, got %v", segments[0])
	}
}

func TestStepEndpointMethodNotAllowed(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/v1/step", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET step request")
}

func TestStepEndpointInvalidJSON(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/step", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty body step request")
	testutil.AssertJSONResponse(t, rr, "error")
}

func TestStepEndpointIncompleteIdentity(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	body := stepRequestBody(testutil.LinearFlow(), "", "Oi")
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/v1/step", body)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "step without owner id")
}

func TestStepEndpointBrokenFlow(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	// A flow without a start node is a graph error: 422 with safe segments.
	def := &models.FlowDefinition{
		ID:    "flow-broken",
		Nodes: []models.Node{{ID: "only", Kind: models.NodeKindEnd}},
	}
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/v1/step",
		stepRequestBody(def, "wa-5511999", "Oi"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusUnprocessableEntity, rr.Code, "broken flow step")
	response := testutil.AssertJSONResponse(t, rr, "error")

	if kind, _ := response["error_kind"].(string); kind != string(models.ErrorKindGraph) {
		t.Errorf("expected graph_error kind, got %q", kind)
	}
	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result with safe segments, got %T", response["result"])
	}
	if segments, _ := result["segments"].([]interface{}); len(segments) != 1 {
		t.Errorf("expected a single safe segment, got %v", result["segments"])
	}
}

func TestValidateFlowEndpoint(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/v1/flows/validate", testutil.LinearFlow())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "valid flow")
	testutil.AssertJSONResponse(t, rr, "ok")
}

func TestValidateFlowEndpointRejectsInvalid(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	def := &models.FlowDefinition{
		ID: "flow-dup",
		Nodes: []models.Node{
			{ID: "s", Kind: models.NodeKindStart},
			{ID: "s", Kind: models.NodeKindEnd},
		},
	}
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/v1/flows/validate", def)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusUnprocessableEntity, rr.Code, "duplicate node ids")
	response := testutil.AssertJSONResponse(t, rr, "error")
	if kind, _ := response["error_kind"].(string); kind != string(models.ErrorKindGraph) {
		t.Errorf("expected graph_error kind, got %q", kind)
	}
}

func TestConversationEndpoint(t *testing.T) {
	server, st := testutil.NewTestServer()
	handler := server.Handler()

	// No conversation yet: 404.
	req := testutil.CreateHTTPRequest(t, http.MethodGet,
		"/v1/conversations?account_id=acc-1&owner_id=wa-5511999&flow_id=flow-linear", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "conversation before any step")

	// LinearFlow runs to its end node in one turn, so seed a resting state
	// directly to exercise the lookup.
	id := models.Identity{AccountID: "acc-1", OwnerID: "wa-5511999", FlowID: "flow-linear"}
	if err := st.SaveState(context.Background(), models.ConversationState{
		Identity:      id,
		CurrentNodeID: "n-msg",
	}); err != nil {
		t.Fatalf("failed to seed state: %v", err)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet,
		"/v1/conversations?account_id=acc-1&owner_id=wa-5511999&flow_id=flow-linear", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "conversation lookup")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected state object, got %T", response["result"])
	}
	if result["current_node_id"] != "n-msg" {
		t.Errorf("expected resting node n-msg, got %v", result["current_node_id"])
	}
}

func TestConversationEndpointRequiresIdentity(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/v1/conversations?account_id=acc-1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "conversation without full identity")
}

func TestHistoryEndpoint(t *testing.T) {
	server, st := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/v1/history?account_id=acc-1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "empty history")

	// Run the linear flow to completion; it should leave one record.
	stepReq := testutil.CreateHTTPRequest(t, http.MethodPost, "/v1/step",
		stepRequestBody(testutil.LinearFlow(), "wa-5511999", "Oi"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, stepReq)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "step to completion")

	testutil.AssertHistoryCount(t, st, "acc-1", 1, "after completed flow")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, testutil.CreateHTTPRequest(t, http.MethodGet, "/v1/history?account_id=acc-1", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "history listing")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	records, ok := response["result"].([]interface{})
	if !ok {
		t.Fatalf("expected records array, got %T", response["result"])
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	record := records[0].(map[string]interface{})
	if record["status"] != string(models.HistoryStatusCompleted) {
		t.Errorf("expected completed status, got %v", record["status"])
	}
}

func TestHistoryEndpointRequiresAccount(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/v1/history", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "history without account id")
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := testutil.NewTestServer()
	handler := server.Handler()

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health check")
	testutil.AssertJSONResponse(t, rr, "ok")
}
