// Package testutil provides common test utilities and helpers for flowengine tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atendify/flowengine/internal/api"
	"github.com/atendify/flowengine/internal/flow"
	"github.com/atendify/flowengine/internal/models"
	"github.com/atendify/flowengine/internal/store"
)

// NewTestServer creates a test API server backed by an in-memory store.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer(opts ...flow.Option) (*api.Server, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	runner := flow.NewRunner(st, st, opts...)
	return api.NewServer(runner, st), st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// AssertHistoryCount validates the number of history records for an account.
func AssertHistoryCount(t *testing.T, st store.Store, accountID string, expected int, label string) {
	t.Helper()
	records, err := st.ListHistory(context.Background(), accountID)
	if err != nil {
		t.Fatalf("%s: failed to list history: %v", label, err)
	}
	if len(records) != expected {
		t.Errorf("%s: expected %d history records, got %d", label, expected, len(records))
	}
}

// LinearFlow builds a minimal valid flow: start greeting into a single message
// node that ends the conversation. Useful as a baseline fixture.
func LinearFlow() *models.FlowDefinition {
	return &models.FlowDefinition{
		ID: "flow-linear",
		Nodes: []models.Node{
			{ID: "n-start", Kind: models.NodeKindStart, Config: map[string]any{"text": "Olá!"}},
			{ID: "n-msg", Kind: models.NodeKindMessage, Config: map[string]any{"text": "Como posso ajudar?"}},
			{ID: "n-end", Kind: models.NodeKindEnd, Config: map[string]any{}},
		},
		Edges: []models.Edge{
			{ID: "e1", SourceNodeID: "n-start", TargetNodeID: "n-msg"},
			{ID: "e2", SourceNodeID: "n-msg", TargetNodeID: "n-end"},
		},
	}
}
