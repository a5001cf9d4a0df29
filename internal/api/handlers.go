// Package api provides HTTP handlers for the flowengine endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/atendify/flowengine/internal/flow"
	"github.com/atendify/flowengine/internal/models"
)

// stepHandler processes one inbound message for a conversation.
func (s *Server) stepHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.stepHandler: processing step request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.stepHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	id := req.Identity()
	if err := id.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	segments, err := s.runner.Step(r.Context(), &req.Flow, id, req.Message)
	if err != nil {
		kind := models.KindOf(err)
		slog.Error("Server.stepHandler: step failed", "identity", id.Key(), "kind", kind, "error", err)
		// The safe segments are returned alongside the error so the
		// transport can still answer the user.
		status := http.StatusInternalServerError
		if kind == models.ErrorKindGraph || kind == models.ErrorKindConfiguration {
			status = http.StatusUnprocessableEntity
		}
		resp := models.ErrorWithKind(err.Error(), kind)
		resp.Result = models.StepReply{Segments: segments}
		writeJSONResponse(w, status, resp)
		return
	}

	slog.Debug("Server.stepHandler: step succeeded", "identity", id.Key(), "segments", len(segments))
	writeJSONResponse(w, http.StatusOK, models.Success(models.StepReply{Segments: segments}))
}

// validateFlowHandler checks a flow definition for structural problems
// without running a conversation.
func (s *Server) validateFlowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var def models.FlowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		slog.Warn("Server.validateFlowHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if _, err := flow.NewGraph(&def); err != nil {
		writeJSONResponse(w, http.StatusUnprocessableEntity,
			models.ErrorWithKind(err.Error(), models.KindOf(err)))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Flow definition is valid", nil))
}

// conversationHandler returns the resting state of one conversation.
func (s *Server) conversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	id := models.Identity{
		AccountID: q.Get("account_id"),
		OwnerID:   q.Get("owner_id"),
		FlowID:    q.Get("flow_id"),
	}
	if err := id.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("account_id, owner_id and flow_id are required"))
		return
	}

	state, err := s.store.LoadState(r.Context(), id)
	if err != nil {
		slog.Error("Server.conversationHandler: load failed", "identity", id.Key(), "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation state"))
		return
	}
	if state == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No conversation in progress"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

// historyHandler lists an account's terminal conversation records.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("account_id is required"))
		return
	}

	records, err := s.store.ListHistory(r.Context(), accountID)
	if err != nil {
		slog.Error("Server.historyHandler: list failed", "accountID", accountID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list conversation history"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}

// healthHandler reports liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}
