package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// JoinHandler handles participant join requests.
type JoinHandler struct {
	deps Dependencies
}

// NewJoinHandler creates a new join handler.
func NewJoinHandler(deps Dependencies) *JoinHandler {
	return &JoinHandler{deps: deps}
}

// joinRequest mirrors the wire schema for POST /sessions/{session}/join.
type joinRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

func (j joinRequest) validate() error {
	if strings.TrimSpace(j.ParticipantID) == "" {
		return errors.New("missing participant_id")
	}
	return nil
}

// HandleJoin handles POST /sessions/{session}/join requests.
func (h *JoinHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join"
	session := mux.Vars(r)["session"]

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	snap, err := h.deps.Join(r.Context(), session, req.ParticipantID, req.DisplayName)
	if err != nil {
		writeEngineError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotResponse(snap))
}
