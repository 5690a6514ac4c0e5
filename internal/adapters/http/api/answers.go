package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/okian/quizboard/internal/domain/model"
)

// AnswersHandler handles answer submissions.
type AnswersHandler struct {
	deps Dependencies
}

// NewAnswersHandler creates a new answers handler.
func NewAnswersHandler(deps Dependencies) *AnswersHandler {
	return &AnswersHandler{deps: deps}
}

// answerRequest mirrors the wire schema for POST /sessions/{session}/answers.
type answerRequest struct {
	SubmissionID  string `json:"submission_id"`
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	QuestionID    string `json:"question_id"`
	Answer        string `json:"answer"`
}

func (a answerRequest) validate() error {
	switch {
	case strings.TrimSpace(a.ParticipantID) == "":
		return errors.New("missing participant_id")
	case strings.TrimSpace(a.QuestionID) == "":
		return errors.New("missing question_id")
	}
	return nil
}

// answerResponse carries the verdict alongside the refreshed snapshot.
type answerResponse struct {
	SubmissionID string           `json:"submission_id"`
	Duplicate    bool             `json:"duplicate"`
	Correct      bool             `json:"correct"`
	Delta        int64            `json:"delta"`
	Snapshot     snapshotResponse `json:"snapshot"`
}

// HandlePostAnswer handles POST /sessions/{session}/answers requests.
//
// Submissions are idempotent on submission_id: a duplicate is acknowledged
// with a fresh snapshot but is not judged or scored again.
func (h *AnswersHandler) HandlePostAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_answer"
	session := mux.Vars(r)["session"]

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.SubmissionID == "" {
		req.SubmissionID = uuid.NewString()
	}

	// Idempotency check - mark as seen first.
	if h.deps.SeenAndRecord(r.Context(), req.SubmissionID) {
		snap, err := h.deps.Snapshot(r.Context(), session, req.ParticipantID, 0)
		if err != nil {
			writeEngineError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, answerResponse{
			SubmissionID: req.SubmissionID,
			Duplicate:    true,
			Snapshot:     toSnapshotResponse(snap),
		})
		return
	}

	verdict, snap, err := h.deps.SubmitAnswer(r.Context(), model.Submission{
		SubmissionID:  req.SubmissionID,
		SessionID:     session,
		ParticipantID: req.ParticipantID,
		DisplayName:   req.DisplayName,
		QuestionID:    req.QuestionID,
		Answer:        req.Answer,
	})
	if err != nil {
		// Roll back the "seen" status so the client can safely retry.
		h.deps.Unrecord(r.Context(), req.SubmissionID)
		writeEngineError(w, op, err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		SubmissionID: req.SubmissionID,
		Duplicate:    false,
		Correct:      verdict.Correct,
		Delta:        verdict.Delta,
		Snapshot:     toSnapshotResponse(snap),
	})
}
