package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RankHandler handles single-participant rank requests.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// rankResponse mirrors the wire shape of a single rank row.
type rankResponse struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	Score         int64  `json:"score"`
}

// HandleGetRank handles GET /sessions/{session}/rank/{participant} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	vars := mux.Vars(r)

	entry, err := h.deps.Rank(r.Context(), vars["session"], vars["participant"])
	if err != nil {
		writeEngineError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{
		Rank:          entry.Rank,
		ParticipantID: entry.ParticipantID,
		Score:         entry.Score,
	})
}
