// Package api declares the gateway's HTTP contracts and route registration.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/quizboard/internal/adapters/notifier"
	"github.com/okian/quizboard/internal/adapters/repository"
	engine "github.com/okian/quizboard/internal/app"
	"github.com/okian/quizboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the engine implementation.
type Dependencies interface {
	// Leaderboard operations.
	Join(ctx context.Context, session, participantID, displayName string) (model.Snapshot, error)
	SubmitAnswer(ctx context.Context, sub model.Submission) (model.Verdict, model.Snapshot, error)
	Snapshot(ctx context.Context, session, participantID string, n int) (model.Snapshot, error)
	Rank(ctx context.Context, session, participantID string) (repository.Entry, error)

	// Change event fan-out for the SSE stream.
	Subscribe(ctx context.Context, session string) *notifier.Subscription

	// Submission idempotency.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)
}

// Server wires HTTP routes for the gateway API.
type Server struct {
	joinHandler        *JoinHandler
	answersHandler     *AnswersHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	eventsHandler      *EventsHandler
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		joinHandler:        NewJoinHandler(deps),
		answersHandler:     NewAnswersHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
	}
}

// Router builds the gateway's route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthHandler.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session}/join", MetricsMiddleware(s.joinHandler.HandleJoin, "join")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{session}/answers", MetricsMiddleware(s.answersHandler.HandlePostAnswer, "answers")).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{session}/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session}/rank/{participant}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank")).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session}/events", s.eventsHandler.HandleStream).Methods(http.MethodGet)
	return r
}

// snapshotResponse mirrors the wire shape of a leaderboard snapshot.
type snapshotResponse struct {
	Session        string          `json:"session"`
	TopEntries     []entryResponse `json:"top_entries"`
	RequesterScore int64           `json:"requester_score"`
}

type entryResponse struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	Score         int64  `json:"score"`
}

func toSnapshotResponse(snap model.Snapshot) snapshotResponse {
	entries := make([]entryResponse, len(snap.TopEntries))
	for i, e := range snap.TopEntries {
		entries[i] = entryResponse{
			Rank:          e.Rank,
			ParticipantID: e.ParticipantID,
			DisplayName:   e.DisplayName,
			Score:         e.Score,
		}
	}
	return snapshotResponse{
		Session:        snap.SessionID,
		TopEntries:     entries,
		RequesterScore: snap.RequesterScore,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates engine/store errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, engine.ErrUnavailable):
		// Retryable: the delta was not applied; the client should resubmit.
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "retry_later", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
