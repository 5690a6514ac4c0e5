package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams change events to connected viewers over SSE.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// changeEventPayload mirrors the wire shape of a change event.
type changeEventPayload struct {
	Session       string `json:"session"`
	ParticipantID string `json:"participant_id"`
	Score         int64  `json:"score"`
}

// HandleStream handles GET /sessions/{session}/events requests.
//
// Delivery is best effort: a client that misses events (slow reader, late
// connect) is expected to request a fresh leaderboard snapshot.
func (h *EventsHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	session := mux.Vars(r)["session"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The subscription is tied to the request context; client disconnect
	// cancels it and releases the broker resources.
	sub := h.deps.Subscribe(r.Context(), session)
	defer sub.Cancel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(changeEventPayload{
				Session:       ev.SessionID,
				ParticipantID: ev.ParticipantID,
				Score:         ev.Score,
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: score\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
