package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/progress"
	"github.com/clearcast/clearcast/internal/store"
)

// handleEvents streams a check's progress over SSE. The stream opens with
// the current state so late subscribers never miss where the check stands,
// sends heartbeats while idle, and closes after the terminal event. A
// consumer disconnect only detaches the subscription; the check runs on.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before reading current state so no event falls in the gap
	events, cancel := s.hub.Subscribe(id)
	defer cancel()

	check, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "check not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load check")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, eventName(check.Stage), progress.Event{
		CheckID:   id,
		Stage:     check.Stage,
		Percent:   check.Progress,
		Message:   "current state",
		Timestamp: s.now().UTC(),
	})
	flusher.Flush()

	if check.Status.Terminal() {
		return
	}

	heartbeat := s.cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, "event: heartbeat\ndata: {}\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(w, eventName(ev.Stage), ev)
			flusher.Flush()
			if ev.Stage.Terminal() {
				return
			}
		}
	}
}

// eventName maps a stage to its SSE event type
func eventName(stage model.Stage) string {
	switch stage {
	case model.StageCompleted:
		return "completed"
	case model.StageFailed:
		return "error"
	default:
		return "progress"
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
