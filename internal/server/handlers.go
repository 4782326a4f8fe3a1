package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/store"
	"github.com/clearcast/clearcast/internal/worker"
)

// maxSubmissionBytes bounds a submission body; anything larger is a
// structural error, not a truncation
const maxSubmissionBytes = 1 << 20

// submitRequest is the submission payload
type submitRequest struct {
	InputType string `json:"input_type"`
	Content   string `json:"content"`
	Query     string `json:"query,omitempty"`
}

// submitResponse acknowledges an accepted check
type submitResponse struct {
	CheckID string            `json:"check_id"`
	Status  model.CheckStatus `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	inputType := model.InputType(strings.ToLower(strings.TrimSpace(req.InputType)))
	if !inputType.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported input type %q", req.InputType))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content must not be empty")
		return
	}

	now := s.now().UTC()
	check := &model.Check{
		ID:        s.newID(),
		InputType: inputType,
		Content:   req.Content,
		Status:    model.StatusPending,
		Stage:     model.StagePending,
		UserQuery: strings.TrimSpace(req.Query),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.store.Save(check)

	err := s.pool.Submit(worker.Job{
		CheckID: check.ID,
		Run: func(ctx context.Context) {
			s.runner.Run(ctx, check)
		},
	})
	if err != nil {
		status := http.StatusServiceUnavailable
		message := "service is shutting down"
		if errors.Is(err, worker.ErrQueueFull) {
			status = http.StatusTooManyRequests
			message = "too many checks in flight; retry shortly"
		}
		// A check no worker will ever pick up must not linger pending:
		// mark it failed so it reaches a terminal state and expires
		check.Status = model.StatusFailed
		check.Stage = model.StageFailed
		check.Error = message
		check.UpdatedAt = s.now().UTC()
		s.store.Save(check)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{CheckID: check.ID, Status: model.StatusPending})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	check, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "check not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load check")
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// newCheckID returns an identifier like chk_8f14e45fceea167a
func newCheckID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		b := make([]byte, 8)
		_, _ = rand.Read(b)
		return "chk_" + hex.EncodeToString(b)
	}
	return "chk_" + strings.ReplaceAll(id.String(), "-", "")[:16]
}
