// Package server exposes check submission, status, and the progress
// event stream over HTTP.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/progress"
	"github.com/clearcast/clearcast/internal/store"
	"github.com/clearcast/clearcast/internal/worker"
)

// Runner starts a check's pipeline run; satisfied by pipeline.Pipeline
type Runner interface {
	Run(ctx context.Context, check *model.Check)
}

// Server is the HTTP front of the service
type Server struct {
	cfg     config.ServerConfig
	store   *store.Store
	pool    *worker.Pool
	runner  Runner
	hub     *progress.Hub
	tracker *progress.Tracker
	http    *http.Server
	newID   func() string
	now     func() time.Time
}

func New(cfg config.ServerConfig, st *store.Store, pool *worker.Pool, runner Runner, hub *progress.Hub, tracker *progress.Tracker) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		pool:    pool,
		runner:  runner,
		hub:     hub,
		tracker: tracker,
		newID:   newCheckID,
		now:     time.Now,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Routes builds the router; exported so tests can drive handlers through
// httptest without binding a port
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/checks", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/checks/{id}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/checks/{id}/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the HTTP server until the context is cancelled,
// then shuts it down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", s.cfg.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
