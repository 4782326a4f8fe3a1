package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/progress"
	"github.com/clearcast/clearcast/internal/store"
	"github.com/clearcast/clearcast/internal/worker"
)

// fakeRunner drives checks to a scripted terminal state
type fakeRunner struct {
	st      *store.Store
	tracker *progress.Tracker
	run     func(ctx context.Context, check *model.Check)
}

func (f *fakeRunner) Run(ctx context.Context, check *model.Check) {
	f.run(ctx, check)
}

func newTestServer(t *testing.T, run func(ctx context.Context, check *model.Check)) (*Server, *store.Store, *progress.Tracker, *worker.Pool) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.HeartbeatInterval = 50 * time.Millisecond

	st := store.New(cfg.Store)
	hub := progress.NewHub()
	tracker := progress.NewTracker(hub)
	pool := worker.NewPool(config.WorkerConfig{Count: 2, QueueSize: 8})
	pool.Start()
	t.Cleanup(pool.Shutdown)

	runner := &fakeRunner{st: st, tracker: tracker, run: run}
	s := New(cfg.Server, st, pool, runner, hub, tracker)
	return s, st, tracker, pool
}

func completeImmediately(st *store.Store, tracker *progress.Tracker) func(ctx context.Context, check *model.Check) {
	return func(ctx context.Context, check *model.Check) {
		for _, stage := range []model.Stage{
			model.StageIngest, model.StageExtract, model.StageRetrieve,
			model.StageVerify, model.StageJudge,
		} {
			_ = tracker.Advance(check.ID, stage, "working")
		}
		check.Status = model.StatusCompleted
		check.Stage = model.StageCompleted
		check.Progress = 100
		st.Save(check)
		_ = tracker.Advance(check.ID, model.StageCompleted, "done")
	}
}

func postCheck(t *testing.T, handler http.Handler, body string) submitResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checks", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestSubmitAndStatus(t *testing.T) {
	var s *Server
	var st *store.Store
	var tracker *progress.Tracker
	s, st, tracker, _ = newTestServer(t, nil)
	s.runner.(*fakeRunner).run = completeImmediately(st, tracker)

	resp := postCheck(t, s.Routes(), `{"input_type": "text", "content": "the bridge reopened in May"}`)
	if resp.Status != model.StatusPending {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if !strings.HasPrefix(resp.CheckID, "chk_") {
		t.Errorf("check id = %q, want chk_ prefix", resp.CheckID)
	}

	// The pool runs the check asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/"+resp.CheckID, nil)
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d", rec.Code)
		}
		var check model.Check
		if err := json.Unmarshal(rec.Body.Bytes(), &check); err != nil {
			t.Fatal(err)
		}
		if check.Status == model.StatusCompleted {
			if check.Progress != 100 {
				t.Errorf("progress = %d, want 100", check.Progress)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("check never completed: %s", rec.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitValidation(t *testing.T) {
	s, _, _, _ := newTestServer(t, func(ctx context.Context, check *model.Check) {})

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"input_type": `},
		{"unknown input type", `{"input_type": "carrier_pigeon", "content": "hi"}`},
		{"empty content", `{"input_type": "text", "content": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/checks", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
				t.Errorf("expected an error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestSubmitBackpressureFailsStoredCheck(t *testing.T) {
	cfg := config.Default()
	st := store.New(cfg.Store)
	hub := progress.NewHub()
	tracker := progress.NewTracker(hub)
	// Never started and queue of one: the second submission is rejected
	pool := worker.NewPool(config.WorkerConfig{Count: 1, QueueSize: 1})

	s := New(cfg.Server, st, pool, &fakeRunner{run: func(ctx context.Context, check *model.Check) {}}, hub, tracker)
	ids := []string{"chk_first", "chk_second"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	postCheck(t, s.Routes(), `{"input_type": "text", "content": "first"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checks", bytes.NewBufferString(`{"input_type": "text", "content": "second"}`))
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}

	rejected, err := st.Get("chk_second")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != model.StatusFailed {
		t.Errorf("rejected check status = %s, want failed (must not linger pending)", rejected.Status)
	}
	if rejected.Error == "" {
		t.Error("rejected check is missing its user-facing error")
	}
}

func TestStatusUnknownCheck(t *testing.T) {
	s, _, _, _ := newTestServer(t, func(ctx context.Context, check *model.Check) {})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/chk_nope", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	release := make(chan struct{})
	var s *Server
	var st *store.Store
	var tracker *progress.Tracker
	s, st, tracker, _ = newTestServer(t, nil)
	s.runner.(*fakeRunner).run = func(ctx context.Context, check *model.Check) {
		<-release
		completeImmediately(st, tracker)(ctx, check)
	}

	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	resp := postCheck(t, s.Routes(), `{"input_type": "text", "content": "the bridge reopened"}`)

	stream, err := http.Get(ts.URL + "/api/v1/checks/" + resp.CheckID + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Body.Close()
	if ct := stream.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	close(release)

	var names []string
	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			names = append(names, strings.TrimPrefix(line, "event: "))
		}
	}

	if len(names) == 0 {
		t.Fatal("no events received")
	}
	if names[len(names)-1] != "completed" {
		t.Errorf("last event = %s, want completed", names[len(names)-1])
	}
	sawProgress := false
	for _, n := range names {
		if n == "progress" {
			sawProgress = true
		}
	}
	if !sawProgress {
		t.Errorf("no progress events in %v", names)
	}
}

func TestEventsForFinishedCheckClosesAfterSnapshot(t *testing.T) {
	s, st, _, _ := newTestServer(t, func(ctx context.Context, check *model.Check) {})

	st.Save(&model.Check{ID: "chk_done", Status: model.StatusCompleted, Stage: model.StageCompleted, Progress: 100})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/chk_done/events", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: completed") {
		t.Errorf("body = %q, want a terminal snapshot event", body)
	}
}

func TestHealthz(t *testing.T) {
	s, _, _, _ := newTestServer(t, func(ctx context.Context, check *model.Check) {})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
