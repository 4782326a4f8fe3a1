package store

import (
	"errors"
	"testing"
	"time"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
)

func TestSaveAndGet(t *testing.T) {
	s := New(config.StoreConfig{RetentionTTL: time.Hour})

	check := &model.Check{ID: "chk_1", Status: model.StatusProcessing, Stage: model.StageRetrieve, Progress: 55}
	s.Save(check)

	got, err := s.Get("chk_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != model.StageRetrieve || got.Progress != 55 {
		t.Errorf("got %s/%d, want retrieve/55", got.Stage, got.Progress)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := New(config.StoreConfig{RetentionTTL: time.Hour})

	_, err := s.Get("chk_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	s := New(config.StoreConfig{RetentionTTL: time.Hour})

	check := &model.Check{
		ID:     "chk_2",
		Status: model.StatusProcessing,
		Claims: []model.Claim{{Text: "original wording"}},
	}
	s.Save(check)

	// Mutating the worker's live record must not touch the snapshot
	check.Claims[0].Text = "mutated wording"
	got, err := s.Get("chk_2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Claims[0].Text != "original wording" {
		t.Errorf("stored snapshot shares memory with the live record")
	}

	// Mutating a returned copy must not touch the snapshot either
	got.Claims[0].Text = "reader scribble"
	again, _ := s.Get("chk_2")
	if again.Claims[0].Text != "original wording" {
		t.Errorf("Get returned a shared reference")
	}
}

func TestTerminalChecksExpire(t *testing.T) {
	s := New(config.StoreConfig{RetentionTTL: 20 * time.Millisecond, SweepInterval: 10 * time.Millisecond})

	s.Save(&model.Check{ID: "chk_done", Status: model.StatusCompleted})
	s.Save(&model.Check{ID: "chk_live", Status: model.StatusProcessing})

	time.Sleep(60 * time.Millisecond)

	if _, err := s.Get("chk_done"); !errors.Is(err, ErrNotFound) {
		t.Errorf("terminal check survived past retention: err = %v", err)
	}
	if _, err := s.Get("chk_live"); err != nil {
		t.Errorf("running check expired: %v", err)
	}
}
