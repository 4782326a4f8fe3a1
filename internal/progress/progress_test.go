package progress

import (
	"testing"
	"time"

	"github.com/clearcast/clearcast/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.Stage
		want     bool
	}{
		{model.StagePending, model.StageIngest, true},
		{model.StageIngest, model.StageExtract, true},
		{model.StageExtract, model.StageRetrieve, true},
		{model.StageExtract, model.StageCompleted, true}, // no verifiable claims
		{model.StageJudge, model.StageAnswer, true},
		{model.StageJudge, model.StageCompleted, true},
		{model.StageIngest, model.StageJudge, false}, // no skipping
		{model.StageRetrieve, model.StageIngest, false},
		{model.StageVerify, model.StageFailed, true},
		{model.StageCompleted, model.StageFailed, false}, // terminal is terminal
		{model.StageFailed, model.StageIngest, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTrackerAdvanceAndEvents(t *testing.T) {
	hub := NewHub()
	tracker := NewTracker(hub)
	ch, cancel := hub.Subscribe("chk_1")
	defer cancel()

	for _, stage := range []model.Stage{model.StageIngest, model.StageExtract, model.StageRetrieve} {
		if err := tracker.Advance("chk_1", stage, "working"); err != nil {
			t.Fatalf("Advance(%s): %v", stage, err)
		}
	}

	var percents []int
	for i := 0; i < 3; i++ {
		select {
		case ev := <-ch:
			percents = append(percents, ev.Percent)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("percent went backwards: %v", percents)
		}
	}
	if percents[2] != 55 {
		t.Errorf("retrieve percent = %d, want 55", percents[2])
	}
}

func TestTrackerRejectsIllegalTransition(t *testing.T) {
	tracker := NewTracker(NewHub())

	if err := tracker.Advance("chk_2", model.StageJudge, ""); err == nil {
		t.Error("expected error for pending -> judge")
	}
	if _, _, ok := tracker.Stage("chk_2"); !ok {
		t.Error("check should still be tracked at its original stage")
	}
}

func TestTrackerUpdateNeverRegresses(t *testing.T) {
	hub := NewHub()
	tracker := NewTracker(hub)
	ch, cancel := hub.Subscribe("chk_3")
	defer cancel()

	if err := tracker.Advance("chk_3", model.StageIngest, ""); err != nil {
		t.Fatal(err)
	}
	tracker.Update("chk_3", 18, "halfway through ingest", nil)
	tracker.Update("chk_3", 5, "stale percent from a retried step", nil)

	<-ch
	ev := <-ch
	if ev.Percent != 18 {
		t.Errorf("percent = %d, want 18", ev.Percent)
	}
	ev = <-ch
	if ev.Percent != 18 {
		t.Errorf("percent regressed to %d after stale update", ev.Percent)
	}
}

func TestHubTerminalEventClosesSubscribers(t *testing.T) {
	hub := NewHub()
	tracker := NewTracker(hub)
	ch, cancel := hub.Subscribe("chk_4")
	defer cancel()

	stages := []model.Stage{
		model.StageIngest, model.StageExtract, model.StageRetrieve,
		model.StageVerify, model.StageJudge, model.StageCompleted,
	}
	for _, s := range stages {
		if err := tracker.Advance("chk_4", s, ""); err != nil {
			t.Fatalf("Advance(%s): %v", s, err)
		}
	}

	var last Event
	for ev := range ch {
		last = ev
	}
	if last.Stage != model.StageCompleted || last.Percent != 100 {
		t.Errorf("last event = %s/%d, want completed/100", last.Stage, last.Percent)
	}
	if _, _, ok := tracker.Stage("chk_4"); ok {
		t.Error("terminal check should no longer be tracked")
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("chk_5")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(Event{CheckID: "chk_5", Stage: model.StageRetrieve, Percent: 55})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("chk_6")
	cancel()
	cancel() // must not panic on double close

	hub.Publish(Event{CheckID: "chk_6", Stage: model.StageIngest})
}
