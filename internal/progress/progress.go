// Package progress tracks a check's advance through the pipeline stages
// and fans events out to subscribers.
package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/clearcast/clearcast/internal/model"
)

// Event is one progress update pushed to subscribers and recorded on the
// check. Percent never decreases for a given check.
type Event struct {
	CheckID   string       `json:"check_id"`
	Stage     model.Stage  `json:"stage"`
	Percent   int          `json:"percent"`
	Message   string       `json:"message"`
	Timestamp time.Time    `json:"timestamp"`
	Claim     *model.Claim `json:"claim,omitempty"` // Set on per-claim verdict events
}

// transitions is the legal stage graph. Every stage may also move to
// failed, which is handled separately in Advance.
var transitions = map[model.Stage][]model.Stage{
	model.StagePending:   {model.StageIngest},
	model.StageIngest:    {model.StageExtract},
	model.StageExtract:   {model.StageRetrieve, model.StageCompleted},
	model.StageRetrieve:  {model.StageVerify},
	model.StageVerify:    {model.StageJudge},
	model.StageJudge:     {model.StageAnswer, model.StageCompleted},
	model.StageAnswer:    {model.StageCompleted},
	model.StageCompleted: {},
	model.StageFailed:    {},
}

// stagePercent anchors each stage's baseline completion
var stagePercent = map[model.Stage]int{
	model.StagePending:   0,
	model.StageIngest:    10,
	model.StageExtract:   25,
	model.StageRetrieve:  55,
	model.StageVerify:    75,
	model.StageJudge:     90,
	model.StageAnswer:    95,
	model.StageCompleted: 100,
	model.StageFailed:    100,
}

// CanTransition reports whether moving from one stage to the next is legal
func CanTransition(from, to model.Stage) bool {
	if to == model.StageFailed {
		return from != model.StageCompleted && from != model.StageFailed
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Percent returns the baseline percent for a stage
func Percent(stage model.Stage) int {
	return stagePercent[stage]
}

// checkState is the per-check tracking record
type checkState struct {
	stage   model.Stage
	percent int
}

// Tracker validates stage transitions, enforces monotonic percent, and
// publishes events through the hub. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	checks map[string]*checkState
	hub    *Hub
	now    func() time.Time
}

func NewTracker(hub *Hub) *Tracker {
	return &Tracker{
		checks: make(map[string]*checkState),
		hub:    hub,
		now:    time.Now,
	}
}

// Advance moves a check to the given stage and publishes an event. An
// illegal transition is returned as an error and publishes nothing.
func (t *Tracker) Advance(checkID string, stage model.Stage, message string) error {
	t.mu.Lock()
	state, ok := t.checks[checkID]
	if !ok {
		state = &checkState{stage: model.StagePending}
		t.checks[checkID] = state
	}
	if !CanTransition(state.stage, stage) {
		from := state.stage
		t.mu.Unlock()
		return fmt.Errorf("progress: illegal transition %s -> %s for check %s", from, stage, checkID)
	}
	state.stage = stage
	if p := stagePercent[stage]; p > state.percent {
		state.percent = p
	}
	ev := Event{
		CheckID:   checkID,
		Stage:     stage,
		Percent:   state.percent,
		Message:   message,
		Timestamp: t.now().UTC(),
	}
	if stage.Terminal() {
		delete(t.checks, checkID)
	}
	t.mu.Unlock()

	t.hub.Publish(ev)
	return nil
}

// Update publishes a within-stage event, such as a claim verdict landing
// mid-judge. Percent is clamped to never move backwards.
func (t *Tracker) Update(checkID string, percent int, message string, claim *model.Claim) {
	t.mu.Lock()
	state, ok := t.checks[checkID]
	if !ok {
		t.mu.Unlock()
		return
	}
	if percent > state.percent {
		state.percent = percent
	}
	ev := Event{
		CheckID:   checkID,
		Stage:     state.stage,
		Percent:   state.percent,
		Message:   message,
		Timestamp: t.now().UTC(),
		Claim:     claim,
	}
	t.mu.Unlock()

	t.hub.Publish(ev)
}

// Stage returns the current stage and percent of a tracked check
func (t *Tracker) Stage(checkID string) (model.Stage, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.checks[checkID]
	if !ok {
		return "", 0, false
	}
	return state.stage, state.percent, true
}
