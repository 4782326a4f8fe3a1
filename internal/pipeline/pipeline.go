// Package pipeline orchestrates one check through ingest, claim
// extraction, evidence retrieval, stance verification, judgment, and the
// optional query answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/clearcast/clearcast/internal/answer"
	"github.com/clearcast/clearcast/internal/extract"
	"github.com/clearcast/clearcast/internal/ingest"
	"github.com/clearcast/clearcast/internal/judge"
	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/nli"
	"github.com/clearcast/clearcast/internal/progress"
	"github.com/clearcast/clearcast/internal/retrieve"
	"github.com/clearcast/clearcast/internal/store"
)

// Credit cost per operation. Credits meter spend transparently; they are
// recorded even when a later stage degrades.
const (
	creditIngest   = 1
	creditExtract  = 2
	creditRetrieve = 3 // per verifiable claim
	creditVerify   = 1 // per verifiable claim with evidence
	creditAnswer   = 2
)

// Pipeline runs checks end to end. Each stage degrades independently: a
// failed retrieval leaves a claim judged on no evidence, a failed claim
// never fails the check. Only structural errors fail the whole check.
type Pipeline struct {
	ingestor  *ingest.Ingestor
	extractor *extract.Extractor
	retriever *retrieve.Retriever
	verifier  *nli.Verifier
	judge     *judge.Judge
	answerer  *answer.Answerer
	store     *store.Store
	tracker   *progress.Tracker
	now       func() time.Time
}

func New(
	ingestor *ingest.Ingestor,
	extractor *extract.Extractor,
	retriever *retrieve.Retriever,
	verifier *nli.Verifier,
	judge *judge.Judge,
	answerer *answer.Answerer,
	st *store.Store,
	tracker *progress.Tracker,
) *Pipeline {
	return &Pipeline{
		ingestor:  ingestor,
		extractor: extractor,
		retriever: retriever,
		verifier:  verifier,
		judge:     judge,
		answerer:  answerer,
		store:     st,
		tracker:   tracker,
		now:       time.Now,
	}
}

// Run processes the check to a terminal state. The check passed in is
// owned by the pipeline for the duration; consumers read snapshots from
// the store.
func (p *Pipeline) Run(ctx context.Context, check *model.Check) {
	check.Status = model.StatusProcessing
	p.save(check)

	if err := p.run(ctx, check); err != nil {
		check.Status = model.StatusFailed
		check.Stage = model.StageFailed
		check.Error = userFacingError(err)
		p.save(check)
		p.advance(check, model.StageFailed, check.Error)
		log.Printf("pipeline: check %s failed: %v", check.ID, err)
		return
	}

	check.Status = model.StatusCompleted
	check.Stage = model.StageCompleted
	check.Progress = progress.Percent(model.StageCompleted)
	p.save(check)
	p.advance(check, model.StageCompleted, "check complete")
}

func (p *Pipeline) run(ctx context.Context, check *model.Check) error {
	// Ingest
	p.moveTo(check, model.StageIngest, "normalizing input")
	text, err := p.ingestor.Normalize(ctx, check.InputType, check.Content)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	check.Content = text
	check.CreditsUsed += creditIngest
	p.save(check)

	// Extract
	p.moveTo(check, model.StageExtract, "extracting claims")
	check.Claims = p.extractor.Extract(ctx, text)
	check.CreditsUsed += creditExtract
	p.save(check)

	if !hasVerifiable(check.Claims) {
		// Nothing to verify: opinions and predictions are labeled and
		// returned as-is
		if check.UserQuery != "" {
			check.Answer = p.answerer.Answer(ctx, check.UserQuery, check.Claims)
		}
		return nil
	}

	// Retrieve, verify, judge each verifiable claim
	p.moveTo(check, model.StageRetrieve, "searching for evidence")
	p.retrieveAll(ctx, check)

	p.moveTo(check, model.StageVerify, "comparing evidence against claims")
	p.verifyAll(ctx, check)

	p.moveTo(check, model.StageJudge, "rendering verdicts")
	p.judgeAll(ctx, check)

	// Answer (query checks only)
	if check.UserQuery != "" {
		p.moveTo(check, model.StageAnswer, "composing answer")
		check.Answer = p.answerer.Answer(ctx, check.UserQuery, check.Claims)
		check.CreditsUsed += creditAnswer
		p.save(check)
	}
	return nil
}

func (p *Pipeline) retrieveAll(ctx context.Context, check *model.Check) {
	base := progress.Percent(model.StageExtract)
	span := progress.Percent(model.StageRetrieve) - base
	verifiable := countVerifiable(check.Claims)

	done := 0
	for i := range check.Claims {
		claim := &check.Claims[i]
		if !claim.IsVerifiable {
			continue
		}
		evidence, summary := p.retriever.Retrieve(ctx, *claim)
		claim.Evidence = evidence
		claim.Trail = append(claim.Trail, model.TrailEntry{
			Stage:       model.StageRetrieve,
			Description: "evidence searched across sources",
			Result:      fmt.Sprintf("%d items retained", len(evidence)),
			Details:     summary.String(),
		})
		check.CreditsUsed += creditRetrieve

		done++
		pct := base + span*done/verifiable
		p.tracker.Update(check.ID, pct, fmt.Sprintf("evidence gathered for claim %d of %d", done, verifiable), nil)
		p.save(check)
	}
}

func (p *Pipeline) verifyAll(ctx context.Context, check *model.Check) {
	for i := range check.Claims {
		claim := &check.Claims[i]
		if !claim.IsVerifiable || len(claim.Evidence) == 0 {
			continue
		}
		p.verifier.Verify(ctx, claim.Text, claim.Evidence)
		check.CreditsUsed += creditVerify
	}
	p.save(check)
}

func (p *Pipeline) judgeAll(ctx context.Context, check *model.Check) {
	base := progress.Percent(model.StageVerify)
	span := progress.Percent(model.StageJudge) - base
	verifiable := countVerifiable(check.Claims)

	done := 0
	for i := range check.Claims {
		if !check.Claims[i].IsVerifiable {
			continue
		}
		check.Claims[i] = p.judge.Judge(ctx, check.Claims[i])

		done++
		pct := base + span*done/verifiable
		judged := check.Claims[i].Clone()
		p.tracker.Update(check.ID, pct, fmt.Sprintf("verdict for claim %d of %d", done, verifiable), &judged)
		p.save(check)
	}
}

// moveTo advances the stage on both the tracker and the check record
func (p *Pipeline) moveTo(check *model.Check, stage model.Stage, message string) {
	check.Stage = stage
	if pct := progress.Percent(stage); pct > check.Progress {
		check.Progress = pct
	}
	check.UpdatedAt = p.now().UTC()
	p.save(check)
	p.advance(check, stage, message)
}

func (p *Pipeline) advance(check *model.Check, stage model.Stage, message string) {
	if err := p.tracker.Advance(check.ID, stage, message); err != nil {
		log.Printf("pipeline: %v", err)
	}
}

func (p *Pipeline) save(check *model.Check) {
	check.UpdatedAt = p.now().UTC()
	p.store.Save(check)
}

// userFacingError maps internal failures to a message safe to show
func userFacingError(err error) string {
	var serr *ingest.StructuralError
	if errors.As(err, &serr) {
		return serr.Message
	}
	return "the check could not be completed; please try again"
}

func hasVerifiable(claims []model.Claim) bool {
	return countVerifiable(claims) > 0
}

func countVerifiable(claims []model.Claim) int {
	n := 0
	for _, c := range claims {
		if c.IsVerifiable {
			n++
		}
	}
	return n
}
