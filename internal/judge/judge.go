// Package judge aggregates NLI-scored evidence into a verdict with a
// calibrated confidence, an explanation, and a decision trail.
package judge

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/llm"
	"github.com/clearcast/clearcast/internal/model"
)

// Abstention drivers surfaced in the uncertainty explanation
const (
	driverConflict    = "conflicting sources"
	driverCredibility = "insufficient credibility"
	driverStale       = "stale evidence"
)

// Judge renders verdicts. The verdict and confidence come from a
// deterministic aggregation core; the generation collaborator only words
// the rationale, so re-judging unchanged input cannot flip the verdict.
type Judge struct {
	provider llm.Provider // Optional; nil keeps the templated rationale
	style    config.PromptStyle
	cfg      config.JudgeConfig
	now      func() time.Time
}

// NewJudge creates a judge
func NewJudge(provider llm.Provider, style config.PromptStyle, cfg config.JudgeConfig) *Judge {
	return &Judge{provider: provider, style: style, cfg: cfg, now: time.Now}
}

// Judge fills the claim's verdict, confidence, rationale, confidence
// breakdown, and decision trail from its NLI-scored evidence
func (j *Judge) Judge(ctx context.Context, claim model.Claim) model.Claim {
	agg := j.aggregate(claim)

	claim.Trail = append(claim.Trail, model.TrailEntry{
		Stage:       model.StageVerify,
		Description: "evidence compared against claim",
		Result:      fmt.Sprintf("%d supporting, %d contradicting, %d neutral", agg.supportCount, agg.contraCount, agg.neutralCount),
		Details:     fmt.Sprintf("weighted stance mass: support %.2f, contradict %.2f", agg.supportMass, agg.contraMass),
	})

	verdict, confidence, reason := j.decide(claim, agg)

	claim.Verdict = verdict
	claim.Confidence = model.ClampConfidence(confidence)
	claim.UncertaintyReason = ""
	if verdict.IsUncertain() {
		claim.UncertaintyReason = reason
	}
	claim.Breakdown = j.breakdown(claim, agg)
	claim.Rationale = j.rationale(ctx, claim, agg)

	claim.Trail = append(claim.Trail, model.TrailEntry{
		Stage:       model.StageJudge,
		Description: "verdict rendered from weighted stances",
		Result:      string(verdict),
		Details:     fmt.Sprintf("confidence %d", claim.Confidence),
	})

	return claim
}

// aggregateStats summarizes one claim's evidence for the decision policy
type aggregateStats struct {
	supportMass float64
	contraMass  float64
	totalMass   float64

	supportCount int
	contraCount  int
	neutralCount int
	factChecks   int

	avgCredibility   float64
	avgTemporal      float64
	highCredSupport  bool
	highCredContra   bool
	allDatedAreStale bool
	datedCount       int
}

// aggregate computes credibility- and recency-weighted stance mass. Each
// item contributes credibility * stance confidence; time-sensitive claims
// additionally scale by temporal relevance so stale sources carry less.
func (j *Judge) aggregate(claim model.Claim) aggregateStats {
	var agg aggregateStats
	if len(claim.Evidence) == 0 {
		return agg
	}

	staleCutoff := j.now().UTC().AddDate(0, 0, -j.cfg.StaleAfterDays)
	agg.allDatedAreStale = true

	var credSum, tempSum float64
	for _, e := range claim.Evidence {
		credSum += e.Credibility
		tempSum += e.TemporalRelevance

		if e.PublishedAt != nil {
			agg.datedCount++
			if e.PublishedAt.After(staleCutoff) {
				agg.allDatedAreStale = false
			}
		}

		weight := e.Credibility * float64(e.StanceConfidence) / 100
		if claim.TimeSensitive {
			weight *= 0.5 + 0.5*e.TemporalRelevance
		}
		if e.IsFactCheck {
			agg.factChecks++
		}

		switch e.Stance {
		case model.StanceSupporting:
			agg.supportCount++
			agg.supportMass += weight
			if e.Credibility >= j.cfg.HighCredibility {
				agg.highCredSupport = true
			}
		case model.StanceContradicting:
			agg.contraCount++
			agg.contraMass += weight
			if e.Credibility >= j.cfg.HighCredibility {
				agg.highCredContra = true
			}
		default:
			agg.neutralCount++
		}
		agg.totalMass += weight
	}

	n := float64(len(claim.Evidence))
	agg.avgCredibility = credSum / n
	agg.avgTemporal = tempSum / n
	if agg.datedCount == 0 {
		agg.allDatedAreStale = false
	}
	return agg
}

// decide applies the verdict policy to the aggregated stats
func (j *Judge) decide(claim model.Claim, agg aggregateStats) (model.Verdict, int, string) {
	if len(claim.Evidence) == 0 {
		return model.VerdictInsufficient, 0, ""
	}

	directional := agg.supportMass + agg.contraMass
	if directional < j.cfg.MinWeightedMass {
		if claim.TimeSensitive && agg.allDatedAreStale {
			return model.VerdictOutdated, 20, driverStale
		}
		return model.VerdictUncertain, 20, driverCredibility
	}

	dominance := agg.supportMass / directional

	if dominance >= j.cfg.DominanceRatio {
		return model.VerdictSupported, j.scaledConfidence(dominance, agg.supportCount, agg), ""
	}
	if 1-dominance >= j.cfg.DominanceRatio {
		return model.VerdictContradicted, j.scaledConfidence(1-dominance, agg.contraCount, agg), ""
	}

	// Mixed evidence: abstain, naming what drove it
	if claim.TimeSensitive && agg.allDatedAreStale {
		return model.VerdictOutdated, 25, driverStale
	}
	if agg.highCredSupport && agg.highCredContra {
		return model.VerdictConflictingExperts, 30, driverConflict
	}
	return model.VerdictUncertain, 25 + int(math.Round(20*math.Abs(dominance-0.5))), driverConflict
}

// scaledConfidence grows with stance dominance, the number of agreeing
// sources (fact checks count double), and average credibility
func (j *Judge) scaledConfidence(dominance float64, agreeing int, agg aggregateStats) int {
	sources := float64(agreeing + agg.factChecks)
	sourceFactor := math.Min(1, sources/3)
	return int(math.Round(100 * dominance * (0.55 + 0.45*sourceFactor) * (0.7 + 0.3*agg.avgCredibility)))
}

// breakdown itemizes the named factors behind the confidence score
func (j *Judge) breakdown(claim model.Claim, agg aggregateStats) []model.ConfidenceFactor {
	if len(claim.Evidence) == 0 {
		return []model.ConfidenceFactor{{Name: "evidence volume", Impact: -50}}
	}

	directional := agg.supportMass + agg.contraMass
	dominance := 0.5
	if directional > 0 {
		dominance = math.Max(agg.supportMass, agg.contraMass) / directional
	}

	recencyImpact := int(math.Round((agg.avgTemporal - 0.5) * 10))
	if claim.TimeSensitive {
		recencyImpact = int(math.Round((agg.avgTemporal - 0.5) * 30))
	}

	return []model.ConfidenceFactor{
		{Name: "source agreement", Impact: int(math.Round((dominance - 0.5) * 60))},
		{Name: "source credibility", Impact: int(math.Round((agg.avgCredibility - 0.5) * 40))},
		{Name: "evidence recency", Impact: recencyImpact},
		{Name: "evidence volume", Impact: 3*min(len(claim.Evidence), 5) - 6},
	}
}

// rationaleSchema is what the generation collaborator must return
type rationaleSchema struct {
	Rationale string `json:"rationale"`
}

// rationale words the verdict. The LLM gets one attempt (with the usual
// stricter retry on malformed output); any failure keeps the template.
func (j *Judge) rationale(ctx context.Context, claim model.Claim, agg aggregateStats) string {
	template := j.templatedRationale(claim, agg)
	if j.provider == nil {
		return template
	}

	out, err := llm.CompleteJSON[rationaleSchema](ctx, j.provider, llm.Request{
		System: fmt.Sprintf(`%s

%s Write a 2-3 sentence rationale explaining the verdict to a reader, citing only the evidence described. Respond with JSON only: {"rationale": "..."}`, j.style.Persona, j.style.ConfidenceScale),
		User: j.rationaleInput(claim, agg),
	})
	if err != nil || strings.TrimSpace(out.Rationale) == "" {
		log.Printf("judge: rationale generation degraded to template: %v", err)
		return template
	}
	return strings.TrimSpace(out.Rationale)
}

func (j *Judge) rationaleInput(claim model.Claim, agg aggregateStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\nVerdict: %s (confidence %d)\n", claim.Text, claim.Verdict, claim.Confidence)
	if claim.UncertaintyReason != "" {
		fmt.Fprintf(&b, "Abstention driver: %s\n", claim.UncertaintyReason)
	}
	fmt.Fprintf(&b, "Evidence (%d supporting, %d contradicting, %d neutral):\n", agg.supportCount, agg.contraCount, agg.neutralCount)
	for i, e := range claim.Evidence {
		if i >= 8 {
			fmt.Fprintf(&b, "... and %d more items\n", len(claim.Evidence)-8)
			break
		}
		fmt.Fprintf(&b, "- [%s, credibility %.2f] %s: %s\n", e.Stance, e.Credibility, e.SourceName, e.Snippet)
	}
	return b.String()
}

// templatedRationale is the deterministic fallback wording
func (j *Judge) templatedRationale(claim model.Claim, agg aggregateStats) string {
	switch claim.Verdict {
	case model.VerdictInsufficient:
		return "No evidence was found for this claim, so no verdict can be rendered."
	case model.VerdictSupported:
		return fmt.Sprintf("%d of %d sources support this claim, including %d fact-check reviews, with average source credibility %.2f.",
			agg.supportCount, len(claim.Evidence), agg.factChecks, agg.avgCredibility)
	case model.VerdictContradicted:
		return fmt.Sprintf("%d of %d sources contradict this claim, with average source credibility %.2f.",
			agg.contraCount, len(claim.Evidence), agg.avgCredibility)
	case model.VerdictOutdated:
		return "The available evidence predates the period this claim is about, so it cannot confirm the current state."
	case model.VerdictConflictingExperts:
		return fmt.Sprintf("Credible sources disagree: %d support the claim while %d contradict it.", agg.supportCount, agg.contraCount)
	default:
		return fmt.Sprintf("The evidence is inconclusive (%d supporting, %d contradicting, %d neutral); the driving factor was %s.",
			agg.supportCount, agg.contraCount, agg.neutralCount, claim.UncertaintyReason)
	}
}
