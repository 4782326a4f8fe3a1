// Package answer composes a direct reply to a user's question from the
// verdicts and evidence produced for its claims.
package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/llm"
	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/retrieve"
)

// Answerer builds a QueryAnswer once all claims are judged. It only runs
// for query-type checks; content checks never get an answer surface.
type Answerer struct {
	provider llm.Provider
	style    config.PromptStyle
	cfg      config.AnswerConfig
}

func NewAnswerer(provider llm.Provider, style config.PromptStyle, cfg config.AnswerConfig) *Answerer {
	return &Answerer{provider: provider, style: style, cfg: cfg}
}

// answerSchema is the generation contract for the answer call
type answerSchema struct {
	Answer     string `json:"answer"`
	Confidence int    `json:"confidence"`
}

// Answer composes the reply. Claims below the confidence threshold are
// excluded from the answer's basis; when nothing clears the bar no answer
// text is asserted at all, and the related claims carry the fallback.
func (a *Answerer) Answer(ctx context.Context, query string, claims []model.Claim) *model.QueryAnswer {
	out := &model.QueryAnswer{
		Query:         query,
		RelatedClaims: a.relatedClaims(query, claims),
	}

	usable := make([]model.Claim, 0, len(claims))
	for _, c := range claims {
		if !c.IsVerifiable {
			continue
		}
		if c.Confidence >= a.cfg.ConfidenceThreshold && !c.Verdict.IsUncertain() && c.Verdict != model.VerdictInsufficient {
			usable = append(usable, c)
		}
	}

	if len(usable) == 0 {
		// No asserted answer; RelatedClaims is the whole surface
		out.Confidence = 0
		return out
	}

	out.Sources = collectSources(usable)
	out.Confidence = averageConfidence(usable)

	if a.provider == nil {
		out.Answer = templatedAnswer(usable)
		return out
	}

	gen, err := llm.CompleteJSON[answerSchema](ctx, a.provider, llm.Request{
		System: fmt.Sprintf(`%s

%s Answer the user's question using ONLY the verified findings below. If the findings do not answer the question, say so. Respond with JSON only: {"answer": "...", "confidence": 0-100}`, a.style.Persona, a.style.ConfidenceScale),
		User: a.answerInput(query, usable),
	})
	if err != nil || strings.TrimSpace(gen.Answer) == "" {
		log.Printf("answer: generation degraded to template: %v", err)
		out.Answer = templatedAnswer(usable)
		return out
	}

	out.Answer = strings.TrimSpace(gen.Answer)
	if gen.Confidence > 0 {
		// The generated self-assessment can lower but never raise the
		// evidence-derived confidence
		out.Confidence = min(out.Confidence, model.ClampConfidence(gen.Confidence))
	}
	if out.Confidence < a.cfg.ConfidenceThreshold {
		// Below the gate no direct answer is asserted; the caller still
		// gets the related claims
		out.Answer = ""
	}
	return out
}

// relatedClaims indexes the claims whose wording overlaps the query
func (a *Answerer) relatedClaims(query string, claims []model.Claim) []int {
	var related []int
	for i, c := range claims {
		if retrieve.TokenOverlap(query, c.Text) >= a.cfg.RelatednessThreshold {
			related = append(related, i)
		}
	}
	return related
}

func (a *Answerer) answerInput(query string, usable []model.Claim) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nVerified findings:\n", query)
	for _, c := range usable {
		fmt.Fprintf(&b, "- %q: %s (confidence %d). %s\n", c.Text, c.Verdict, c.Confidence, c.Rationale)
	}
	return b.String()
}

// templatedAnswer summarizes the verdicts without generation
func templatedAnswer(usable []model.Claim) string {
	var parts []string
	for _, c := range usable {
		switch c.Verdict {
		case model.VerdictSupported:
			parts = append(parts, fmt.Sprintf("%q is supported by the evidence", c.Text))
		case model.VerdictContradicted:
			parts = append(parts, fmt.Sprintf("%q is contradicted by the evidence", c.Text))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "; ") + "."
}

// collectSources lists each distinct source backing the answer, ordered by
// credibility
func collectSources(usable []model.Claim) []model.AnswerSource {
	seen := make(map[string]bool)
	var sources []model.AnswerSource
	for _, c := range usable {
		for _, e := range c.Evidence {
			if e.Stance == model.StanceNeutral || seen[e.URL] {
				continue
			}
			seen[e.URL] = true
			sources = append(sources, model.AnswerSource{
				Name:        e.SourceName,
				URL:         e.URL,
				Credibility: e.Credibility,
			})
		}
	}
	for i := 1; i < len(sources); i++ {
		for k := i; k > 0 && sources[k].Credibility > sources[k-1].Credibility; k-- {
			sources[k], sources[k-1] = sources[k-1], sources[k]
		}
	}
	return sources
}

func averageConfidence(usable []model.Claim) int {
	sum := 0
	for _, c := range usable {
		sum += c.Confidence
	}
	return model.ClampConfidence(sum / len(usable))
}
