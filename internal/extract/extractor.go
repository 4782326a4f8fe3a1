// Package extract decomposes normalized text into discrete, self-contained
// claims.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/llm"
	"github.com/clearcast/clearcast/internal/model"
)

// fallbackMaxChars bounds the whole-text fallback claim
const fallbackMaxChars = 400

// Extractor extracts claims via the generation collaborator
type Extractor struct {
	provider  llm.Provider
	style     config.PromptStyle
	maxClaims int
	now       func() time.Time // Injectable for tests
}

// NewExtractor creates a claim extractor
func NewExtractor(provider llm.Provider, style config.PromptStyle, cfg config.ExtractConfig) *Extractor {
	maxClaims := cfg.MaxClaims
	if maxClaims <= 0 {
		maxClaims = 8
	}
	return &Extractor{
		provider:  provider,
		style:     style,
		maxClaims: maxClaims,
		now:       time.Now,
	}
}

// extractedClaim is the schema one row of the extraction response must
// match
type extractedClaim struct {
	Text          string `json:"text"`
	Type          string `json:"type"`
	IsVerifiable  bool   `json:"is_verifiable"`
	Reason        string `json:"reason,omitempty"`
	TimeSensitive bool   `json:"time_sensitive"`
	TimeReference string `json:"time_reference,omitempty"`
}

// Extract decomposes text into an ordered, bounded list of claims. A
// failed or malformed extraction never aborts the check: the whole text
// becomes a single low-confidence claim instead.
func (e *Extractor) Extract(ctx context.Context, text string) []model.Claim {
	rows, err := llm.CompleteJSON[[]extractedClaim](ctx, e.provider, llm.Request{
		System: e.systemPrompt(),
		User:   fmt.Sprintf("Extract the claims from this text:\n\n%s", text),
	})
	if err != nil {
		var perr *llm.ParseError
		if errors.As(err, &perr) {
			log.Printf("extract: malformed output after retry, falling back to whole-text claim")
		} else {
			log.Printf("extract: %v, falling back to whole-text claim", err)
		}
		return []model.Claim{e.fallbackClaim(text)}
	}

	claims := make([]model.Claim, 0, len(rows))
	for _, row := range rows {
		claimText := strings.TrimSpace(row.Text)
		if claimText == "" {
			continue
		}
		claims = append(claims, model.Claim{
			Text:                claimText,
			Type:                parseClaimType(row.Type),
			IsVerifiable:        row.IsVerifiable,
			VerifiabilityReason: strings.TrimSpace(row.Reason),
			TimeSensitive:       row.TimeSensitive,
			TimeReference:       strings.TrimSpace(row.TimeReference),
		})
	}
	claims = dedupeClaims(claims)
	if len(claims) == 0 {
		return []model.Claim{e.fallbackClaim(text)}
	}
	if len(claims) > e.maxClaims {
		claims = claims[:e.maxClaims]
	}

	for i := range claims {
		claims[i].Position = i
		// Non-factual claims are never verifiable, whatever the model said
		if claims[i].Type != model.ClaimFactual {
			claims[i].IsVerifiable = false
			if claims[i].VerifiabilityReason == "" {
				claims[i].VerifiabilityReason = nonVerifiableReason(claims[i].Type)
			}
		}
		claims[i].Trail = append(claims[i].Trail, model.TrailEntry{
			Stage:       model.StageExtract,
			Description: "claim extracted from submission",
			Result:      string(claims[i].Type),
		})
	}

	return claims
}

func (e *Extractor) systemPrompt() string {
	today := e.now().UTC().Format(e.style.DateLayout)
	return fmt.Sprintf(`%s

Today's date is %s. Resolve every relative time expression ("yesterday", "this year", "last month") against this date; never guess.

Decompose the user's text into at most %d self-contained factual assertions. For each one respond with an object:
  {"text": "...", "type": "factual|opinion|prediction|personal_experience",
   "is_verifiable": true|false, "reason": "why not, when false",
   "time_sensitive": true|false, "time_reference": "ISO date or period the claim is about, when time_sensitive"}

Opinions, predictions, and personal experiences are not verifiable; say why in "reason".
Respond with a JSON array only.`, e.style.Persona, today, e.maxClaims)
}

// fallbackClaim wraps the whole text as one verifiable claim, marked so
// the judge knows extraction degraded
func (e *Extractor) fallbackClaim(text string) model.Claim {
	text = strings.TrimSpace(text)
	if len(text) > fallbackMaxChars {
		cut := fallbackMaxChars
		// Back up to a rune boundary so the cut never splits a character
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return model.Claim{
		Text:         text,
		Position:     0,
		Type:         model.ClaimFactual,
		IsVerifiable: true,
		Trail: []model.TrailEntry{{
			Stage:       model.StageExtract,
			Description: "claim extraction degraded to whole-text claim",
			Result:      "fallback",
			Details:     "extraction call failed or returned malformed output",
		}},
	}
}

func parseClaimType(s string) model.ClaimType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opinion":
		return model.ClaimOpinion
	case "prediction":
		return model.ClaimPrediction
	case "personal_experience", "personal experience":
		return model.ClaimPersonalExperience
	default:
		return model.ClaimFactual
	}
}

func nonVerifiableReason(t model.ClaimType) string {
	switch t {
	case model.ClaimOpinion:
		return "expresses a subjective judgment rather than a checkable fact"
	case model.ClaimPrediction:
		return "concerns a future event that cannot be verified yet"
	case model.ClaimPersonalExperience:
		return "describes a personal experience no external source can confirm"
	default:
		return "not verifiable"
	}
}

// dedupeClaims removes near-identical claims, keeping first occurrence
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var unique []model.Claim
	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}
	return unique
}
