package model

// ClaimType categorizes the nature of an extracted claim
type ClaimType string

const (
	ClaimFactual            ClaimType = "factual"
	ClaimOpinion            ClaimType = "opinion"
	ClaimPrediction         ClaimType = "prediction"
	ClaimPersonalExperience ClaimType = "personal_experience"
)

// Verdict is the Judge's conclusion for a claim
type Verdict string

const (
	VerdictSupported    Verdict = "supported"
	VerdictContradicted Verdict = "contradicted"
	VerdictUncertain    Verdict = "uncertain"
	VerdictInsufficient Verdict = "insufficient_evidence"

	// Refinements of uncertain
	VerdictConflictingExperts Verdict = "conflicting_expert_opinion"
	VerdictOutdated           Verdict = "outdated_claim"
)

// IsUncertain reports whether the verdict is an abstention (including the
// refined uncertain variants)
func (v Verdict) IsUncertain() bool {
	switch v {
	case VerdictUncertain, VerdictConflictingExperts, VerdictOutdated:
		return true
	}
	return false
}

// ConfidenceFactor is one named contribution to a claim's confidence score
type ConfidenceFactor struct {
	Name   string `json:"name"`
	Impact int    `json:"impact"` // Signed contribution in confidence points
}

// TrailEntry records one step of the pipeline's reasoning for a claim
type TrailEntry struct {
	Stage       Stage  `json:"stage"`
	Description string `json:"description"`
	Result      string `json:"result"`
	Details     string `json:"details,omitempty"`
}

// Claim is one verifiable statement extracted from a Check
type Claim struct {
	Text     string    `json:"text"`
	Position int       `json:"position"` // Ordinal position within the check, 0-based
	Type     ClaimType `json:"type"`

	IsVerifiable        bool   `json:"is_verifiable"`
	VerifiabilityReason string `json:"verifiability_reason,omitempty"`
	TimeSensitive       bool   `json:"time_sensitive"`
	TimeReference       string `json:"time_reference,omitempty"` // Resolved absolute reference, e.g. "2026-08-28"

	Verdict           Verdict            `json:"verdict,omitempty"`
	Confidence        int                `json:"confidence"` // 0-100
	Rationale         string             `json:"rationale,omitempty"`
	UncertaintyReason string             `json:"uncertainty_reason,omitempty"` // Set only when Verdict.IsUncertain()
	Breakdown         []ConfidenceFactor `json:"confidence_breakdown,omitempty"`
	Trail             []TrailEntry       `json:"decision_trail,omitempty"`

	Evidence []Evidence `json:"evidence,omitempty"`
}

// Clone returns a deep copy of the claim
func (c Claim) Clone() Claim {
	cp := c
	if c.Breakdown != nil {
		cp.Breakdown = append([]ConfidenceFactor(nil), c.Breakdown...)
	}
	if c.Trail != nil {
		cp.Trail = append([]TrailEntry(nil), c.Trail...)
	}
	if c.Evidence != nil {
		cp.Evidence = append([]Evidence(nil), c.Evidence...)
	}
	return cp
}
