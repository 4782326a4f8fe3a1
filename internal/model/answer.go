package model

// AnswerSource is one cited source backing a query answer
type AnswerSource struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Credibility float64 `json:"credibility_score"` // [0,1]
}

// QueryAnswer is the result of answering the user's free-form question
// against the check's evidence corpus. At most one exists per Check.
type QueryAnswer struct {
	Query      string `json:"query"`
	Answer     string `json:"answer,omitempty"` // Empty when confidence is below the assertion threshold
	Confidence int    `json:"confidence"`       // 0-100

	Sources       []AnswerSource `json:"sources,omitempty"`
	RelatedClaims []int          `json:"related_claims,omitempty"` // Claim positions, fallback when no direct answer
}

// Clone returns a deep copy of the answer
func (a QueryAnswer) Clone() QueryAnswer {
	cp := a
	if a.Sources != nil {
		cp.Sources = append([]AnswerSource(nil), a.Sources...)
	}
	if a.RelatedClaims != nil {
		cp.RelatedClaims = append([]int(nil), a.RelatedClaims...)
	}
	return cp
}
