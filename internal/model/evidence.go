package model

import (
	"sort"
	"time"
)

// SourceType classifies where an evidence item came from
type SourceType string

const (
	SourceNews       SourceType = "news"
	SourceFactCheck  SourceType = "fact_check"
	SourceGovernment SourceType = "government"
	SourceAcademic   SourceType = "academic"
	SourceWeb        SourceType = "web"
)

// Stance is the NLI classification of an evidence item relative to its claim
type Stance string

const (
	StanceSupporting    Stance = "supporting"
	StanceContradicting Stance = "contradicting"
	StanceNeutral       Stance = "neutral"
)

// Evidence is one retrieved document linked to exactly one claim
type Evidence struct {
	SourceName string     `json:"source_name"`
	URL        string     `json:"url"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	Context    string     `json:"context,omitempty"` // Surrounding text when available
	PublishedAt *time.Time `json:"published_at,omitempty"`

	Relevance         float64 `json:"relevance_score"`          // [0,1]
	Credibility       float64 `json:"credibility_score"`        // [0,1]
	TemporalRelevance float64 `json:"temporal_relevance_score"` // [0,1]

	IsFactCheck        bool   `json:"is_fact_check"`
	FactCheckPublisher string `json:"fact_check_publisher,omitempty"`
	FactCheckRating    string `json:"fact_check_rating,omitempty"`

	SourceType    SourceType `json:"source_type"`
	ParentCompany string     `json:"parent_company,omitempty"`
	Independent   bool       `json:"independent"`

	Stance           Stance `json:"stance,omitempty"`
	StanceConfidence int    `json:"stance_confidence"` // 0-100
}

// SortForDisplay orders evidence the way it is presented: fact-check items
// first, then by relevance descending within each group. Stable so equal
// items keep retrieval order.
func SortForDisplay(evidence []Evidence) {
	sort.SliceStable(evidence, func(i, j int) bool {
		if evidence[i].IsFactCheck != evidence[j].IsFactCheck {
			return evidence[i].IsFactCheck
		}
		return evidence[i].Relevance > evidence[j].Relevance
	})
}
