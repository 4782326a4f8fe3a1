// Package search provides the evidence source adapters: a web-search
// provider and a fact-check index behind one interface.
package search

import (
	"context"
	"time"
)

// Freshness is the bounded recency hint a query may carry
type Freshness string

const (
	FreshnessAny   Freshness = ""
	FreshnessDay   Freshness = "day"
	FreshnessWeek  Freshness = "week"
	FreshnessMonth Freshness = "month"
	FreshnessYear  Freshness = "year"
)

// ParseFreshness maps a free-form hint to a known freshness window
func ParseFreshness(s string) Freshness {
	switch Freshness(s) {
	case FreshnessDay, FreshnessWeek, FreshnessMonth, FreshnessYear:
		return Freshness(s)
	}
	return FreshnessAny
}

// Result is one candidate evidence document returned by an adapter
type Result struct {
	Title       string
	URL         string
	Snippet     string
	Source      string // Outlet or publisher name
	PublishedAt *time.Time

	IsFactCheck bool
	Publisher   string // Fact-check publisher, when IsFactCheck
	Rating      string // Textual rating, when IsFactCheck
}

// Adapter is the uniform contract over evidence sources. Zero results is a
// normal return, never an error.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query string, freshness Freshness) ([]Result, error)
}
