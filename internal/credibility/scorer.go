// Package credibility maps evidence sources to trust scores and ownership
// metadata. Scoring is a pure table lookup so results are reproducible.
package credibility

import (
	"net/url"
	"strings"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
)

// Scorer classifies source domains
type Scorer struct {
	scores           map[string]float64
	factCheckers     map[string]bool
	parents          map[string]string
	defaultScore     float64
	factCheckerFloor float64
}

// builtinScores is the base reputation table. Config entries extend and
// override it.
var builtinScores = map[string]float64{
	"reuters.com":        0.95,
	"apnews.com":         0.95,
	"bbc.com":            0.9,
	"bbc.co.uk":          0.9,
	"nature.com":         0.95,
	"science.org":        0.95,
	"nytimes.com":        0.85,
	"washingtonpost.com": 0.85,
	"theguardian.com":    0.85,
	"wsj.com":            0.85,
	"economist.com":      0.85,
	"npr.org":            0.85,
	"aljazeera.com":      0.8,
	"cnn.com":            0.75,
	"foxnews.com":        0.6,
	"nypost.com":         0.5,
	"dailymail.co.uk":    0.35,
	"medium.com":         0.35,
	"reddit.com":         0.25,
	"twitter.com":        0.2,
	"x.com":              0.2,
	"facebook.com":       0.2,
}

// builtinFactCheckers are verified fact-check publishers
var builtinFactCheckers = map[string]bool{
	"snopes.com":        true,
	"politifact.com":    true,
	"factcheck.org":     true,
	"fullfact.org":      true,
	"apnews.com":        true, // AP Fact Check
	"reuters.com":       true, // Reuters Fact Check
	"leadstories.com":   true,
	"checkyourfact.com": true,
}

// builtinParents maps domains to parent companies for independence checks
var builtinParents = map[string]string{
	"foxnews.com":     "Fox Corporation",
	"nypost.com":      "News Corp",
	"wsj.com":         "News Corp",
	"thetimes.co.uk":  "News Corp",
	"cnn.com":         "Warner Bros. Discovery",
	"abcnews.go.com":  "The Walt Disney Company",
	"nbcnews.com":     "Comcast",
	"cnbc.com":        "Comcast",
	"msnbc.com":       "Comcast",
	"theverge.com":    "Vox Media",
	"vox.com":         "Vox Media",
	"businessinsider.com": "Axel Springer",
	"politico.com":        "Axel Springer",
}

// NewScorer builds a scorer from the built-in tables overlaid with config
func NewScorer(cfg config.CredibilityConfig) *Scorer {
	s := &Scorer{
		scores:           make(map[string]float64, len(builtinScores)),
		factCheckers:     make(map[string]bool, len(builtinFactCheckers)),
		parents:          make(map[string]string, len(builtinParents)),
		defaultScore:     cfg.DefaultScore,
		factCheckerFloor: cfg.FactCheckerFloor,
	}
	if s.defaultScore <= 0 {
		s.defaultScore = 0.4
	}
	if s.factCheckerFloor <= 0 {
		s.factCheckerFloor = 0.95
	}

	for domain, score := range builtinScores {
		s.scores[domain] = score
	}
	for domain, score := range cfg.DomainScores {
		s.scores[domain] = model.ClampScore(score)
	}
	for domain := range builtinFactCheckers {
		s.factCheckers[domain] = true
	}
	for _, domain := range cfg.FactCheckers {
		s.factCheckers[domain] = true
	}
	for domain, parent := range builtinParents {
		s.parents[domain] = parent
	}
	for domain, parent := range cfg.ParentCompanies {
		s.parents[domain] = parent
	}

	return s
}

// Score returns the trust score for a domain in [0,1]
func (s *Scorer) Score(domain string) float64 {
	domain = normalizeDomain(domain)

	score, ok := lookup(s.scores, domain)
	if !ok {
		switch {
		case strings.HasSuffix(domain, ".gov"), strings.HasSuffix(domain, ".mil"):
			score = 0.9
		case strings.HasSuffix(domain, ".edu"), strings.HasSuffix(domain, ".ac.uk"):
			score = 0.85
		default:
			score = s.defaultScore
		}
	}

	// Verified fact-check publishers never score below the floor
	if s.IsFactChecker(domain) && score < s.factCheckerFloor {
		score = s.factCheckerFloor
	}

	return model.ClampScore(score)
}

// IsFactChecker reports whether the domain is a verified fact-check
// publisher
func (s *Scorer) IsFactChecker(domain string) bool {
	domain = normalizeDomain(domain)
	_, ok := lookup(boolAsScore(s.factCheckers), domain)
	return ok
}

// Parent returns the parent company for a domain, or "" when unknown
func (s *Scorer) Parent(domain string) string {
	domain = normalizeDomain(domain)
	if parent, ok := s.parents[domain]; ok {
		return parent
	}
	for d, parent := range s.parents {
		if strings.HasSuffix(domain, "."+d) {
			return parent
		}
	}
	return ""
}

// Annotate fills credibility and independence fields across one claim's
// evidence set. An item loses its independence flag when an earlier item
// in the set shares its parent company.
func (s *Scorer) Annotate(evidence []model.Evidence) {
	seenParents := make(map[string]bool)
	for i := range evidence {
		domain := Domain(evidence[i].URL)
		evidence[i].Credibility = s.Score(domain)
		evidence[i].Independent = true

		if s.IsFactChecker(domain) && !evidence[i].IsFactCheck {
			evidence[i].IsFactCheck = true
			if evidence[i].FactCheckPublisher == "" {
				evidence[i].FactCheckPublisher = evidence[i].SourceName
			}
		}

		if parent := s.Parent(domain); parent != "" {
			evidence[i].ParentCompany = parent
			if seenParents[parent] {
				evidence[i].Independent = false
			}
			seenParents[parent] = true
		}
	}
}

// Domain extracts the registrable host from a URL, dropping any www prefix
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return normalizeDomain(rawURL)
	}
	return normalizeDomain(parsed.Hostname())
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.Index(domain, ":"); idx > 0 {
		domain = domain[:idx]
	}
	return domain
}

// lookup finds domain in the table, falling back to parent-suffix matches
// (news.bbc.co.uk matches bbc.co.uk)
func lookup(table map[string]float64, domain string) (float64, bool) {
	if v, ok := table[domain]; ok {
		return v, true
	}
	for d, v := range table {
		if strings.HasSuffix(domain, "."+d) {
			return v, true
		}
	}
	return 0, false
}

func boolAsScore(m map[string]bool) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k := range m {
		out[k] = 1
	}
	return out
}
