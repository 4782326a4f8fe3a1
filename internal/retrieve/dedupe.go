package retrieve

import (
	"net/url"
	"strings"

	"github.com/clearcast/clearcast/internal/model"
)

// CanonicalURL normalizes a URL for duplicate detection: scheme, www
// prefix, tracking parameters, fragments, and trailing slashes are not
// identity.
func CanonicalURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.ToLower(rawURL)
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Hostname(), "www."))
	path := strings.TrimRight(parsed.EscapedPath(), "/")

	// Keep only non-tracking query parameters
	query := url.Values{}
	for key, vals := range parsed.Query() {
		if strings.HasPrefix(key, "utm_") || key == "fbclid" || key == "gclid" || key == "ref" {
			continue
		}
		query[key] = vals
	}

	canonical := host + path
	if encoded := query.Encode(); encoded != "" {
		canonical += "?" + encoded
	}
	return canonical
}

// Tokenize lowercases and splits text into word tokens, dropping short
// stop-ish tokens
func Tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.Trim(field, ".,;:!?\"'()[]")
		if len(field) > 2 {
			tokens[field] = true
		}
	}
	return tokens
}

// TokenOverlap is the overlap coefficient between two token sets in [0,1]
func TokenOverlap(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	smaller, larger := ta, tb
	if len(tb) < len(ta) {
		smaller, larger = tb, ta
	}
	intersection := 0
	for token := range smaller {
		if larger[token] {
			intersection++
		}
	}
	return float64(intersection) / float64(len(smaller))
}

// Jaccard is the Jaccard similarity of the token sets of two texts
func Jaccard(a, b string) float64 {
	return jaccardSets(Tokenize(a), Tokenize(b))
}

func jaccardSets(ta, tb map[string]bool) float64 {
	if len(ta) == 0 && len(tb) == 0 {
		return 0
	}
	intersection := 0
	for token := range ta {
		if tb[token] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// disputeMarkers are tokens that flip the stance of otherwise-identical
// coverage: a headline and its near-verbatim rebuttal must both survive
// deduplication so opposing evidence reaches stance scoring.
var disputeMarkers = map[string]bool{
	"not": true, "untrue": true, "false": true, "falsely": true,
	"disputed": true, "dispute": true, "disputes": true,
	"denies": true, "denied": true, "deny": true,
	"refutes": true, "refuted": true, "debunked": true, "debunks": true,
	"contradicts": true, "contradicted": true,
	"doubt": true, "doubts": true, "wrong": true,
}

// sameStory reports whether two evidence items read as the same story
// republished across outlets. High token similarity alone is not enough:
// when the tokens that differ carry a negation or dispute marker, the
// items are opposing coverage, not duplicates.
func sameStory(a, b model.Evidence, threshold float64) bool {
	ta := Tokenize(a.Title + " " + a.Snippet)
	tb := Tokenize(b.Title + " " + b.Snippet)
	if jaccardSets(ta, tb) < threshold {
		return false
	}
	return !markerInDifference(ta, tb) && !markerInDifference(tb, ta)
}

// markerInDifference reports whether a token only present in ta is a
// dispute marker
func markerInDifference(ta, tb map[string]bool) bool {
	for token := range ta {
		if !tb[token] && disputeMarkers[token] {
			return true
		}
	}
	return false
}

// dedupe collapses near-duplicate evidence: the same canonical URL, or the
// same underlying story republished across outlets (high title+snippet
// similarity). Fact-check items win ties, then higher relevance.
func dedupe(evidence []model.Evidence, similarityThreshold float64) []model.Evidence {
	var unique []model.Evidence
	seenURLs := make(map[string]int) // canonical URL -> index in unique

	for _, item := range evidence {
		canonical := CanonicalURL(item.URL)
		if idx, ok := seenURLs[canonical]; ok {
			if better(item, unique[idx]) {
				unique[idx] = item
			}
			continue
		}

		duplicateOf := -1
		for i, kept := range unique {
			if sameStory(item, kept, similarityThreshold) {
				duplicateOf = i
				break
			}
		}
		if duplicateOf >= 0 {
			if better(item, unique[duplicateOf]) {
				delete(seenURLs, CanonicalURL(unique[duplicateOf].URL))
				unique[duplicateOf] = item
				seenURLs[canonical] = duplicateOf
			}
			continue
		}

		seenURLs[canonical] = len(unique)
		unique = append(unique, item)
	}

	return unique
}

func better(a, b model.Evidence) bool {
	if a.IsFactCheck != b.IsFactCheck {
		return a.IsFactCheck
	}
	return a.Relevance > b.Relevance
}
