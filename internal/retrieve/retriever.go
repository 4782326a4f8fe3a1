// Package retrieve gathers, deduplicates, and ranks evidence for a claim.
package retrieve

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/credibility"
	"github.com/clearcast/clearcast/internal/llm"
	"github.com/clearcast/clearcast/internal/model"
	"github.com/clearcast/clearcast/internal/search"
)

const searchMaxRetries = 3

// Retriever builds queries for a claim, fans them out across the evidence
// source adapters, and reduces the merged results to a ranked, capped set
type Retriever struct {
	adapters []search.Adapter
	scorer   *credibility.Scorer
	cache    *search.QueryCache
	provider llm.Provider // Optional query planner; nil plans from the claim text
	style    config.PromptStyle
	cfg      config.RetrieveConfig
	sleep    func(time.Duration) // Injectable for tests
	now      func() time.Time
}

// NewRetriever creates a retriever over the given adapters
func NewRetriever(adapters []search.Adapter, scorer *credibility.Scorer, cache *search.QueryCache, provider llm.Provider, style config.PromptStyle, cfg config.RetrieveConfig) *Retriever {
	return &Retriever{
		adapters: adapters,
		scorer:   scorer,
		cache:    cache,
		provider: provider,
		style:    style,
		cfg:      cfg,
		sleep:    time.Sleep,
		now:      time.Now,
	}
}

// Summary describes one retrieval run for the claim's decision trail
type Summary struct {
	Queries       []string
	Freshness     search.Freshness
	RawResults    int
	AfterDedupe   int
	Kept          int
	AdapterErrors []string
}

func (s Summary) String() string {
	return fmt.Sprintf("%d queries, %d raw results, %d after dedupe, %d kept", len(s.Queries), s.RawResults, s.AfterDedupe, s.Kept)
}

// queryPlan is the schema of the LLM query-planning response
type queryPlan struct {
	Queries   []string `json:"queries"`
	Freshness string   `json:"freshness"`
}

// Retrieve gathers evidence for one verifiable claim. Adapter failures
// reduce the evidence set instead of failing; an empty set is a valid
// outcome handled by the judge's abstention path.
func (r *Retriever) Retrieve(ctx context.Context, claim model.Claim) ([]model.Evidence, Summary) {
	if r.cfg.ClaimTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ClaimTimeout)
		defer cancel()
	}

	queries, freshness := r.planQueries(ctx, claim)
	summary := Summary{Queries: queries, Freshness: freshness}

	var (
		mu      sync.Mutex
		results []search.Result
	)

	for _, query := range queries {
		key := search.Key(query, freshness)
		if cached, ok := r.cache.Get(key); ok {
			results = append(results, cached...)
			continue
		}

		var (
			queryMu      sync.Mutex
			queryResults []search.Result
		)
		errsBefore := len(summary.AdapterErrors)
		g, gctx := errgroup.WithContext(ctx)
		for _, adapter := range r.adapters {
			adapter := adapter
			g.Go(func() error {
				found, err := r.searchWithRetry(gctx, adapter, query, freshness)
				if err != nil {
					mu.Lock()
					summary.AdapterErrors = append(summary.AdapterErrors, fmt.Sprintf("%s: %v", adapter.Name(), err))
					mu.Unlock()
					log.Printf("retrieve: adapter %s degraded for query %q: %v", adapter.Name(), query, err)
					return nil // Degrade, never abort the claim
				}
				queryMu.Lock()
				queryResults = append(queryResults, found...)
				queryMu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		// An empty set caused by adapter failures is transient; caching it
		// would suppress retries for the full TTL
		if len(queryResults) > 0 || len(summary.AdapterErrors) == errsBefore {
			r.cache.Set(key, queryResults)
		}
		results = append(results, queryResults...)
	}

	summary.RawResults = len(results)

	evidence := r.toEvidence(claim, results)
	evidence = dedupe(evidence, r.cfg.SimilarityThreshold)
	summary.AfterDedupe = len(evidence)

	r.scorer.Annotate(evidence)
	r.rank(claim, evidence)
	evidence = r.applyDomainCap(evidence)

	if len(evidence) > r.cfg.MaxEvidencePerClaim && r.cfg.MaxEvidencePerClaim > 0 {
		evidence = evidence[:r.cfg.MaxEvidencePerClaim]
	}
	model.SortForDisplay(evidence)
	summary.Kept = len(evidence)

	return evidence, summary
}

// planQueries builds search queries for the claim, LLM-assisted when a
// provider is configured. Planner failure falls back to the claim text.
func (r *Retriever) planQueries(ctx context.Context, claim model.Claim) ([]string, search.Freshness) {
	fallbackFreshness := search.FreshnessAny
	if claim.TimeSensitive {
		fallbackFreshness = search.FreshnessMonth
	}

	if r.provider == nil {
		return []string{claim.Text}, fallbackFreshness
	}

	plan, err := llm.CompleteJSON[queryPlan](ctx, r.provider, llm.Request{
		System: r.planPrompt(),
		User:   fmt.Sprintf("Claim: %s\nTime-sensitive: %v\nTime reference: %s", claim.Text, claim.TimeSensitive, claim.TimeReference),
	})
	if err != nil {
		log.Printf("retrieve: query planning degraded: %v", err)
		return []string{claim.Text}, fallbackFreshness
	}

	var queries []string
	for _, q := range plan.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return []string{claim.Text}, fallbackFreshness
	}
	if max := r.cfg.MaxQueriesPerClaim; max > 0 && len(queries) > max {
		queries = queries[:max]
	}

	freshness := search.ParseFreshness(plan.Freshness)
	if freshness == search.FreshnessAny {
		freshness = fallbackFreshness
	}
	return queries, freshness
}

func (r *Retriever) planPrompt() string {
	return fmt.Sprintf(`%s

Write up to %d short web-search queries that would surface evidence for or against the claim. For fast-moving facts pick a freshness window.
Respond with JSON only: {"queries": ["..."], "freshness": "day|week|month|year|"}`, r.style.Persona, r.cfg.MaxQueriesPerClaim)
}

// searchWithRetry retries transient adapter failures with exponential
// backoff, mirroring the taxonomy: timeouts and rate limits are transient,
// everything else is not
func (r *Retriever) searchWithRetry(ctx context.Context, adapter search.Adapter, query string, freshness search.Freshness) ([]search.Result, error) {
	var lastErr error
	for attempt := 0; attempt < searchMaxRetries; attempt++ {
		results, err := adapter.Search(ctx, query, freshness)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < searchMaxRetries-1 {
			r.sleep(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	if serr, ok := err.(*search.StatusError); ok {
		return serr.Retryable()
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

// toEvidence converts adapter results into evidence records with relevance
// and temporal scores computed against the claim
func (r *Retriever) toEvidence(claim model.Claim, results []search.Result) []model.Evidence {
	reference := r.claimReference(claim)

	evidence := make([]model.Evidence, 0, len(results))
	for _, res := range results {
		if strings.TrimSpace(res.URL) == "" {
			continue
		}
		item := model.Evidence{
			SourceName:         res.Source,
			URL:                res.URL,
			Title:              res.Title,
			Snippet:            res.Snippet,
			PublishedAt:        res.PublishedAt,
			IsFactCheck:        res.IsFactCheck,
			FactCheckPublisher: res.Publisher,
			FactCheckRating:    res.Rating,
			SourceType:         classifySource(res),
			Relevance:          model.ClampScore(TokenOverlap(claim.Text, res.Title+" "+res.Snippet)),
			TemporalRelevance:  r.temporalScore(res.PublishedAt, reference),
		}
		if item.SourceName == "" {
			item.SourceName = credibility.Domain(item.URL)
		}
		evidence = append(evidence, item)
	}
	return evidence
}

// claimReference resolves the point in time evidence should cluster
// around: the claim's resolved time reference when present, else now
func (r *Retriever) claimReference(claim model.Claim) time.Time {
	ref := strings.TrimSpace(claim.TimeReference)
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, ref); err == nil {
			return t
		}
	}
	return r.now().UTC()
}

// temporalScore decays with the gap between the evidence publish date and
// the claim's time reference. Undated evidence scores a neutral 0.5.
func (r *Retriever) temporalScore(published *time.Time, reference time.Time) float64 {
	if published == nil {
		return 0.5
	}
	halfLife := r.cfg.TemporalHalfLife
	if halfLife <= 0 {
		halfLife = 90 * 24 * time.Hour
	}
	gap := reference.Sub(*published)
	if gap < 0 {
		gap = -gap
	}
	return model.ClampScore(math.Exp(-math.Ln2 * gap.Hours() / halfLife.Hours()))
}

// rank orders evidence by the composite score: credibility and relevance
// always, temporal relevance only for time-sensitive claims
func (r *Retriever) rank(claim model.Claim, evidence []model.Evidence) {
	composite := func(e model.Evidence) float64 {
		score := r.cfg.CredibilityWeight*e.Credibility + r.cfg.RelevanceWeight*e.Relevance
		if claim.TimeSensitive {
			score += r.cfg.TemporalWeight * e.TemporalRelevance
		} else {
			score += r.cfg.TemporalWeight // Neutral: recency irrelevant for timeless claims
		}
		return score
	}
	sort.SliceStable(evidence, func(i, j int) bool {
		return composite(evidence[i]) > composite(evidence[j])
	})
}

// applyDomainCap limits how many items one domain (or one parent company)
// contributes to a claim's evidence set. Fact-check-index hits are always
// retained.
func (r *Retriever) applyDomainCap(evidence []model.Evidence) []model.Evidence {
	limit := r.cfg.DomainCap
	if limit <= 0 {
		return evidence
	}

	domainCount := make(map[string]int)
	parentCount := make(map[string]int)
	kept := evidence[:0]
	for _, item := range evidence {
		if item.IsFactCheck {
			kept = append(kept, item)
			continue
		}
		domain := credibility.Domain(item.URL)
		if domainCount[domain] >= limit {
			continue
		}
		if item.ParentCompany != "" && parentCount[item.ParentCompany] >= limit {
			continue
		}
		domainCount[domain]++
		if item.ParentCompany != "" {
			parentCount[item.ParentCompany]++
		}
		kept = append(kept, item)
	}
	return kept
}

func classifySource(res search.Result) model.SourceType {
	if res.IsFactCheck {
		return model.SourceFactCheck
	}
	domain := credibility.Domain(res.URL)
	switch {
	case strings.HasSuffix(domain, ".gov"), strings.HasSuffix(domain, ".mil"):
		return model.SourceGovernment
	case strings.HasSuffix(domain, ".edu"), strings.HasSuffix(domain, ".ac.uk"):
		return model.SourceAcademic
	default:
		return model.SourceWeb
	}
}
