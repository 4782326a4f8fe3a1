package cli

import (
	"fmt"
	"log"

	"github.com/clearcast/clearcast/internal/answer"
	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/credibility"
	"github.com/clearcast/clearcast/internal/extract"
	"github.com/clearcast/clearcast/internal/ingest"
	"github.com/clearcast/clearcast/internal/judge"
	"github.com/clearcast/clearcast/internal/llm"
	"github.com/clearcast/clearcast/internal/nli"
	"github.com/clearcast/clearcast/internal/pipeline"
	"github.com/clearcast/clearcast/internal/progress"
	"github.com/clearcast/clearcast/internal/retrieve"
	"github.com/clearcast/clearcast/internal/search"
	"github.com/clearcast/clearcast/internal/store"
)

// components is the wired object graph a command runs against
type components struct {
	cfg      config.Config
	store    *store.Store
	hub      *progress.Hub
	tracker  *progress.Tracker
	pipeline *pipeline.Pipeline
}

// buildComponents wires the pipeline from configuration. The generation
// provider is required; everything downstream degrades per-stage instead.
func buildComponents(cfg config.Config) (*components, error) {
	provider, err := llm.NewOpenAIProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("configure LLM provider: %w", err)
	}

	fetcher := ingest.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)
	limiter := search.NewLimiter(cfg.Search.RatePerSecond, cfg.Search.Burst)

	adapters := []search.Adapter{search.NewWebSearchAdapter(cfg.Search, limiter)}
	if cfg.Search.FactCheckAPIKey != "" {
		adapters = append(adapters, search.NewFactCheckAdapter(cfg.Search, limiter))
	} else {
		log.Printf("fact-check adapter disabled: no API key configured")
	}

	st := store.New(cfg.Store)
	hub := progress.NewHub()
	tracker := progress.NewTracker(hub)
	scorer := credibility.NewScorer(cfg.Credibility)
	cache := search.NewQueryCache(cfg.Search.CacheTTL)

	p := pipeline.New(
		ingest.NewIngestor(fetcher),
		extract.NewExtractor(provider, cfg.Prompt, cfg.Extract),
		retrieve.NewRetriever(adapters, scorer, cache, provider, cfg.Prompt, cfg.Retrieve),
		nli.NewVerifier(nli.NewHTTPClient(cfg.NLI), cfg.NLI),
		judge.NewJudge(provider, cfg.Prompt, cfg.Judge),
		answer.NewAnswerer(provider, cfg.Prompt, cfg.Answer),
		st,
		tracker,
	)

	return &components{
		cfg:      cfg,
		store:    st,
		hub:      hub,
		tracker:  tracker,
		pipeline: p,
	}, nil
}
