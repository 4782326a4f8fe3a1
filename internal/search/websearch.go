package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/clearcast/clearcast/internal/config"
)

// WebSearchAdapter queries a Brave-compatible web-search API
type WebSearchAdapter struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	limiter    *Limiter
}

// NewWebSearchAdapter creates the web-search adapter
func NewWebSearchAdapter(cfg config.SearchConfig, limiter *Limiter) *WebSearchAdapter {
	return &WebSearchAdapter{
		baseURL:    cfg.WebBaseURL,
		apiKey:     cfg.WebAPIKey,
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Name returns the adapter name
func (a *WebSearchAdapter) Name() string { return "web_search" }

// webSearchResponse mirrors the slice of the provider response we consume
type webSearchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			PageAge     string `json:"page_age"`
			Profile     struct {
				Name string `json:"name"`
			} `json:"profile"`
		} `json:"results"`
	} `json:"web"`
}

// Search queries the provider. The freshness hint narrows results for
// fast-moving facts.
func (a *WebSearchAdapter) Search(ctx context.Context, query string, freshness Freshness) ([]Result, error) {
	if err := a.limiter.Wait(ctx, a.baseURL); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", a.maxResults))
	if f := braveFreshness(freshness); f != "" {
		params.Set("freshness", f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Adapter: a.Name()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed webSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		result := Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
			Source:  r.Profile.Name,
		}
		if t, err := time.Parse(time.RFC3339, r.PageAge); err == nil {
			result.PublishedAt = &t
		}
		results = append(results, result)
	}
	return results, nil
}

func braveFreshness(f Freshness) string {
	switch f {
	case FreshnessDay:
		return "pd"
	case FreshnessWeek:
		return "pw"
	case FreshnessMonth:
		return "pm"
	case FreshnessYear:
		return "py"
	}
	return ""
}

// StatusError is a non-2xx adapter response; 429 and 5xx are retryable
type StatusError struct {
	Code    int
	Adapter string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Adapter, e.Code)
}

// Retryable reports whether the status indicates a transient condition
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}
