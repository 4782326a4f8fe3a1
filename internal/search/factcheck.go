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

// FactCheckAdapter queries the Google Fact Check Tools claim index
type FactCheckAdapter struct {
	baseURL    string
	apiKey     string
	maxResults int
	httpClient *http.Client
	limiter    *Limiter
}

// NewFactCheckAdapter creates the fact-check index adapter
func NewFactCheckAdapter(cfg config.SearchConfig, limiter *Limiter) *FactCheckAdapter {
	return &FactCheckAdapter{
		baseURL:    cfg.FactCheckBaseURL,
		apiKey:     cfg.FactCheckAPIKey,
		maxResults: cfg.MaxResults,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Name returns the adapter name
func (a *FactCheckAdapter) Name() string { return "fact_check_index" }

// factCheckResponse mirrors the claims:search response shape
type factCheckResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		ClaimDate   string `json:"claimDate"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			ReviewDate    string `json:"reviewDate"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// Search queries the index. The freshness hint is applied client-side as a
// review-date floor; the API itself has no recency parameter.
func (a *FactCheckAdapter) Search(ctx context.Context, query string, freshness Freshness) ([]Result, error) {
	if err := a.limiter.Wait(ctx, a.baseURL); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("pageSize", fmt.Sprintf("%d", a.maxResults))
	params.Set("key", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fact check search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Adapter: a.Name()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed factCheckResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	cutoff := freshnessCutoff(freshness, time.Now().UTC())

	var results []Result
	for _, claim := range parsed.Claims {
		for _, review := range claim.ClaimReview {
			result := Result{
				Title:       review.Title,
				URL:         review.URL,
				Snippet:     claim.Text,
				Source:      review.Publisher.Name,
				IsFactCheck: true,
				Publisher:   review.Publisher.Name,
				Rating:      review.TextualRating,
			}
			if result.Title == "" {
				result.Title = claim.Text
			}
			if t, err := time.Parse("2006-01-02T15:04:05Z", review.ReviewDate); err == nil {
				result.PublishedAt = &t
			} else if t, err := time.Parse("2006-01-02", review.ReviewDate); err == nil {
				result.PublishedAt = &t
			}
			if !cutoff.IsZero() && result.PublishedAt != nil && result.PublishedAt.Before(cutoff) {
				continue
			}
			results = append(results, result)
		}
	}
	return results, nil
}

func freshnessCutoff(f Freshness, now time.Time) time.Time {
	switch f {
	case FreshnessDay:
		return now.AddDate(0, 0, -1)
	case FreshnessWeek:
		return now.AddDate(0, 0, -7)
	case FreshnessMonth:
		return now.AddDate(0, -1, 0)
	case FreshnessYear:
		return now.AddDate(-1, 0, 0)
	}
	return time.Time{}
}
