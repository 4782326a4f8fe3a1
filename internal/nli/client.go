// Package nli scores (claim, evidence) pairs for entailment against the
// model-serving collaborator.
package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/clearcast/clearcast/internal/config"
)

// Pair is one (claim text, evidence text) comparison
type Pair struct {
	Claim    string `json:"claim"`
	Evidence string `json:"evidence"`
}

// Scores are the label probabilities for one pair
type Scores struct {
	Entailment    float64 `json:"entailment"`
	Contradiction float64 `json:"contradiction"`
	Neutral       float64 `json:"neutral"`
}

// Client is the narrow contract onto the NLI inference service
type Client interface {
	Score(ctx context.Context, pairs []Pair) ([]Scores, error)
}

// HTTPClient talks to the inference server over JSON
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the configured inference endpoint
func NewHTTPClient(cfg config.NLIConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type scoreRequest struct {
	Pairs []Pair `json:"pairs"`
}

type scoreResponse struct {
	Results []Scores `json:"results"`
}

// Score submits one batch of pairs and returns one Scores per pair, in
// order
func (c *HTTPClient) Score(ctx context.Context, pairs []Pair) ([]Scores, error) {
	payload, err := json.Marshal(scoreRequest{Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/nli", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nli inference: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nli inference: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed scoreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Results) != len(pairs) {
		return nil, fmt.Errorf("nli inference: got %d results for %d pairs", len(parsed.Results), len(pairs))
	}
	return parsed.Results, nil
}
