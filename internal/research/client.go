// Package research wraps the Polyfactual research API: free-form questions
// about a market's underlying event, answered with citations. Research
// calls run far longer than market fetches, so the client carries its own
// generous timeout.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/resilience"
)

const (
	// DefaultAPIURL is the Polyfactual research endpoint.
	DefaultAPIURL = "https://api.polyfactual.com/v1/research"

	// MaxQueryLength bounds the research query; the upstream rejects
	// anything longer.
	MaxQueryLength = 1000

	// researchTimeout allows for deep research runs.
	researchTimeout = 300 * time.Second
)

// Client calls the research API.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a research client. apiURL may be empty to use the
// default endpoint.
func NewClient(apiURL, apiKey string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: researchTimeout,
		},
	}
}

type researchRequest struct {
	Query string `json:"query"`
}

type researchResponse struct {
	Answer    string `json:"answer"`
	Citations []struct {
		Source    string   `json:"source"`
		URL       string   `json:"url"`
		Relevance *float64 `json:"relevance"`
	} `json:"citations"`
}

// Research sends one research query and returns the cited answer.
func (c *Client) Research(ctx context.Context, query string) (domain.ResearchResult, error) {
	if query == "" {
		return domain.ResearchResult{}, fmt.Errorf("research: %w: empty query", domain.ErrInvalidConfig)
	}
	if len(query) > MaxQueryLength {
		return domain.ResearchResult{}, fmt.Errorf("research: %w: query length %d exceeds %d",
			domain.ErrInvalidConfig, len(query), MaxQueryLength)
	}

	jsonBody, err := json.Marshal(researchRequest{Query: query})
	if err != nil {
		return domain.ResearchResult{}, fmt.Errorf("research: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return domain.ResearchResult{}, fmt.Errorf("research: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ResearchResult{}, fmt.Errorf("research: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ResearchResult{}, fmt.Errorf("research: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ResearchResult{}, fmt.Errorf("research: %w",
			&resilience.HTTPError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var apiResp researchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return domain.ResearchResult{}, fmt.Errorf("research: decode response: %w", err)
	}

	result := domain.ResearchResult{
		Answer:    apiResp.Answer,
		Citations: make([]domain.Citation, 0, len(apiResp.Citations)),
	}
	for _, c := range apiResp.Citations {
		citation := domain.Citation{Source: c.Source, URL: c.URL}
		if c.Relevance != nil {
			citation.Relevance = *c.Relevance
		}
		result.Citations = append(result.Citations, citation)
	}

	return result, nil
}
