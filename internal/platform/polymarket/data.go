package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/predictos/predictbot/internal/domain"
)

// DataClient is the REST client for the Polymarket Data API, which serves
// wallet holdings per market.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetPositions returns the wallet's holdings in the market identified by
// conditionID. A wallet with no stake yields an empty slice, not an error.
func (d *DataClient) GetPositions(ctx context.Context, wallet, conditionID string) ([]domain.Holding, error) {
	params := url.Values{}
	params.Set("user", wallet)
	params.Set("market", conditionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/positions?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("polymarket/data: get positions: %w", err)
	}

	var apiPositions []APIPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode positions: %w", err)
	}

	holdings := make([]domain.Holding, 0, len(apiPositions))
	for i := range apiPositions {
		h := apiPositions[i].ToDomainHolding()
		if h.Shares <= 0 {
			continue
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}
