package kalshi

import (
	"context"

	"github.com/predictos/predictbot/internal/domain"
)

// Adapter exposes the Kalshi client behind the shared platform contract.
// Holdings belong to the account the client is keyed for, so the wallet
// argument is ignored.
type Adapter struct {
	client *Client
}

// NewAdapter builds the Kalshi adapter.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// Platform identifies this adapter's venue.
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformKalshi
}

// FetchMarket resolves a market by its ticker.
func (a *Adapter) FetchMarket(ctx context.Context, id string) (domain.Market, error) {
	return a.client.GetMarket(ctx, id)
}

// FetchHoldings returns the account's stake in the given market.
func (a *Adapter) FetchHoldings(ctx context.Context, _ string, market domain.Market) ([]domain.Holding, error) {
	return a.client.GetPositions(ctx, market.ID)
}
