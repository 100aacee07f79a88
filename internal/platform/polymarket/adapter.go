package polymarket

import (
	"context"
	"strings"

	"github.com/predictos/predictbot/internal/domain"
)

// Adapter exposes Polymarket's Gamma and Data APIs behind the shared
// platform contract: markets and holdings in the normalized shape,
// probabilities in [0, 1].
type Adapter struct {
	gamma *GammaClient
	data  *DataClient
}

// NewAdapter builds the Polymarket adapter from its two read-side clients.
func NewAdapter(gamma *GammaClient, data *DataClient) *Adapter {
	return &Adapter{gamma: gamma, data: data}
}

// Platform identifies this adapter's venue.
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformPolymarket
}

// FetchMarket resolves a market by its native identifier. Numeric IDs go
// to the by-ID endpoint; anything else is treated as a slug.
func (a *Adapter) FetchMarket(ctx context.Context, id string) (domain.Market, error) {
	if isNumericID(id) {
		return a.gamma.GetMarket(ctx, id)
	}
	return a.gamma.GetMarketBySlug(ctx, id)
}

// FetchHoldings returns the wallet's stake in the given market.
func (a *Adapter) FetchHoldings(ctx context.Context, wallet string, market domain.Market) ([]domain.Holding, error) {
	return a.data.GetPositions(ctx, wallet, market.ConditionID)
}

// isNumericID reports whether s looks like a Gamma numeric market ID
// rather than a slug.
func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) == -1
}
