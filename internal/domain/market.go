package domain

import "time"

// Platform identifies the source prediction-market venue.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusClosing  MarketStatus = "closing"
	MarketStatusResolved MarketStatus = "resolved"
)

// Outcome is a single tradeable outcome of a market with its current price
// expressed as a probability in [0, 1], regardless of how the source
// platform quotes it.
type Outcome struct {
	TokenID string  // platform-native identifier (ERC-1155 token ID or ticker side)
	Label   string  // e.g. "Yes"/"No" or "Up"/"Down"
	Price   float64
	Winner  bool // only meaningful when the market is resolved
}

// Market is the normalized market shape shared by every platform adapter.
// A Market is resolved per request and never persisted; once its status is
// resolved it is treated as immutable.
type Market struct {
	Platform Platform
	ID       string
	// ConditionID is the settlement identifier holdings queries key on.
	// Polymarket condition ID; equals ID on platforms without one.
	ConditionID string
	Slug        string
	Question    string
	Outcomes    []Outcome // ordered; index 0 is the primary ("Yes"/"Up") side
	Expiry      time.Time
	Status      MarketStatus
	Volume      float64
	FetchedAt   time.Time
}

// Binary reports whether the market has exactly two outcomes.
func (m Market) Binary() bool {
	return len(m.Outcomes) == 2
}

// Outcome returns the outcome with the given label, if present.
func (m Market) Outcome(label string) (Outcome, bool) {
	for _, o := range m.Outcomes {
		if o.Label == label {
			return o, true
		}
	}
	return Outcome{}, false
}

// PriceSum returns the sum of all outcome prices. For a well-formed binary
// market this is ~1.0.
func (m Market) PriceSum() float64 {
	var sum float64
	for _, o := range m.Outcomes {
		sum += o.Price
	}
	return sum
}

// MarketRef identifies a market on a specific platform. ID carries the
// platform-native identifier: a gamma slug or numeric ID for Polymarket, a
// ticker for Kalshi.
type MarketRef struct {
	Platform Platform
	ID       string
}
