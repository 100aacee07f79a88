package domain

// Holding is the wallet's stake in a single outcome, as reported by the
// platform's holdings query.
type Holding struct {
	TokenID  string
	Outcome  string  // outcome label
	Shares   float64 // >= 0
	AvgPrice float64 // volume-weighted entry price
}

// WalletPosition is a wallet's exposure in one market, derived per request
// from the platform's holdings query and never persisted.
type WalletPosition struct {
	Wallet   string
	Market   Market
	Holdings []Holding
}

// CostBasis returns the total capital spent across all holdings.
func (p WalletPosition) CostBasis() float64 {
	var total float64
	for _, h := range p.Holdings {
		total += h.Shares * h.AvgPrice
	}
	return total
}

// Shares returns the share count held on the outcome with the given label.
func (p WalletPosition) Shares(label string) float64 {
	for _, h := range p.Holdings {
		if h.Outcome == label {
			return h.Shares
		}
	}
	return 0
}

// PairStatus classifies whether opposing-outcome holdings offset each other.
type PairStatus string

const (
	// PairFullyPaired means both sides are sized so one side's payout
	// offsets the other's cost within rounding tolerance.
	PairFullyPaired PairStatus = "FULLY_PAIRED"
	// PairPartial means one side dominates but some offsetting exists.
	PairPartial PairStatus = "PARTIAL"
	// PairUnpaired means at most one side is held.
	PairUnpaired PairStatus = "UNPAIRED"
)

// PositionAssessment is the computed, output-only view of a wallet's
// exposure in one market.
type PositionAssessment struct {
	Position   WalletPosition
	ProfitLock float64 // guaranteed P&L floor across all resolutions; may be negative
	BreakEven  float64 // probability threshold at which net P&L crosses zero
	PairStatus PairStatus
}
