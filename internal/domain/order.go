package domain

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// PlanMode selects the order-plan shape.
type PlanMode string

const (
	// PlanModeSimple places one order per side at the current best price,
	// splitting the bankroll evenly (a straddle).
	PlanModeSimple PlanMode = "simple"
	// PlanModeLadder places several price levels per side stepping away
	// from the current price, with exponentially tapered sizes.
	PlanModeLadder PlanMode = "ladder"
)

// OrderLevel is a single priced order slot in a plan. Price is strictly
// inside (0, 1); Size is the USD commitment at that level.
type OrderLevel struct {
	Outcome string // outcome label this level buys
	TokenID string
	Side    OrderSide
	Price   float64
	Size    float64
}

// Shares returns the share count this level purchases at its price.
func (l OrderLevel) Shares() float64 {
	if l.Price <= 0 {
		return 0
	}
	return l.Size / l.Price
}

// OrderPlan is the full set of priced levels produced by the strategy
// engine for one market. TotalCommitted never exceeds the bankroll the plan
// was built from; levels are ordered by distance from the current price
// within each side.
type OrderPlan struct {
	ID             string
	MarketID       string
	Mode           PlanMode
	Levels         []OrderLevel
	TotalCommitted float64
}

// SignedOrderRequest is an order level paired with its EIP-712 signature,
// ready to hand to the submission collaborator. Submission and broadcast
// are outside this codebase.
type SignedOrderRequest struct {
	Level     OrderLevel
	Maker     string // wallet address
	Salt      string
	Signature string // hex-encoded 65-byte signature
}
