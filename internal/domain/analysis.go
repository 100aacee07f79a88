package domain

import "time"

// Recommendation is the trading action suggested by an AI provider.
type Recommendation string

const (
	RecommendBuyYes  Recommendation = "BUY_YES"
	RecommendBuyNo   Recommendation = "BUY_NO"
	RecommendNoTrade Recommendation = "NO_TRADE"
)

// Analysis is the structured recommendation returned by an AI provider. The
// provider's own reasoning is opaque to this system; only the parsed shape
// matters.
type Analysis struct {
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning"`
	KeyFactors     []string       `json:"key_factors"`
}

// Decision is one served trading decision: the market that was analyzed,
// the provider's recommendation, and call metadata. Decisions are the unit
// the audit store records.
type Decision struct {
	ID        string
	Market    Market
	Analysis  Analysis
	Provider  string // AI provider that produced the analysis
	Retries   int    // attempts spent across primary and fallback
	Elapsed   time.Duration
	CreatedAt time.Time
}
