package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
)

func openMarket(yesPrice float64) domain.Market {
	return domain.Market{
		Platform: domain.PlatformPolymarket,
		ID:       "m1",
		Outcomes: []domain.Outcome{
			{Label: "Yes", Price: yesPrice},
			{Label: "No", Price: 1 - yesPrice},
		},
		Status: domain.MarketStatusOpen,
	}
}

func resolvedMarket(winner string) domain.Market {
	m := openMarket(0.5)
	m.Status = domain.MarketStatusResolved
	for i := range m.Outcomes {
		if m.Outcomes[i].Label == winner {
			m.Outcomes[i].Winner = true
			m.Outcomes[i].Price = 1
		} else {
			m.Outcomes[i].Price = 0
		}
	}
	return m
}

func TestAssessZeroHoldings(t *testing.T) {
	tracker := NewTracker()

	got, err := tracker.Assess("0xabc", openMarket(0.6), nil)
	require.NoError(t, err)

	assert.Zero(t, got.ProfitLock)
	assert.Zero(t, got.BreakEven)
	assert.Equal(t, domain.PairUnpaired, got.PairStatus)
}

func TestAssessResolvedWinningSide(t *testing.T) {
	tracker := NewTracker()

	// 10 Yes shares bought at 0.40; market resolved Yes.
	holdings := []domain.Holding{{Outcome: "Yes", Shares: 10, AvgPrice: 0.40}}

	got, err := tracker.Assess("0xabc", resolvedMarket("Yes"), holdings)
	require.NoError(t, err)

	assert.InDelta(t, 6.0, got.ProfitLock, 1e-9) // 10·(1−0.40)
	assert.Equal(t, domain.PairUnpaired, got.PairStatus)
}

func TestAssessResolvedLosingSide(t *testing.T) {
	tracker := NewTracker()

	holdings := []domain.Holding{{Outcome: "Yes", Shares: 10, AvgPrice: 0.40}}

	got, err := tracker.Assess("0xabc", resolvedMarket("No"), holdings)
	require.NoError(t, err)

	assert.InDelta(t, -4.0, got.ProfitLock, 1e-9) // stake is gone
}

func TestAssessOneSidedBreakEven(t *testing.T) {
	tracker := NewTracker()

	holdings := []domain.Holding{{Outcome: "Yes", Shares: 10, AvgPrice: 0.40}}

	got, err := tracker.Assess("0xabc", openMarket(0.55), holdings)
	require.NoError(t, err)

	// One-sided position breaks even at its entry price.
	assert.InDelta(t, 0.40, got.BreakEven, 1e-9)
	// Worst case is Yes losing: the whole 4.0 stake.
	assert.InDelta(t, -4.0, got.ProfitLock, 1e-9)
	assert.Equal(t, domain.PairUnpaired, got.PairStatus)
}

func TestAssessFullyPaired(t *testing.T) {
	tracker := NewTracker()

	holdings := []domain.Holding{
		{Outcome: "Yes", Shares: 10, AvgPrice: 0.45},
		{Outcome: "No", Shares: 10, AvgPrice: 0.45},
	}

	got, err := tracker.Assess("0xabc", openMarket(0.5), holdings)
	require.NoError(t, err)

	assert.Equal(t, domain.PairFullyPaired, got.PairStatus)
	// Either resolution pays 10 against a 9.0 cost basis.
	assert.InDelta(t, 1.0, got.ProfitLock, 1e-9)
	// Payout is resolution-independent; no crossing exists.
	assert.Zero(t, got.BreakEven)
}

func TestAssessPartialPair(t *testing.T) {
	tracker := NewTracker()

	holdings := []domain.Holding{
		{Outcome: "Yes", Shares: 10, AvgPrice: 0.50},
		{Outcome: "No", Shares: 4, AvgPrice: 0.50},
	}

	got, err := tracker.Assess("0xabc", openMarket(0.5), holdings)
	require.NoError(t, err)

	assert.Equal(t, domain.PairPartial, got.PairStatus)
	// Cost basis 7.0; worst case is No winning: 4 − 7 = −3.
	assert.InDelta(t, -3.0, got.ProfitLock, 1e-9)
	// p·10 + (1−p)·4 − 7 = 0 → p = 0.5
	assert.InDelta(t, 0.5, got.BreakEven, 1e-9)
}

func TestAssessNegativeLockBothSides(t *testing.T) {
	tracker := NewTracker()

	// Overpaying on both sides locks in a loss.
	holdings := []domain.Holding{
		{Outcome: "Yes", Shares: 10, AvgPrice: 0.60},
		{Outcome: "No", Shares: 10, AvgPrice: 0.55},
	}

	got, err := tracker.Assess("0xabc", openMarket(0.5), holdings)
	require.NoError(t, err)

	assert.Equal(t, domain.PairFullyPaired, got.PairStatus)
	assert.InDelta(t, -1.5, got.ProfitLock, 1e-9) // 10 − 11.5
}

func TestAssessMonotonicOnWinningOutcome(t *testing.T) {
	tracker := NewTracker()
	market := resolvedMarket("Yes")

	prev := -1e18
	for shares := 1.0; shares <= 50; shares += 7 {
		holdings := []domain.Holding{{Outcome: "Yes", Shares: shares, AvgPrice: 0.40}}
		got, err := tracker.Assess("0xabc", market, holdings)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.ProfitLock, prev,
			"profit lock must not decrease as winning-side holdings grow")
		prev = got.ProfitLock
	}
}

func TestAssessNoOutcomes(t *testing.T) {
	tracker := NewTracker()

	_, err := tracker.Assess("0xabc", domain.Market{ID: "empty"}, nil)
	assert.Error(t, err)
}
