// Package position computes a wallet's exposure state in one market:
// guaranteed P&L floor, break-even threshold, and pair classification.
// Everything here is pure arithmetic over a resolved market snapshot and a
// per-request holdings fetch; nothing is persisted.
package position

import (
	"fmt"

	"github.com/predictos/predictbot/internal/domain"
)

// pairTolerance is the relative share imbalance below which opposing
// holdings count as fully offsetting.
const pairTolerance = 0.01

// Tracker assesses wallet positions against resolved market snapshots.
type Tracker struct{}

// NewTracker creates a Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Assess computes the exposure state of wallet's holdings in market.
// Zero holdings yield a degenerate assessment, not an error. A market in
// resolved status is assessed at terminal prices: the question is decided,
// so only the winning outcome's payout counts.
func (t *Tracker) Assess(wallet string, market domain.Market, holdings []domain.Holding) (domain.PositionAssessment, error) {
	if len(market.Outcomes) == 0 {
		return domain.PositionAssessment{}, fmt.Errorf("position: market %s has no outcomes", market.ID)
	}

	pos := domain.WalletPosition{
		Wallet:   wallet,
		Market:   market,
		Holdings: holdings,
	}

	assessment := domain.PositionAssessment{
		Position:   pos,
		PairStatus: pairStatus(pos),
	}

	if totalShares(pos) == 0 {
		return assessment, nil
	}

	assessment.ProfitLock = profitLock(pos)
	assessment.BreakEven = breakEven(pos)
	return assessment, nil
}

// profitLock is the minimum, over the resolutions still possible, of net
// payout minus total cost basis. Winning shares pay out 1.0 each.
func profitLock(pos domain.WalletPosition) float64 {
	cost := pos.CostBasis()

	if pos.Market.Status == domain.MarketStatusResolved {
		if winner, ok := winningOutcome(pos.Market); ok {
			return pos.Shares(winner.Label) - cost
		}
	}

	lock := 0.0
	for i, o := range pos.Market.Outcomes {
		pnl := pos.Shares(o.Label) - cost
		if i == 0 || pnl < lock {
			lock = pnl
		}
	}
	return lock
}

// breakEven solves the linear payout equation for the dominant held
// outcome: the resolution probability p at which
// p·dominantShares + (1-p)·otherShares - cost = 0. A position whose payout
// is the same on every resolution has no crossing; zero is reported.
func breakEven(pos domain.WalletPosition) float64 {
	dominant, other := dominantShares(pos)
	cost := pos.CostBasis()

	if dominant == other {
		return 0
	}

	p := (cost - other) / (dominant - other)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// pairStatus classifies how far opposing holdings offset each other.
func pairStatus(pos domain.WalletPosition) domain.PairStatus {
	var held []float64
	for _, o := range pos.Market.Outcomes {
		if s := pos.Shares(o.Label); s > 0 {
			held = append(held, s)
		}
	}

	if len(held) < 2 {
		return domain.PairUnpaired
	}

	min, max := held[0], held[0]
	for _, s := range held[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if (max-min)/max <= pairTolerance {
		return domain.PairFullyPaired
	}
	return domain.PairPartial
}

// dominantShares returns the largest held share count and the largest
// share count on any other outcome.
func dominantShares(pos domain.WalletPosition) (dominant, other float64) {
	var dominantLabel string
	for _, o := range pos.Market.Outcomes {
		if s := pos.Shares(o.Label); s > dominant {
			dominant = s
			dominantLabel = o.Label
		}
	}
	for _, o := range pos.Market.Outcomes {
		if o.Label == dominantLabel {
			continue
		}
		if s := pos.Shares(o.Label); s > other {
			other = s
		}
	}
	return dominant, other
}

func totalShares(pos domain.WalletPosition) float64 {
	var total float64
	for _, h := range pos.Holdings {
		total += h.Shares
	}
	return total
}

// winningOutcome returns the outcome flagged as the winner of a resolved
// market, falling back to terminal prices when the flag is absent.
func winningOutcome(m domain.Market) (domain.Outcome, bool) {
	for _, o := range m.Outcomes {
		if o.Winner {
			return o, true
		}
	}
	for _, o := range m.Outcomes {
		if o.Price >= 0.999 {
			return o, true
		}
	}
	return domain.Outcome{}, false
}
