package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/crypto"
	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/position"
	"github.com/predictos/predictbot/internal/strategy"
)

// hardhat account #0; never funded on any real network.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type memAudit struct {
	mu   sync.Mutex
	rows []domain.DecisionRecord
}

func (a *memAudit) Append(ctx context.Context, kind string, detail map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, domain.DecisionRecord{Kind: kind, Detail: detail})
	return nil
}

func (a *memAudit) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.DecisionRecord, error) {
	return nil, nil
}

func (a *memAudit) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func tradingOver(t *testing.T, adapter *stubAdapter, audit domain.DecisionStore) *TradingService {
	t.Helper()
	signer, err := crypto.NewSigner(testKeyHex, 137)
	require.NoError(t, err)

	return NewTradingService(TradingConfig{
		Markets:      marketsOver(adapter),
		Tracker:      position.NewTracker(),
		Engine:       strategy.NewEngine(discardLogger()),
		Signer:       signer,
		Wallet:       "0xabc",
		Platform:     domain.PlatformPolymarket,
		SeriesPrefix: "15min-up-down",
		Audit:        audit,
		Logger:       discardLogger(),
	})
}

func TestTrackPositionAssessesCycleMarket(t *testing.T) {
	adapter := &stubAdapter{
		market: cycleMarket(),
		holdings: []domain.Holding{
			{TokenID: "tok-up", Outcome: "Up", Shares: 10, AvgPrice: 0.40},
			{TokenID: "tok-down", Outcome: "Down", Shares: 10, AvgPrice: 0.45},
		},
	}
	audit := &memAudit{}
	svc := tradingOver(t, adapter, audit)

	now := time.Date(2026, 8, 31, 14, 3, 0, 0, time.UTC)
	assessment, err := svc.TrackPosition(context.Background(), now)
	require.NoError(t, err)

	// Both sides hold 10 shares against a cost of 8.50: locked outcome.
	assert.Equal(t, domain.PairFullyPaired, assessment.PairStatus)
	assert.InDelta(t, 1.5, assessment.ProfitLock, 1e-9)
	assert.Zero(t, assessment.BreakEven)

	require.Len(t, audit.rows, 1)
	assert.Equal(t, "assessment", audit.rows[0].Kind)
	assert.Equal(t, "FULLY_PAIRED", audit.rows[0].Detail["pair_status"])
}

func TestTrackPositionEmptyWallet(t *testing.T) {
	svc := tradingOver(t, &stubAdapter{market: cycleMarket()}, nil)

	now := time.Date(2026, 8, 31, 14, 3, 0, 0, time.UTC)
	assessment, err := svc.TrackPosition(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, domain.PairUnpaired, assessment.PairStatus)
	assert.Zero(t, assessment.ProfitLock)
}

func TestPlanOrdersSignsEveryLevel(t *testing.T) {
	audit := &memAudit{}
	svc := tradingOver(t, &stubAdapter{market: cycleMarket()}, audit)

	now := time.Date(2026, 8, 31, 14, 3, 0, 0, time.UTC)
	plan, signed, err := svc.PlanOrders(context.Background(), now, 100, domain.PlanModeLadder, strategy.PlanConfig{})
	require.NoError(t, err)

	assert.Equal(t, domain.PlanModeLadder, plan.Mode)
	require.Len(t, signed, len(plan.Levels))
	for i, req := range signed {
		assert.Equal(t, plan.Levels[i], req.Level)
		assert.NotEmpty(t, req.Signature)
	}

	require.Len(t, audit.rows, 1)
	assert.Equal(t, "order_plan", audit.rows[0].Kind)
}

func TestPlanOrdersUnsignedWithoutSigner(t *testing.T) {
	svc := tradingOver(t, &stubAdapter{market: cycleMarket()}, nil)
	svc.signer = nil

	now := time.Date(2026, 8, 31, 14, 3, 0, 0, time.UTC)
	plan, signed, err := svc.PlanOrders(context.Background(), now, 100, domain.PlanModeSimple, strategy.PlanConfig{})
	require.NoError(t, err)

	assert.Len(t, plan.Levels, 2)
	assert.Nil(t, signed)
}

func TestPlanOrdersRejectsBadBankroll(t *testing.T) {
	svc := tradingOver(t, &stubAdapter{market: cycleMarket()}, nil)

	now := time.Date(2026, 8, 31, 14, 3, 0, 0, time.UTC)
	_, _, err := svc.PlanOrders(context.Background(), now, 0, domain.PlanModeSimple, strategy.PlanConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
