package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/predictos/predictbot/internal/crypto"
	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/marketdata"
	"github.com/predictos/predictbot/internal/position"
	"github.com/predictos/predictbot/internal/strategy"
)

// TradingService serves the cycle-market operations: position assessment
// and order planning against the current cycle.
type TradingService struct {
	markets      *marketdata.Service
	tracker      *position.Tracker
	engine       *strategy.Engine
	signer       *crypto.Signer // optional; nil leaves plans unsigned
	wallet       string
	platform     domain.Platform
	seriesPrefix string
	audit        domain.DecisionStore // optional
	logger       *slog.Logger
}

// TradingConfig wires a TradingService.
type TradingConfig struct {
	Markets      *marketdata.Service
	Tracker      *position.Tracker
	Engine       *strategy.Engine
	Signer       *crypto.Signer
	Wallet       string
	Platform     domain.Platform
	SeriesPrefix string
	Audit        domain.DecisionStore
	Logger       *slog.Logger
}

// NewTradingService creates a TradingService.
func NewTradingService(cfg TradingConfig) *TradingService {
	return &TradingService{
		markets:      cfg.Markets,
		tracker:      cfg.Tracker,
		engine:       cfg.Engine,
		signer:       cfg.Signer,
		wallet:       cfg.Wallet,
		platform:     cfg.Platform,
		seriesPrefix: cfg.SeriesPrefix,
		audit:        cfg.Audit,
		logger:       cfg.Logger,
	}
}

// TrackPosition resolves the cycle market covering now, fetches the
// wallet's holdings, and assesses the exposure.
func (s *TradingService) TrackPosition(ctx context.Context, now time.Time) (domain.PositionAssessment, error) {
	market, err := s.markets.ResolveCurrentCycle(ctx, s.platform, s.seriesPrefix, now)
	if err != nil {
		return domain.PositionAssessment{}, fmt.Errorf("trading: track position: %w", err)
	}
	return s.AssessMarket(ctx, market)
}

// AssessMarket fetches holdings in an already-resolved market and assesses
// the exposure.
func (s *TradingService) AssessMarket(ctx context.Context, market domain.Market) (domain.PositionAssessment, error) {
	holdings, err := s.markets.ResolveHoldings(ctx, s.wallet, market)
	if err != nil {
		return domain.PositionAssessment{}, fmt.Errorf("trading: fetch holdings: %w", err)
	}

	assessment, err := s.tracker.Assess(s.wallet, market, holdings)
	if err != nil {
		return domain.PositionAssessment{}, fmt.Errorf("trading: assess: %w", err)
	}

	s.record(ctx, "assessment", map[string]any{
		"market_id":   market.ID,
		"platform":    string(market.Platform),
		"wallet":      s.wallet,
		"profit_lock": assessment.ProfitLock,
		"break_even":  assessment.BreakEven,
		"pair_status": string(assessment.PairStatus),
	})

	return assessment, nil
}

// PlanOrders resolves the cycle market covering now and builds an order
// plan for it. When a signer is configured, each level is signed into a
// submission-ready request; submission itself stays outside this service.
func (s *TradingService) PlanOrders(
	ctx context.Context,
	now time.Time,
	bankroll float64,
	mode domain.PlanMode,
	cfg strategy.PlanConfig,
) (domain.OrderPlan, []domain.SignedOrderRequest, error) {
	market, err := s.markets.ResolveCurrentCycle(ctx, s.platform, s.seriesPrefix, now)
	if err != nil {
		return domain.OrderPlan{}, nil, fmt.Errorf("trading: plan orders: %w", err)
	}

	plan, err := s.engine.BuildPlan(market, bankroll, mode, cfg)
	if err != nil {
		return domain.OrderPlan{}, nil, fmt.Errorf("trading: build plan: %w", err)
	}

	var signed []domain.SignedOrderRequest
	if s.signer != nil {
		signed = make([]domain.SignedOrderRequest, 0, len(plan.Levels))
		for _, level := range plan.Levels {
			req, err := s.signer.SignLevel(level)
			if err != nil {
				return domain.OrderPlan{}, nil, fmt.Errorf("trading: sign level %s@%.2f: %w",
					level.Outcome, level.Price, err)
			}
			signed = append(signed, req)
		}
	}

	s.record(ctx, "order_plan", map[string]any{
		"plan_id":         plan.ID,
		"market_id":       market.ID,
		"mode":            string(plan.Mode),
		"levels":          len(plan.Levels),
		"total_committed": plan.TotalCommitted,
		"signed":          s.signer != nil,
	})

	return plan, signed, nil
}

func (s *TradingService) record(ctx context.Context, kind string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, kind, detail); err != nil {
		s.logger.WarnContext(ctx, "trading: audit append failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
