package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/strategy"
)

// TradingService defines the methods the trading handler requires from the
// service layer.
type TradingService interface {
	TrackPosition(ctx context.Context, now time.Time) (domain.PositionAssessment, error)
	PlanOrders(ctx context.Context, now time.Time, bankroll float64, mode domain.PlanMode, cfg strategy.PlanConfig) (domain.OrderPlan, []domain.SignedOrderRequest, error)
}

// TradingHandler serves the position and plan endpoints against the active
// cycle market.
type TradingHandler struct {
	trading TradingService
	logger  *slog.Logger
}

// NewTradingHandler creates a TradingHandler with the given service and logger.
func NewTradingHandler(trading TradingService, logger *slog.Logger) *TradingHandler {
	return &TradingHandler{
		trading: trading,
		logger:  logHandler(logger, "trading"),
	}
}

// Position assesses the wallet's exposure in the current cycle market.
// GET /api/position
func (h *TradingHandler) Position(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.trading.TrackPosition(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: track position failed",
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "position tracking failed")
		return
	}

	writeJSON(w, http.StatusOK, positionResponse{
		MarketID:   assessment.Position.Market.ID,
		Wallet:     assessment.Position.Wallet,
		Holdings:   assessment.Position.Holdings,
		ProfitLock: assessment.ProfitLock,
		BreakEven:  assessment.BreakEven,
		PairStatus: assessment.PairStatus,
	})
}

type positionResponse struct {
	MarketID   string            `json:"market_id"`
	Wallet     string            `json:"wallet"`
	Holdings   []domain.Holding  `json:"holdings"`
	ProfitLock float64           `json:"profit_lock"`
	BreakEven  float64           `json:"break_even"`
	PairStatus domain.PairStatus `json:"pair_status"`
}

// planRequest is the POST body for the plan endpoint. Levels, taper, and
// step fall back to the engine defaults when omitted.
type planRequest struct {
	Bankroll float64 `json:"bankroll"`
	Mode     string  `json:"mode"`
	Levels   int     `json:"levels"`
	Taper    float64 `json:"taper"`
	Step     float64 `json:"step"`
}

// planResponse pairs the plan with its signed order requests, when signing
// is configured.
type planResponse struct {
	Plan   domain.OrderPlan            `json:"plan"`
	Signed []domain.SignedOrderRequest `json:"signed,omitempty"`
}

// Plan builds an order plan for the current cycle market.
// POST /api/plan
func (h *TradingHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, signed, err := h.trading.PlanOrders(r.Context(), time.Now().UTC(),
		req.Bankroll, domain.PlanMode(req.Mode), strategy.PlanConfig{
			Levels: req.Levels,
			Taper:  req.Taper,
			Step:   req.Step,
		})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: plan orders failed",
			slog.String("mode", req.Mode),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "order planning failed")
		return
	}

	writeJSON(w, http.StatusOK, planResponse{Plan: plan, Signed: signed})
}
