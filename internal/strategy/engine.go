// Package strategy turns a resolved market plus a bankroll into an order
// plan: a simple two-sided straddle or a tapered ladder of limit levels.
// Plan construction is deterministic; identical inputs always produce the
// identical plan, including its ID.
package strategy

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/predictos/predictbot/internal/domain"
)

const (
	// minTick is the smallest valid price; levels are never emitted at
	// exactly 0 or 1.
	minTick = 0.01
	maxTick = 1 - minTick

	DefaultLevels = 3
	DefaultTaper  = 0.5
	DefaultStep   = 0.02
)

// planNamespace seeds deterministic plan IDs.
var planNamespace = uuid.MustParse("5a1dd0b4-9c2f-4f0e-8e41-7cbe6f9a3d21")

// PlanConfig tunes ladder construction. The zero value picks the defaults.
type PlanConfig struct {
	Levels int     // price levels per side (ladder only)
	Taper  float64 // per-level size decay factor, in (0, 1)
	Step   float64 // price increment between adjacent levels
}

func (c PlanConfig) withDefaults() PlanConfig {
	if c.Levels == 0 {
		c.Levels = DefaultLevels
	}
	if c.Taper == 0 {
		c.Taper = DefaultTaper
	}
	if c.Step == 0 {
		c.Step = DefaultStep
	}
	return c
}

// Engine builds order plans.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// BuildPlan produces an order plan for a binary market. The committed total
// never exceeds bankroll; within each side, levels are ordered by distance
// from the current price with non-increasing sizes.
func (e *Engine) BuildPlan(market domain.Market, bankroll float64, mode domain.PlanMode, cfg PlanConfig) (domain.OrderPlan, error) {
	if !market.Binary() {
		return domain.OrderPlan{}, fmt.Errorf("strategy: %w: market %s is not binary",
			domain.ErrInvalidConfig, market.ID)
	}
	if bankroll <= 0 {
		return domain.OrderPlan{}, fmt.Errorf("strategy: %w: bankroll %.2f", domain.ErrInvalidConfig, bankroll)
	}

	cfg = cfg.withDefaults()

	var levels []domain.OrderLevel
	var err error
	switch mode {
	case domain.PlanModeSimple:
		levels = e.simpleLevels(market, bankroll)
	case domain.PlanModeLadder:
		levels, err = e.ladderLevels(market, bankroll, cfg)
		if err != nil {
			return domain.OrderPlan{}, err
		}
	default:
		return domain.OrderPlan{}, fmt.Errorf("strategy: %w: unknown mode %q", domain.ErrInvalidConfig, mode)
	}

	var committed float64
	for _, l := range levels {
		committed += l.Size
	}
	// Guard the bankroll invariant against rounding drift.
	if committed > bankroll+1e-9 {
		return domain.OrderPlan{}, fmt.Errorf("strategy: %w: plan commits %.4f against bankroll %.4f",
			domain.ErrInvalidConfig, committed, bankroll)
	}

	return domain.OrderPlan{
		ID:             planID(market, bankroll, mode, cfg),
		MarketID:       market.ID,
		Mode:           mode,
		Levels:         levels,
		TotalCommitted: committed,
	}, nil
}

// simpleLevels is the straddle: one buy per side at the current best
// price, bankroll split evenly.
func (e *Engine) simpleLevels(market domain.Market, bankroll float64) []domain.OrderLevel {
	half := bankroll / 2

	levels := make([]domain.OrderLevel, 0, 2)
	for _, o := range market.Outcomes {
		price, ok := e.validPrice(market, o.Label, o.Price)
		if !ok {
			continue
		}
		levels = append(levels, domain.OrderLevel{
			Outcome: o.Label,
			TokenID: o.TokenID,
			Side:    domain.OrderSideBuy,
			Price:   price,
			Size:    half,
		})
	}
	return levels
}

// ladderLevels places cfg.Levels buys per side stepping from the current
// price toward that side's extreme, each level's size decaying by the taper
// factor. The base size is solved so the full geometric series across both
// sides sums to the bankroll.
func (e *Engine) ladderLevels(market domain.Market, bankroll float64, cfg PlanConfig) ([]domain.OrderLevel, error) {
	if cfg.Levels < 1 {
		return nil, fmt.Errorf("strategy: %w: ladder needs at least 1 level, got %d",
			domain.ErrInvalidConfig, cfg.Levels)
	}
	if cfg.Taper <= 0 || cfg.Taper >= 1 {
		return nil, fmt.Errorf("strategy: %w: taper %.3f outside (0, 1)",
			domain.ErrInvalidConfig, cfg.Taper)
	}
	if cfg.Step <= 0 {
		return nil, fmt.Errorf("strategy: %w: step %.3f must be positive",
			domain.ErrInvalidConfig, cfg.Step)
	}

	// sum over one side: base · (1 - taper^n) / (1 - taper); both sides
	// together must equal the bankroll.
	seriesSum := (1 - math.Pow(cfg.Taper, float64(cfg.Levels))) / (1 - cfg.Taper)
	base := bankroll / (2 * seriesSum)

	levels := make([]domain.OrderLevel, 0, 2*cfg.Levels)
	for side, o := range market.Outcomes {
		// Primary side steps toward 1, the opposing side toward 0.
		direction := 1.0
		if side == 1 {
			direction = -1.0
		}

		prev := math.NaN()
		for i := 0; i < cfg.Levels; i++ {
			raw := o.Price + direction*float64(i)*cfg.Step
			price, ok := e.validPrice(market, o.Label, raw)
			if !ok || price == prev {
				if price == prev {
					e.logger.Warn("strategy: dropping duplicate clamped level",
						slog.String("market_id", market.ID),
						slog.String("outcome", o.Label),
						slog.Float64("raw_price", raw),
					)
				}
				continue
			}
			prev = price

			levels = append(levels, domain.OrderLevel{
				Outcome: o.Label,
				TokenID: o.TokenID,
				Side:    domain.OrderSideBuy,
				Price:   price,
				Size:    base * math.Pow(cfg.Taper, float64(i)),
			})
		}
	}
	return levels, nil
}

// validPrice clamps a raw price into the valid tick range. Prices at or
// beyond 0 and 1 are unfillable; they are clamped to the nearest tick and
// the clamp is logged, never a hard failure.
func (e *Engine) validPrice(market domain.Market, outcome string, raw float64) (float64, bool) {
	if math.IsNaN(raw) {
		return 0, false
	}
	if raw >= minTick && raw <= maxTick {
		return raw, true
	}

	clamped := math.Min(math.Max(raw, minTick), maxTick)
	e.logger.Warn("strategy: clamping level price to valid tick",
		slog.String("market_id", market.ID),
		slog.String("outcome", outcome),
		slog.Float64("raw_price", raw),
		slog.Float64("clamped_price", clamped),
	)
	return clamped, true
}

// planID derives a stable UUID from the plan inputs so identical requests
// produce identical plans.
func planID(market domain.Market, bankroll float64, mode domain.PlanMode, cfg PlanConfig) string {
	seed := fmt.Sprintf("%s|%s|%.6f|%s|%d|%.6f|%.6f",
		market.Platform, market.ID, bankroll, mode, cfg.Levels, cfg.Taper, cfg.Step)
	return uuid.NewSHA1(planNamespace, []byte(seed)).String()
}
