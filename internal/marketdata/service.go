// Package marketdata resolves prediction markets from heterogeneous venues
// into one normalized shape. Every fetch goes through the resilience layer;
// resolution is request-scoped and markets are never persisted, only cached
// briefly.
package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/resilience"
)

// priceSumTolerance bounds how far a market's outcome prices may drift
// from summing to 1.0 before the market is rejected.
const priceSumTolerance = 0.01

// Adapter is the per-venue contract: fetch one market by native ID and
// fetch a wallet's holdings in it, both already normalized.
type Adapter interface {
	Platform() domain.Platform
	FetchMarket(ctx context.Context, id string) (domain.Market, error)
	FetchHoldings(ctx context.Context, wallet string, market domain.Market) ([]domain.Holding, error)
}

// Service routes market resolution to the right platform adapter, retries
// through the resilience layer, enforces the price-sum invariant, and keeps
// a short-TTL read-through cache.
type Service struct {
	adapters map[domain.Platform]Adapter
	cache    domain.MarketCache // optional; nil disables caching
	retry    resilience.Config
	cycle    CycleSpec
	logger   *slog.Logger
}

// NewService creates a Service over the given adapters. cache may be nil.
func NewService(
	adapters []Adapter,
	cache domain.MarketCache,
	retry resilience.Config,
	cycle CycleSpec,
	logger *slog.Logger,
) *Service {
	byPlatform := make(map[domain.Platform]Adapter, len(adapters))
	for _, a := range adapters {
		byPlatform[a.Platform()] = a
	}
	return &Service{
		adapters: byPlatform,
		cache:    cache,
		retry:    retry,
		cycle:    cycle.withDefaults(),
		logger:   logger,
	}
}

// ResolveMarket fetches and normalizes the market identified by ref. The
// cache is consulted first; cache failures are non-fatal and fall through
// to a fresh fetch.
func (s *Service) ResolveMarket(ctx context.Context, ref domain.MarketRef) (domain.Market, error) {
	adapter, ok := s.adapters[ref.Platform]
	if !ok {
		return domain.Market{}, fmt.Errorf("marketdata: no adapter for platform %q", ref.Platform)
	}

	if s.cache != nil {
		if m, err := s.cache.Get(ctx, ref.Platform, ref.ID); err == nil {
			return m, nil
		}
	}

	cfg := s.retry
	cfg.Provider = string(ref.Platform)

	market, err := resilience.Do(ctx, cfg, func(ctx context.Context) (domain.Market, error) {
		return adapter.FetchMarket(ctx, ref.ID)
	})
	if err != nil {
		return domain.Market{}, fmt.Errorf("marketdata: resolve %s/%s: %w", ref.Platform, ref.ID, err)
	}

	if err := checkPriceSum(market); err != nil {
		return domain.Market{}, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, market); cacheErr != nil {
			s.logger.WarnContext(ctx, "marketdata: cache set failed",
				slog.String("market_id", market.ID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return market, nil
}

// ResolveCurrentCycle resolves the series market covering now. The slug is
// computed from the cycle boundary, never from wall-clock string matching,
// and the fetched market's expiry must agree with the computed boundary.
func (s *Service) ResolveCurrentCycle(ctx context.Context, platform domain.Platform, seriesPrefix string, now time.Time) (domain.Market, error) {
	slug := s.cycle.Slug(seriesPrefix, now)

	market, err := s.ResolveMarket(ctx, domain.MarketRef{Platform: platform, ID: slug})
	if err != nil {
		return domain.Market{}, err
	}

	if market.Expiry.IsZero() {
		return domain.Market{}, fmt.Errorf(
			"marketdata: %w: cycle market %s has no expiry",
			domain.ErrInvariantViolation, market.Slug,
		)
	}
	if !s.cycle.ExpiryMatches(market.Expiry, now) {
		return domain.Market{}, fmt.Errorf(
			"marketdata: %w: market %s expires %s, cycle ends %s",
			domain.ErrInvariantViolation,
			market.Slug,
			market.Expiry.UTC().Format(time.RFC3339),
			s.cycle.CycleEnd(now).Format(time.RFC3339),
		)
	}

	return market, nil
}

// ResolveHoldings fetches the wallet's holdings in the given market through
// its platform adapter, behind the same retry policy as market fetches.
func (s *Service) ResolveHoldings(ctx context.Context, wallet string, market domain.Market) ([]domain.Holding, error) {
	adapter, ok := s.adapters[market.Platform]
	if !ok {
		return nil, fmt.Errorf("marketdata: no adapter for platform %q", market.Platform)
	}

	cfg := s.retry
	cfg.Provider = string(market.Platform)

	holdings, err := resilience.Do(ctx, cfg, func(ctx context.Context) ([]domain.Holding, error) {
		return adapter.FetchHoldings(ctx, wallet, market)
	})
	if err != nil {
		return nil, fmt.Errorf("marketdata: resolve holdings %s/%s: %w", market.Platform, market.ID, err)
	}
	return holdings, nil
}

// Cycle returns the service's cycle arithmetic, for callers that need the
// boundary without a fetch.
func (s *Service) Cycle() CycleSpec {
	return s.cycle
}

// checkPriceSum rejects markets whose outcome prices do not sum to 1.0
// within tolerance. Applies to every market with two or more outcomes; the
// prices are never silently corrected.
func checkPriceSum(m domain.Market) error {
	if len(m.Outcomes) < 2 {
		return nil
	}
	if math.Abs(m.PriceSum()-1.0) > priceSumTolerance {
		return fmt.Errorf("marketdata: %w: market %s outcome prices sum to %.4f",
			domain.ErrInvariantViolation, m.ID, m.PriceSum())
	}
	return nil
}
