package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/marketdata"
	"github.com/predictos/predictbot/internal/resilience"
)

type stubAdapter struct {
	market   domain.Market
	holdings []domain.Holding
	err      error
}

func (a *stubAdapter) Platform() domain.Platform { return a.market.Platform }

func (a *stubAdapter) FetchMarket(ctx context.Context, id string) (domain.Market, error) {
	if a.err != nil {
		return domain.Market{}, a.err
	}
	return a.market, nil
}

func (a *stubAdapter) FetchHoldings(ctx context.Context, wallet string, m domain.Market) ([]domain.Holding, error) {
	return a.holdings, nil
}

type stubProvider struct {
	name     string
	analysis domain.Analysis
	failures int // transient failures before success
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Infer(ctx context.Context, prompt string) (domain.Analysis, error) {
	p.calls++
	if p.calls <= p.failures {
		return domain.Analysis{}, &resilience.HTTPError{StatusCode: 503, Body: "provider down"}
	}
	return p.analysis, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cycleMarket() domain.Market {
	return domain.Market{
		Platform: domain.PlatformPolymarket,
		ID:       "15min-up-down-20260831-1400",
		Slug:     "15min-up-down-20260831-1400",
		Question: "Bitcoin up or down?",
		Outcomes: []domain.Outcome{
			{Label: "Up", TokenID: "tok-up", Price: 0.52},
			{Label: "Down", TokenID: "tok-down", Price: 0.48},
		},
		Expiry: time.Date(2026, 8, 31, 14, 15, 0, 0, time.UTC),
		Status: domain.MarketStatusOpen,
	}
}

func marketsOver(adapter marketdata.Adapter) *marketdata.Service {
	retry := resilience.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	return marketdata.NewService([]marketdata.Adapter{adapter}, nil, retry, marketdata.CycleSpec{}, discardLogger())
}

func buyUp() domain.Analysis {
	return domain.Analysis{
		Recommendation: domain.RecommendBuyYes,
		Confidence:     0.8,
		Reasoning:      "momentum",
		KeyFactors:     []string{"volume"},
	}
}

func TestAnalyzeMarketPrimarySucceeds(t *testing.T) {
	primary := &stubProvider{name: "grok", analysis: buyUp()}
	fallback := &stubProvider{name: "openai", analysis: buyUp()}

	svc := NewAnalysisService(AnalysisConfig{
		Markets:  marketsOver(&stubAdapter{market: cycleMarket()}),
		Primary:  primary,
		Fallback: fallback,
		Logger:   discardLogger(),
	})

	decision, err := svc.AnalyzeMarket(context.Background(), AnalyzeRequest{
		Ref: domain.MarketRef{Platform: domain.PlatformPolymarket, ID: "15min-up-down-20260831-1400"},
	})
	require.NoError(t, err)

	assert.Equal(t, "grok", decision.Provider)
	assert.Equal(t, 0, decision.Retries)
	assert.Equal(t, domain.RecommendBuyYes, decision.Analysis.Recommendation)
	assert.NotEmpty(t, decision.ID)
	assert.Zero(t, fallback.calls, "fallback must not run when primary succeeds")
}

func TestAnalyzeMarketRetriesThenSucceedsWithoutFallback(t *testing.T) {
	primary := &stubProvider{name: "grok", analysis: buyUp(), failures: 2}
	fallback := &stubProvider{name: "openai", analysis: buyUp()}

	svc := NewAnalysisService(AnalysisConfig{
		Markets:    marketsOver(&stubAdapter{market: cycleMarket()}),
		Primary:    primary,
		Fallback:   fallback,
		PrimaryCfg: resilience.Config{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Logger:     discardLogger(),
	})

	decision, err := svc.AnalyzeMarket(context.Background(), AnalyzeRequest{
		Ref: domain.MarketRef{Platform: domain.PlatformPolymarket, ID: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, "grok", decision.Provider)
	assert.Equal(t, 2, decision.Retries)
	assert.Equal(t, 3, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestAnalyzeMarketFailsOverToSecondary(t *testing.T) {
	primary := &stubProvider{name: "grok", failures: 10}
	fallback := &stubProvider{name: "openai", analysis: buyUp()}

	svc := NewAnalysisService(AnalysisConfig{
		Markets:     marketsOver(&stubAdapter{market: cycleMarket()}),
		Primary:     primary,
		Fallback:    fallback,
		PrimaryCfg:  resilience.Config{MaxAttempts: 2, BaseDelay: time.Millisecond},
		FallbackCfg: resilience.Config{MaxAttempts: 2, BaseDelay: time.Millisecond},
		Logger:      discardLogger(),
	})

	decision, err := svc.AnalyzeMarket(context.Background(), AnalyzeRequest{
		Ref: domain.MarketRef{Platform: domain.PlatformPolymarket, ID: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, "openai", decision.Provider)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestAnalyzeMarketFetchFailureIsFatal(t *testing.T) {
	primary := &stubProvider{name: "grok", analysis: buyUp()}

	svc := NewAnalysisService(AnalysisConfig{
		Markets: marketsOver(&stubAdapter{
			market: domain.Market{Platform: domain.PlatformPolymarket},
			err:    domain.ErrNotFound,
		}),
		Primary: primary,
		Logger:  discardLogger(),
	})

	_, err := svc.AnalyzeMarket(context.Background(), AnalyzeRequest{
		Ref: domain.MarketRef{Platform: domain.PlatformPolymarket, ID: "missing"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, primary.calls, "no inference without a market")
}

func TestAnalyzeMarketResolvesURL(t *testing.T) {
	primary := &stubProvider{name: "grok", analysis: buyUp()}

	svc := NewAnalysisService(AnalysisConfig{
		Markets: marketsOver(&stubAdapter{market: cycleMarket()}),
		Primary: primary,
		Logger:  discardLogger(),
	})

	decision, err := svc.AnalyzeMarket(context.Background(), AnalyzeRequest{
		URL: "https://polymarket.com/event/15min-up-down-20260831-1400",
	})
	require.NoError(t, err)
	assert.Equal(t, "15min-up-down-20260831-1400", decision.Market.ID)
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

func TestAnalyzeMarketHonorsRateLimit(t *testing.T) {
	primary := &stubProvider{name: "grok", analysis: buyUp()}

	svc := NewAnalysisService(AnalysisConfig{
		Markets:    marketsOver(&stubAdapter{market: cycleMarket()}),
		Primary:    primary,
		Limiter:    denyLimiter{},
		RateLimit:  10,
		RateWindow: time.Minute,
		Logger:     discardLogger(),
	})

	_, err := svc.AnalyzeMarket(context.Background(), AnalyzeRequest{
		Ref: domain.MarketRef{Platform: domain.PlatformPolymarket, ID: "x"},
	})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Zero(t, primary.calls)
}
