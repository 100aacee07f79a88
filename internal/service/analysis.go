// Package service composes the resolver, tracker, strategy engine, and AI
// providers into the operations the HTTP surface and the CLI modes call.
// Services are request-scoped: no cross-request mutable state.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/predictos/predictbot/internal/ai"
	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/marketdata"
	"github.com/predictos/predictbot/internal/research"
	"github.com/predictos/predictbot/internal/resilience"
)

// aiRateKey is the sliding-window key guarding outbound inference calls.
const aiRateKey = "ai:infer"

// AnalysisService serves market analysis: resolve the market, ask the
// primary AI provider with bounded retries, fail over to the secondary
// when the primary is exhausted.
type AnalysisService struct {
	markets     *marketdata.Service
	research    *research.Client // optional
	primary     ai.Provider
	fallback    ai.Provider // optional
	primaryCfg  resilience.Config
	fallbackCfg resilience.Config
	limiter     domain.RateLimiter   // optional
	rateLimit   int                  // calls per rateWindow
	rateWindow  time.Duration
	audit       domain.DecisionStore // optional; nil disables auditing
	logger      *slog.Logger
}

// AnalysisConfig wires an AnalysisService.
type AnalysisConfig struct {
	Markets     *marketdata.Service
	Research    *research.Client
	Primary     ai.Provider
	Fallback    ai.Provider
	PrimaryCfg  resilience.Config
	FallbackCfg resilience.Config
	Limiter     domain.RateLimiter
	RateLimit   int
	RateWindow  time.Duration
	Audit       domain.DecisionStore
	Logger      *slog.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(cfg AnalysisConfig) *AnalysisService {
	return &AnalysisService{
		markets:     cfg.Markets,
		research:    cfg.Research,
		primary:     cfg.Primary,
		fallback:    cfg.Fallback,
		primaryCfg:  cfg.PrimaryCfg,
		fallbackCfg: cfg.FallbackCfg,
		limiter:     cfg.Limiter,
		rateLimit:   cfg.RateLimit,
		rateWindow:  cfg.RateWindow,
		audit:       cfg.Audit,
		logger:      cfg.Logger,
	}
}

// AnalyzeRequest identifies the market to analyze: either a platform ref or
// a market page URL, plus an optional caller question.
type AnalyzeRequest struct {
	Ref      domain.MarketRef
	URL      string
	Question string
	Research bool // also fetch cited research to ground the prompt
}

// AnalyzeMarket resolves the market, optionally runs a research query
// alongside the fetch, and asks the AI providers for a recommendation. A
// market fetch failure is fatal; an AI failure after failover surfaces
// with the market logged so the caller knows what was analyzed.
func (s *AnalysisService) AnalyzeMarket(ctx context.Context, req AnalyzeRequest) (domain.Decision, error) {
	start := time.Now()

	ref := req.Ref
	if req.URL != "" {
		parsed, err := marketdata.ParseMarketURL(req.URL)
		if err != nil {
			return domain.Decision{}, err
		}
		ref = parsed
	}

	// The market fetch and the research call are independent upstreams;
	// run them concurrently and join before prompting.
	var market domain.Market
	var grounding domain.ResearchResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := s.markets.ResolveMarket(gctx, ref)
		if err != nil {
			return err
		}
		market = m
		return nil
	})
	if req.Research && s.research != nil && req.Question != "" {
		g.Go(func() error {
			r, err := s.research.Research(gctx, req.Question)
			if err != nil {
				// Research is enrichment, not a hard dependency.
				s.logger.WarnContext(gctx, "analysis: research call failed",
					slog.String("error", err.Error()),
				)
				return nil
			}
			grounding = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Decision{}, fmt.Errorf("analysis: resolve market: %w", err)
	}

	if err := s.allowInference(ctx); err != nil {
		return domain.Decision{}, err
	}

	prompt := ai.BuildAnalysisPrompt(market, req.Question)
	if grounding.Answer != "" {
		prompt = fmt.Sprintf("%s\n\nBackground research:\n%s", prompt, grounding.Answer)
	}

	var attempts atomic.Int32
	infer := func(p ai.Provider) resilience.Operation[domain.Analysis] {
		return func(ctx context.Context) (domain.Analysis, error) {
			attempts.Add(1)
			return p.Infer(ctx, prompt)
		}
	}

	var analysis domain.Analysis
	var err error
	provider := s.primary.Name()
	if s.fallback != nil {
		analysis, err = resilience.DoWithFallback(ctx,
			s.namedCfg(s.primaryCfg, s.primary), infer(s.primary),
			s.namedCfg(s.fallbackCfg, s.fallback), infer(s.fallback),
		)
	} else {
		analysis, err = resilience.Do(ctx, s.namedCfg(s.primaryCfg, s.primary), infer(s.primary))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "analysis: inference failed",
			slog.String("market_id", market.ID),
			slog.String("market_question", market.Question),
			slog.String("error", err.Error()),
		)
		return domain.Decision{}, fmt.Errorf("analysis: infer for market %s: %w", market.ID, err)
	}
	primaryBudget := s.primaryCfg.MaxAttempts
	if primaryBudget <= 0 {
		primaryBudget = resilience.DefaultMaxAttempts
	}
	if s.fallback != nil && int(attempts.Load()) > primaryBudget {
		provider = s.fallback.Name()
	}

	decision := domain.Decision{
		ID:        uuid.NewString(),
		Market:    market,
		Analysis:  analysis,
		Provider:  provider,
		Retries:   int(attempts.Load()) - 1,
		Elapsed:   time.Since(start),
		CreatedAt: time.Now().UTC(),
	}

	s.record(ctx, "analysis", map[string]any{
		"decision_id":    decision.ID,
		"market_id":      market.ID,
		"platform":       string(market.Platform),
		"recommendation": string(analysis.Recommendation),
		"confidence":     analysis.Confidence,
		"provider":       provider,
		"retries":        decision.Retries,
		"elapsed_ms":     decision.Elapsed.Milliseconds(),
	})

	return decision, nil
}

// Research answers a free-form question about a market's underlying event.
func (s *AnalysisService) Research(ctx context.Context, query string) (domain.ResearchResult, error) {
	if s.research == nil {
		return domain.ResearchResult{}, fmt.Errorf("analysis: %w: research client not configured",
			domain.ErrInvalidConfig)
	}
	if err := s.allowInference(ctx); err != nil {
		return domain.ResearchResult{}, err
	}
	return s.research.Research(ctx, query)
}

// allowInference consults the rate limiter guarding provider quotas.
// Limiter errors are non-fatal; an unreachable limiter must not take the
// analysis path down with it.
func (s *AnalysisService) allowInference(ctx context.Context) error {
	if s.limiter == nil || s.rateLimit <= 0 {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, aiRateKey, s.rateLimit, s.rateWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "analysis: rate limiter unavailable",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !ok {
		return fmt.Errorf("analysis: %w: inference quota exhausted", domain.ErrRateLimited)
	}
	return nil
}

// record appends an audit row. A nil store disables auditing; append
// failures are logged, never surfaced.
func (s *AnalysisService) record(ctx context.Context, kind string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Append(ctx, kind, detail); err != nil {
		s.logger.WarnContext(ctx, "analysis: audit append failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}

// namedCfg stamps the provider name into a retry config so attempt history
// identifies which upstream failed.
func (s *AnalysisService) namedCfg(cfg resilience.Config, p ai.Provider) resilience.Config {
	cfg.Provider = p.Name()
	return cfg
}
