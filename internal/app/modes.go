package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/feed"
	"github.com/predictos/predictbot/internal/platform/polymarket"
	"github.com/predictos/predictbot/internal/server"
	"github.com/predictos/predictbot/internal/server/handler"
	"github.com/predictos/predictbot/internal/strategy"
)

// ServeMode runs the headless HTTP API until the context is cancelled. When
// an archiver is wired it also runs a daily job that moves aged decision-log
// rows to cold storage.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Analysis: handler.NewAnalysisHandler(deps.Analysis, a.logger),
		Trading:  handler.NewTradingHandler(deps.Trading, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, deps.RateLimiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if deps.Archiver != nil && a.cfg.S3.RetentionDays > 0 {
		g.Go(func() error {
			a.archiveLoop(gctx, deps.Archiver)
			return nil
		})
	}

	return g.Wait()
}

// archiveLoop runs one archive pass immediately and then once every 24h,
// moving decision rows older than the retention window to blob storage.
func (a *App) archiveLoop(ctx context.Context, archiver domain.Archiver) {
	retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := time.Now().Add(-retention)
		moved, err := archiver.ArchiveDecisions(ctx, cutoff)
		if err != nil {
			a.logger.WarnContext(ctx, "decision archive pass failed", slog.Any("error", err))
		} else if moved > 0 {
			a.logger.InfoContext(ctx, "archived decision rows",
				slog.Int64("rows", moved),
				slog.Time("cutoff", cutoff),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// WatchMode follows the live cycle market feed. On every price tick it
// reassesses the wallet position against the current market, at most once per
// assessInterval, and pushes the result to the configured notifiers.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	const assessInterval = 30 * time.Second

	ws := polymarket.NewWSClient(a.cfg.Polymarket.WsHost)

	var lastAssess time.Time
	onUpdate := func(ctx context.Context, market domain.Market, update polymarket.PriceUpdate) {
		if time.Since(lastAssess) < assessInterval {
			return
		}
		lastAssess = time.Now()

		assessment, err := deps.Trading.AssessMarket(ctx, market)
		if err != nil {
			a.logger.WarnContext(ctx, "position assessment failed",
				slog.String("market_id", market.ID),
				slog.Any("error", err),
			)
			return
		}

		a.logger.InfoContext(ctx, "position assessed",
			slog.String("market_id", market.ID),
			slog.String("pair_status", string(assessment.PairStatus)),
			slog.Float64("profit_lock", assessment.ProfitLock),
			slog.Float64("last_price", update.Price),
		)

		if err := deps.Notifier.Notify(ctx, "assessment",
			fmt.Sprintf("Position on %s", market.Slug),
			fmt.Sprintf("pair=%s lock=%.4f break_even=%.4f",
				assessment.PairStatus, assessment.ProfitLock, assessment.BreakEven),
		); err != nil {
			a.logger.WarnContext(ctx, "failed to send assessment notification", slog.Any("error", err))
		}
	}

	watcher := feed.NewCycleWatcher(deps.Markets, ws, a.cfg.Cycle.SeriesPrefix, onUpdate, a.logger)
	return watcher.Run(ctx)
}

// PlanMode performs a single assess-and-plan pass for the live cycle market
// and writes the result to stdout as JSON.
func (a *App) PlanMode(ctx context.Context, deps *Dependencies) error {
	now := time.Now()

	assessment, err := deps.Trading.TrackPosition(ctx, now)
	if err != nil {
		return fmt.Errorf("app: plan mode: %w", err)
	}

	plan, signed, err := deps.Trading.PlanOrders(ctx, now,
		a.cfg.Strategy.Bankroll,
		domain.PlanMode(a.cfg.Strategy.Mode),
		strategy.PlanConfig{
			Levels: a.cfg.Strategy.Levels,
			Taper:  a.cfg.Strategy.Taper,
			Step:   a.cfg.Strategy.Step,
		},
	)
	if err != nil {
		return fmt.Errorf("app: plan mode: %w", err)
	}

	out := struct {
		Assessment domain.PositionAssessment   `json:"assessment"`
		Plan       domain.OrderPlan            `json:"plan"`
		Signed     []domain.SignedOrderRequest `json:"signed,omitempty"`
	}{assessment, plan, signed}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("app: encode plan output: %w", err)
	}

	return nil
}
