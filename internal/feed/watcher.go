// Package feed streams live prices for the active cycle market and rotates
// the subscription at each cycle boundary.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/predictos/predictbot/internal/domain"
	"github.com/predictos/predictbot/internal/marketdata"
	"github.com/predictos/predictbot/internal/platform/polymarket"
)

// UpdateHandler is called for each price update on the watched market.
type UpdateHandler func(ctx context.Context, market domain.Market, update polymarket.PriceUpdate)

// CycleWatcher subscribes to the Polymarket market feed for whichever cycle
// market is live right now, invokes the handler on each price tick, and
// re-subscribes when the cycle rolls over.
type CycleWatcher struct {
	markets      *marketdata.Service
	ws           *polymarket.WSClient
	seriesPrefix string
	onUpdate     UpdateHandler
	logger       *slog.Logger

	mu      sync.RWMutex
	current domain.Market
}

// NewCycleWatcher creates a CycleWatcher over the given resolver and feed.
func NewCycleWatcher(
	markets *marketdata.Service,
	ws *polymarket.WSClient,
	seriesPrefix string,
	onUpdate UpdateHandler,
	logger *slog.Logger,
) *CycleWatcher {
	return &CycleWatcher{
		markets:      markets,
		ws:           ws,
		seriesPrefix: seriesPrefix,
		onUpdate:     onUpdate,
		logger:       logger.With(slog.String("component", "cycle_watcher")),
	}
}

// Market returns the cycle market currently being watched.
func (w *CycleWatcher) Market() domain.Market {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Run connects the feed and watches cycle markets until ctx is cancelled.
// Each cycle boundary triggers an unsubscribe/resubscribe pair against the
// next market's token IDs. The feed client reconnects on its own; Run only
// returns on context cancellation or when the initial connect fails.
func (w *CycleWatcher) Run(ctx context.Context) error {
	if err := w.ws.Connect(ctx); err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer w.ws.Close()

	w.ws.OnPriceUpdate(func(update polymarket.PriceUpdate) {
		market := w.Market()
		if market.ID == "" || w.onUpdate == nil {
			return
		}
		w.onUpdate(ctx, market, update)
	})

	for {
		now := time.Now().UTC()
		market, err := w.markets.ResolveCurrentCycle(ctx, domain.PlatformPolymarket, w.seriesPrefix, now)
		if err != nil {
			// The next cycle's market may not be listed yet; retry shortly
			// instead of tearing the watcher down.
			w.logger.WarnContext(ctx, "cycle market not resolvable, retrying",
				slog.String("series", w.seriesPrefix),
				slog.String("error", err.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Second):
			}
			continue
		}

		tokenIDs := marketTokenIDs(market)
		if err := w.ws.Subscribe(ctx, tokenIDs); err != nil {
			return fmt.Errorf("feed: subscribe %s: %w", market.ID, err)
		}
		w.mu.Lock()
		w.current = market
		w.mu.Unlock()
		w.logger.InfoContext(ctx, "watching cycle market",
			slog.String("market_id", market.ID),
			slog.Int("tokens", len(tokenIDs)),
		)

		boundary := w.markets.Cycle().CycleEnd(now)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(boundary)):
		}

		if err := w.ws.Unsubscribe(ctx, tokenIDs); err != nil {
			w.logger.WarnContext(ctx, "unsubscribe failed",
				slog.String("market_id", market.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func marketTokenIDs(market domain.Market) []string {
	ids := make([]string, 0, len(market.Outcomes))
	for _, o := range market.Outcomes {
		if o.TokenID != "" {
			ids = append(ids, o.TokenID)
		}
	}
	return ids
}
