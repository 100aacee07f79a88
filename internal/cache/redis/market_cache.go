package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predictos/predictbot/internal/domain"
)

// marketTTL bounds how stale a cached market's prices can get. Cycle
// markets turn over every few minutes, so the window is short.
const marketTTL = time.Minute

// MarketCache implements domain.MarketCache using Redis hashes with JSON-
// serialized Market data and a slug-to-ID alias.
//
// Key schema:
//
//	market:{platform}:{id}        - hash with field "data" containing JSON
//	market:{platform}:slug:{slug} - string value of the market ID
type MarketCache struct {
	rdb *redis.Client
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{rdb: c.Underlying()}
}

func marketKey(platform domain.Platform, id string) string {
	return fmt.Sprintf("market:%s:%s", platform, id)
}

func marketSlugKey(platform domain.Platform, slug string) string {
	return fmt.Sprintf("market:%s:slug:%s", platform, slug)
}

// Set stores a Market with a short TTL. Markets resolved by slug and by ID
// must both hit, so a slug alias is written when the two differ.
func (mc *MarketCache) Set(ctx context.Context, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}

	key := marketKey(market.Platform, market.ID)

	pipe := mc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, marketTTL)
	if market.Slug != "" && market.Slug != market.ID {
		pipe.Set(ctx, marketSlugKey(market.Platform, market.Slug), market.ID, marketTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set market %s: %w", market.ID, err)
	}
	return nil
}

// Get retrieves a Market by platform and ID or slug.
// It returns domain.ErrNotFound when the key does not exist.
func (mc *MarketCache) Get(ctx context.Context, platform domain.Platform, id string) (domain.Market, error) {
	data, err := mc.rdb.HGet(ctx, marketKey(platform, id), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		// The caller may hold a slug rather than the canonical ID.
		marketID, aliasErr := mc.rdb.Get(ctx, marketSlugKey(platform, id)).Result()
		if aliasErr != nil {
			if errors.Is(aliasErr, redis.Nil) {
				return domain.Market{}, domain.ErrNotFound
			}
			return domain.Market{}, fmt.Errorf("redis: get market by slug %s: %w", id, aliasErr)
		}
		data, err = mc.rdb.HGet(ctx, marketKey(platform, marketID), "data").Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", id, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", id, err)
	}
	return market, nil
}

// Invalidate removes a Market and its slug alias from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, platform domain.Platform, id string) error {
	market, err := mc.Get(ctx, platform, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}

	pipe := mc.rdb.TxPipeline()
	pipe.Del(ctx, marketKey(platform, market.ID))
	if market.Slug != "" && market.Slug != market.ID {
		pipe.Del(ctx, marketSlugKey(platform, market.Slug))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
