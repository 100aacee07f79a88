package domain

import (
	"context"
	"time"
)

// MarketCache provides short-lived market lookups keyed by platform and
// native ID. Cycle markets roll every few minutes, so implementations keep
// TTLs well under one cycle.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, platform Platform, id string) (Market, error)
	Invalidate(ctx context.Context, platform Platform, id string) error
}

// RateLimiter provides distributed rate limiting, used to keep outbound AI
// and research calls under provider quotas.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
