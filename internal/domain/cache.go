package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market snapshot lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// ProbabilityCache stores the latest derived YES probability per market so
// list views and the WS feed avoid recomputing from full snapshots.
type ProbabilityCache interface {
	Set(ctx context.Context, marketID string, yesProb float64, ts time.Time) error
	Get(ctx context.Context, marketID string) (float64, time.Time, error)
	GetMany(ctx context.Context, marketIDs []string) (map[string]float64, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking, used to keep indexer replicas
// from double-processing the event stream.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of market updates to the WS hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
