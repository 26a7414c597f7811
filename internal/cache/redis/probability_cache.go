package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// ProbabilityCache implements domain.ProbabilityCache using Redis hashes.
// Each market's YES probability is stored as a hash at key "prob:{marketID}"
// with fields "prob" and "ts" (Unix nanosecond timestamp).
type ProbabilityCache struct {
	rdb *redis.Client
}

// NewProbabilityCache creates a ProbabilityCache backed by the given Client.
func NewProbabilityCache(c *Client) *ProbabilityCache {
	return &ProbabilityCache{rdb: c.Underlying()}
}

func probKey(marketID string) string {
	return "prob:" + marketID
}

// Set stores the latest YES probability and timestamp for a market.
func (pc *ProbabilityCache) Set(ctx context.Context, marketID string, yesProb float64, ts time.Time) error {
	key := probKey(marketID)
	fields := map[string]interface{}{
		"prob": strconv.FormatFloat(yesProb, 'f', -1, 64),
		"ts":   strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set probability %s: %w", marketID, err)
	}
	return nil
}

// Get retrieves the latest YES probability and timestamp for a market.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *ProbabilityCache) Get(ctx context.Context, marketID string) (float64, time.Time, error) {
	key := probKey(marketID)
	vals, err := pc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get probability %s: %w", marketID, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	probStr, ok := vals["prob"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	prob, err := strconv.ParseFloat(probStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse probability %s: %w", marketID, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", marketID, err)
	}

	return prob, time.Unix(0, tsNano), nil
}

// GetMany retrieves the latest probabilities for multiple markets using a
// pipeline. Markets whose keys do not exist are silently omitted from the
// result map.
func (pc *ProbabilityCache) GetMany(ctx context.Context, marketIDs []string) (map[string]float64, error) {
	if len(marketIDs) == 0 {
		return map[string]float64{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(marketIDs))
	for _, id := range marketIDs {
		cmds[id] = pipe.HGetAll(ctx, probKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get probabilities pipeline: %w", err)
	}

	result := make(map[string]float64, len(marketIDs))
	for id, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		probStr, ok := vals["prob"]
		if !ok {
			continue
		}
		prob, err := strconv.ParseFloat(probStr, 64)
		if err != nil {
			continue
		}
		result[id] = prob
	}

	return result, nil
}

// Compile-time interface check.
var _ domain.ProbabilityCache = (*ProbabilityCache)(nil)
