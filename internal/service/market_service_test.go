package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMarket(id string, yes, no, funds int64) domain.Market {
	return domain.Market{
		ID:          id,
		Description: "Will it rain tomorrow?",
		Category:    domain.CategoryOther,
		Deadline:    time.Now().Add(24 * time.Hour),
		YesShares:   yes,
		NoShares:    no,
		TotalFunds:  funds,
		UpdatedAt:   time.Now(),
	}
}

func newTestMarketService() (*MarketService, *memMarketStore, *memMarketCache, *memProbCache, *memBus) {
	store := newMemMarketStore()
	cache := newMemMarketCache()
	probs := newMemProbCache()
	bus := newMemBus()
	svc := NewMarketService(store, cache, probs, bus, testLogger())
	return svc, store, cache, probs, bus
}

func TestMarketService_SyncMarkets(t *testing.T) {
	svc, store, cache, probs, bus := newTestMarketService()
	ctx := context.Background()

	markets := []domain.Market{
		testMarket("0xaaa", 600, 400, 1000),
		testMarket("0xbbb", 0, 0, 0),
	}
	require.NoError(t, svc.SyncMarkets(ctx, markets))

	stored, err := store.GetByID(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, int64(600), stored.YesShares)

	cached, err := cache.Get(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", cached.ID)

	prob, _, err := probs.Get(ctx, "0xaaa")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, prob, 1e-9)

	// Empty market defaults to 50/50.
	prob, _, err = probs.Get(ctx, "0xbbb")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, prob, 1e-9)

	assert.Len(t, bus.messages[MarketUpdatesChannel], 2)
}

func TestMarketService_SyncMarkets_Empty(t *testing.T) {
	svc, _, _, _, bus := newTestMarketService()
	require.NoError(t, svc.SyncMarkets(context.Background(), nil))
	assert.Empty(t, bus.messages)
}

func TestMarketService_GetMarket_CacheMissBackfills(t *testing.T) {
	svc, store, cache, _, _ := newTestMarketService()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testMarket("0xaaa", 10, 10, 20)))

	m, err := svc.GetMarket(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "0xaaa", m.ID)

	// The miss should have back-filled the cache.
	_, err = cache.Get(ctx, "0xaaa")
	assert.NoError(t, err)
}

func TestMarketService_GetMarket_NotFound(t *testing.T) {
	svc, _, _, _, _ := newTestMarketService()
	_, err := svc.GetMarket(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarketService_Quote(t *testing.T) {
	svc, store, _, _, _ := newTestMarketService()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testMarket("0xaaa", 700, 300, 1000)))

	q, err := svc.Quote(ctx, "0xaaa")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, q.YesProbability, 1e-9)
	assert.InDelta(t, 0.3, q.NoProbability, 1e-9)
	assert.Equal(t, 70, q.YesPercent)
	assert.Equal(t, 30, q.NoPercent)
	assert.Equal(t, int64(1000), q.TotalShares)
	assert.False(t, q.Resolved)
}

func TestMarketService_ProjectTrade(t *testing.T) {
	svc, store, _, _, _ := newTestMarketService()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testMarket("0xaaa", 600, 400, 1000)))

	proj, err := svc.ProjectTrade(ctx, "0xaaa", true, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, int64(100*pricing.DecimalFactor), proj.EstimatedShares)

	_, err = svc.ProjectTrade(ctx, "0xaaa", true, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarketService_ListAndCount(t *testing.T) {
	svc, store, _, _, _ := newTestMarketService()
	ctx := context.Background()

	resolved := testMarket("0xresolved", 10, 0, 10)
	resolved.Resolved = true
	outcome := true
	resolved.Outcome = &outcome
	require.NoError(t, store.Upsert(ctx, resolved))
	require.NoError(t, store.Upsert(ctx, testMarket("0xopen", 5, 5, 10)))

	open := false
	list, err := svc.ListMarkets(ctx, domain.ListOpts{Resolved: &open})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0xopen", list[0].ID)

	count, err := svc.Count(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
