package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func newTestPortfolioService(chain *fakeChain) (*PortfolioService, *memMarketStore, *memPositionStore, *memMarketCache) {
	markets := newMemMarketStore()
	positions := newMemPositionStore()
	cache := newMemMarketCache()
	svc := NewPortfolioService(chain, markets, positions, cache, testLogger())
	return svc, markets, positions, cache
}

func TestPortfolioService_GetPortfolio(t *testing.T) {
	chain := &fakeChain{
		balance: 5_000,
		positions: []domain.Position{
			{ID: "0xp1", MarketID: "0xm1", Owner: "0xme", IsYes: true, Shares: 100, CostBasis: int64Ptr(40)},
			{ID: "0xp2", MarketID: "0xm2", Owner: "0xme", IsYes: false, Shares: 200, CostBasis: int64Ptr(90)},
		},
	}
	svc, markets, _, _ := newTestPortfolioService(chain)
	ctx := context.Background()

	require.NoError(t, markets.Upsert(ctx, testMarket("0xm1", 600, 400, 1000)))
	require.NoError(t, markets.Upsert(ctx, testMarket("0xm2", 500, 500, 1000)))

	pf, err := svc.GetPortfolio(ctx, "0xme")
	require.NoError(t, err)
	assert.Equal(t, "0xme", pf.Owner)
	assert.Equal(t, int64(5_000), pf.AvailableBalance)
	assert.Len(t, pf.Entries, 2)
	assert.True(t, pf.PnLComplete)
	// 100 yes shares at p=0.6 -> 60; 200 no shares at p=0.5 -> 100.
	assert.Equal(t, int64(160), pf.InPositions)
	assert.Equal(t, int64(5_160), pf.TotalValue)
}

func TestPortfolioService_GetPortfolio_MissingMarketSkipped(t *testing.T) {
	chain := &fakeChain{
		balance: 1_000,
		positions: []domain.Position{
			{ID: "0xp1", MarketID: "0xmissing", Owner: "0xme", IsYes: true, Shares: 100},
		},
	}
	svc, _, _, _ := newTestPortfolioService(chain)

	pf, err := svc.GetPortfolio(context.Background(), "0xme")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), pf.AvailableBalance)
	assert.Empty(t, pf.Entries)
	assert.Equal(t, int64(1_000), pf.TotalValue)
}

func TestPortfolioService_GetPortfolio_UsesCacheFirst(t *testing.T) {
	chain := &fakeChain{
		positions: []domain.Position{
			{ID: "0xp1", MarketID: "0xm1", Owner: "0xme", IsYes: true, Shares: 100, CostBasis: int64Ptr(50)},
		},
	}
	svc, _, _, cache := newTestPortfolioService(chain)
	ctx := context.Background()

	// The snapshot lives only in the cache; the store would miss.
	require.NoError(t, cache.Set(ctx, testMarket("0xm1", 500, 500, 1000)))

	pf, err := svc.GetPortfolio(ctx, "0xme")
	require.NoError(t, err)
	require.Len(t, pf.Entries, 1)
	assert.Equal(t, int64(50), pf.InPositions)
}

func TestPortfolioService_GetPortfolio_ChainError(t *testing.T) {
	chain := &fakeChain{posErr: errors.New("rpc unavailable")}
	svc, _, _, _ := newTestPortfolioService(chain)

	_, err := svc.GetPortfolio(context.Background(), "0xme")
	assert.Error(t, err)
}

func TestPortfolioService_GetPortfolio_EmptyOwner(t *testing.T) {
	svc, _, _, _ := newTestPortfolioService(&fakeChain{})
	_, err := svc.GetPortfolio(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPortfolioService_PositionValue(t *testing.T) {
	svc, markets, positions, _ := newTestPortfolioService(&fakeChain{})
	ctx := context.Background()

	require.NoError(t, markets.Upsert(ctx, testMarket("0xm1", 750, 250, 1000)))
	require.NoError(t, positions.Upsert(ctx, domain.Position{
		ID: "0xp1", MarketID: "0xm1", Owner: "0xme", IsYes: true, Shares: 100,
	}))

	value, err := svc.PositionValue(ctx, "0xp1")
	require.NoError(t, err)
	assert.Equal(t, int64(75), value)

	_, err = svc.PositionValue(ctx, "0xnope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
