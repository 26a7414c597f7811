package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/pricing"
)

// ChainReader is the subset of the chain RPC client the services depend on.
type ChainReader interface {
	ListPositions(ctx context.Context, owner string) ([]domain.Position, error)
	GetBalance(ctx context.Context, owner string) (int64, error)
}

// PortfolioService aggregates an owner's on-chain positions, balance, and the
// matching market snapshots into a portfolio view.
type PortfolioService struct {
	chain     ChainReader
	markets   domain.MarketStore
	positions domain.PositionStore
	cache     domain.MarketCache
	logger    *slog.Logger
}

// NewPortfolioService creates a PortfolioService with all required dependencies.
func NewPortfolioService(
	chain ChainReader,
	markets domain.MarketStore,
	positions domain.PositionStore,
	cache domain.MarketCache,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		chain:     chain,
		markets:   markets,
		positions: positions,
		cache:     cache,
		logger:    logger,
	}
}

// GetPortfolio fetches the owner's positions and balance from the chain
// concurrently, resolves the market snapshot for each position, and folds
// everything into a portfolio summary.
func (s *PortfolioService) GetPortfolio(ctx context.Context, owner string) (domain.Portfolio, error) {
	if owner == "" {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: %w: owner is required", domain.ErrInvalidInput)
	}

	var (
		positions []domain.Position
		balance   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		positions, err = s.chain.ListPositions(gctx, owner)
		if err != nil {
			return fmt.Errorf("list positions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		balance, err = s.chain.GetBalance(gctx, owner)
		if err != nil {
			return fmt.Errorf("get balance: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: %w", err)
	}

	markets := s.resolveMarkets(ctx, positions)

	pf := pricing.AggregatePortfolio(owner, positions, markets, balance)

	s.logger.InfoContext(ctx, "portfolio_service: aggregated portfolio",
		slog.String("owner", owner),
		slog.Int("positions", len(positions)),
		slog.Int64("total_value", pf.TotalValue),
	)

	return pf, nil
}

// PositionValue returns the current mark-to-market value of a single position.
func (s *PortfolioService) PositionValue(ctx context.Context, positionID string) (int64, error) {
	p, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return 0, fmt.Errorf("portfolio_service: get position %q: %w", positionID, err)
	}

	m, err := s.getMarket(ctx, p.MarketID)
	if err != nil {
		return 0, fmt.Errorf("portfolio_service: get market %q: %w", p.MarketID, err)
	}

	return pricing.MarkToMarket(p, m), nil
}

// resolveMarkets looks up the snapshot for every distinct market among the
// positions. Markets that cannot be resolved are skipped; the aggregator then
// leaves the affected positions out of the valuation.
func (s *PortfolioService) resolveMarkets(ctx context.Context, positions []domain.Position) map[string]domain.Market {
	markets := make(map[string]domain.Market)
	for _, p := range positions {
		if _, ok := markets[p.MarketID]; ok {
			continue
		}

		m, err := s.getMarket(ctx, p.MarketID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "portfolio_service: market lookup failed",
					slog.String("market_id", p.MarketID),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		markets[p.MarketID] = m
	}
	return markets
}

func (s *PortfolioService) getMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}
	return s.markets.GetByID(ctx, id)
}
