// Package service contains the application services that sit between the HTTP
// handlers, the indexer, and the storage layers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/pricing"
)

// MarketUpdatesChannel is the pub/sub channel market snapshot updates are
// published on for the WS hub.
const MarketUpdatesChannel = "market_updates"

// MarketQuote is the live pricing view of one market.
type MarketQuote struct {
	MarketID       string
	YesProbability float64
	NoProbability  float64
	YesPercent     int
	NoPercent      int
	TotalShares    int64
	TotalFunds     int64
	Resolved       bool
}

// MarketService handles market snapshot reads, pricing quotes, and trade
// projections.
type MarketService struct {
	markets domain.MarketStore
	cache   domain.MarketCache
	probs   domain.ProbabilityCache
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	cache domain.MarketCache,
	probs domain.ProbabilityCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets: markets,
		cache:   cache,
		probs:   probs,
		bus:     bus,
		logger:  logger,
	}
}

// SyncMarkets upserts a batch of market snapshots into the persistent store,
// refreshes the caches, and publishes each update for the WS hub.
func (s *MarketService) SyncMarkets(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	if err := s.markets.UpsertBatch(ctx, markets); err != nil {
		return fmt.Errorf("market_service: upsert batch: %w", err)
	}

	now := time.Now().UTC()
	for _, m := range markets {
		// Refresh rather than invalidate: the snapshot in hand is the
		// freshest state available.
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}

		yesProb := pricing.Probability(m, true)
		if err := s.probs.Set(ctx, m.ID, yesProb, now); err != nil {
			s.logger.WarnContext(ctx, "market_service: probability cache set failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}

		yesPct, noPct := pricing.DisplayPercents(m)
		evt, _ := json.Marshal(map[string]any{
			"event":       "market_update",
			"market_id":   m.ID,
			"yes_percent": yesPct,
			"no_percent":  noPct,
			"resolved":    m.Resolved,
		})
		if pubErr := s.bus.Publish(ctx, MarketUpdatesChannel, evt); pubErr != nil {
			s.logger.WarnContext(ctx, "market_service: publish update failed",
				slog.String("market_id", m.ID),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "market_service: synced markets",
		slog.Int("count", len(markets)),
	)

	return nil
}

// GetMarket retrieves a market snapshot by ID, checking the cache first and
// falling back to the persistent store on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return m, nil
}

// ListMarkets returns market snapshots directly from the persistent store.
func (s *MarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// Count returns the number of market snapshots matching the filter.
func (s *MarketService) Count(ctx context.Context, opts domain.ListOpts) (int64, error) {
	count, err := s.markets.Count(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

// Quote returns the live pricing view of one market.
func (s *MarketService) Quote(ctx context.Context, id string) (MarketQuote, error) {
	m, err := s.GetMarket(ctx, id)
	if err != nil {
		return MarketQuote{}, err
	}

	yesProb := pricing.Probability(m, true)
	yesPct, noPct := pricing.DisplayPercents(m)

	return MarketQuote{
		MarketID:       m.ID,
		YesProbability: yesProb,
		NoProbability:  1 - yesProb,
		YesPercent:     yesPct,
		NoPercent:      noPct,
		TotalShares:    m.TotalShares(),
		TotalFunds:     m.TotalFunds,
		Resolved:       m.Resolved,
	}, nil
}

// ProjectTrade estimates shares, payout, and potential profit for buying
// `amount` coin units of one side of the market.
func (s *MarketService) ProjectTrade(ctx context.Context, id string, isYes bool, amount decimal.Decimal) (pricing.TradeProjection, error) {
	m, err := s.GetMarket(ctx, id)
	if err != nil {
		return pricing.TradeProjection{}, err
	}

	proj, err := pricing.ProjectTrade(m, isYes, amount)
	if err != nil {
		return pricing.TradeProjection{}, fmt.Errorf("market_service: project trade on %q: %w", id, err)
	}
	return proj, nil
}
