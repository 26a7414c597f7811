package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/notify"
)

// MarketSyncer persists a batch of market snapshots and refreshes the caches.
type MarketSyncer interface {
	SyncMarkets(ctx context.Context, markets []domain.Market) error
}

// ChainMarkets is the snapshot read the refresher needs from the RPC client.
type ChainMarkets interface {
	MultiGetMarkets(ctx context.Context, ids []string) ([]domain.Market, error)
}

// Settler records the payout distribution of a resolved market.
type Settler interface {
	SettleMarket(ctx context.Context, marketID string) (domain.SettlementReport, error)
}

// SnapshotRefresher re-reads market objects from the chain and pushes the
// fresh snapshots through the sync path. When a market transitions to
// resolved it triggers settlement and a notification.
type SnapshotRefresher struct {
	chain    ChainMarkets
	markets  domain.MarketStore
	syncer   MarketSyncer
	settler  Settler
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewSnapshotRefresher creates a SnapshotRefresher. notifier may be nil.
func NewSnapshotRefresher(
	chain ChainMarkets,
	markets domain.MarketStore,
	syncer MarketSyncer,
	settler Settler,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *SnapshotRefresher {
	return &SnapshotRefresher{
		chain:    chain,
		markets:  markets,
		syncer:   syncer,
		settler:  settler,
		notifier: notifier,
		logger:   logger,
	}
}

// RefreshAll refreshes every market the store knows about.
func (r *SnapshotRefresher) RefreshAll(ctx context.Context) error {
	ids, err := r.markets.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("indexer: list market ids: %w", err)
	}
	return r.Refresh(ctx, ids)
}

// Refresh re-reads the given market objects and syncs them. Markets that
// flip from open to resolved between the stored snapshot and the fresh one
// are settled.
func (r *SnapshotRefresher) Refresh(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	// Record which of these markets were still open before the refresh so
	// the resolved transition can be detected afterwards.
	openBefore := make(map[string]bool, len(ids))
	for _, id := range ids {
		stored, err := r.markets.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				openBefore[id] = true // brand new market
				continue
			}
			return fmt.Errorf("indexer: load stored market %q: %w", id, err)
		}
		openBefore[id] = !stored.Resolved
	}

	fresh, err := r.chain.MultiGetMarkets(ctx, ids)
	if err != nil {
		return fmt.Errorf("indexer: fetch market snapshots: %w", err)
	}

	if err := r.syncer.SyncMarkets(ctx, fresh); err != nil {
		return fmt.Errorf("indexer: sync snapshots: %w", err)
	}

	for _, m := range fresh {
		if !m.Resolved || !openBefore[m.ID] {
			continue
		}
		r.handleResolution(ctx, m)
	}

	return nil
}

// handleResolution settles a freshly resolved market. Settlement failures are
// logged but do not abort the refresh: the next resolved-transition detection
// or a manual settle call can retry.
func (r *SnapshotRefresher) handleResolution(ctx context.Context, m domain.Market) {
	r.logger.InfoContext(ctx, "indexer: market resolved",
		slog.String("market_id", m.ID),
		slog.Bool("outcome", m.Outcome != nil && *m.Outcome),
	)

	if r.notifier != nil {
		outcome := "NO"
		if m.Outcome != nil && *m.Outcome {
			outcome = "YES"
		}
		msg := fmt.Sprintf("%s resolved %s", m.Description, outcome)
		if err := r.notifier.Notify(ctx, notify.EventMarketResolved, "Market resolved", msg); err != nil {
			r.logger.WarnContext(ctx, "indexer: notify resolution failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if _, err := r.settler.SettleMarket(ctx, m.ID); err != nil {
		r.logger.ErrorContext(ctx, "indexer: settlement failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}
