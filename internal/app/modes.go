package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/indexer"
	"github.com/vsyolabs/vsyod/internal/server"
	"github.com/vsyolabs/vsyod/internal/server/handler"
	"github.com/vsyolabs/vsyod/internal/server/ws"
	"github.com/vsyolabs/vsyod/internal/service"
)

// ServeMode runs the HTTP API and WebSocket hub.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// IndexMode runs the chain indexer: the event poller, snapshot refresher, and
// archival retention loops.
func (a *App) IndexMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting index mode")
	return a.newIndexer(deps).Run(ctx)
}

// FullMode runs the API server and the indexer in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)

	ix := a.newIndexer(deps)
	g.Go(func() error {
		return ix.Run(ctx)
	})

	return g.Wait()
}

// startHTTPServer builds the services, handlers, and WebSocket hub, then
// registers the server goroutines on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	marketSvc := service.NewMarketService(
		deps.MarketStore, deps.MarketCache, deps.ProbabilityCache, deps.SignalBus, a.logger,
	)
	portfolioSvc := service.NewPortfolioService(
		deps.Chain, deps.MarketStore, deps.PositionStore, deps.MarketCache, a.logger,
	)
	settlementSvc := service.NewSettlementService(
		deps.PositionStore, deps.MarketStore, deps.Archiver, deps.AuditStore, deps.SignalBus, deps.Notifier, a.logger,
	)
	activitySvc := service.NewActivityService(deps.ActivityStore, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, time.Now().UTC()),
		Markets:   handler.NewMarketHandler(marketSvc, a.logger),
		Positions: handler.NewPositionHandler(deps.PositionStore, settlementSvc, a.logger),
		Portfolio: handler.NewPortfolioHandler(portfolioSvc, a.logger),
		Activity:  handler.NewActivityHandler(activitySvc, a.logger),
		Intents:   handler.NewIntentHandler(deps.IntentBuilder, marketSvc, deps.PositionStore, a.logger),
	}

	var limiter domain.RateLimiter
	if a.cfg.Server.RateLimitEnabled {
		limiter = deps.RateLimiter
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
		RateLimitOn:     a.cfg.Server.RateLimitEnabled,
	}, handlers, hub, limiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// newIndexer builds the indexer with its poller, refresher, and retention
// loops from the wired dependencies.
func (a *App) newIndexer(deps *Dependencies) *indexer.Indexer {
	marketSvc := service.NewMarketService(
		deps.MarketStore, deps.MarketCache, deps.ProbabilityCache, deps.SignalBus, a.logger,
	)
	settlementSvc := service.NewSettlementService(
		deps.PositionStore, deps.MarketStore, deps.Archiver, deps.AuditStore, deps.SignalBus, deps.Notifier, a.logger,
	)
	activitySvc := service.NewActivityService(deps.ActivityStore, a.logger)

	poller := indexer.NewEventPoller(
		deps.Chain, deps.CursorStore, activitySvc, a.cfg.Indexer.EventPageSize, a.logger,
	)
	refresher := indexer.NewSnapshotRefresher(
		deps.Chain, deps.MarketStore, marketSvc, settlementSvc, deps.Notifier, a.logger,
	)
	retention := indexer.NewRetention(
		deps.Archiver, deps.ActivityStore, a.cfg.Indexer.ArchiveRetentionDays, a.logger,
	)

	return indexer.New(poller, refresher, retention, deps.LockManager, indexer.Config{
		PollInterval:     a.cfg.Indexer.PollInterval.Duration,
		SnapshotInterval: a.cfg.Indexer.SnapshotInterval.Duration,
	}, a.logger)
}
