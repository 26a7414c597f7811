package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// runnerLockKey is the distributed lock that keeps multiple replicas from
// double-processing the event stream.
const runnerLockKey = "lock:indexer"

// retentionInterval is how often the retention pass runs.
const retentionInterval = 24 * time.Hour

// Config holds the indexer loop timings.
type Config struct {
	PollInterval     time.Duration
	SnapshotInterval time.Duration
}

// Indexer coordinates the polling, snapshot, and retention loops.
type Indexer struct {
	poller    *EventPoller
	refresher *SnapshotRefresher
	retention *Retention
	locks     domain.LockManager
	cfg       Config
	logger    *slog.Logger
}

// New creates an Indexer. locks may be nil for single-instance deployments.
func New(
	poller *EventPoller,
	refresher *SnapshotRefresher,
	retention *Retention,
	locks domain.LockManager,
	cfg Config,
	logger *slog.Logger,
) *Indexer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = time.Minute
	}
	return &Indexer{
		poller:    poller,
		refresher: refresher,
		retention: retention,
		locks:     locks,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run starts the indexer loops and blocks until the context is cancelled.
// When a lock manager is configured, Run first acquires the runner lock and
// keeps it for the lifetime of the process.
func (ix *Indexer) Run(ctx context.Context) error {
	if ix.locks != nil {
		unlock, err := ix.locks.Acquire(ctx, runnerLockKey, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("indexer: acquire runner lock: %w", err)
		}
		defer unlock()
	}

	ix.logger.Info("indexer: starting",
		slog.Duration("poll_interval", ix.cfg.PollInterval),
		slog.Duration("snapshot_interval", ix.cfg.SnapshotInterval),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := ix.pollLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("event poller: %w", err)
	})

	g.Go(func() error {
		err := ix.snapshotLoop(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("snapshot refresher: %w", err)
	})

	g.Go(func() error {
		err := ix.retentionLoop(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("retention: %w", err)
	})

	if err := g.Wait(); err != nil {
		ix.logger.Error("indexer: stopped with error", slog.String("error", err.Error()))
		return err
	}

	ix.logger.Info("indexer: stopped cleanly")
	return nil
}

// pollLoop drains the event stream on the poll interval. Markets touched by
// new events get an immediate snapshot refresh so probabilities update within
// one poll of the trade landing on chain.
func (ix *Indexer) pollLoop(ctx context.Context) error {
	tick := func() {
		result, err := ix.poller.Run(ctx)
		if err != nil {
			ix.logger.Error("indexer: poll failed", slog.String("error", err.Error()))
			return
		}
		if len(result.TouchedMarkets) == 0 {
			return
		}
		if err := ix.refresher.Refresh(ctx, result.TouchedMarkets); err != nil {
			ix.logger.Error("indexer: refresh after poll failed",
				slog.String("error", err.Error()),
			)
		}
	}

	tick() // run immediately on start

	ticker := time.NewTicker(ix.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("indexer: poll loop stopped")
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

// snapshotLoop periodically refreshes every known market so deadline expiry
// and out-of-band resolutions are picked up even without events.
func (ix *Indexer) snapshotLoop(ctx context.Context) error {
	ticker := time.NewTicker(ix.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("indexer: snapshot loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := ix.refresher.RefreshAll(ctx); err != nil {
				ix.logger.Error("indexer: full refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// retentionLoop runs the archive pass once a day.
func (ix *Indexer) retentionLoop(ctx context.Context) error {
	if ix.retention == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("indexer: retention loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := ix.retention.Run(ctx); err != nil {
				ix.logger.Error("indexer: retention failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
