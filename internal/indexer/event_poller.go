// Package indexer mirrors on-chain state into the local stores: it polls the
// module's event stream, refreshes market snapshots, settles resolved
// markets, and ages out old activity rows.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/platform/sui"
)

// eventCursorName is the cursor slot the poller persists its progress under.
const eventCursorName = "vsyo_events"

// ChainEvents is the event-stream read the poller needs from the RPC client.
type ChainEvents interface {
	QueryEvents(ctx context.Context, cursor string, limit int) (sui.EventPage, error)
}

// ActivityRecorder mirrors a batch of chain events into the history store.
type ActivityRecorder interface {
	Record(ctx context.Context, events []domain.ActivityEvent) error
}

// PollResult summarises one poll run for the snapshot refresher.
type PollResult struct {
	Events          int
	TouchedMarkets  []string // market IDs seen in any event
	ResolvedMarkets []string // market IDs with a resolution event this run
}

// EventPoller drains the module's event stream page by page, mirroring events
// into the activity store and persisting its cursor so a restart resumes
// exactly where the previous run stopped.
type EventPoller struct {
	chain    ChainEvents
	cursors  domain.CursorStore
	activity ActivityRecorder
	pageSize int
	logger   *slog.Logger
}

// NewEventPoller creates an EventPoller.
func NewEventPoller(chain ChainEvents, cursors domain.CursorStore, activity ActivityRecorder, pageSize int, logger *slog.Logger) *EventPoller {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &EventPoller{
		chain:    chain,
		cursors:  cursors,
		activity: activity,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Run executes a single poll: it fetches every page published since the
// stored cursor, records the events, and advances the cursor after each page
// so a crash mid-run loses at most one page of progress (replays are
// deduplicated by event ID on insert).
func (p *EventPoller) Run(ctx context.Context) (PollResult, error) {
	cursor, err := p.cursors.Get(ctx, eventCursorName)
	if err != nil {
		return PollResult{}, fmt.Errorf("indexer: load cursor: %w", err)
	}

	var result PollResult
	touched := make(map[string]bool)
	resolved := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("indexer: poll cancelled: %w", err)
		}

		page, err := p.chain.QueryEvents(ctx, cursor, p.pageSize)
		if err != nil {
			return result, fmt.Errorf("indexer: query events: %w", err)
		}

		if len(page.Events) > 0 {
			if err := p.activity.Record(ctx, page.Events); err != nil {
				return result, fmt.Errorf("indexer: record events: %w", err)
			}

			for _, e := range page.Events {
				if e.MarketID == "" {
					continue
				}
				if !touched[e.MarketID] {
					touched[e.MarketID] = true
					result.TouchedMarkets = append(result.TouchedMarkets, e.MarketID)
				}
				if e.Kind == domain.ActivityMarketResolved && !resolved[e.MarketID] {
					resolved[e.MarketID] = true
					result.ResolvedMarkets = append(result.ResolvedMarkets, e.MarketID)
				}
			}
			result.Events += len(page.Events)
		}

		if page.NextCursor != "" && page.NextCursor != cursor {
			cursor = page.NextCursor
			if err := p.cursors.Set(ctx, eventCursorName, cursor); err != nil {
				return result, fmt.Errorf("indexer: save cursor: %w", err)
			}
		}

		if !page.HasNext {
			break
		}
	}

	if result.Events > 0 {
		p.logger.InfoContext(ctx, "indexer: poll complete",
			slog.Int("events", result.Events),
			slog.Int("touched_markets", len(result.TouchedMarkets)),
			slog.Int("resolved_markets", len(result.ResolvedMarkets)),
		)
	}

	return result, nil
}
