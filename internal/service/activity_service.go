package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vsyolabs/vsyod/internal/domain"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityService serves the mirrored on-chain event history.
type ActivityService struct {
	activity domain.ActivityStore
	logger   *slog.Logger
}

// NewActivityService creates an ActivityService.
func NewActivityService(activity domain.ActivityStore, logger *slog.Logger) *ActivityService {
	return &ActivityService{activity: activity, logger: logger}
}

// ListByOwner returns the newest-first event history for one owner address.
func (s *ActivityService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	if owner == "" {
		return nil, fmt.Errorf("activity_service: %w: owner is required", domain.ErrInvalidInput)
	}

	events, err := s.activity.ListByOwner(ctx, owner, clampActivityOpts(opts))
	if err != nil {
		return nil, fmt.Errorf("activity_service: list by owner: %w", err)
	}
	return events, nil
}

// ListByMarket returns the newest-first event history for one market.
func (s *ActivityService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	if marketID == "" {
		return nil, fmt.Errorf("activity_service: %w: market id is required", domain.ErrInvalidInput)
	}

	events, err := s.activity.ListByMarket(ctx, marketID, clampActivityOpts(opts))
	if err != nil {
		return nil, fmt.Errorf("activity_service: list by market: %w", err)
	}
	return events, nil
}

// Record mirrors a batch of chain events into the history table. Replayed
// events are deduplicated by ID at the store layer.
func (s *ActivityService) Record(ctx context.Context, events []domain.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.activity.InsertBatch(ctx, events); err != nil {
		return fmt.Errorf("activity_service: insert batch: %w", err)
	}
	return nil
}

func clampActivityOpts(opts domain.ListOpts) domain.ListOpts {
	if opts.Limit <= 0 {
		opts.Limit = defaultActivityLimit
	}
	if opts.Limit > maxActivityLimit {
		opts.Limit = maxActivityLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
