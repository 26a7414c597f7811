package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// Retention moves activity rows past the retention window into cold storage
// and then deletes them from the hot store.
type Retention struct {
	archiver      domain.ReportArchiver
	activity      domain.ActivityStore
	retentionDays int
	logger        *slog.Logger
}

// NewRetention creates a Retention job.
func NewRetention(archiver domain.ReportArchiver, activity domain.ActivityStore, retentionDays int, logger *slog.Logger) *Retention {
	return &Retention{
		archiver:      archiver,
		activity:      activity,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Run executes a single retention pass. Archive first, delete second: a
// failure between the two leaves duplicate cold copies on the next pass, not
// lost rows.
func (r *Retention) Run(ctx context.Context) error {
	if r.retentionDays <= 0 || r.archiver == nil {
		return nil
	}

	cutoff := time.Now().UTC().Add(-time.Duration(r.retentionDays) * 24 * time.Hour)

	archived, err := r.archiver.ArchiveActivity(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("indexer: archive activity before %v: %w", cutoff, err)
	}
	if archived == 0 {
		return nil
	}

	deleted, err := r.activity.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("indexer: delete archived activity: %w", err)
	}

	r.logger.InfoContext(ctx, "indexer: retention pass complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("archived", archived),
		slog.Int64("deleted", deleted),
	)

	return nil
}
