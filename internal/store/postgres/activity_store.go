package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

var _ domain.ActivityStore = (*ActivityStore)(nil)

// NewActivityStore creates a new ActivityStore backed by the given connection
// pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// InsertBatch inserts mirrored events, ignoring rows already present. The
// indexer replays overlapping event pages after restarts, so duplicate IDs
// are normal.
func (s *ActivityStore) InsertBatch(ctx context.Context, events []domain.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	const query = `
		INSERT INTO activity_events (id, kind, market_id, owner, is_yes, shares, amount, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query,
			e.ID, string(e.Kind), e.MarketID, e.Owner,
			e.IsYes, e.Shares, e.Amount, e.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert activity batch item %d: %w", i, err)
		}
	}
	return nil
}

const activityCols = `id, kind, market_id, owner, is_yes, shares, amount, ts`

func scanActivity(row pgx.Row) (domain.ActivityEvent, error) {
	var e domain.ActivityEvent
	var kind string
	err := row.Scan(
		&e.ID, &kind, &e.MarketID, &e.Owner,
		&e.IsYes, &e.Shares, &e.Amount, &e.Timestamp,
	)
	if err != nil {
		return domain.ActivityEvent{}, err
	}
	e.Kind = domain.ActivityKind(kind)
	return e, nil
}

// ListByOwner returns the newest-first activity for one address.
func (s *ActivityStore) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	return s.list(ctx, `owner = $1`, owner, opts)
}

// ListByMarket returns the newest-first activity for one market.
func (s *ActivityStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	return s.list(ctx, `market_id = $1`, marketID, opts)
}

func (s *ActivityStore) list(ctx context.Context, where string, arg any, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	query := `SELECT ` + activityCols + ` FROM activity_events WHERE ` + where +
		` ORDER BY ts DESC, id DESC`
	args := []any{arg}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity: %w", err)
	}
	defer rows.Close()

	var events []domain.ActivityEvent
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list activity rows: %w", err)
	}
	return events, nil
}

// ListBefore returns every event older than the given time, oldest first.
// Used to build archive batches before pruning.
func (s *ActivityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityCols+` FROM activity_events WHERE ts < $1 ORDER BY ts ASC, id ASC`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list activity before %s: %w", before, err)
	}
	defer rows.Close()

	var events []domain.ActivityEvent
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list activity before rows: %w", err)
	}
	return events, nil
}

// DeleteBefore prunes events older than the given time and returns the
// number of rows removed.
func (s *ActivityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM activity_events WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete activity before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}
