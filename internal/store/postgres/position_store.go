package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. Besides
// mirroring chain state it owns the claim ledger, which is what makes
// settlement idempotent even when chain reads lag.
type PositionStore struct {
	pool *pgxpool.Pool
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates a new PositionStore backed by the given connection
// pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert inserts or updates a single position snapshot. The claim columns
// are owned by MarkClaimed and never overwritten from chain snapshots.
const upsertPositionQuery = `
	INSERT INTO positions (
		id, market_id, owner, is_yes, shares, cost_basis, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		market_id  = EXCLUDED.market_id,
		owner      = EXCLUDED.owner,
		is_yes     = EXCLUDED.is_yes,
		shares     = EXCLUDED.shares,
		cost_basis = EXCLUDED.cost_basis,
		updated_at = NOW()`

func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	_, err := s.pool.Exec(ctx, upsertPositionQuery,
		p.ID, p.MarketID, p.Owner, p.IsYes, p.Shares, p.CostBasis,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", p.ID, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple position snapshots in a single
// batch operation.
func (s *PositionStore) UpsertBatch(ctx context.Context, positions []domain.Position) error {
	if len(positions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range positions {
		batch.Queue(upsertPositionQuery,
			p.ID, p.MarketID, p.Owner, p.IsYes, p.Shares, p.CostBasis,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range positions {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert position batch item %d: %w", i, err)
		}
	}
	return nil
}

const positionCols = `id, market_id, owner, is_yes, shares, cost_basis, claimed, updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.ID, &p.MarketID, &p.Owner, &p.IsYes,
		&p.Shares, &p.CostBasis, &p.Claimed, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

// GetByID retrieves a position by its object ID.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE id = $1`, id)
	p, err := scanPosition(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// ListByOwner returns every position snapshot held by the given address.
func (s *PositionStore) ListByOwner(ctx context.Context, owner string) ([]domain.Position, error) {
	return s.list(ctx, `owner = $1`, owner)
}

// ListByMarket returns every position snapshot in the given market.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Position, error) {
	return s.list(ctx, `market_id = $1`, marketID)
}

func (s *PositionStore) list(ctx context.Context, where string, arg any) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionCols+` FROM positions WHERE `+where+` ORDER BY id`, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return positions, nil
}

// MarkClaimed records a one-time claim. The conditional update makes the
// operation idempotent under concurrent callers: exactly one transition from
// unclaimed to claimed succeeds per position.
func (s *PositionStore) MarkClaimed(ctx context.Context, id string, payout int64, claimedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE positions
		SET claimed = TRUE, payout = $2, claimed_at = $3, updated_at = NOW()
		WHERE id = $1 AND claimed = FALSE`,
		id, payout, claimedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark position %s claimed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM positions WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check position %s: %w", id, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyClaimed
	}
	return nil
}

// Delete removes a position snapshot, typically after the object was burned
// on chain by a full sell.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s: %w", id, err)
	}
	return nil
}
