package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

var _ domain.MarketStore = (*MarketStore)(nil)

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const upsertMarketQuery = `
	INSERT INTO markets (
		id, description, category, deadline,
		yes_shares, no_shares, total_funds,
		resolved, outcome, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9, NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		description = EXCLUDED.description,
		category    = EXCLUDED.category,
		deadline    = EXCLUDED.deadline,
		yes_shares  = EXCLUDED.yes_shares,
		no_shares   = EXCLUDED.no_shares,
		total_funds = EXCLUDED.total_funds,
		resolved    = EXCLUDED.resolved,
		outcome     = EXCLUDED.outcome,
		updated_at  = NOW()`

// Upsert inserts or updates a single market snapshot.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	_, err := s.pool.Exec(ctx, upsertMarketQuery,
		m.ID, m.Description, string(m.Category), m.Deadline,
		m.YesShares, m.NoShares, m.TotalFunds,
		m.Resolved, m.Outcome,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple market snapshots in a single batch
// operation.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(upsertMarketQuery,
			m.ID, m.Description, string(m.Category), m.Deadline,
			m.YesShares, m.NoShares, m.TotalFunds,
			m.Resolved, m.Outcome,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

const marketCols = `id, description, category, deadline,
	yes_shares, no_shares, total_funds, resolved, outcome, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var category string
	err := row.Scan(
		&m.ID, &m.Description, &category, &m.Deadline,
		&m.YesShares, &m.NoShares, &m.TotalFunds,
		&m.Resolved, &m.Outcome, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Category = domain.MarketCategory(category)
	return m, nil
}

// GetByID retrieves a market by its object ID.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// listFilter appends the WHERE clauses shared by List and Count.
func listFilter(query string, opts domain.ListOpts, args []any) (string, []any) {
	argIdx := len(args) + 1

	if opts.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, string(opts.Category))
		argIdx++
	}
	if opts.Resolved != nil {
		query += fmt.Sprintf(" AND resolved = $%d", argIdx)
		args = append(args, *opts.Resolved)
		argIdx++
	}
	if opts.Search != "" {
		query += fmt.Sprintf(" AND description ILIKE $%d", argIdx)
		args = append(args, "%"+opts.Search+"%")
	}
	return query, args
}

// List returns market snapshots with pagination and optional category,
// resolution, and description filtering. Open markets sort by soonest
// deadline first.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE 1=1`
	args := []any{}
	query, args = listFilter(query, opts, args)

	query += " ORDER BY resolved ASC, deadline ASC"

	argIdx := len(args) + 1
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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// ListIDs returns the object IDs of every market snapshot.
func (s *MarketStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM markets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list market ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan market id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list market ids rows: %w", err)
	}
	return ids, nil
}

// Count returns the number of market snapshots matching the filter.
func (s *MarketStore) Count(ctx context.Context, opts domain.ListOpts) (int64, error) {
	query := `SELECT COUNT(*) FROM markets WHERE 1=1`
	args := []any{}
	query, args = listFilter(query, opts, args)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}
