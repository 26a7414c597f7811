package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// CursorStore implements domain.CursorStore using PostgreSQL.
type CursorStore struct {
	pool *pgxpool.Pool
}

var _ domain.CursorStore = (*CursorStore)(nil)

// NewCursorStore creates a new CursorStore backed by the given connection
// pool.
func NewCursorStore(pool *pgxpool.Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Get returns the stored cursor for the given name, or the empty string when
// no cursor was stored yet.
func (s *CursorStore) Get(ctx context.Context, name string) (string, error) {
	var cursor string
	err := s.pool.QueryRow(ctx,
		`SELECT cursor FROM cursors WHERE name = $1`, name).Scan(&cursor)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("postgres: get cursor %s: %w", name, err)
	}
	return cursor, nil
}

// Set stores or replaces the cursor for the given name.
func (s *CursorStore) Set(ctx context.Context, name, cursor string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cursors (name, cursor, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			updated_at = NOW()`,
		name, cursor,
	)
	if err != nil {
		return fmt.Errorf("postgres: set cursor %s: %w", name, err)
	}
	return nil
}
