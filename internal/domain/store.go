package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit    int
	Offset   int
	Category MarketCategory // empty = all categories
	Search   string         // substring match on the description
	Resolved *bool          // nil = both resolved and open
}

// MarketStore persists market snapshots mirrored from the chain.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	UpsertBatch(ctx context.Context, markets []Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	ListIDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context, opts ListOpts) (int64, error)
}

// PositionStore persists position snapshots mirrored from the chain and the
// claim ledger that makes settlement idempotent.
type PositionStore interface {
	Upsert(ctx context.Context, pos Position) error
	UpsertBatch(ctx context.Context, positions []Position) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListByOwner(ctx context.Context, owner string) ([]Position, error)
	ListByMarket(ctx context.Context, marketID string) ([]Position, error)
	// MarkClaimed records a one-time claim. It returns ErrAlreadyClaimed
	// when the position was claimed before, and ErrNotFound when the
	// position does not exist.
	MarkClaimed(ctx context.Context, id string, payout int64, claimedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ActivityStore persists mirrored on-chain events.
type ActivityStore interface {
	InsertBatch(ctx context.Context, events []ActivityEvent) error
	ListByOwner(ctx context.Context, owner string, opts ListOpts) ([]ActivityEvent, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]ActivityEvent, error)
	ListBefore(ctx context.Context, before time.Time) ([]ActivityEvent, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// CursorStore persists the indexer's event cursor so restarts resume where
// the previous run stopped.
type CursorStore interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, cursor string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
