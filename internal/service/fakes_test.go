package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// In-memory store implementations used across the service tests.

type memMarketStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
}

func newMemMarketStore() *memMarketStore {
	return &memMarketStore{markets: make(map[string]domain.Market)}
}

func (s *memMarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	for _, m := range markets {
		if err := s.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *memMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Market
	for _, m := range s.markets {
		if opts.Resolved != nil && m.Resolved != *opts.Resolved {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(m.Description), strings.ToLower(opts.Search)) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memMarketStore) ListIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.markets))
	for id := range s.markets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memMarketStore) Count(ctx context.Context, opts domain.ListOpts) (int64, error) {
	list, err := s.List(ctx, opts)
	return int64(len(list)), err
}

type memPositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{positions: make(map[string]domain.Position)}
}

func (s *memPositionStore) Upsert(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = p
	return nil
}

func (s *memPositionStore) UpsertBatch(ctx context.Context, positions []domain.Position) error {
	for _, p := range positions {
		if err := s.Upsert(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *memPositionStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memPositionStore) ListByOwner(_ context.Context, owner string) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memPositionStore) ListByMarket(_ context.Context, marketID string) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.MarketID == marketID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memPositionStore) MarkClaimed(_ context.Context, id string, payout int64, claimedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Claimed {
		return domain.ErrAlreadyClaimed
	}
	p.Claimed = true
	p.UpdatedAt = claimedAt
	s.positions[id] = p
	return nil
}

func (s *memPositionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, id)
	return nil
}

type memMarketCache struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	sets    int
}

func newMemMarketCache() *memMarketCache {
	return &memMarketCache{markets: make(map[string]domain.Market)}
}

func (c *memMarketCache) Set(_ context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markets[m.ID] = m
	c.sets++
	return nil
}

func (c *memMarketCache) Get(_ context.Context, id string) (domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *memMarketCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.markets, id)
	return nil
}

type memProbCache struct {
	mu    sync.Mutex
	probs map[string]float64
}

func newMemProbCache() *memProbCache {
	return &memProbCache{probs: make(map[string]float64)}
}

func (c *memProbCache) Set(_ context.Context, marketID string, yesProb float64, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probs[marketID] = yesProb
	return nil
}

func (c *memProbCache) Get(_ context.Context, marketID string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.probs[marketID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, time.Time{}, nil
}

func (c *memProbCache) GetMany(_ context.Context, marketIDs []string) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64)
	for _, id := range marketIDs {
		if p, ok := c.probs[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{messages: make(map[string][][]byte)}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[channel] = append(b.messages[channel], payload)
	return nil
}

func (b *memBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *memAudit) Log(_ context.Context, event string, detail map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, domain.AuditEntry{
		ID:        int64(len(a.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return nil
}

func (a *memAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.AuditEntry(nil), a.entries...), nil
}

type memArchiver struct {
	mu       sync.Mutex
	reports  []domain.SettlementReport
	archived int64
}

func (a *memArchiver) ArchiveSettlementReport(_ context.Context, report domain.SettlementReport) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, report)
	return nil
}

func (a *memArchiver) ArchiveActivity(_ context.Context, _ time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.archived, nil
}

type fakeChain struct {
	positions []domain.Position
	balance   int64
	posErr    error
	balErr    error
}

func (c *fakeChain) ListPositions(_ context.Context, _ string) ([]domain.Position, error) {
	if c.posErr != nil {
		return nil, c.posErr
	}
	return c.positions, nil
}

func (c *fakeChain) GetBalance(_ context.Context, _ string) (int64, error) {
	if c.balErr != nil {
		return 0, c.balErr
	}
	return c.balance, nil
}

type memActivityStore struct {
	mu     sync.Mutex
	events map[string]domain.ActivityEvent
}

func newMemActivityStore() *memActivityStore {
	return &memActivityStore{events: make(map[string]domain.ActivityEvent)}
}

func (s *memActivityStore) InsertBatch(_ context.Context, events []domain.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if _, ok := s.events[e.ID]; ok {
			continue
		}
		s.events[e.ID] = e
	}
	return nil
}

func (s *memActivityStore) ListByOwner(_ context.Context, owner string, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	return s.list(func(e domain.ActivityEvent) bool { return e.Owner == owner }, opts), nil
}

func (s *memActivityStore) ListByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.ActivityEvent, error) {
	return s.list(func(e domain.ActivityEvent) bool { return e.MarketID == marketID }, opts), nil
}

func (s *memActivityStore) ListBefore(_ context.Context, before time.Time) ([]domain.ActivityEvent, error) {
	return s.list(func(e domain.ActivityEvent) bool { return e.Timestamp.Before(before) }, domain.ListOpts{Limit: 1 << 30}), nil
}

func (s *memActivityStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.events {
		if e.Timestamp.Before(before) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}

func (s *memActivityStore) list(match func(domain.ActivityEvent) bool, opts domain.ListOpts) []domain.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ActivityEvent
	for _, e := range s.events {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if opts.Offset > 0 && opts.Offset < len(out) {
		out = out[opts.Offset:]
	} else if opts.Offset >= len(out) {
		return nil
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Interface conformance for the fakes.
var (
	_ domain.MarketStore      = (*memMarketStore)(nil)
	_ domain.PositionStore    = (*memPositionStore)(nil)
	_ domain.MarketCache      = (*memMarketCache)(nil)
	_ domain.ProbabilityCache = (*memProbCache)(nil)
	_ domain.SignalBus        = (*memBus)(nil)
	_ domain.AuditStore       = (*memAudit)(nil)
	_ domain.ReportArchiver   = (*memArchiver)(nil)
	_ domain.ActivityStore    = (*memActivityStore)(nil)
	_ ChainReader             = (*fakeChain)(nil)
)
