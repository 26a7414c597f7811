package indexer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/platform/sui"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChainEvents serves pre-built event pages keyed by cursor.
type fakeChainEvents struct {
	pages map[string]sui.EventPage
}

func (f *fakeChainEvents) QueryEvents(_ context.Context, cursor string, _ int) (sui.EventPage, error) {
	page, ok := f.pages[cursor]
	if !ok {
		return sui.EventPage{}, nil
	}
	return page, nil
}

type memCursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: make(map[string]string)}
}

func (s *memCursorStore) Get(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[name], nil
}

func (s *memCursorStore) Set(_ context.Context, name, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[name] = cursor
	return nil
}

type recordingActivity struct {
	mu     sync.Mutex
	events []domain.ActivityEvent
}

func (r *recordingActivity) Record(_ context.Context, events []domain.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func boughtEvent(id, marketID string) domain.ActivityEvent {
	return domain.ActivityEvent{
		ID:        id,
		Kind:      domain.ActivityPositionBought,
		MarketID:  marketID,
		Owner:     "0xa",
		Shares:    10,
		Amount:    10,
		Timestamp: time.Now(),
	}
}

func TestEventPoller_DrainsAllPages(t *testing.T) {
	chain := &fakeChainEvents{pages: map[string]sui.EventPage{
		"": {
			Events:     []domain.ActivityEvent{boughtEvent("tx1:0", "0xm1"), boughtEvent("tx2:0", "0xm1")},
			NextCursor: "c1",
			HasNext:    true,
		},
		"c1": {
			Events:     []domain.ActivityEvent{boughtEvent("tx3:0", "0xm2")},
			NextCursor: "c2",
			HasNext:    false,
		},
	}}
	cursors := newMemCursorStore()
	activity := &recordingActivity{}

	poller := NewEventPoller(chain, cursors, activity, 100, testLogger())

	result, err := poller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Events)
	assert.ElementsMatch(t, []string{"0xm1", "0xm2"}, result.TouchedMarkets)
	assert.Empty(t, result.ResolvedMarkets)
	assert.Len(t, activity.events, 3)

	// Cursor persisted at the final page.
	saved, err := cursors.Get(context.Background(), eventCursorName)
	require.NoError(t, err)
	assert.Equal(t, "c2", saved)
}

func TestEventPoller_ResumesFromSavedCursor(t *testing.T) {
	chain := &fakeChainEvents{pages: map[string]sui.EventPage{
		"": {
			Events:  []domain.ActivityEvent{boughtEvent("old:0", "0xold")},
			HasNext: false,
		},
		"c1": {
			Events:     []domain.ActivityEvent{boughtEvent("tx9:0", "0xm9")},
			NextCursor: "c2",
			HasNext:    false,
		},
	}}
	cursors := newMemCursorStore()
	require.NoError(t, cursors.Set(context.Background(), eventCursorName, "c1"))
	activity := &recordingActivity{}

	poller := NewEventPoller(chain, cursors, activity, 100, testLogger())

	result, err := poller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Events)
	require.Len(t, activity.events, 1)
	assert.Equal(t, "tx9:0", activity.events[0].ID)
}

func TestEventPoller_FlagsResolutionEvents(t *testing.T) {
	resolvedEvt := boughtEvent("tx1:0", "0xm1")
	resolvedEvt.Kind = domain.ActivityMarketResolved

	chain := &fakeChainEvents{pages: map[string]sui.EventPage{
		"": {Events: []domain.ActivityEvent{resolvedEvt}, NextCursor: "c1", HasNext: false},
	}}
	poller := NewEventPoller(chain, newMemCursorStore(), &recordingActivity{}, 100, testLogger())

	result, err := poller.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xm1"}, result.ResolvedMarkets)
}
