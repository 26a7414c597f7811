package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
)

type fakeWriter struct {
	paths        []string
	contentTypes []string
	bodies       [][]byte
}

func (w *fakeWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.paths = append(w.paths, path)
	w.contentTypes = append(w.contentTypes, contentType)
	w.bodies = append(w.bodies, body)
	return nil
}

type fakeActivityStore struct {
	events []domain.ActivityEvent
}

func (s *fakeActivityStore) ListBefore(_ context.Context, before time.Time) ([]domain.ActivityEvent, error) {
	var out []domain.ActivityEvent
	for _, e := range s.events {
		if e.Timestamp.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAuditStore struct {
	events []string
}

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.events = append(s.events, event)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestArchiveSettlementReport(t *testing.T) {
	writer := &fakeWriter{}
	audit := &fakeAuditStore{}
	arch := NewArchiver(writer, &fakeActivityStore{}, audit)

	report := domain.SettlementReport{
		MarketID:      "0xmarket1",
		Outcome:       true,
		TotalFunds:    4_000_000,
		WinningShares: 3_000_000,
		TotalPayout:   4_000_000,
		Rows: []domain.SettlementReportRow{
			{PositionID: "0xpos1", Owner: "0xa", Shares: 3_000_000, Payout: 4_000_000},
		},
	}

	require.NoError(t, arch.ArchiveSettlementReport(context.Background(), report))

	require.Len(t, writer.paths, 1)
	assert.Equal(t, "settlements/0xmarket1.json", writer.paths[0])
	assert.Equal(t, "application/json", writer.contentTypes[0])
	assert.Contains(t, string(writer.bodies[0]), `"total_payout": 4000000`)
	assert.Equal(t, []string{"archive.settlement_report"}, audit.events)
}

func TestArchiveActivityWritesJSONL(t *testing.T) {
	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeActivityStore{events: []domain.ActivityEvent{
		{ID: "a:0", Kind: domain.ActivityPositionBought, Timestamp: cutoff.Add(-48 * time.Hour)},
		{ID: "b:0", Kind: domain.ActivityPositionSold, Timestamp: cutoff.Add(-time.Hour)},
		{ID: "c:0", Kind: domain.ActivityWinningsClaimed, Timestamp: cutoff.Add(time.Hour)}, // too new
	}}
	writer := &fakeWriter{}
	audit := &fakeAuditStore{}
	arch := NewArchiver(writer, store, audit)

	count, err := arch.ArchiveActivity(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.Len(t, writer.paths, 1)
	assert.Equal(t, "archive/activity/2026-02.jsonl", writer.paths[0])
	assert.Equal(t, "application/x-ndjson", writer.contentTypes[0])

	lines := strings.Split(strings.TrimSpace(string(writer.bodies[0])), "\n")
	assert.Len(t, lines, 2)
	assert.True(t, bytes.HasPrefix(writer.bodies[0], []byte(`{"id":"a:0"`)))
}

func TestArchiveActivityNothingToArchive(t *testing.T) {
	writer := &fakeWriter{}
	arch := NewArchiver(writer, &fakeActivityStore{}, &fakeAuditStore{})

	count, err := arch.ArchiveActivity(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.paths)
}
