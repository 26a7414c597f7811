package pricing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
)

func resolvedMarket(yes, no, funds int64, yesWon bool) domain.Market {
	m := market(yes, no, funds)
	m.Resolved = true
	m.Outcome = &yesWon
	return m
}

func TestMarkToMarket(t *testing.T) {
	m := market(3_000_000, 1_000_000, 5_000_000)

	yesPos := domain.Position{IsYes: true, Shares: 1_000_000}
	assert.Equal(t, int64(750_000), MarkToMarket(yesPos, m))

	noPos := domain.Position{IsYes: false, Shares: 1_000_000}
	assert.Equal(t, int64(250_000), MarkToMarket(noPos, m))
}

func TestMarkToMarket_EmptyMarket(t *testing.T) {
	m := market(0, 0, 0)
	pos := domain.Position{IsYes: true, Shares: 1_000_000}
	assert.Equal(t, int64(500_000), MarkToMarket(pos, m))
}

func TestSettle_SpecExample(t *testing.T) {
	// yes=3M, no=1M, pool=5M, resolved YES. A YES holder with 300k shares
	// receives (300k / 3M) * 5M = 500k.
	m := resolvedMarket(3_000_000, 1_000_000, 5_000_000, true)

	winner := domain.Position{ID: "0xwin", IsYes: true, Shares: 300_000}
	payout, err := Settle(winner, m)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), payout)
}

func TestSettle_LoserGetsZero(t *testing.T) {
	m := resolvedMarket(3_000_000, 1_000_000, 5_000_000, true)

	loser := domain.Position{ID: "0xlose", IsYes: false, Shares: 1_000_000}
	payout, err := Settle(loser, m)
	require.NoError(t, err)
	assert.Equal(t, int64(0), payout)
}

func TestSettle_UnresolvedFails(t *testing.T) {
	m := market(0, 0, 0)
	pos := domain.Position{IsYes: true, Shares: 100}

	_, err := Settle(pos, m)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)
}

func TestSettle_AlreadyClaimedFails(t *testing.T) {
	m := resolvedMarket(1_000_000, 0, 1_000_000, true)
	pos := domain.Position{ID: "0xp", IsYes: true, Shares: 1_000_000, Claimed: true}

	_, err := Settle(pos, m)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
}

func TestSettleAll_ExactPoolConservation(t *testing.T) {
	// Pool not divisible by shares: 10 units split across 3 winners whose
	// floored payouts leave a remainder.
	m := resolvedMarket(3, 7, 10, true)

	positions := []domain.Position{
		{ID: "0xa", Owner: "0xalice", IsYes: true, Shares: 1},
		{ID: "0xb", Owner: "0xbob", IsYes: true, Shares: 1},
		{ID: "0xc", Owner: "0xcarol", IsYes: true, Shares: 1},
		{ID: "0xd", Owner: "0xdan", IsYes: false, Shares: 7}, // loser, excluded
	}

	report, err := SettleAll(positions, m)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, m.TotalFunds, report.TotalPayout)

	var sum int64
	for _, row := range report.Rows {
		sum += row.Payout
	}
	assert.Equal(t, m.TotalFunds, sum)
}

func TestSettleAll_Deterministic(t *testing.T) {
	m := resolvedMarket(3, 0, 10, true)
	positions := []domain.Position{
		{ID: "0xa", Owner: "a", IsYes: true, Shares: 1},
		{ID: "0xb", Owner: "b", IsYes: true, Shares: 1},
		{ID: "0xc", Owner: "c", IsYes: true, Shares: 1},
	}

	first, err := SettleAll(positions, m)
	require.NoError(t, err)

	// Same input in a different order must produce identical payouts.
	shuffled := []domain.Position{positions[2], positions[0], positions[1]}
	second, err := SettleAll(shuffled, m)
	require.NoError(t, err)

	byID := func(r domain.SettlementReport) map[string]int64 {
		out := make(map[string]int64, len(r.Rows))
		for _, row := range r.Rows {
			out[row.PositionID] = row.Payout
		}
		return out
	}
	assert.Equal(t, byID(first), byID(second))
}

func TestSettleAll_ConservationProperty(t *testing.T) {
	// Sweep a grid of awkward pools and winner splits; the invariant must
	// hold for every full winner set.
	for _, funds := range []int64{1, 7, 999_999, 5_000_000, 1_000_000_007} {
		for _, split := range [][]int64{
			{1},
			{1, 1},
			{1, 2, 4},
			{300_000, 2_700_000},
			{1, 1, 1, 1, 1, 1, 1},
		} {
			var winning int64
			positions := make([]domain.Position, 0, len(split))
			for i, s := range split {
				winning += s
				positions = append(positions, domain.Position{
					ID:     fmt.Sprintf("0xp%d", i),
					IsYes:  true,
					Shares: s,
				})
			}
			m := resolvedMarket(winning, 1_000, funds, true)

			report, err := SettleAll(positions, m)
			require.NoError(t, err)
			assert.Equal(t, funds, report.TotalPayout,
				"funds=%d split=%v", funds, split)
		}
	}
}

func TestSettleAll_PartialSetSkipsRemainder(t *testing.T) {
	// Two winners exist on chain but only one is passed in: floored payout
	// only, no forced conservation against the full pool.
	m := resolvedMarket(2, 0, 5, true)
	report, err := SettleAll([]domain.Position{
		{ID: "0xa", IsYes: true, Shares: 1},
	}, m)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, int64(2), report.Rows[0].Payout) // floor(1*5/2)
}

func TestSettleAll_Unresolved(t *testing.T) {
	m := market(1, 1, 2)
	_, err := SettleAll([]domain.Position{{ID: "0xa", IsYes: true, Shares: 1}}, m)
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)
}

func TestSettleAll_EmptyMarketHasNothingToSettle(t *testing.T) {
	// The 0/0 market can never reach here resolved with winners, but the
	// empty winner set must come back clean rather than erroring.
	m := resolvedMarket(0, 0, 0, true)
	report, err := SettleAll(nil, m)
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Equal(t, int64(0), report.TotalPayout)
}
