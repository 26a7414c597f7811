package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// MarkToMarket returns the non-binding valuation of an open position at the
// market's live probability: floor(shares × probability(side)). It is used
// for portfolio display only and never feeds a payout.
func MarkToMarket(p domain.Position, m domain.Market) int64 {
	total := m.TotalShares()
	if total == 0 {
		return p.Shares / 2
	}
	return mulDiv(p.Shares, m.SideShares(p.IsYes), total)
}

// Settle computes the payout of a single position in a resolved market
// under the proportional pool split:
//
//	payout = floor(shares × totalFunds / winningShares)
//
// A losing position settles to exactly 0. Calling Settle against an
// unresolved snapshot fails with ErrMarketNotResolved — resolution must be
// observed before any payout is computed. The flooring remainder across all
// winners is handled by SettleAll; a single-position settle is a lower
// bound within one minimal unit of its SettleAll row.
func Settle(p domain.Position, m domain.Market) (int64, error) {
	if !m.Resolved || m.Outcome == nil {
		return 0, domain.ErrMarketNotResolved
	}
	if p.Claimed {
		return 0, domain.ErrAlreadyClaimed
	}
	if !p.WonIn(m) {
		return 0, nil
	}

	winning, _ := m.WinningShares()
	if winning <= 0 {
		// A resolved market with winners but zero winning-side shares
		// cannot exist on chain; the holder's own shares are part of the
		// count. Defend against a corrupt snapshot anyway.
		return 0, domain.ErrPoolConservation
	}
	return mulDiv(p.Shares, m.TotalFunds, winning), nil
}

// SettleAll computes the full winner distribution of a resolved market.
// Floored payouts leave a remainder of up to len(winners)-1 minimal units;
// the remainder is assigned by largest fractional part (ties broken by
// position ID) so that the distribution is deterministic and
//
//	sum(payouts) == market.TotalFunds
//
// holds exactly. The conservation invariant is re-checked before returning
// and a violation surfaces as ErrPoolConservation.
func SettleAll(positions []domain.Position, m domain.Market) (domain.SettlementReport, error) {
	if !m.Resolved || m.Outcome == nil {
		return domain.SettlementReport{}, domain.ErrMarketNotResolved
	}

	winning, _ := m.WinningShares()

	report := domain.SettlementReport{
		MarketID:      m.ID,
		Outcome:       *m.Outcome,
		TotalFunds:    m.TotalFunds,
		WinningShares: winning,
	}

	type share struct {
		idx  int
		frac decimal.Decimal
	}
	var fracs []share
	var coveredShares int64

	funds := decimal.NewFromInt(m.TotalFunds)
	winDec := decimal.NewFromInt(winning)

	for _, p := range positions {
		if !p.WonIn(m) || p.Shares <= 0 {
			continue
		}
		if winning <= 0 {
			return domain.SettlementReport{}, domain.ErrPoolConservation
		}

		q, r := decimal.NewFromInt(p.Shares).Mul(funds).QuoRem(winDec, 0)
		row := domain.SettlementReportRow{
			PositionID: p.ID,
			Owner:      p.Owner,
			Shares:     p.Shares,
			Payout:     q.IntPart(),
		}
		fracs = append(fracs, share{idx: len(report.Rows), frac: r})
		report.Rows = append(report.Rows, row)
		report.TotalPayout += row.Payout
		coveredShares += p.Shares
	}

	if len(report.Rows) == 0 {
		// No winning positions in the input set; nothing to conserve.
		return report, nil
	}
	if coveredShares != winning {
		// Partial winner set (a per-owner preview): floored payouts only,
		// no remainder to distribute and no conservation to enforce.
		return report, nil
	}

	// Full winner set: distribute the flooring remainder by largest
	// fractional part, ties broken by position ID, so the result is
	// deterministic and drains the pool exactly.
	remainder := m.TotalFunds - report.TotalPayout
	if remainder < 0 || remainder >= int64(len(report.Rows)) {
		return domain.SettlementReport{}, domain.ErrPoolConservation
	}

	sort.Slice(fracs, func(i, j int) bool {
		if !fracs[i].frac.Equal(fracs[j].frac) {
			return fracs[i].frac.GreaterThan(fracs[j].frac)
		}
		return report.Rows[fracs[i].idx].PositionID < report.Rows[fracs[j].idx].PositionID
	})
	for i := int64(0); i < remainder; i++ {
		row := &report.Rows[fracs[i].idx]
		row.Payout++
		report.TotalPayout++
	}

	if report.TotalPayout != m.TotalFunds {
		return domain.SettlementReport{}, domain.ErrPoolConservation
	}
	return report, nil
}
