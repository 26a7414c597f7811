// Package pricing implements the numeric model behind the vsyo markets: live
// probabilities derived from cumulative share sales, trade projections, and
// the proportional-pool settlement of resolved markets.
//
// Every function here is a pure computation over an immutable Market /
// Position snapshot — no I/O, no shared state — so callers may invoke them
// concurrently on independent snapshots. Currency and shares are int64 in
// minimal coin units throughout; float64 appears only in display-facing
// probabilities and percentages.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// DecimalFactor is the minimal-unit scale of the market coin (USDC, 6
// decimals). At the unit price convention 1 share == 1 minimal unit.
const DecimalFactor = 1_000_000

// Probability returns the live probability of one side of a market, derived
// from cumulative share sales. A market with no trade history is priced at
// the uniform prior 0.5. Under the $1-payout convention the returned value
// is also the side's price.
func Probability(m domain.Market, isYes bool) float64 {
	total := m.TotalShares()
	if total == 0 {
		return 0.5
	}
	return float64(m.SideShares(isYes)) / float64(total)
}

// DisplayPercents returns the whole-point percentages shown for a market.
// The YES side is rounded to the nearest point and NO is defined as its
// complement rather than rounded independently, so the pair always sums to
// exactly 100.
func DisplayPercents(m domain.Market) (yesPct, noPct int) {
	yesPct = int(math.Round(Probability(m, true) * 100))
	return yesPct, 100 - yesPct
}

// TradeProjection is the client-side estimate shown before a buy is
// submitted. It deliberately ignores the price impact of the purchase
// itself (no bonding-curve quote): estimated shares are priced at the
// current unit convention, while the potential profit applies the
// proportional pool split to the post-trade pool and share counts.
type TradeProjection struct {
	Side            bool  // true = YES
	Cost            int64 // minimal units debited on submission
	EstimatedShares int64
	// ProjectedPayout is the payout the buyer would receive if their side
	// wins and no further trades occur; PotentialProfit = payout - cost.
	ProjectedPayout int64
	PotentialProfit int64
}

// ProjectTrade estimates the outcome of buying `amount` whole coin units
// (fractional input allowed) of one side of an unresolved market.
// It rejects non-positive amounts and resolved markets; callers must treat
// a rejection as a refused quote, never clamp the input.
func ProjectTrade(m domain.Market, isYes bool, amount decimal.Decimal) (TradeProjection, error) {
	if m.Resolved {
		return TradeProjection{}, domain.ErrMarketResolved
	}
	if !amount.IsPositive() {
		return TradeProjection{}, domain.ErrInvalidInput
	}

	shares := amount.Mul(decimal.NewFromInt(DecimalFactor)).Floor()
	if !shares.IsPositive() {
		// Sub-minimal-unit amount, e.g. 0.0000001.
		return TradeProjection{}, domain.ErrInvalidInput
	}
	est := shares.IntPart()
	cost := est // 1 share = 1 minimal unit at unit price

	// Post-trade state: the pool grows by the cost, the chosen side's
	// share count by the estimated shares.
	pool := m.TotalFunds + cost
	winning := m.SideShares(isYes) + est

	payout := mulDiv(est, pool, winning)

	return TradeProjection{
		Side:            isYes,
		Cost:            cost,
		EstimatedShares: est,
		ProjectedPayout: payout,
		PotentialProfit: payout - cost,
	}, nil
}

// ProjectSell estimates the proceeds of selling part or all of a position at
// the current probability, mirroring the buy-side approximation. Selling
// more shares than held, a non-positive quantity, or selling into a
// resolved market are all rejected.
func ProjectSell(p domain.Position, m domain.Market, shares int64) (int64, error) {
	if m.Resolved {
		return 0, domain.ErrMarketResolved
	}
	if shares <= 0 {
		return 0, domain.ErrInvalidInput
	}
	if shares > p.Shares {
		return 0, domain.ErrInsufficientShares
	}

	total := m.TotalShares()
	if total == 0 {
		// Uniform prior: every share marks at half a unit.
		return shares / 2, nil
	}
	return mulDiv(shares, m.SideShares(p.IsYes), total), nil
}

// mulDiv computes floor(a*b/c) exactly, without int64 overflow on the
// intermediate product. All arguments must be non-negative and c positive.
// QuoRem with scale 0 is an exact integer division; rounding via Div would
// not be safe to floor afterwards.
func mulDiv(a, b, c int64) int64 {
	q, _ := decimal.NewFromInt(a).
		Mul(decimal.NewFromInt(b)).
		QuoRem(decimal.NewFromInt(c), 0)
	return q.IntPart()
}
