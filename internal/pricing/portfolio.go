package pricing

import (
	"github.com/vsyolabs/vsyod/internal/domain"
)

// AggregatePortfolio rolls a user's open positions up into portfolio totals.
// Each position is joined against its market snapshot in marketsByID to
// compute the mark-to-probability value; positions whose market is missing
// from the map, or that were already claimed, are skipped.
//
// PnL is only summed over positions with a recorded cost basis. A position
// without one leaves a gap: it still contributes to InPositions, but
// PnLComplete turns false rather than pretending a zero return.
func AggregatePortfolio(
	owner string,
	positions []domain.Position,
	marketsByID map[string]domain.Market,
	availableBalance int64,
) domain.Portfolio {
	pf := domain.Portfolio{
		Owner:            owner,
		AvailableBalance: availableBalance,
		PnLComplete:      true,
	}

	var costBasisSum int64

	for _, p := range positions {
		if p.Claimed || p.Shares <= 0 {
			continue
		}
		m, ok := marketsByID[p.MarketID]
		if !ok {
			continue
		}

		entry := domain.PortfolioEntry{
			Position:    p,
			MarketID:    m.ID,
			Description: m.Description,
			Deadline:    m.Deadline.UnixMilli(),
			Resolved:    m.Resolved,
			Probability: Probability(m, p.IsYes),
			Value:       MarkToMarket(p, m),
		}

		if p.CostBasis != nil {
			entry.HasPnL = true
			entry.PnL = entry.Value - *p.CostBasis
			pf.TotalPnL += entry.PnL
			costBasisSum += *p.CostBasis
		} else {
			pf.PnLComplete = false
		}

		pf.InPositions += entry.Value
		pf.Entries = append(pf.Entries, entry)
	}

	pf.TotalValue = pf.AvailableBalance + pf.InPositions
	if costBasisSum > 0 {
		pf.TotalPnLPercent = float64(pf.TotalPnL) / float64(costBasisSum) * 100
	}
	return pf
}
