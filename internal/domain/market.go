package domain

import "time"

// MarketCategory is the enumerated label a market is created under.
type MarketCategory string

const (
	CategoryCrypto   MarketCategory = "crypto"
	CategorySports   MarketCategory = "sports"
	CategoryPolitics MarketCategory = "politics"
	CategoryEconomy  MarketCategory = "economy"
	CategoryOther    MarketCategory = "other"
)

// Market mirrors the on-chain vsyo::Market object. All currency-bearing
// fields are int64 in the smallest coin unit (6 decimals for USDC).
// TotalFunds and the share counters are tracked independently on chain:
// fees and liquidity seeding mean the pool is not guaranteed to equal the
// sum of shares sold.
type Market struct {
	ID          string         // Sui object ID
	Description string
	Category    MarketCategory
	Deadline    time.Time
	YesShares   int64 // cumulative YES shares sold, minimal units
	NoShares    int64 // cumulative NO shares sold, minimal units
	TotalFunds  int64 // pooled coin, minimal units
	Resolved    bool
	Outcome     *bool // true = YES won; nil while unresolved
	UpdatedAt   time.Time
}

// TotalShares returns the combined YES + NO shares sold.
func (m Market) TotalShares() int64 {
	return m.YesShares + m.NoShares
}

// Expired reports whether the trading deadline has passed at the given time.
func (m Market) Expired(now time.Time) bool {
	return !m.Deadline.IsZero() && now.After(m.Deadline)
}

// SideShares returns the cumulative shares sold for one side.
func (m Market) SideShares(isYes bool) int64 {
	if isYes {
		return m.YesShares
	}
	return m.NoShares
}

// WinningShares returns the cumulative shares of the winning side. The
// second return is false while the market is unresolved.
func (m Market) WinningShares() (int64, bool) {
	if !m.Resolved || m.Outcome == nil {
		return 0, false
	}
	return m.SideShares(*m.Outcome), true
}
