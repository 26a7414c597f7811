package domain

import "time"

// Position mirrors the on-chain vsyo::Position object: a user's claim on
// one side of a binary market. Shares and CostBasis are minimal coin units.
// CostBasis is optional — older positions predate the contract recording it.
type Position struct {
	ID        string    `json:"id"` // Sui object ID
	MarketID  string    `json:"market_id"`
	Owner     string    `json:"owner"` // Sui address
	IsYes     bool      `json:"is_yes"`
	Shares    int64     `json:"shares"`
	CostBasis *int64    `json:"cost_basis,omitempty"`
	Claimed   bool      `json:"claimed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WonIn reports whether this position is on the winning side of the given
// resolved market. Always false while the market is unresolved.
func (p Position) WonIn(m Market) bool {
	return m.Resolved && m.Outcome != nil && *m.Outcome == p.IsYes
}
