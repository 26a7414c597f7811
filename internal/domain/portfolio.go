package domain

// PortfolioEntry is one open position joined against its market's live
// probability. Value is the mark-to-probability valuation in minimal units;
// PnL is only meaningful when HasPnL is true (cost basis recorded).
type PortfolioEntry struct {
	Position    Position `json:"position"`
	MarketID    string   `json:"market_id"`
	Description string   `json:"description"`
	Deadline    int64    `json:"deadline_ms"` // unix ms, for the front end
	Resolved    bool     `json:"resolved"`
	Probability float64  `json:"probability"` // live probability of the position's side
	Value       int64    `json:"value"`
	PnL         int64    `json:"pnl"`
	HasPnL      bool     `json:"has_pnl"`
}

// Portfolio is the derived roll-up of a user's open positions. It is a
// read-time computation, never persisted. All currency fields are minimal
// units; TotalPnLPercent is display-only.
type Portfolio struct {
	Owner            string  `json:"owner"`
	AvailableBalance int64   `json:"available_balance"`
	InPositions      int64   `json:"in_positions"`
	TotalValue       int64   `json:"total_value"` // AvailableBalance + InPositions
	TotalPnL         int64   `json:"total_pnl"`
	TotalPnLPercent  float64 `json:"total_pnl_percent"`
	// PnLComplete is false when at least one open position has no recorded
	// cost basis; TotalPnL then covers only the positions that do.
	PnLComplete bool             `json:"pnl_complete"`
	Entries     []PortfolioEntry `json:"entries"`
}
