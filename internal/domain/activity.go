package domain

import "time"

// ActivityKind identifies the on-chain event a history row mirrors.
type ActivityKind string

const (
	ActivityMarketCreated   ActivityKind = "market_created"
	ActivityPositionBought  ActivityKind = "position_bought"
	ActivityPositionSold    ActivityKind = "position_sold"
	ActivityWinningsClaimed ActivityKind = "winnings_claimed"
	ActivityMarketResolved  ActivityKind = "market_resolved"
)

// ActivityEvent is a mirrored on-chain event, indexed for the portfolio
// history view. Amount and Shares are minimal units; fields that do not
// apply to a given kind are zero.
type ActivityEvent struct {
	ID        string       `json:"id"` // tx digest + event seq, unique per event
	Kind      ActivityKind `json:"kind"`
	MarketID  string       `json:"market_id"`
	Owner     string       `json:"owner"`
	IsYes     bool         `json:"is_yes"`
	Shares    int64        `json:"shares"`
	Amount    int64        `json:"amount"` // coin moved: cost on buy, proceeds on sell, payout on claim
	Timestamp time.Time    `json:"timestamp"`
}
