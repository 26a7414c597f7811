package sui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// clockObject is the shared Clock every deadline-checked entry function
// takes as its last argument.
const clockObject = "0x6"

// MoveCallIntent is an unsigned programmable transaction the caller's
// wallet signs and submits. The server never holds keys, so intents stop
// at the argument level.
type MoveCallIntent struct {
	ID            string    `json:"id"`
	Target        string    `json:"target"` // {pkg}::{module}::{function}
	TypeArguments []string  `json:"typeArguments,omitempty"`
	Arguments     []string  `json:"arguments"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IntentBuilder assembles move-call intents against one deployment of the
// market package. Intents are validated against the same rules the Move
// module enforces so a wallet never signs a call that can only abort.
type IntentBuilder struct {
	packageID string
	module    string
	coinType  string
}

func NewIntentBuilder(packageID, module, coinType string) *IntentBuilder {
	return &IntentBuilder{packageID: packageID, module: module, coinType: coinType}
}

func (b *IntentBuilder) intent(function string, args ...string) MoveCallIntent {
	return MoveCallIntent{
		ID:            uuid.NewString(),
		Target:        fmt.Sprintf("%s::%s::%s", b.packageID, b.module, function),
		TypeArguments: []string{b.coinType},
		Arguments:     args,
		CreatedAt:     time.Now().UTC(),
	}
}

// CreateMarket builds the intent to open a new market. The deadline must be
// in the future.
func (b *IntentBuilder) CreateMarket(description string, category domain.MarketCategory, deadline time.Time) (MoveCallIntent, error) {
	if description == "" {
		return MoveCallIntent{}, fmt.Errorf("sui: create market: empty description: %w", domain.ErrInvalidInput)
	}
	if !deadline.After(time.Now()) {
		return MoveCallIntent{}, fmt.Errorf("sui: create market: deadline in the past: %w", domain.ErrInvalidInput)
	}
	return b.intent("create_market",
		description,
		string(category),
		formatInt64(deadline.UnixMilli()),
		clockObject,
	), nil
}

// BuyShares builds the intent to buy into one side of an open market.
// amount is in coin minimal units.
func (b *IntentBuilder) BuyShares(m domain.Market, isYes bool, amount int64) (MoveCallIntent, error) {
	if amount <= 0 {
		return MoveCallIntent{}, fmt.Errorf("sui: buy: non-positive amount %d: %w", amount, domain.ErrInvalidInput)
	}
	if m.Resolved {
		return MoveCallIntent{}, fmt.Errorf("sui: buy: market %s: %w", m.ID, domain.ErrMarketResolved)
	}
	if m.Expired(time.Now()) {
		return MoveCallIntent{}, fmt.Errorf("sui: buy: market %s past deadline: %w", m.ID, domain.ErrMarketResolved)
	}
	fn := "buy_no"
	if isYes {
		fn = "buy_yes"
	}
	return b.intent(fn, m.ID, formatInt64(amount), clockObject), nil
}

// SellShares builds the intent to sell part of a position back to the pool.
// Selling the full balance burns the position object on chain.
func (b *IntentBuilder) SellShares(p domain.Position, m domain.Market, shares int64) (MoveCallIntent, error) {
	if shares <= 0 {
		return MoveCallIntent{}, fmt.Errorf("sui: sell: non-positive shares %d: %w", shares, domain.ErrInvalidInput)
	}
	if shares > p.Shares {
		return MoveCallIntent{}, fmt.Errorf("sui: sell: %d of %d shares: %w", shares, p.Shares, domain.ErrInsufficientShares)
	}
	if m.Resolved {
		return MoveCallIntent{}, fmt.Errorf("sui: sell: market %s: %w", m.ID, domain.ErrMarketResolved)
	}
	if p.MarketID != m.ID {
		return MoveCallIntent{}, fmt.Errorf("sui: sell: position %s belongs to market %s, not %s: %w",
			p.ID, p.MarketID, m.ID, domain.ErrInvalidInput)
	}
	if shares == p.Shares {
		return b.intent("sell_position", m.ID, p.ID, clockObject), nil
	}
	return b.intent("sell_partial", m.ID, p.ID, formatInt64(shares), clockObject), nil
}

// ClaimWinnings builds the intent to redeem a winning position after
// resolution.
func (b *IntentBuilder) ClaimWinnings(p domain.Position, m domain.Market) (MoveCallIntent, error) {
	if !m.Resolved || m.Outcome == nil {
		return MoveCallIntent{}, fmt.Errorf("sui: claim: market %s: %w", m.ID, domain.ErrMarketNotResolved)
	}
	if p.Claimed {
		return MoveCallIntent{}, fmt.Errorf("sui: claim: position %s: %w", p.ID, domain.ErrAlreadyClaimed)
	}
	if p.MarketID != m.ID {
		return MoveCallIntent{}, fmt.Errorf("sui: claim: position %s belongs to market %s, not %s: %w",
			p.ID, p.MarketID, m.ID, domain.ErrInvalidInput)
	}
	if !p.WonIn(m) {
		return MoveCallIntent{}, fmt.Errorf("sui: claim: position %s is on the losing side: %w", p.ID, domain.ErrInvalidInput)
	}
	return b.intent("claim_winnings", m.ID, p.ID), nil
}

// ResolveMarket builds the intent to record the outcome of a market whose
// deadline has passed.
func (b *IntentBuilder) ResolveMarket(m domain.Market, outcome bool) (MoveCallIntent, error) {
	if m.Resolved {
		return MoveCallIntent{}, fmt.Errorf("sui: resolve: market %s: %w", m.ID, domain.ErrMarketResolved)
	}
	if !m.Expired(time.Now()) {
		return MoveCallIntent{}, fmt.Errorf("sui: resolve: market %s: %w", m.ID, domain.ErrDeadlineNotReached)
	}
	return b.intent("resolve_market", m.ID, formatBool(outcome), clockObject), nil
}

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

func formatBool(v bool) string { return strconv.FormatBool(v) }
