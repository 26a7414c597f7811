package sui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// objectDataOptions mirrors the RPC's ObjectDataOptions.
type objectDataOptions struct {
	ShowContent bool `json:"showContent"`
}

// objectFilter narrows getOwnedObjects to one Move struct type.
type objectFilter struct {
	StructType string `json:"StructType"`
}

// ownedObjectsQuery is the query argument of suix_getOwnedObjects.
type ownedObjectsQuery struct {
	Filter  *objectFilter     `json:"filter,omitempty"`
	Options objectDataOptions `json:"options"`
}

// pageResponse is the cursor-paged envelope shared by the suix_* list calls.
// Cursors are kept opaque: getOwnedObjects uses plain object-ID strings while
// queryEvents uses {txDigest, eventSeq} objects.
type pageResponse[T any] struct {
	Data        []T             `json:"data"`
	NextCursor  json.RawMessage `json:"nextCursor"`
	HasNextPage bool            `json:"hasNextPage"`
}

// objectResponse wraps one object returned by sui_getObject and friends.
type objectResponse struct {
	Data *objectData `json:"data"`
}

// objectData is the object-level payload with parsed Move content.
type objectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Content  *objectContent `json:"content"`
}

// objectContent is the parsed Move struct of an object.
type objectContent struct {
	DataType string          `json:"dataType"` // "moveObject"
	Type     string          `json:"type"`
	Fields   json.RawMessage `json:"fields"`
}

// optionBool is how the Move Option<bool> on Market.outcome arrives over
// RPC: null when absent, otherwise a wrapper struct holding the value.
type optionBool struct {
	Fields struct {
		Val bool `json:"val"`
	} `json:"fields"`
}

// marketFields are the Move fields of a vsyo::Market. Numeric u64 fields
// arrive as decimal strings.
type marketFields struct {
	Description   string      `json:"description"`
	MarketType    string      `json:"market_type"`
	Deadline      string      `json:"deadline"` // unix ms
	YesSharesSold string      `json:"yes_shares_sold"`
	NoSharesSold  string      `json:"no_shares_sold"`
	TotalFunds    string      `json:"total_funds"`
	Resolved      bool        `json:"resolved"`
	Outcome       *optionBool `json:"outcome"`
}

// positionFields are the Move fields of a vsyo::Position.
type positionFields struct {
	MarketID  string  `json:"market_id"`
	IsYes     bool    `json:"is_yes"`
	Shares    string  `json:"shares"`
	CostBasis *string `json:"cost_basis"`
}

// balanceResponse is the result of suix_getBalance.
type balanceResponse struct {
	CoinType     string `json:"coinType"`
	TotalBalance string `json:"totalBalance"`
}

// toMarket decodes a market object's Move content into the domain type.
func (d *objectData) toMarket() (domain.Market, error) {
	if d == nil || d.Content == nil || d.Content.DataType != "moveObject" {
		return domain.Market{}, fmt.Errorf("object %s has no move content", objectID(d))
	}

	var f marketFields
	if err := json.Unmarshal(d.Content.Fields, &f); err != nil {
		return domain.Market{}, err
	}

	deadline, err := parseInt64(f.Deadline)
	if err != nil {
		return domain.Market{}, fmt.Errorf("deadline %q: %w", f.Deadline, err)
	}
	yes, err := parseInt64(f.YesSharesSold)
	if err != nil {
		return domain.Market{}, fmt.Errorf("yes_shares_sold %q: %w", f.YesSharesSold, err)
	}
	no, err := parseInt64(f.NoSharesSold)
	if err != nil {
		return domain.Market{}, fmt.Errorf("no_shares_sold %q: %w", f.NoSharesSold, err)
	}
	funds, err := parseInt64(f.TotalFunds)
	if err != nil {
		return domain.Market{}, fmt.Errorf("total_funds %q: %w", f.TotalFunds, err)
	}

	m := domain.Market{
		ID:          d.ObjectID,
		Description: f.Description,
		Category:    parseCategory(f.MarketType),
		Deadline:    time.UnixMilli(deadline).UTC(),
		YesShares:   yes,
		NoShares:    no,
		TotalFunds:  funds,
		Resolved:    f.Resolved,
		UpdatedAt:   time.Now().UTC(),
	}
	if f.Outcome != nil {
		val := f.Outcome.Fields.Val
		m.Outcome = &val
	}
	return m, nil
}

// toPosition decodes a position object's Move content into the domain type.
func (d *objectData) toPosition(owner string) (domain.Position, error) {
	if d == nil || d.Content == nil || d.Content.DataType != "moveObject" {
		return domain.Position{}, fmt.Errorf("object %s has no move content", objectID(d))
	}

	var f positionFields
	if err := json.Unmarshal(d.Content.Fields, &f); err != nil {
		return domain.Position{}, err
	}

	shares, err := parseInt64(f.Shares)
	if err != nil {
		return domain.Position{}, fmt.Errorf("shares %q: %w", f.Shares, err)
	}

	p := domain.Position{
		ID:        d.ObjectID,
		MarketID:  f.MarketID,
		Owner:     owner,
		IsYes:     f.IsYes,
		Shares:    shares,
		UpdatedAt: time.Now().UTC(),
	}
	if f.CostBasis != nil {
		basis, err := parseInt64(*f.CostBasis)
		if err != nil {
			return domain.Position{}, fmt.Errorf("cost_basis %q: %w", *f.CostBasis, err)
		}
		p.CostBasis = &basis
	}
	return p, nil
}

// eventID identifies one event within a transaction.
type eventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// eventEnvelope is one entry from suix_queryEvents.
type eventEnvelope struct {
	ID          eventID         `json:"id"`
	Type        string          `json:"type"` // {pkg}::vsyo::PositionBought etc.
	Sender      string          `json:"sender"`
	ParsedJSON  json.RawMessage `json:"parsedJson"`
	TimestampMs string          `json:"timestampMs"`
}

// moduleEventFields covers the union of the vsyo module's event payloads;
// absent fields decode to zero values.
type moduleEventFields struct {
	MarketID string `json:"market_id"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
	Claimer  string `json:"claimer"`
	Creator  string `json:"creator"`
	IsYes    bool   `json:"is_yes"`
	Shares   string `json:"shares"`
	Cost     string `json:"cost"`
	Proceeds string `json:"proceeds"`
	Payout   string `json:"payout"`
	Outcome  bool   `json:"outcome"`
}

// eventKinds maps the Move event struct name to the activity kind it
// mirrors. Unlisted event types are skipped by the indexer.
var eventKinds = map[string]domain.ActivityKind{
	"MarketCreated":   domain.ActivityMarketCreated,
	"PositionBought":  domain.ActivityPositionBought,
	"PositionSold":    domain.ActivityPositionSold,
	"WinningsClaimed": domain.ActivityWinningsClaimed,
	"MarketResolved":  domain.ActivityMarketResolved,
}

// toActivityEvent converts an envelope to a domain event. The second return
// is false for event types the indexer does not mirror.
func (e eventEnvelope) toActivityEvent() (domain.ActivityEvent, bool, error) {
	name := e.Type
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	kind, ok := eventKinds[name]
	if !ok {
		return domain.ActivityEvent{}, false, nil
	}

	var f moduleEventFields
	if len(e.ParsedJSON) > 0 {
		if err := json.Unmarshal(e.ParsedJSON, &f); err != nil {
			return domain.ActivityEvent{}, false, err
		}
	}

	tsMs, err := parseInt64(e.TimestampMs)
	if err != nil {
		return domain.ActivityEvent{}, false, fmt.Errorf("timestampMs %q: %w", e.TimestampMs, err)
	}

	evt := domain.ActivityEvent{
		ID:        e.ID.TxDigest + ":" + e.ID.EventSeq,
		Kind:      kind,
		MarketID:  f.MarketID,
		Owner:     e.Sender,
		IsYes:     f.IsYes,
		Timestamp: time.UnixMilli(tsMs).UTC(),
	}
	if f.Shares != "" {
		if evt.Shares, err = parseInt64(f.Shares); err != nil {
			return domain.ActivityEvent{}, false, fmt.Errorf("shares %q: %w", f.Shares, err)
		}
	}
	for _, amount := range []string{f.Cost, f.Proceeds, f.Payout} {
		if amount == "" {
			continue
		}
		if evt.Amount, err = parseInt64(amount); err != nil {
			return domain.ActivityEvent{}, false, fmt.Errorf("amount %q: %w", amount, err)
		}
		break
	}
	return evt, true, nil
}

func objectID(d *objectData) string {
	if d == nil {
		return "<nil>"
	}
	return d.ObjectID
}

// parseInt64 decodes the decimal strings Sui uses for u64 fields. Values
// above int64 range are rejected rather than wrapped.
func parseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %d", v)
	}
	return v, nil
}

// parseCategory maps the free-form on-chain market_type label to the known
// category set, defaulting to "other".
func parseCategory(s string) domain.MarketCategory {
	switch domain.MarketCategory(strings.ToLower(strings.TrimSpace(s))) {
	case domain.CategoryCrypto:
		return domain.CategoryCrypto
	case domain.CategorySports:
		return domain.CategorySports
	case domain.CategoryPolitics:
		return domain.CategoryPolitics
	case domain.CategoryEconomy:
		return domain.CategoryEconomy
	default:
		return domain.CategoryOther
	}
}
