// Package sui is the read-only JSON-RPC client for the vsyo Move package on
// Sui. It fetches market and position objects, coin balances, and module
// events, and builds unsigned move-call intents for the wallet front end.
// Signing and submission never happen here.
package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// Client talks to a Sui fullnode over JSON-RPC 2.0.
type Client struct {
	rpcURL     string
	packageID  string
	module     string
	coinType   string
	httpClient *http.Client
	nextID     atomic.Int64
}

// ClientConfig holds the chain parameters from the [chain] config section.
type ClientConfig struct {
	RPCURL    string
	PackageID string
	Module    string
	CoinType  string
}

// NewClient creates a Client for the given fullnode and package.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		rpcURL:    cfg.RPCURL,
		packageID: cfg.PackageID,
		module:    cfg.Module,
		coinType:  cfg.CoinType,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// MarketType returns the fully qualified Move type of a market object.
func (c *Client) MarketType() string {
	return fmt.Sprintf("%s::%s::Market", c.packageID, c.module)
}

// PositionType returns the fully qualified Move type of a position object.
func (c *Client) PositionType() string {
	return fmt.Sprintf("%s::%s::Position", c.packageID, c.module)
}

// GetMarket fetches a single market object by its object ID.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	var resp objectResponse
	params := []any{id, objectDataOptions{ShowContent: true}}
	if err := c.call(ctx, "sui_getObject", params, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("sui: get market %s: %w", id, err)
	}
	market, err := resp.Data.toMarket()
	if err != nil {
		return domain.Market{}, fmt.Errorf("sui: decode market %s: %w", id, err)
	}
	return market, nil
}

// MultiGetMarkets fetches up to 50 market objects in one RPC round trip,
// the fullnode's multiGetObjects batch limit. Missing or deleted objects
// are silently omitted from the result.
func (c *Client) MultiGetMarkets(ctx context.Context, ids []string) ([]domain.Market, error) {
	const batchLimit = 50

	markets := make([]domain.Market, 0, len(ids))
	for start := 0; start < len(ids); start += batchLimit {
		end := min(start+batchLimit, len(ids))

		var resp []objectResponse
		params := []any{ids[start:end], objectDataOptions{ShowContent: true}}
		if err := c.call(ctx, "sui_multiGetObjects", params, &resp); err != nil {
			return nil, fmt.Errorf("sui: multi get markets: %w", err)
		}

		for _, r := range resp {
			if r.Data == nil {
				continue
			}
			market, err := r.Data.toMarket()
			if err != nil {
				return nil, fmt.Errorf("sui: decode market %s: %w", r.Data.ObjectID, err)
			}
			markets = append(markets, market)
		}
	}
	return markets, nil
}

// ListPositions returns all position objects owned by the given address,
// following the getOwnedObjects cursor until exhausted.
func (c *Client) ListPositions(ctx context.Context, owner string) ([]domain.Position, error) {
	var positions []domain.Position
	var cursor json.RawMessage

	for {
		query := ownedObjectsQuery{
			Filter:  &objectFilter{StructType: c.PositionType()},
			Options: objectDataOptions{ShowContent: true},
		}

		var resp pageResponse[objectResponse]
		params := []any{owner, query, nil, nil}
		if cursor != nil {
			params[2] = cursor
		}
		if err := c.call(ctx, "suix_getOwnedObjects", params, &resp); err != nil {
			return nil, fmt.Errorf("sui: list positions for %s: %w", owner, err)
		}

		for _, r := range resp.Data {
			if r.Data == nil {
				continue
			}
			pos, err := r.Data.toPosition(owner)
			if err != nil {
				return nil, fmt.Errorf("sui: decode position %s: %w", r.Data.ObjectID, err)
			}
			positions = append(positions, pos)
		}

		if !resp.HasNextPage || len(resp.NextCursor) == 0 {
			return positions, nil
		}
		cursor = resp.NextCursor
	}
}

// GetBalance returns the owner's available balance of the market coin in
// minimal units.
func (c *Client) GetBalance(ctx context.Context, owner string) (int64, error) {
	var resp balanceResponse
	params := []any{owner, c.coinType}
	if err := c.call(ctx, "suix_getBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("sui: get balance for %s: %w", owner, err)
	}
	total, err := parseInt64(resp.TotalBalance)
	if err != nil {
		return 0, fmt.Errorf("sui: parse balance %q: %w", resp.TotalBalance, err)
	}
	return total, nil
}

// EventPage is one page of module events together with the cursor to resume
// from.
type EventPage struct {
	Events     []domain.ActivityEvent
	NextCursor string
	HasNext    bool
}

// QueryEvents fetches module events after the given cursor in ascending
// order. An empty cursor starts from the beginning of the stream.
func (c *Client) QueryEvents(ctx context.Context, cursor string, limit int) (EventPage, error) {
	if limit <= 0 {
		limit = 100
	}

	query := map[string]any{
		"MoveModule": map[string]string{
			"package": c.packageID,
			"module":  c.module,
		},
	}

	var resp pageResponse[eventEnvelope]
	params := []any{query, nil, limit, false}
	if cursor != "" {
		params[1] = json.RawMessage(cursor)
	}
	if err := c.call(ctx, "suix_queryEvents", params, &resp); err != nil {
		return EventPage{}, fmt.Errorf("sui: query events: %w", err)
	}

	page := EventPage{HasNext: resp.HasNextPage}
	for _, env := range resp.Data {
		evt, ok, err := env.toActivityEvent()
		if err != nil {
			return EventPage{}, fmt.Errorf("sui: decode event %s: %w", env.ID.TxDigest, err)
		}
		if ok {
			page.Events = append(page.Events, evt)
		}
	}
	if len(resp.NextCursor) > 0 {
		// Event cursors are JSON objects; keep them opaque.
		page.NextCursor = string(resp.NextCursor)
	}
	return page, nil
}

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: unexpected status %d: %s", method, resp.StatusCode, string(body))
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s: %w", method, envelope.Error)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}
