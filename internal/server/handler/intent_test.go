package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/platform/sui"
)

type fakeMarketGetter struct {
	markets map[string]domain.Market
}

func (f *fakeMarketGetter) GetMarket(_ context.Context, id string) (domain.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func newIntentRouter(markets map[string]domain.Market, positions map[string]domain.Position) *http.ServeMux {
	builder := sui.NewIntentBuilder("0xpkg", "vsyo", "0x2::sui::SUI")
	h := NewIntentHandler(builder, &fakeMarketGetter{markets: markets}, &fakePositionStore{positions: positions}, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/intents/buy", h.Buy)
	mux.HandleFunc("POST /api/intents/sell", h.Sell)
	mux.HandleFunc("POST /api/intents/claim", h.Claim)
	mux.HandleFunc("POST /api/intents/resolve", h.Resolve)
	mux.HandleFunc("POST /api/intents/create-market", h.CreateMarket)
	return mux
}

func TestIntentHandler_Buy(t *testing.T) {
	mux := newIntentRouter(map[string]domain.Market{
		"0xm": testMarket("0xm", 600, 400, 1000),
	}, nil)

	body := strings.NewReader(`{"market_id":"0xm","side":"yes","amount":100}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/buy", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var intent sui.MoveCallIntent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	assert.Equal(t, "0xpkg::vsyo::buy_yes", intent.Target)
	assert.NotEmpty(t, intent.ID)
}

func TestIntentHandler_Buy_ResolvedMarket(t *testing.T) {
	m := testMarket("0xm", 600, 400, 1000)
	m.Resolved = true
	mux := newIntentRouter(map[string]domain.Market{"0xm": m}, nil)

	body := strings.NewReader(`{"market_id":"0xm","side":"yes","amount":100}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/buy", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIntentHandler_Sell(t *testing.T) {
	mux := newIntentRouter(
		map[string]domain.Market{"0xm": testMarket("0xm", 600, 400, 1000)},
		map[string]domain.Position{
			"0xp": {ID: "0xp", MarketID: "0xm", Owner: "0xme", IsYes: true, Shares: 100},
		},
	)

	body := strings.NewReader(`{"position_id":"0xp","shares":50}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/sell", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var intent sui.MoveCallIntent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	assert.Equal(t, "0xpkg::vsyo::sell_partial", intent.Target)
}

func TestIntentHandler_Sell_TooManyShares(t *testing.T) {
	mux := newIntentRouter(
		map[string]domain.Market{"0xm": testMarket("0xm", 600, 400, 1000)},
		map[string]domain.Position{
			"0xp": {ID: "0xp", MarketID: "0xm", Owner: "0xme", IsYes: true, Shares: 100},
		},
	)

	body := strings.NewReader(`{"position_id":"0xp","shares":500}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/sell", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntentHandler_Claim(t *testing.T) {
	outcome := true
	m := testMarket("0xm", 600, 400, 1000)
	m.Resolved = true
	m.Outcome = &outcome
	mux := newIntentRouter(
		map[string]domain.Market{"0xm": m},
		map[string]domain.Position{
			"0xp": {ID: "0xp", MarketID: "0xm", Owner: "0xme", IsYes: true, Shares: 100},
		},
	)

	body := strings.NewReader(`{"position_id":"0xp"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/claim", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var intent sui.MoveCallIntent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	assert.Equal(t, "0xpkg::vsyo::claim_winnings", intent.Target)
}

func TestIntentHandler_Resolve_DeadlineNotReached(t *testing.T) {
	mux := newIntentRouter(map[string]domain.Market{
		"0xm": testMarket("0xm", 600, 400, 1000), // deadline in the future
	}, nil)

	body := strings.NewReader(`{"market_id":"0xm","outcome":true}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/resolve", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIntentHandler_CreateMarket(t *testing.T) {
	mux := newIntentRouter(nil, nil)

	req := map[string]any{
		"description": "Will it rain?",
		"category":    "other",
		"deadline_ms": time.Now().Add(48 * time.Hour).UnixMilli(),
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intents/create-market", strings.NewReader(string(raw))))

	require.Equal(t, http.StatusOK, rec.Code)

	var intent sui.MoveCallIntent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
	assert.Equal(t, "0xpkg::vsyo::create_market", intent.Target)
}
