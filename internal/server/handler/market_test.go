package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/pricing"
	"github.com/vsyolabs/vsyod/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMarketService implements the MarketService interface over a fixed map.
type fakeMarketService struct {
	markets map[string]domain.Market
}

func (f *fakeMarketService) GetMarket(_ context.Context, id string) (domain.Market, error) {
	m, ok := f.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMarketService) ListMarkets(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(f.markets))
	for _, m := range f.markets {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeMarketService) Count(_ context.Context, _ domain.ListOpts) (int64, error) {
	return int64(len(f.markets)), nil
}

func (f *fakeMarketService) Quote(ctx context.Context, id string) (service.MarketQuote, error) {
	m, err := f.GetMarket(ctx, id)
	if err != nil {
		return service.MarketQuote{}, err
	}
	yesProb := pricing.Probability(m, true)
	yesPct, noPct := pricing.DisplayPercents(m)
	return service.MarketQuote{
		MarketID:       m.ID,
		YesProbability: yesProb,
		NoProbability:  1 - yesProb,
		YesPercent:     yesPct,
		NoPercent:      noPct,
		TotalShares:    m.TotalShares(),
		TotalFunds:     m.TotalFunds,
		Resolved:       m.Resolved,
	}, nil
}

func (f *fakeMarketService) ProjectTrade(ctx context.Context, id string, isYes bool, amount decimal.Decimal) (pricing.TradeProjection, error) {
	m, err := f.GetMarket(ctx, id)
	if err != nil {
		return pricing.TradeProjection{}, err
	}
	return pricing.ProjectTrade(m, isYes, amount)
}

func testMarket(id string, yes, no, funds int64) domain.Market {
	return domain.Market{
		ID:          id,
		Description: "Will it rain tomorrow?",
		Category:    domain.CategoryOther,
		Deadline:    time.Now().Add(24 * time.Hour),
		YesShares:   yes,
		NoShares:    no,
		TotalFunds:  funds,
	}
}

func newMarketRouter(svc MarketService) *http.ServeMux {
	h := NewMarketHandler(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", h.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", h.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", h.GetQuote)
	mux.HandleFunc("POST /api/markets/{id}/project", h.ProjectTrade)
	return mux
}

func TestMarketHandler_ListMarkets(t *testing.T) {
	svc := &fakeMarketService{markets: map[string]domain.Market{
		"0xa": testMarket("0xa", 600, 400, 1000),
	}}
	mux := newMarketRouter(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Markets []struct {
			ID         string `json:"id"`
			YesPercent int    `json:"yes_percent"`
			NoPercent  int    `json:"no_percent"`
		} `json:"markets"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Markets, 1)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 60, resp.Markets[0].YesPercent)
	assert.Equal(t, 40, resp.Markets[0].NoPercent)
}

func TestMarketHandler_GetMarket_NotFound(t *testing.T) {
	mux := newMarketRouter(&fakeMarketService{markets: map[string]domain.Market{}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets/0xmissing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketHandler_GetQuote(t *testing.T) {
	svc := &fakeMarketService{markets: map[string]domain.Market{
		"0xa": testMarket("0xa", 700, 300, 1000),
	}}
	mux := newMarketRouter(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/markets/0xa/quote", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.7, resp["yes_probability"], 1e-9)
	assert.EqualValues(t, 70, resp["yes_percent"])
	assert.EqualValues(t, 30, resp["no_percent"])
}

func TestMarketHandler_ProjectTrade(t *testing.T) {
	svc := &fakeMarketService{markets: map[string]domain.Market{
		"0xa": testMarket("0xa", 600, 400, 1000),
	}}
	mux := newMarketRouter(svc)

	body := strings.NewReader(`{"side":"yes","amount":"0.000100"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/markets/0xa/project", body))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 100, resp["estimated_shares"])
	assert.Equal(t, "yes", resp["side"])
}

func TestMarketHandler_ProjectTrade_BadSide(t *testing.T) {
	svc := &fakeMarketService{markets: map[string]domain.Market{
		"0xa": testMarket("0xa", 600, 400, 1000),
	}}
	mux := newMarketRouter(svc)

	body := strings.NewReader(`{"side":"maybe","amount":"1"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/markets/0xa/project", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketHandler_ProjectTrade_ResolvedConflict(t *testing.T) {
	m := testMarket("0xa", 600, 400, 1000)
	m.Resolved = true
	svc := &fakeMarketService{markets: map[string]domain.Market{"0xa": m}}
	mux := newMarketRouter(svc)

	body := strings.NewReader(`{"side":"yes","amount":"1"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/markets/0xa/project", body))

	assert.Equal(t, http.StatusConflict, rec.Code)
}
