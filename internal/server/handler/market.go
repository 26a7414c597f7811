package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/pricing"
	"github.com/vsyolabs/vsyod/internal/service"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	Count(ctx context.Context, opts domain.ListOpts) (int64, error)
	Quote(ctx context.Context, id string) (service.MarketQuote, error)
	ProjectTrade(ctx context.Context, id string, isYes bool, amount decimal.Decimal) (pricing.TradeProjection, error)
}

// MarketHandler serves market browsing and pricing endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// marketView is the API representation of one market snapshot.
type marketView struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Deadline    int64   `json:"deadline_ms"`
	YesShares   int64   `json:"yes_shares"`
	NoShares    int64   `json:"no_shares"`
	TotalFunds  int64   `json:"total_funds"`
	Resolved    bool    `json:"resolved"`
	Outcome     *bool   `json:"outcome,omitempty"`
	YesPercent  int     `json:"yes_percent"`
	NoPercent   int     `json:"no_percent"`
	YesProb     float64 `json:"yes_probability"`
}

func toMarketView(m domain.Market) marketView {
	yesPct, noPct := pricing.DisplayPercents(m)
	return marketView{
		ID:          m.ID,
		Description: m.Description,
		Category:    string(m.Category),
		Deadline:    m.Deadline.UnixMilli(),
		YesShares:   m.YesShares,
		NoShares:    m.NoShares,
		TotalFunds:  m.TotalFunds,
		Resolved:    m.Resolved,
		Outcome:     m.Outcome,
		YesPercent:  yesPct,
		NoPercent:   noPct,
		YesProb:     pricing.Probability(m, true),
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketView `json:"markets"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// ListMarkets returns market snapshots with display percentages.
// GET /api/markets?limit=50&offset=0&category=crypto&resolved=false&search=rain
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	markets, err := h.markets.ListMarkets(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	total, err := h.markets.Count(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	views := make([]marketView, 0, len(markets))
	for _, m := range markets {
		views = append(views, toMarketView(m))
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: views,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its object ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, toMarketView(market))
}

// GetQuote returns the live pricing view of one market.
// GET /api/markets/{id}/quote
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	q, err := h.markets.Quote(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: quote failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to quote market")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":       q.MarketID,
		"yes_probability": q.YesProbability,
		"no_probability":  q.NoProbability,
		"yes_percent":     q.YesPercent,
		"no_percent":      q.NoPercent,
		"total_shares":    q.TotalShares,
		"total_funds":     q.TotalFunds,
		"resolved":        q.Resolved,
	})
}

// projectTradeRequest is the body of the trade projection endpoint. Amount is
// a decimal string in whole coin units, e.g. "1.5".
type projectTradeRequest struct {
	Side   string `json:"side"`
	Amount string `json:"amount"`
}

// ProjectTrade estimates shares, payout, and potential profit of a buy.
// POST /api/markets/{id}/project
func (h *MarketHandler) ProjectTrade(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req projectTradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	isYes, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	proj, err := h.markets.ProjectTrade(r.Context(), id, isYes, amount)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: project trade failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to project trade")
		return
	}

	side := "no"
	if proj.Side {
		side = "yes"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"side":             side,
		"cost":             proj.Cost,
		"estimated_shares": proj.EstimatedShares,
		"projected_payout": proj.ProjectedPayout,
		"potential_profit": proj.PotentialProfit,
	})
}
