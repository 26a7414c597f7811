package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/platform/sui"
)

// marketGetter is the single-market lookup the intent handler needs.
type marketGetter interface {
	GetMarket(ctx context.Context, id string) (domain.Market, error)
}

// IntentHandler builds unsigned move-call intents against the current mirror
// state. The server never signs or submits transactions; clients take the
// intent to their own wallet.
type IntentHandler struct {
	builder   *sui.IntentBuilder
	markets   marketGetter
	positions domain.PositionStore
	logger    *slog.Logger
}

// NewIntentHandler creates an IntentHandler.
func NewIntentHandler(builder *sui.IntentBuilder, markets marketGetter, positions domain.PositionStore, logger *slog.Logger) *IntentHandler {
	return &IntentHandler{
		builder:   builder,
		markets:   markets,
		positions: positions,
		logger:    logger,
	}
}

type createMarketRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	DeadlineMS  int64  `json:"deadline_ms"`
}

// CreateMarket builds the intent to open a new market.
// POST /api/intents/create-market
func (h *IntentHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intent, err := h.builder.CreateMarket(
		req.Description,
		domain.MarketCategory(req.Category),
		time.UnixMilli(req.DeadlineMS),
	)
	if err != nil {
		writeDomainError(w, err, "failed to build intent")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

type buyRequest struct {
	MarketID string `json:"market_id"`
	Side     string `json:"side"`
	Amount   int64  `json:"amount"` // minimal units
}

// Buy builds the intent to buy into one side of an open market.
// POST /api/intents/buy
func (h *IntentHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	isYes, err := parseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.markets.GetMarket(r.Context(), req.MarketID)
	if err != nil {
		writeDomainError(w, err, "failed to get market")
		return
	}

	intent, err := h.builder.BuyShares(m, isYes, req.Amount)
	if err != nil {
		writeDomainError(w, err, "failed to build intent")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

type sellRequest struct {
	PositionID string `json:"position_id"`
	Shares     int64  `json:"shares"`
}

// Sell builds the intent to sell part of a position back to the pool.
// POST /api/intents/sell
func (h *IntentHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, m, err := h.positionAndMarket(r.Context(), req.PositionID)
	if err != nil {
		writeDomainError(w, err, "failed to load position")
		return
	}

	intent, err := h.builder.SellShares(p, m, req.Shares)
	if err != nil {
		writeDomainError(w, err, "failed to build intent")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

type claimRequest struct {
	PositionID string `json:"position_id"`
}

// Claim builds the intent to redeem a winning position after resolution.
// POST /api/intents/claim
func (h *IntentHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, m, err := h.positionAndMarket(r.Context(), req.PositionID)
	if err != nil {
		writeDomainError(w, err, "failed to load position")
		return
	}

	intent, err := h.builder.ClaimWinnings(p, m)
	if err != nil {
		writeDomainError(w, err, "failed to build intent")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

type resolveRequest struct {
	MarketID string `json:"market_id"`
	Outcome  *bool  `json:"outcome"`
}

// Resolve builds the intent to record a market outcome after the deadline.
// POST /api/intents/resolve
func (h *IntentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Outcome == nil {
		writeError(w, http.StatusBadRequest, "missing outcome")
		return
	}

	m, err := h.markets.GetMarket(r.Context(), req.MarketID)
	if err != nil {
		writeDomainError(w, err, "failed to get market")
		return
	}

	intent, err := h.builder.ResolveMarket(m, *req.Outcome)
	if err != nil {
		writeDomainError(w, err, "failed to build intent")
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *IntentHandler) positionAndMarket(ctx context.Context, positionID string) (domain.Position, domain.Market, error) {
	if positionID == "" {
		return domain.Position{}, domain.Market{}, domain.ErrInvalidInput
	}

	p, err := h.positions.GetByID(ctx, positionID)
	if err != nil {
		return domain.Position{}, domain.Market{}, err
	}

	m, err := h.markets.GetMarket(ctx, p.MarketID)
	if err != nil {
		return domain.Position{}, domain.Market{}, err
	}
	return p, m, nil
}
