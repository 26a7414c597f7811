package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// SettlementService defines what the position handler needs for claim and
// settlement flows.
type SettlementService interface {
	PreviewClaim(ctx context.Context, positionID string) (int64, error)
	RecordClaim(ctx context.Context, positionID string) (int64, error)
	SettleMarket(ctx context.Context, marketID string) (domain.SettlementReport, error)
}

// PositionHandler serves position lookups and the settlement endpoints.
type PositionHandler struct {
	positions   domain.PositionStore
	settlements SettlementService
	logger      *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions domain.PositionStore, settlements SettlementService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions:   positions,
		settlements: settlements,
		logger:      logger,
	}
}

// ListPositions returns the mirrored positions of one owner.
// GET /api/positions?owner=0x...
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner query parameter")
		return
	}

	positions, err := h.positions.ListByOwner(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner,
		"positions": positions,
	})
}

// GetPayout returns the payout a position would receive, without recording a
// claim.
// GET /api/positions/{id}/payout
func (h *PositionHandler) GetPayout(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	payout, err := h.settlements.PreviewClaim(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: preview claim failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to compute payout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"position_id": id,
		"payout":      payout,
	})
}

// Claim records a one-time claim for a winning position.
// POST /api/positions/{id}/claim
func (h *PositionHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	payout, err := h.settlements.RecordClaim(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: record claim failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to record claim")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"position_id": id,
		"payout":      payout,
		"claimed":     true,
	})
}

// SettleMarket computes and records the full payout distribution of a
// resolved market.
// POST /api/markets/{id}/settle
func (h *PositionHandler) SettleMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	report, err := h.settlements.SettleMarket(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: settle market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to settle market")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
