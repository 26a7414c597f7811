package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// PortfolioService defines what the portfolio handler needs from the service
// layer.
type PortfolioService interface {
	GetPortfolio(ctx context.Context, owner string) (domain.Portfolio, error)
	PositionValue(ctx context.Context, positionID string) (int64, error)
}

// PortfolioHandler serves the aggregated portfolio view.
type PortfolioHandler struct {
	portfolios PortfolioService
	logger     *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolios PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolios: portfolios,
		logger:     logger,
	}
}

// GetPortfolio returns the aggregated portfolio of one owner address.
// GET /api/portfolio/{owner}
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	owner := pathParam(r, "owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner address")
		return
	}

	pf, err := h.portfolios.GetPortfolio(r.Context(), owner)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get portfolio failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to aggregate portfolio")
		return
	}

	writeJSON(w, http.StatusOK, pf)
}

// GetPositionValue returns the current mark-to-market value of one position.
// GET /api/positions/{id}/value
func (h *PortfolioHandler) GetPositionValue(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing position id")
		return
	}

	value, err := h.portfolios.PositionValue(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: position value failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to value position")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"position_id": id,
		"value":       value,
	})
}
