package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// ActivityService defines what the activity handler needs from the service
// layer.
type ActivityService interface {
	ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.ActivityEvent, error)
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.ActivityEvent, error)
}

// ActivityHandler serves the mirrored on-chain event history.
type ActivityHandler struct {
	activity ActivityService
	logger   *slog.Logger
}

// NewActivityHandler creates an ActivityHandler.
func NewActivityHandler(activity ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity: activity,
		logger:   logger,
	}
}

// ListOwnerActivity returns the newest-first event history of one owner.
// GET /api/portfolio/{owner}/activity
func (h *ActivityHandler) ListOwnerActivity(w http.ResponseWriter, r *http.Request) {
	owner := pathParam(r, "owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "missing owner address")
		return
	}

	events, err := h.activity.ListByOwner(r.Context(), owner, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list owner activity failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"owner":  owner,
		"events": events,
	})
}

// ListMarketActivity returns the newest-first event history of one market.
// GET /api/markets/{id}/activity
func (h *ActivityHandler) ListMarketActivity(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	events, err := h.activity.ListByMarket(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market activity failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"events":    events,
	})
}
