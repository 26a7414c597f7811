package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
	"github.com/vsyolabs/vsyod/internal/notify"
	"github.com/vsyolabs/vsyod/internal/pricing"
)

// SettlementsChannel is the pub/sub channel settlement events are published
// on for the WebSocket hub.
const SettlementsChannel = "settlements"

// SettlementService computes payouts for resolved markets and keeps the claim
// ledger consistent.
type SettlementService struct {
	positions domain.PositionStore
	markets   domain.MarketStore
	archiver  domain.ReportArchiver
	audit     domain.AuditStore
	bus       domain.SignalBus
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewSettlementService creates a SettlementService with all required
// dependencies. The archiver, bus, and notifier may be nil when archival,
// live updates, or notifications are disabled.
func NewSettlementService(
	positions domain.PositionStore,
	markets domain.MarketStore,
	archiver domain.ReportArchiver,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		positions: positions,
		markets:   markets,
		archiver:  archiver,
		audit:     audit,
		bus:       bus,
		notifier:  notifier,
		logger:    logger,
	}
}

// PreviewClaim computes the payout a position would receive without touching
// the claim ledger.
func (s *SettlementService) PreviewClaim(ctx context.Context, positionID string) (int64, error) {
	p, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: get position %q: %w", positionID, err)
	}

	m, err := s.markets.GetByID(ctx, p.MarketID)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: get market %q: %w", p.MarketID, err)
	}

	payout, err := pricing.Settle(p, m)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: settle position %q: %w", positionID, err)
	}
	return payout, nil
}

// RecordClaim computes the payout for a position and marks it claimed. The
// ledger update is conditional on the position being unclaimed, so concurrent
// claims for the same position succeed exactly once.
func (s *SettlementService) RecordClaim(ctx context.Context, positionID string) (int64, error) {
	p, err := s.positions.GetByID(ctx, positionID)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: get position %q: %w", positionID, err)
	}

	m, err := s.markets.GetByID(ctx, p.MarketID)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: get market %q: %w", p.MarketID, err)
	}

	payout, err := pricing.Settle(p, m)
	if err != nil {
		return 0, fmt.Errorf("settlement_service: settle position %q: %w", positionID, err)
	}

	// A losing position pays nothing and stays in the ledger; the on-chain
	// claim_winnings call aborts for losers, so the mirror must not record
	// a claim the chain would reject.
	if !p.WonIn(m) {
		return 0, fmt.Errorf("settlement_service: claim position %q: losing side: %w", positionID, domain.ErrInvalidInput)
	}

	if err := s.positions.MarkClaimed(ctx, positionID, payout, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("settlement_service: mark claimed %q: %w", positionID, err)
	}

	if err := s.audit.Log(ctx, "settlement.claim", map[string]any{
		"position_id": positionID,
		"market_id":   p.MarketID,
		"owner":       p.Owner,
		"payout":      payout,
	}); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, map[string]any{
		"event":       "claim",
		"position_id": positionID,
		"market_id":   p.MarketID,
		"payout":      payout,
	})

	s.logger.InfoContext(ctx, "settlement_service: claim recorded",
		slog.String("position_id", positionID),
		slog.String("market_id", p.MarketID),
		slog.Int64("payout", payout),
	)

	return payout, nil
}

// publish sends a settlement event to the signal bus. Publish failures are
// logged and swallowed; the ledger is already consistent at this point.
func (s *SettlementService) publish(ctx context.Context, event map[string]any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, SettlementsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: publish failed",
			slog.String("error", err.Error()),
		)
	}
}

// SettleMarket computes the full payout report for a resolved market, records
// every claim in the ledger, archives the report, and sends a notification.
// Positions already claimed keep their recorded payout and are not reprocessed.
func (s *SettlementService) SettleMarket(ctx context.Context, marketID string) (domain.SettlementReport, error) {
	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return domain.SettlementReport{}, fmt.Errorf("settlement_service: get market %q: %w", marketID, err)
	}

	positions, err := s.positions.ListByMarket(ctx, marketID)
	if err != nil {
		return domain.SettlementReport{}, fmt.Errorf("settlement_service: list positions for %q: %w", marketID, err)
	}

	report, err := pricing.SettleAll(positions, m)
	if err != nil {
		return domain.SettlementReport{}, fmt.Errorf("settlement_service: settle market %q: %w", marketID, err)
	}

	now := time.Now().UTC()
	var claimed, skipped int
	for _, row := range report.Rows {
		err := s.positions.MarkClaimed(ctx, row.PositionID, row.Payout, now)
		switch {
		case err == nil:
			claimed++
		case errors.Is(err, domain.ErrAlreadyClaimed):
			skipped++
		default:
			return domain.SettlementReport{}, fmt.Errorf("settlement_service: mark claimed %q: %w", row.PositionID, err)
		}
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveSettlementReport(ctx, report); err != nil {
			s.logger.WarnContext(ctx, "settlement_service: archive report failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.audit.Log(ctx, "settlement.market", map[string]any{
		"market_id":    marketID,
		"total_funds":  report.TotalFunds,
		"total_payout": report.TotalPayout,
		"positions":    len(report.Rows),
		"claimed":      claimed,
		"skipped":      skipped,
	}); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, map[string]any{
		"event":        "market_settled",
		"market_id":    marketID,
		"positions":    len(report.Rows),
		"total_payout": report.TotalPayout,
	})

	if s.notifier != nil {
		msg := fmt.Sprintf("Market %s settled: %d positions, %d total payout", marketID, len(report.Rows), report.TotalPayout)
		if err := s.notifier.Notify(ctx, notify.EventSettlementReport, "Settlement complete", msg); err != nil {
			s.logger.WarnContext(ctx, "settlement_service: notify failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "settlement_service: market settled",
		slog.String("market_id", marketID),
		slog.Int("positions", len(report.Rows)),
		slog.Int("claimed", claimed),
		slog.Int("skipped", skipped),
		slog.Int64("total_payout", report.TotalPayout),
	)

	return report, nil
}
