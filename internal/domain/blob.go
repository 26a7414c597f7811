package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// SettlementReportRow is one winner's computed payout in a settlement report.
type SettlementReportRow struct {
	PositionID string `json:"position_id"`
	Owner      string `json:"owner"`
	Shares     int64  `json:"shares"`
	Payout     int64  `json:"payout"`
}

// SettlementReport is the full winner distribution of a resolved market.
// The conservation invariant TotalPayout == Market.TotalFunds has already
// been enforced when a report is produced.
type SettlementReport struct {
	MarketID      string                `json:"market_id"`
	Outcome       bool                  `json:"outcome"`
	TotalFunds    int64                 `json:"total_funds"`
	WinningShares int64                 `json:"winning_shares"`
	TotalPayout   int64                 `json:"total_payout"`
	Rows          []SettlementReportRow `json:"rows"`
}

// ReportArchiver moves settlement reports and aged activity rows to cold
// storage.
type ReportArchiver interface {
	ArchiveSettlementReport(ctx context.Context, report SettlementReport) error
	ArchiveActivity(ctx context.Context, before time.Time) (int64, error)
}
