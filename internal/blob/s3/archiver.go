package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vsyolabs/vsyod/internal/domain"
)

// ActivityArchiveStore provides read access to activity rows for archival
// purposes. The archiver only requires the query method it actually calls,
// not the full domain.ActivityStore.
type ActivityArchiveStore interface {
	// ListBefore returns all events with a timestamp strictly before the
	// given cutoff time.
	ListBefore(ctx context.Context, before time.Time) ([]domain.ActivityEvent, error)
}

// Archiver implements domain.ReportArchiver by serializing settlement
// reports and aged activity rows and uploading them to S3.
//
// Deletion of archived activity from the primary store is intentionally NOT
// performed here; that is a separate, explicit step to be executed after the
// archive has been verified.
type Archiver struct {
	writer   domain.BlobWriter
	activity ActivityArchiveStore
	audit    domain.AuditStore
}

var _ domain.ReportArchiver = (*Archiver)(nil)

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, activity ActivityArchiveStore, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer:   writer,
		activity: activity,
		audit:    audit,
	}
}

// ArchiveSettlementReport uploads one market's winner distribution as a JSON
// document at settlements/{marketID}.json and records the event in the audit
// log. Settlement is deterministic, so re-uploading the same market simply
// overwrites an identical object.
func (a *Archiver) ArchiveSettlementReport(ctx context.Context, report domain.SettlementReport) error {
	buf, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal settlement report %s: %w", report.MarketID, err)
	}

	path := fmt.Sprintf("settlements/%s.json", report.MarketID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: upload settlement report %s: %w", report.MarketID, err)
	}

	if err := a.audit.Log(ctx, "archive.settlement_report", map[string]any{
		"path":      path,
		"market_id": report.MarketID,
		"winners":   len(report.Rows),
		"payout":    report.TotalPayout,
	}); err != nil {
		return fmt.Errorf("s3blob: settlement report audit log: %w", err)
	}

	return nil
}

// ArchiveActivity queries all activity rows before the cutoff, serializes
// them to JSONL, and uploads the file to S3 at
// archive/activity/YYYY-MM.jsonl. The archival event is recorded in the
// audit log and the count of archived records is returned.
func (a *Archiver) ArchiveActivity(ctx context.Context, before time.Time) (int64, error) {
	events, err := a.activity.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity marshal: %w", err)
	}

	path := fmt.Sprintf("archive/activity/%s.jsonl", before.Format("2006-01"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive activity upload: %w", err)
	}

	count := int64(len(events))

	if err := a.audit.Log(ctx, "archive.activity", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive activity audit log: %w", err)
	}

	return count, nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
