// workers/activity_export.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bean-loyalty/models"

	"go.uber.org/zap"
)

// ActivitySource yields ledger rows for a time window.
type ActivitySource interface {
	Between(ctx context.Context, from, to time.Time) ([]models.Activity, error)
}

// ObjectPutter stores an export blob.
type ObjectPutter interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// ActivityExporter archives one UTC day of activity as JSON lines, so the
// back office can reconcile balances outside the primary database.
type ActivityExporter struct {
	source ActivitySource
	store  ObjectPutter
	log    *zap.Logger
}

func NewActivityExporter(source ActivitySource, store ObjectPutter, log *zap.Logger) *ActivityExporter {
	return &ActivityExporter{source: source, store: store, log: log}
}

// ExportKey is the object key for a day: activity/YYYY/MM/DD.jsonl
func ExportKey(day time.Time) string {
	return "activity/" + day.UTC().Format("2006/01/02") + ".jsonl"
}

// ExportDay uploads the given day's activity and returns the row count.
// Empty days still produce an (empty) object so gaps are visible.
func (e *ActivityExporter) ExportDay(ctx context.Context, day time.Time) (int, error) {
	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	rows, err := e.source.Between(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("load activity for %s: %w", from.Format("2006-01-02"), err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return 0, fmt.Errorf("encode activity %s: %w", row.ID, err)
		}
	}

	key := ExportKey(from)
	if err := e.store.Put(ctx, key, "application/x-ndjson", buf.Bytes()); err != nil {
		return 0, err
	}
	e.log.Info("[EXPORT] 📦 activity archived", zap.String("key", key), zap.Int("rows", len(rows)))
	return len(rows), nil
}
