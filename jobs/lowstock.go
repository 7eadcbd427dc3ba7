package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/printflow-erp/printflow-erp/internal/inventory"
	jobmetrics "github.com/printflow-erp/printflow-erp/internal/jobs"
)

const (
	// TaskLowStockScan sweeps the inventory for items at or below their
	// reorder threshold and re-alerts on anything still short.
	TaskLowStockScan = "inventory:lowstock_scan"

	// CronLowStockScan runs the sweep nightly at 02:00 UTC.
	CronLowStockScan = "0 2 * * *"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs the nightly sweep task.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// ThresholdLister reads the items currently at or below threshold.
type ThresholdLister interface {
	ListBelowThreshold(ctx context.Context) ([]inventory.Item, error)
}

// NewLowStockScanHandler builds the handler for TaskLowStockScan. Alerts go
// through the same notifier as live threshold crossings, so the daily dedupe
// key keeps the sweep from double-alerting a shortage already reported today.
func NewLowStockScanHandler(lister ThresholdLister, notifier inventory.Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskLowStockScan)

		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(asynq.SkipRetry)
		}

		items, err := lister.ListBelowThreshold(ctx)
		if err != nil {
			return tracker.End(err)
		}
		for _, item := range items {
			var nerr error
			switch item.Status {
			case inventory.StatusOutOfStock:
				nerr = notifier.InventoryOutOfStock(ctx, item)
			default:
				nerr = notifier.InventoryLowStock(ctx, item)
			}
			if nerr != nil {
				logger.Warn("low stock sweep alert failed",
					slog.Int64("item_id", item.ID),
					slog.Any("error", nerr))
			}
		}
		logger.Info("low stock sweep finished", slog.Int("items", len(items)))
		return tracker.End(nil)
	}
}
