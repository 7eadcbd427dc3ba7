package inventory

import "context"

// Notifier receives threshold-crossing events. Implementations are
// best-effort: the ledger logs and swallows their failures, a missed
// notification never fails the movement that triggered it.
type Notifier interface {
	InventoryLowStock(ctx context.Context, item Item) error
	InventoryOutOfStock(ctx context.Context, item Item) error
}
