package orders

import (
	"context"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Notifier fans out workflow events to interested users. Calls are
// best-effort: failures are logged by the service and never fail the
// triggering operation.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, order Order, from, to Status, actor shared.Actor) error
	TaskAssigned(ctx context.Context, order Order, assignment Assignment) error
	TaskCompleted(ctx context.Context, order Order, assignment Assignment, actor shared.Actor) error
}

// Publisher pushes order-changed events onto the live change feed so view
// subscriptions refresh. Best-effort like Notifier.
type Publisher interface {
	OrderChanged(ctx context.Context, orderID int64) error
}
