package notifications

import (
	"time"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Kind labels what a notification is about.
type Kind string

const (
	KindOrderStatusChanged    Kind = "order_status_changed"
	KindTaskAssigned          Kind = "task_assigned"
	KindTaskCompleted         Kind = "task_completed"
	KindInventoryLowStock     Kind = "inventory_low_stock"
	KindInventoryOutOfStock   Kind = "inventory_out_of_stock"
	KindPurchaseRequestRaised Kind = "purchase_request_raised"
)

// Notification is one in-app message for one user. Notifications are
// write-once; the only mutation is flipping the read flag, which also
// stamps ReadAt. ActionRequired follows from the priority.
type Notification struct {
	ID             int64
	UserID         int64
	Kind           Kind
	Title          string
	Body           string
	Priority       shared.Priority
	OrderID        *int64
	ActionURL      string
	ActionRequired bool
	Read           bool
	ReadAt         *time.Time
	DedupeKey      string
	CreatedAt      time.Time
}

// Filter narrows notification listings.
type Filter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}
