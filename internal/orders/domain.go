package orders

import (
	"time"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// PaymentStatus tracks how much of the final cost has been settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Order is the central aggregate tracked from customer intake to delivery.
type Order struct {
	ID       int64
	Number   string
	Status   Status
	Priority shared.Priority

	CustomerName  string
	CustomerPhone string
	CustomerEmail string

	PrintType     string
	PrintQuantity int
	Materials     []Material

	EstimatedCost float64
	FinalCost     float64
	PaidAmount    float64
	PaymentStatus PaymentStatus

	IsQuotation bool
	IsUrgent    bool

	// Assignments is keyed by an explicit department value; there is exactly
	// one assignment record per department, retained as history.
	Assignments map[shared.Department]Assignment

	Timeline []TimelineEntry
	Comments []Comment

	CreatedBy     int64
	CreatedByName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Material is one material requirement of the print specification.
type Material struct {
	ItemID   int64
	Name     string
	Quantity float64
}

// Assignment records who does the department's work on an order and when.
// ActualHours is derived from completedAt − startedAt, never set directly.
type Assignment struct {
	Department     shared.Department
	AssigneeID     int64
	AssigneeName   string
	AssignerID     int64
	AssignerName   string
	AssignedAt     time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	EstimatedHours float64
	ActualHours    *float64
	Notes          string
}

// Timeline actions.
const (
	ActionOrderCreated  = "order_created"
	ActionStatusChanged = "status_changed"
	ActionTaskAssigned  = "task_assigned"
	ActionTaskStarted   = "task_started"
	ActionTaskCompleted = "task_completed"
	ActionCommentAdded  = "comment_added"
)

// TimelineEntry is one immutable, timestamped action record. Entries are
// stored one row each so appends never rewrite the whole history.
type TimelineEntry struct {
	ID          int64
	OrderID     int64
	Action      string
	Description string
	ActorID     int64
	ActorName   string
	CreatedAt   time.Time
}

// Comment is an append-only remark on an order.
type Comment struct {
	ID        int64
	OrderID   int64
	Body      string
	ActorID   int64
	ActorName string
	CreatedAt time.Time
}

// CreateInput describes a new order from the sales desk.
type CreateInput struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	PrintType     string
	PrintQuantity int
	Materials     []Material
	Priority      shared.Priority
	EstimatedCost float64
	IsQuotation   bool
	IsUrgent      bool
	// Submit sends the order straight to CEO review instead of leaving a draft.
	Submit bool
}

// Filter narrows order listings for the read side.
type Filter struct {
	Statuses    []Status
	CreatedBy   int64
	IsQuotation *bool
	Limit       int
	Offset      int
}
