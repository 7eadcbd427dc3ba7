package procurement

import (
	"time"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Status is the purchase request lifecycle. The flow is linear with one
// branch at CEO review: pending goes to approved or rejected, approved
// goes to ordered once the buy is placed, ordered goes to received when
// the goods arrive and restock the inventory.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusOrdered  Status = "ordered"
	StatusReceived Status = "received"
)

// Terminal reports whether the request can move no further.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusReceived
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusOrdered},
	StatusOrdered:  {StatusReceived},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PurchaseRequest asks the CEO to approve buying materials, usually raised
// off the back of a low or out-of-stock alert.
type PurchaseRequest struct {
	ID              int64
	Number          string
	Status          Status
	Priority        shared.Priority
	Reason          string
	OrderID         *int64
	RequestedBy     int64
	RequestedByName string
	DecidedBy       *int64
	DecidedByName   string
	DecisionNote    string
	Lines           []Line
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Line is one material the request wants bought.
type Line struct {
	ID            int64
	RequestID     int64
	ItemID        int64
	ItemName      string
	Category      string
	Quantity      float64
	Unit          string
	EstimatedCost float64
}

// RaiseInput carries a new purchase request. OrderID links the request to
// the order whose materials ran short, when there is one.
type RaiseInput struct {
	Reason   string
	Priority shared.Priority
	OrderID  *int64
	Lines    []Line
}

// Filter narrows purchase request listings.
type Filter struct {
	Statuses    []Status
	RequestedBy int64
	Limit       int
	Offset      int
}
