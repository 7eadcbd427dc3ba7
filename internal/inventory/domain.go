package inventory

import (
	"time"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// StockStatus is derived from quantity and the reorder threshold. It is never
// set directly; every mutation goes through the ledger so the paired
// transaction record is always written.
type StockStatus string

const (
	StatusInStock    StockStatus = "in_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusOutOfStock StockStatus = "out_of_stock"
)

// DeriveStatus computes the stock status from quantity and threshold:
// zero is out of stock, at or below the threshold is low stock.
func DeriveStatus(quantity, minQuantity float64) StockStatus {
	switch {
	case quantity <= 0:
		return StatusOutOfStock
	case quantity <= minQuantity:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Item is a stocked material consumed by orders.
type Item struct {
	ID          int64
	Name        string
	Category    string
	Department  shared.Department
	Quantity    float64
	MinQuantity float64
	Status      StockStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Direction marks a ledger movement as inbound or outbound.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Transaction is the immutable audit record of one quantity change.
type Transaction struct {
	ID               int64
	ItemID           int64
	ItemName         string
	Direction        Direction
	Quantity         float64
	PreviousQuantity float64
	NewQuantity      float64
	Reason           string
	OrderID          *int64
	ActorID          int64
	ActorName        string
	CreatedAt        time.Time
}

// MaterialLine is one requested material quantity.
type MaterialLine struct {
	ItemID   int64
	Name     string
	Quantity float64
}

// Shortfall describes one line that cannot be covered by current stock.
// A missing item is reported with AvailableQuantity zero, not an error.
type Shortfall struct {
	ItemID            int64
	Name              string
	RequestedQuantity float64
	AvailableQuantity float64
	ShortQuantity     float64
}

// OrderRef ties ledger movements back to the order that caused them.
type OrderRef struct {
	OrderID     int64
	OrderNumber string
}

// LineError records why one material line was skipped. Reason wraps
// shared.ErrInsufficientStock or shared.ErrNotFound.
type LineError struct {
	ItemID    int64
	Name      string
	Requested float64
	Available float64
	Reason    error
}

// ApplyResult reports the outcome of a consume or return call. A non-empty
// Errors slice means the call partially applied: lines in Applied went
// through, lines in Errors were skipped. There is no global rollback.
type ApplyResult struct {
	Success bool
	Applied []Transaction
	Errors  []LineError
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Department shared.Department
	Status     StockStatus
	Limit      int
	Offset     int
}
