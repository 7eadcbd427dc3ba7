package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/printflow-erp/printflow-erp/internal/observability"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// ErrInvalidQuantity indicates a non-positive material line quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	ListTransactions(ctx context.Context, itemID int64, limit int) ([]Transaction, error)
	CreateItem(ctx context.Context, item Item) (int64, error)
}

// Service is the inventory ledger: the only sanctioned mutation path for
// stock quantities. Every movement pairs the item update with one immutable
// transaction record inside a single per-item transaction.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService builds Service. notifier and metrics may be nil.
func NewService(repo RepositoryPort, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger, metrics: metrics}
}

// CheckAvailability reports shortfalls for the requested materials without
// mutating state. A missing item counts as zero available stock.
func (s *Service) CheckAvailability(ctx context.Context, lines []MaterialLine) ([]Shortfall, error) {
	var shortfalls []Shortfall
	for _, line := range lines {
		available := 0.0
		name := line.Name
		item, err := s.repo.GetItem(ctx, line.ItemID)
		switch {
		case err == nil:
			available = item.Quantity
			name = item.Name
		case errors.Is(err, shared.ErrNotFound):
			// keep available at zero
		default:
			return nil, fmt.Errorf("inventory: check availability: %w", err)
		}
		if available < line.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ItemID:            line.ItemID,
				Name:              name,
				RequestedQuantity: line.Quantity,
				AvailableQuantity: available,
				ShortQuantity:     line.Quantity - available,
			})
		}
	}
	return shortfalls, nil
}

// Consume decrements stock for each material line. Lines are applied
// independently: a short or missing line is recorded in the result and
// skipped, lines already applied stay applied. Callers must treat a result
// with errors as a partial application, not a rejected attempt.
func (s *Service) Consume(ctx context.Context, lines []MaterialLine, ref OrderRef, actor shared.Actor) (ApplyResult, error) {
	return s.apply(ctx, lines, ref, actor, DirectionOut)
}

// Return increments stock for each material line, mirroring Consume. The
// status is upgraded to in_stock only when the new quantity strictly exceeds
// the threshold; a low or out-of-stock status that the return does not clear
// is left as it was.
func (s *Service) Return(ctx context.Context, lines []MaterialLine, ref OrderRef, actor shared.Actor) (ApplyResult, error) {
	return s.apply(ctx, lines, ref, actor, DirectionIn)
}

func (s *Service) apply(ctx context.Context, lines []MaterialLine, ref OrderRef, actor shared.Actor, direction Direction) (ApplyResult, error) {
	result := ApplyResult{}
	for _, line := range lines {
		if line.Quantity <= 0 {
			result.Errors = append(result.Errors, LineError{
				ItemID: line.ItemID, Name: line.Name, Requested: line.Quantity, Reason: ErrInvalidQuantity,
			})
			continue
		}

		var applied Transaction
		var crossed *Item
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			item, err := tx.GetItemForUpdate(ctx, line.ItemID)
			if err != nil {
				return err
			}

			var newQty float64
			var newStatus StockStatus
			if direction == DirectionOut {
				if item.Quantity < line.Quantity {
					return &shortStockError{available: item.Quantity, name: item.Name}
				}
				newQty = item.Quantity - line.Quantity
				newStatus = DeriveStatus(newQty, item.MinQuantity)
			} else {
				newQty = item.Quantity + line.Quantity
				newStatus = item.Status
				if newQty > item.MinQuantity {
					newStatus = StatusInStock
				}
			}

			if err := tx.UpdateItemStock(ctx, item.ID, newQty, newStatus); err != nil {
				return err
			}

			record := Transaction{
				ItemID:           item.ID,
				ItemName:         item.Name,
				Direction:        direction,
				Quantity:         line.Quantity,
				PreviousQuantity: item.Quantity,
				NewQuantity:      newQty,
				Reason:           movementReason(direction, ref),
				ActorID:          actor.ID,
				ActorName:        actor.Name,
			}
			if ref.OrderID != 0 {
				id := ref.OrderID
				record.OrderID = &id
			}
			txID, err := tx.InsertTransaction(ctx, record)
			if err != nil {
				return err
			}
			record.ID = txID
			applied = record

			if direction == DirectionOut && newStatus != item.Status &&
				(newStatus == StatusLowStock || newStatus == StatusOutOfStock) {
				after := item
				after.Quantity = newQty
				after.Status = newStatus
				crossed = &after
			}
			return nil
		})
		if err != nil {
			result.Errors = append(result.Errors, lineError(line, err))
			continue
		}

		result.Applied = append(result.Applied, applied)
		s.metrics.InventoryMovement(string(direction))
		if crossed != nil {
			s.notifyThreshold(ctx, *crossed)
		}
	}
	result.Success = len(result.Errors) == 0
	return result, nil
}

func (s *Service) notifyThreshold(ctx context.Context, item Item) {
	if s.notifier == nil {
		return
	}
	var err error
	switch item.Status {
	case StatusOutOfStock:
		err = s.notifier.InventoryOutOfStock(ctx, item)
	case StatusLowStock:
		err = s.notifier.InventoryLowStock(ctx, item)
	}
	if err != nil {
		s.logger.Warn("inventory threshold notification failed",
			slog.Int64("item_id", item.ID),
			slog.String("status", string(item.Status)),
			slog.Any("error", err))
	}
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id int64) (*Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists items matching the filter.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

// ListTransactions returns the audit trail for one item.
func (s *Service) ListTransactions(ctx context.Context, itemID int64, limit int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, itemID, limit)
}

// CreateItem registers a new material.
func (s *Service) CreateItem(ctx context.Context, item Item) (int64, error) {
	if item.Name == "" || !item.Department.Valid() {
		return 0, errors.New("inventory: name and department required")
	}
	if item.Quantity < 0 || item.MinQuantity < 0 {
		return 0, ErrInvalidQuantity
	}
	return s.repo.CreateItem(ctx, item)
}

type shortStockError struct {
	available float64
	name      string
}

func (e *shortStockError) Error() string {
	return fmt.Sprintf("%s: %.2f available", e.name, e.available)
}

func (e *shortStockError) Unwrap() error { return shared.ErrInsufficientStock }

func lineError(line MaterialLine, err error) LineError {
	le := LineError{ItemID: line.ItemID, Name: line.Name, Requested: line.Quantity, Reason: err}
	var short *shortStockError
	if errors.As(err, &short) {
		le.Available = short.available
		le.Name = short.name
	}
	return le
}

func movementReason(direction Direction, ref OrderRef) string {
	if ref.OrderNumber == "" {
		if direction == DirectionOut {
			return "Stock consumption"
		}
		return "Stock return"
	}
	if direction == DirectionOut {
		return fmt.Sprintf("Consumed for order %s", ref.OrderNumber)
	}
	return fmt.Sprintf("Returned from order %s", ref.OrderNumber)
}
