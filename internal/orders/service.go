package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/printflow-erp/printflow-erp/internal/observability"
	"github.com/printflow-erp/printflow-erp/internal/sequence"
	"github.com/printflow-erp/printflow-erp/internal/shared"
	"github.com/printflow-erp/printflow-erp/internal/users"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter Filter) ([]Order, error)
}

// Sequencer issues document numbers.
type Sequencer interface {
	NextNumber(ctx context.Context, key, prefix string) (string, error)
}

// Directory resolves user accounts for assignment preconditions.
type Directory interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

// Service coordinates the order workflow: creation, the status state
// machine and the per-department task assignment protocol. It is the only
// sanctioned mutation path for order state.
type Service struct {
	repo      RepositoryPort
	seq       Sequencer
	directory Directory
	notifier  Notifier
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewService builds Service. notifier, publisher and metrics may be nil.
func NewService(repo RepositoryPort, seq Sequencer, directory Directory, notifier Notifier, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		seq:       seq,
		directory: directory,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Create registers a new order from the sales desk. Submit=true sends it
// straight to CEO review, otherwise it stays a draft.
func (s *Service) Create(ctx context.Context, input CreateInput, actor shared.Actor) (*Order, error) {
	if !actor.MayActFor(shared.DepartmentSales) {
		return nil, shared.ErrForbidden
	}
	if input.CustomerName == "" || input.PrintType == "" {
		return nil, errors.New("orders: customer name and print type required")
	}
	priority := input.Priority
	if priority == "" {
		priority = shared.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("orders: unknown priority %q", input.Priority)
	}

	number, err := s.seq.NextNumber(ctx, sequence.CounterOrders, sequence.PrefixOrder)
	if err != nil {
		return nil, fmt.Errorf("orders: issue number: %w", err)
	}

	status := StatusDraft
	if input.Submit {
		status = StatusPendingCEOReview
	}
	order := Order{
		Number:        number,
		Status:        status,
		Priority:      priority,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		CustomerEmail: input.CustomerEmail,
		PrintType:     input.PrintType,
		PrintQuantity: input.PrintQuantity,
		EstimatedCost: input.EstimatedCost,
		PaymentStatus: PaymentUnpaid,
		IsQuotation:   input.IsQuotation,
		IsUrgent:      input.IsUrgent,
		CreatedBy:     actor.ID,
		CreatedByName: actor.Name,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID = id
		if err := tx.InsertMaterials(ctx, id, input.Materials); err != nil {
			return fmt.Errorf("insert materials: %w", err)
		}
		return tx.AppendTimeline(ctx, TimelineEntry{
			OrderID:     id,
			Action:      ActionOrderCreated,
			Description: fmt.Sprintf("Order %s created", number),
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if input.Submit {
		s.notifyStatusChange(ctx, *created, StatusDraft, StatusPendingCEOReview, actor)
	}
	s.publish(ctx, orderID)
	return created, nil
}

// Transition advances an order to a new status. The new status and exactly
// one timeline entry commit atomically; only an actor of the department that
// owns the current status (or the CEO) may advance it.
func (s *Service) Transition(ctx context.Context, orderID int64, to Status, note string, actor shared.Actor) (*Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrInvalidTransition, to)
	}

	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = order.Status
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, from, to)
		}
		if !actor.MayActFor(DepartmentFor(from)) {
			return shared.ErrForbidden
		}
		if err := tx.UpdateStatus(ctx, orderID, to); err != nil {
			return err
		}
		description := fmt.Sprintf("Status changed from %s to %s", from, to)
		if note != "" {
			description += ": " + note
		}
		return tx.AppendTimeline(ctx, TimelineEntry{
			OrderID:     orderID,
			Action:      ActionStatusChanged,
			Description: description,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.metrics.OrderTransition(string(to))
	s.notifyStatusChange(ctx, *updated, from, to, actor)
	s.publish(ctx, orderID)
	return updated, nil
}

// AddComment appends an immutable comment plus its timeline entry.
func (s *Service) AddComment(ctx context.Context, orderID int64, body string, actor shared.Actor) error {
	if body == "" {
		return errors.New("orders: comment body required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, orderID); err != nil {
			return err
		}
		if _, err := tx.InsertComment(ctx, Comment{OrderID: orderID, Body: body, ActorID: actor.ID, ActorName: actor.Name}); err != nil {
			return err
		}
		return tx.AppendTimeline(ctx, TimelineEntry{
			OrderID:     orderID,
			Action:      ActionCommentAdded,
			Description: "Comment added",
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
	})
	if err != nil {
		return err
	}
	s.publish(ctx, orderID)
	return nil
}

// Get loads one order aggregate.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns order headers matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) notifyStatusChange(ctx context.Context, order Order, from, to Status, actor shared.Actor) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderStatusChanged(ctx, order, from, to, actor); err != nil {
		s.logger.Warn("order status notification failed",
			slog.Int64("order_id", order.ID),
			slog.String("to", string(to)),
			slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, orderID int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.OrderChanged(ctx, orderID); err != nil {
		s.logger.Warn("order change publish failed",
			slog.Int64("order_id", orderID),
			slog.Any("error", err))
	}
}
