package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/printflow-erp/printflow-erp/internal/inventory"
	"github.com/printflow-erp/printflow-erp/internal/sequence"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*PurchaseRequest, error)
	List(ctx context.Context, filter Filter) ([]PurchaseRequest, error)
}

// Sequencer issues document numbers.
type Sequencer interface {
	NextNumber(ctx context.Context, key, prefix string) (string, error)
}

// Stocker books received goods back into the inventory ledger.
type Stocker interface {
	Return(ctx context.Context, lines []inventory.MaterialLine, ref inventory.OrderRef, actor shared.Actor) (inventory.ApplyResult, error)
}

// Notifier asks the CEOs for approval. Best-effort.
type Notifier interface {
	PurchaseRequestRaised(ctx context.Context, number, requesterName string) error
}

// Service runs the purchase request flow from raise to goods receipt.
type Service struct {
	repo     RepositoryPort
	seq      Sequencer
	stocker  Stocker
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service. stocker and notifier may be nil.
func NewService(repo RepositoryPort, seq Sequencer, stocker Stocker, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		seq:      seq,
		stocker:  stocker,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Raise opens a purchase request in pending and tells the CEOs. Any active
// employee may raise one; the usual trigger is a stock alert.
func (s *Service) Raise(ctx context.Context, input RaiseInput, actor shared.Actor) (*PurchaseRequest, error) {
	if !actor.Active {
		return nil, shared.ErrInactiveActor
	}
	if len(input.Lines) == 0 {
		return nil, errors.New("procurement: at least one line required")
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("procurement: non-positive quantity for %s", line.ItemName)
		}
	}
	priority := input.Priority
	if priority == "" {
		priority = shared.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("procurement: unknown priority %q", priority)
	}

	number, err := s.seq.NextNumber(ctx, sequence.CounterPurchaseRequests, sequence.PrefixPurchaseRequest)
	if err != nil {
		return nil, fmt.Errorf("procurement: issue number: %w", err)
	}

	pr := PurchaseRequest{
		Number:          number,
		Status:          StatusPending,
		Priority:        priority,
		Reason:          input.Reason,
		OrderID:         input.OrderID,
		RequestedBy:     actor.ID,
		RequestedByName: actor.Name,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := tx.Insert(ctx, pr)
		if err != nil {
			return err
		}
		id = created
		return tx.InsertLines(ctx, created, input.Lines)
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.PurchaseRequestRaised(ctx, number, actor.Name); err != nil {
			s.logger.Warn("purchase request notification failed",
				slog.String("number", number),
				slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

// Approve moves a pending request to approved. CEO only.
func (s *Service) Approve(ctx context.Context, id int64, note string, actor shared.Actor) (*PurchaseRequest, error) {
	return s.decide(ctx, id, StatusApproved, note, actor)
}

// Reject moves a pending request to rejected. CEO only.
func (s *Service) Reject(ctx context.Context, id int64, note string, actor shared.Actor) (*PurchaseRequest, error) {
	return s.decide(ctx, id, StatusRejected, note, actor)
}

func (s *Service) decide(ctx context.Context, id int64, to Status, note string, actor shared.Actor) (*PurchaseRequest, error) {
	if !actor.IsCEO() {
		return nil, shared.ErrForbidden
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(pr.Status, to) {
			return fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, pr.Status, to)
		}
		decidedBy := actor.ID
		return tx.UpdateStatus(ctx, id, to, &decidedBy, actor.Name, note)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// MarkOrdered records that the approved buy was placed with a supplier.
// Management owns this step.
func (s *Service) MarkOrdered(ctx context.Context, id int64, actor shared.Actor) (*PurchaseRequest, error) {
	if !actor.MayActFor(shared.DepartmentManagement) {
		return nil, shared.ErrForbidden
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(pr.Status, StatusOrdered) {
			return fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, pr.Status, StatusOrdered)
		}
		return tx.UpdateStatus(ctx, id, StatusOrdered, nil, "", "")
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Receive closes the request and books the goods into inventory. The status
// move and the restock are separate steps: a line that fails to restock is
// reported in the result but does not reopen the request.
func (s *Service) Receive(ctx context.Context, id int64, actor shared.Actor) (*PurchaseRequest, inventory.ApplyResult, error) {
	if !actor.MayActFor(shared.DepartmentManagement) {
		return nil, inventory.ApplyResult{}, shared.ErrForbidden
	}

	var lines []Line
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(pr.Status, StatusReceived) {
			return fmt.Errorf("%w: %s to %s", shared.ErrInvalidTransition, pr.Status, StatusReceived)
		}
		return tx.UpdateStatus(ctx, id, StatusReceived, nil, "", "")
	})
	if err != nil {
		return nil, inventory.ApplyResult{}, err
	}

	received, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, inventory.ApplyResult{}, err
	}
	lines = received.Lines

	var result inventory.ApplyResult
	if s.stocker != nil && len(lines) > 0 {
		materials := make([]inventory.MaterialLine, 0, len(lines))
		for _, line := range lines {
			materials = append(materials, inventory.MaterialLine{
				ItemID:   line.ItemID,
				Name:     line.ItemName,
				Quantity: line.Quantity,
			})
		}
		result, err = s.stocker.Return(ctx, materials, inventory.OrderRef{}, actor)
		if err != nil {
			s.logger.Warn("purchase request restock failed",
				slog.Int64("request_id", id),
				slog.Any("error", err))
		}
		for _, lineErr := range result.Errors {
			s.logger.Warn("purchase request line not restocked",
				slog.Int64("request_id", id),
				slog.Int64("item_id", lineErr.ItemID),
				slog.Any("error", lineErr.Reason))
		}
	}
	return received, result, nil
}

// Get loads one purchase request.
func (s *Service) Get(ctx context.Context, id int64) (*PurchaseRequest, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchase requests matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]PurchaseRequest, error) {
	return s.repo.List(ctx, filter)
}
