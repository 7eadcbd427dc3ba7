package orders

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Assign hands the department's work on an order to an employee. The
// assignee must exist and be active. One notification goes to the assignee.
func (s *Service) Assign(ctx context.Context, orderID int64, dept shared.Department, assigneeID int64, estimatedHours float64, notes string, actor shared.Actor) (*Order, error) {
	if !dept.Valid() {
		return nil, fmt.Errorf("orders: unknown department %q", dept)
	}
	if !actor.MayActFor(dept) {
		return nil, shared.ErrForbidden
	}

	assignee, err := s.directory.Get(ctx, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("orders: resolve assignee: %w", err)
	}
	if !assignee.Active {
		return nil, shared.ErrInactiveActor
	}

	assignment := Assignment{
		Department:     dept,
		AssigneeID:     assignee.ID,
		AssigneeName:   assignee.FullName,
		AssignerID:     actor.ID,
		AssignerName:   actor.Name,
		AssignedAt:     s.now().UTC(),
		EstimatedHours: estimatedHours,
		Notes:          notes,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, orderID); err != nil {
			return err
		}
		if err := tx.UpsertAssignment(ctx, orderID, assignment); err != nil {
			return err
		}
		return tx.AppendTimeline(ctx, TimelineEntry{
			OrderID:     orderID,
			Action:      ActionTaskAssigned,
			Description: fmt.Sprintf("%s task assigned to %s", dept, assignee.FullName),
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.TaskAssigned(ctx, *order, assignment); err != nil {
			s.logger.Warn("task assignment notification failed",
				slog.Int64("order_id", orderID),
				slog.Int64("assignee_id", assignee.ID),
				slog.Any("error", err))
		}
	}
	s.publish(ctx, orderID)
	return order, nil
}

// Start stamps startedAt on the department's assignment. Re-starting an
// already started task silently resets the stamp and clears any completion;
// the measured duration follows the latest start.
func (s *Service) Start(ctx context.Context, orderID int64, dept shared.Department, actor shared.Actor) (*Order, error) {
	if !actor.MayActFor(dept) {
		return nil, shared.ErrForbidden
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		assignment, err := tx.GetAssignmentForUpdate(ctx, orderID, dept)
		if err != nil {
			return err
		}
		started := s.now().UTC()
		assignment.StartedAt = &started
		assignment.CompletedAt = nil
		assignment.ActualHours = nil
		if err := tx.UpsertAssignment(ctx, orderID, assignment); err != nil {
			return err
		}
		return tx.AppendTimeline(ctx, TimelineEntry{
			OrderID:     orderID,
			Action:      ActionTaskStarted,
			Description: fmt.Sprintf("%s task started", dept),
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, orderID)
	return order, nil
}

// Complete stamps completedAt, derives the actual duration in hours (two
// decimals) and notifies the assigner plus the CEO. Completing a task that
// was never started fails with ErrNotStarted and writes nothing.
func (s *Service) Complete(ctx context.Context, orderID int64, dept shared.Department, actor shared.Actor) (*Order, error) {
	if !actor.MayActFor(dept) {
		return nil, shared.ErrForbidden
	}
	var completed Assignment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		assignment, err := tx.GetAssignmentForUpdate(ctx, orderID, dept)
		if err != nil {
			return err
		}
		if assignment.StartedAt == nil {
			return shared.ErrNotStarted
		}
		doneAt := s.now().UTC()
		actual := roundHours(doneAt.Sub(*assignment.StartedAt).Hours())
		assignment.CompletedAt = &doneAt
		assignment.ActualHours = &actual
		if err := tx.UpsertAssignment(ctx, orderID, assignment); err != nil {
			return err
		}
		completed = assignment
		return tx.AppendTimeline(ctx, TimelineEntry{
			OrderID:     orderID,
			Action:      ActionTaskCompleted,
			Description: fmt.Sprintf("%s task completed in %.2f hours", dept, actual),
			ActorID:     actor.ID,
			ActorName:   actor.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.TaskCompleted(ctx, *order, completed, actor); err != nil {
			s.logger.Warn("task completion notification failed",
				slog.Int64("order_id", orderID),
				slog.String("department", string(dept)),
				slog.Any("error", err))
		}
	}
	s.publish(ctx, orderID)
	return order, nil
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
