package orderview

import (
	"context"
	"sort"

	"github.com/printflow-erp/printflow-erp/internal/orders"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Lister is the slice of the order repository this package reads from.
type Lister interface {
	List(ctx context.Context, filter orders.Filter) ([]orders.Order, error)
}

// Service answers "which orders does this person get to see". The CEO and
// department heads see everything; staff visibility narrows to their own
// corner of the workflow.
type Service struct {
	lister Lister
}

func NewService(lister Lister) *Service {
	return &Service{lister: lister}
}

// VisibleOrders lists the orders the actor may see, newest first.
//
// Scoping rules:
//   - CEO and heads: all orders.
//   - Sales staff: orders they created.
//   - Accounting staff: orders in the payment stage plus all quotations.
//   - Other department staff: orders whose status their department owns.
func (s *Service) VisibleOrders(ctx context.Context, actor shared.Actor, page shared.Pagination) ([]orders.Order, error) {
	if actor.IsCEO() || actor.Role == shared.RoleHead {
		return s.lister.List(ctx, orders.Filter{Limit: page.PerPage, Offset: page.Offset()})
	}

	switch actor.Department {
	case shared.DepartmentSales:
		return s.lister.List(ctx, orders.Filter{CreatedBy: actor.ID, Limit: page.PerPage, Offset: page.Offset()})
	case shared.DepartmentAccounting:
		return s.accountingOrders(ctx, page)
	default:
		return s.lister.List(ctx, orders.Filter{
			Statuses: orders.StatusesFor(actor.Department),
			Limit:    page.PerPage,
			Offset:   page.Offset(),
		})
	}
}

// unpagedFetchLimit caps how deep an unpaged accounting merge reads each
// stream.
const unpagedFetchLimit = 1000

// accountingOrders merges the payment-stage stream with the quotation stream.
// The two filters can overlap (a quotation reaching the payment stage), so
// results dedupe by id before paging. Both streams come back newest first,
// so offset+perPage rows from each are enough to build the requested page.
func (s *Service) accountingOrders(ctx context.Context, page shared.Pagination) ([]orders.Order, error) {
	fetch := page.Offset() + page.PerPage
	if page.PerPage <= 0 {
		fetch = unpagedFetchLimit
	}
	byStatus, err := s.lister.List(ctx, orders.Filter{Statuses: orders.StatusesFor(shared.DepartmentAccounting), Limit: fetch})
	if err != nil {
		return nil, err
	}
	quotation := true
	quotes, err := s.lister.List(ctx, orders.Filter{IsQuotation: &quotation, Limit: fetch})
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(byStatus)+len(quotes))
	merged := make([]orders.Order, 0, len(byStatus)+len(quotes))
	for _, o := range append(byStatus, quotes...) {
		if seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].CreatedAt.After(merged[j].CreatedAt) })

	offset := page.Offset()
	if offset >= len(merged) {
		return []orders.Order{}, nil
	}
	merged = merged[offset:]
	if page.PerPage > 0 && len(merged) > page.PerPage {
		merged = merged[:page.PerPage]
	}
	return merged, nil
}

// DepartmentQueue lists the orders currently parked in one department's
// stage of the workflow, for that department's work queue screen.
func (s *Service) DepartmentQueue(ctx context.Context, dept shared.Department, actor shared.Actor, page shared.Pagination) ([]orders.Order, error) {
	if !actor.MayActFor(dept) && actor.Role != shared.RoleHead {
		return nil, shared.ErrForbidden
	}
	return s.lister.List(ctx, orders.Filter{
		Statuses: orders.StatusesFor(dept),
		Limit:    page.PerPage,
		Offset:   page.Offset(),
	})
}
