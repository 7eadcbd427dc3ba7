package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/printflow-erp/printflow-erp/internal/inventory"
	"github.com/printflow-erp/printflow-erp/internal/observability"
	"github.com/printflow-erp/printflow-erp/internal/orders"
	"github.com/printflow-erp/printflow-erp/internal/shared"
	"github.com/printflow-erp/printflow-erp/internal/users"
	"github.com/printflow-erp/printflow-erp/jobs"
)

// Store is the persistence slice the service writes through.
type Store interface {
	Create(ctx context.Context, n Notification) (int64, error)
	ListForUser(ctx context.Context, userID int64, filter Filter) ([]Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

// Recipients resolves who should hear about an event.
type Recipients interface {
	Get(ctx context.Context, id int64) (*users.User, error)
	ListActiveByRole(ctx context.Context, role shared.Role) ([]users.User, error)
}

// Enqueuer submits background tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service turns workflow and inventory events into per-user notifications.
// Every delivery is best-effort: a recipient that cannot be written is
// logged and skipped, never failing the event or the other recipients.
type Service struct {
	store      Store
	recipients Recipients
	enqueuer   Enqueuer
	logger     *slog.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewService builds Service. enqueuer and metrics may be nil.
func NewService(store Store, recipients Recipients, enqueuer Enqueuer, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		recipients: recipients,
		enqueuer:   enqueuer,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

var _ orders.Notifier = (*Service)(nil)
var _ inventory.Notifier = (*Service)(nil)

// OrderStatusChanged tells the CEOs and the order's creator about a status
// move. The actor who made the move is skipped.
func (s *Service) OrderStatusChanged(ctx context.Context, order orders.Order, from, to orders.Status, actor shared.Actor) error {
	priority := order.Priority
	if order.IsUrgent {
		priority = shared.PriorityUrgent
	}
	n := Notification{
		Kind:           KindOrderStatusChanged,
		Title:          fmt.Sprintf("Order %s: %s", order.Number, to),
		Body:           fmt.Sprintf("%s moved order %s from %s to %s", actor.Name, order.Number, from, to),
		Priority:       priority,
		OrderID:        &order.ID,
		ActionURL:      fmt.Sprintf("/orders/%d", order.ID),
		ActionRequired: priority.ActionRequired(),
		DedupeKey:      fmt.Sprintf("order:%d:status:%s:%s", order.ID, from, to),
	}

	recipients, err := s.ceoIDs(ctx)
	if err != nil {
		return err
	}
	if order.CreatedBy != 0 {
		recipients = append(recipients, order.CreatedBy)
	}
	s.fanOut(ctx, n, recipients, actor.ID)
	return nil
}

// TaskAssigned tells the assignee they have work.
func (s *Service) TaskAssigned(ctx context.Context, order orders.Order, assignment orders.Assignment) error {
	n := Notification{
		Kind:           KindTaskAssigned,
		Title:          fmt.Sprintf("Order %s: %s task assigned to you", order.Number, assignment.Department),
		Body:           fmt.Sprintf("%s assigned you the %s work on order %s", assignment.AssignerName, assignment.Department, order.Number),
		Priority:       shared.PriorityHigh,
		OrderID:        &order.ID,
		ActionURL:      fmt.Sprintf("/orders/%d", order.ID),
		ActionRequired: true,
		DedupeKey:      fmt.Sprintf("order:%d:assign:%s:%d:%d", order.ID, assignment.Department, assignment.AssigneeID, assignment.AssignedAt.Unix()),
	}
	s.fanOut(ctx, n, []int64{assignment.AssigneeID}, 0)
	return nil
}

// TaskCompleted tells the assigner and the CEOs the work is done.
func (s *Service) TaskCompleted(ctx context.Context, order orders.Order, assignment orders.Assignment, actor shared.Actor) error {
	hours := 0.0
	if assignment.ActualHours != nil {
		hours = *assignment.ActualHours
	}
	n := Notification{
		Kind:      KindTaskCompleted,
		Title:     fmt.Sprintf("Order %s: %s task completed", order.Number, assignment.Department),
		Body:      fmt.Sprintf("%s finished the %s work on order %s in %.2f hours", assignment.AssigneeName, assignment.Department, order.Number, hours),
		Priority:  shared.PriorityMedium,
		OrderID:   &order.ID,
		ActionURL: fmt.Sprintf("/orders/%d", order.ID),
		DedupeKey: fmt.Sprintf("order:%d:complete:%s:%d", order.ID, assignment.Department, completedUnix(assignment)),
	}

	recipients, err := s.ceoIDs(ctx)
	if err != nil {
		return err
	}
	recipients = append(recipients, assignment.AssignerID)
	s.fanOut(ctx, n, recipients, actor.ID)
	return nil
}

// InventoryLowStock warns the CEOs a material dropped to its threshold.
// The dedupe key includes the day so a lingering shortage re-alerts daily
// instead of flooding on every movement.
func (s *Service) InventoryLowStock(ctx context.Context, item inventory.Item) error {
	return s.inventoryAlert(ctx, item, KindInventoryLowStock, shared.PriorityMedium,
		fmt.Sprintf("Low stock: %s", item.Name),
		fmt.Sprintf("%s is down to %.2f (threshold %.2f)", item.Name, item.Quantity, item.MinQuantity))
}

// InventoryOutOfStock warns the CEOs a material ran out.
func (s *Service) InventoryOutOfStock(ctx context.Context, item inventory.Item) error {
	return s.inventoryAlert(ctx, item, KindInventoryOutOfStock, shared.PriorityUrgent,
		fmt.Sprintf("Out of stock: %s", item.Name),
		fmt.Sprintf("%s is exhausted and blocks new work until restocked", item.Name))
}

// PurchaseRequestRaised asks the CEOs to review a purchase request.
func (s *Service) PurchaseRequestRaised(ctx context.Context, number string, requesterName string) error {
	n := Notification{
		Kind:           KindPurchaseRequestRaised,
		Title:          fmt.Sprintf("Purchase request %s awaits approval", number),
		Body:           fmt.Sprintf("%s raised purchase request %s", requesterName, number),
		Priority:       shared.PriorityHigh,
		ActionURL:      "/purchase-requests",
		ActionRequired: true,
		DedupeKey:      fmt.Sprintf("pr:%s:raised", number),
	}
	recipients, err := s.ceoIDs(ctx)
	if err != nil {
		return err
	}
	s.fanOut(ctx, n, recipients, 0)
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, filter Filter) ([]Notification, error) {
	return s.store.ListForUser(ctx, userID, filter)
}

// CountUnread returns the user's unread badge count.
func (s *Service) CountUnread(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead flips one of the user's notifications to read.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.store.MarkRead(ctx, id, userID)
}

// MarkAllRead flips all of the user's notifications to read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	return s.store.MarkAllRead(ctx, userID)
}

func (s *Service) inventoryAlert(ctx context.Context, item inventory.Item, kind Kind, priority shared.Priority, title, body string) error {
	n := Notification{
		Kind:           kind,
		Title:          title,
		Body:           body,
		Priority:       priority,
		ActionURL:      fmt.Sprintf("/inventory/items/%d", item.ID),
		ActionRequired: priority.ActionRequired(),
		DedupeKey:      fmt.Sprintf("inv:%s:%d:%s", kind, item.ID, s.now().UTC().Format("2006-01-02")),
	}
	recipients, err := s.ceoIDs(ctx)
	if err != nil {
		return err
	}
	s.fanOut(ctx, n, recipients, 0)
	return nil
}

// ceoIDs lists active CEO accounts. Zero active CEOs is not an error: the
// event simply has nobody to tell.
func (s *Service) ceoIDs(ctx context.Context) ([]int64, error) {
	ceos, err := s.recipients.ListActiveByRole(ctx, shared.RoleCEO)
	if err != nil {
		return nil, fmt.Errorf("notifications: list ceos: %w", err)
	}
	ids := make([]int64, 0, len(ceos))
	for _, u := range ceos {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// fanOut writes one notification per distinct recipient, skipping the
// actor who triggered the event. Failures are logged per recipient.
func (s *Service) fanOut(ctx context.Context, n Notification, recipients []int64, skipID int64) {
	seen := make(map[int64]bool, len(recipients))
	base := n.DedupeKey
	for _, userID := range recipients {
		if userID == 0 || userID == skipID || seen[userID] {
			continue
		}
		seen[userID] = true

		n.UserID = userID
		if base != "" {
			n.DedupeKey = fmt.Sprintf("%s:u%d", base, userID)
		}
		if _, err := s.store.Create(ctx, n); err != nil {
			if errors.Is(err, ErrDuplicate) {
				continue
			}
			s.logger.Warn("notification write failed",
				slog.Int64("user_id", userID),
				slog.String("kind", string(n.Kind)),
				slog.Any("error", err))
			continue
		}
		s.metrics.NotificationWritten(string(n.Kind))
		s.enqueueEmail(ctx, userID, n)
	}
}

// enqueueEmail queues a transactional email for the notification when the
// recipient has an address on file.
func (s *Service) enqueueEmail(ctx context.Context, userID int64, n Notification) {
	if s.enqueuer == nil {
		return
	}
	u, err := s.recipients.Get(ctx, userID)
	if err != nil || u.Email == "" {
		return
	}
	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{
		To:      u.Email,
		Subject: n.Title,
		Body:    n.Body,
	})
	if err != nil {
		return
	}
	if _, err := s.enqueuer.Enqueue(task, asynq.Queue(jobs.QueueDefault)); err != nil {
		s.logger.Warn("notification email enqueue failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
}

func completedUnix(a orders.Assignment) int64 {
	if a.CompletedAt == nil {
		return 0
	}
	return a.CompletedAt.Unix()
}
