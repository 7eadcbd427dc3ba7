package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/printflow-erp/printflow-erp/internal/inventory"
	"github.com/printflow-erp/printflow-erp/internal/orders"
	"github.com/printflow-erp/printflow-erp/internal/shared"
	"github.com/printflow-erp/printflow-erp/internal/users"
)

type memoryStore struct {
	written    []Notification
	dedupe     map[string]bool
	failForUID int64
	nextID     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{dedupe: make(map[string]bool)}
}

func (m *memoryStore) Create(ctx context.Context, n Notification) (int64, error) {
	if n.UserID == m.failForUID && m.failForUID != 0 {
		return 0, fmt.Errorf("write refused")
	}
	if n.DedupeKey != "" && m.dedupe[n.DedupeKey] {
		return 0, ErrDuplicate
	}
	m.dedupe[n.DedupeKey] = true
	m.nextID++
	n.ID = m.nextID
	m.written = append(m.written, n)
	return n.ID, nil
}

func (m *memoryStore) ListForUser(ctx context.Context, userID int64, filter Filter) ([]Notification, error) {
	var out []Notification
	for _, n := range m.written {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memoryStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range m.written {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memoryStore) MarkRead(ctx context.Context, id, userID int64) error {
	for i, n := range m.written {
		if n.ID == id && n.UserID == userID {
			now := time.Now()
			m.written[i].Read = true
			m.written[i].ReadAt = &now
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryStore) MarkAllRead(ctx context.Context, userID int64) error {
	now := time.Now()
	for i, n := range m.written {
		if n.UserID == userID && !n.Read {
			m.written[i].Read = true
			m.written[i].ReadAt = &now
		}
	}
	return nil
}

type fakeRecipients struct {
	ceos []users.User
	byID map[int64]users.User
}

func (f *fakeRecipients) Get(ctx context.Context, id int64) (*users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (f *fakeRecipients) ListActiveByRole(ctx context.Context, role shared.Role) ([]users.User, error) {
	if role == shared.RoleCEO {
		return f.ceos, nil
	}
	return nil, nil
}

func newTestService(ceos ...users.User) (*Service, *memoryStore) {
	store := newMemoryStore()
	recipients := &fakeRecipients{ceos: ceos, byID: map[int64]users.User{}}
	for _, u := range ceos {
		recipients.byID[u.ID] = u
	}
	svc := NewService(store, recipients, nil, nil, nil)
	return svc, store
}

func sampleOrder() orders.Order {
	return orders.Order{
		ID:        5,
		Number:    "ORD-2026-0005",
		Status:    orders.StatusPendingDesign,
		Priority:  shared.PriorityMedium,
		CreatedBy: 100,
	}
}

func TestStatusChangeFansOutToCEOsAndCreator(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, FullName: "CEO One", Role: shared.RoleCEO, Active: true},
		users.User{ID: 2, FullName: "CEO Two", Role: shared.RoleCEO, Active: true},
	)
	actor := shared.Actor{ID: 50, Name: "Dimas Design"}

	err := svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusPendingCEOReview, orders.StatusPendingDesign, actor)
	require.NoError(t, err)

	require.Len(t, store.written, 3)
	recipients := map[int64]bool{}
	for _, n := range store.written {
		recipients[n.UserID] = true
		require.Equal(t, KindOrderStatusChanged, n.Kind)
		require.Contains(t, n.Body, "ORD-2026-0005")
		require.Equal(t, int64(5), *n.OrderID)
		require.False(t, n.ActionRequired, "medium priority is informational")
	}
	require.True(t, recipients[1])
	require.True(t, recipients[2])
	require.True(t, recipients[100], "order creator must be told")
}

func TestStatusChangeSkipsTheActor(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, FullName: "CEO One", Role: shared.RoleCEO, Active: true},
	)
	// The CEO moved the order themselves.
	actor := shared.Actor{ID: 1, Name: "CEO One", Role: shared.RoleCEO}

	err := svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusPendingCEOReview, orders.StatusPendingDesign, actor)
	require.NoError(t, err)

	require.Len(t, store.written, 1)
	require.Equal(t, int64(100), store.written[0].UserID)
}

func TestZeroActiveCEOsWritesNothingForInventory(t *testing.T) {
	svc, store := newTestService()

	item := inventory.Item{ID: 3, Name: "paper-A4", Quantity: 0, MinQuantity: 10}
	require.NoError(t, svc.InventoryOutOfStock(context.Background(), item))
	require.Empty(t, store.written, "no recipients means no writes, not an error")
}

func TestUrgentOrderMarksActionRequired(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	order := sampleOrder()
	order.Priority = shared.PriorityUrgent

	err := svc.OrderStatusChanged(context.Background(), order, orders.StatusDraft, orders.StatusPendingCEOReview, shared.Actor{ID: 100})
	require.NoError(t, err)
	require.Len(t, store.written, 1)
	require.Equal(t, shared.PriorityUrgent, store.written[0].Priority)
	require.True(t, store.written[0].ActionRequired)
}

func TestNotificationCarriesPriorityAndActionURL(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)

	err := svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusDraft, orders.StatusPendingCEOReview, shared.Actor{ID: 50})
	require.NoError(t, err)
	require.Equal(t, shared.PriorityMedium, store.written[0].Priority)
	require.Equal(t, "/orders/5", store.written[0].ActionURL)

	item := inventory.Item{ID: 3, Name: "paper-A4", Quantity: 0, MinQuantity: 10}
	require.NoError(t, svc.InventoryOutOfStock(context.Background(), item))
	last := store.written[len(store.written)-1]
	require.Equal(t, shared.PriorityUrgent, last.Priority)
	require.Equal(t, "/inventory/items/3", last.ActionURL)
	require.True(t, last.ActionRequired)
}

func TestRepeatedDeliveryIsDeduped(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	actor := shared.Actor{ID: 50}

	require.NoError(t, svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusDraft, orders.StatusPendingCEOReview, actor))
	require.NoError(t, svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusDraft, orders.StatusPendingCEOReview, actor))

	require.Len(t, store.written, 2, "one per recipient, replay writes nothing new")
}

func TestOneFailedRecipientDoesNotBlockOthers(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
		users.User{ID: 2, Role: shared.RoleCEO, Active: true},
	)
	store.failForUID = 1

	err := svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusDraft, orders.StatusPendingCEOReview, shared.Actor{ID: 50})
	require.NoError(t, err, "per-recipient failures are swallowed")

	recipients := map[int64]bool{}
	for _, n := range store.written {
		recipients[n.UserID] = true
	}
	require.False(t, recipients[1])
	require.True(t, recipients[2])
	require.True(t, recipients[100])
}

func TestTaskAssignedNotifiesOnlyTheAssignee(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	assignedAt := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	assignment := orders.Assignment{
		Department:   shared.DepartmentDesign,
		AssigneeID:   77,
		AssigneeName: "Dewi Designer",
		AssignerID:   50,
		AssignerName: "Dimas Design",
		AssignedAt:   assignedAt,
	}

	require.NoError(t, svc.TaskAssigned(context.Background(), sampleOrder(), assignment))

	require.Len(t, store.written, 1)
	require.Equal(t, int64(77), store.written[0].UserID)
	require.Equal(t, KindTaskAssigned, store.written[0].Kind)
	require.True(t, store.written[0].ActionRequired)
}

func TestTaskCompletedNotifiesAssignerAndCEOs(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	doneAt := time.Date(2026, 4, 1, 14, 0, 0, 0, time.UTC)
	hours := 2.75
	assignment := orders.Assignment{
		Department:   shared.DepartmentDesign,
		AssigneeID:   77,
		AssigneeName: "Dewi Designer",
		AssignerID:   50,
		CompletedAt:  &doneAt,
		ActualHours:  &hours,
	}

	require.NoError(t, svc.TaskCompleted(context.Background(), sampleOrder(), assignment, shared.Actor{ID: 77, Name: "Dewi Designer"}))

	recipients := map[int64]bool{}
	for _, n := range store.written {
		recipients[n.UserID] = true
		require.Contains(t, n.Body, "2.75 hours")
	}
	require.True(t, recipients[1])
	require.True(t, recipients[50])
	require.False(t, recipients[77], "the assignee who completed is not told")
}

func TestInventoryAlertsReAlertDailyNotPerMovement(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	day1 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }

	item := inventory.Item{ID: 3, Name: "paper-A4", Quantity: 4, MinQuantity: 10}
	require.NoError(t, svc.InventoryLowStock(context.Background(), item))
	require.NoError(t, svc.InventoryLowStock(context.Background(), item))
	require.Len(t, store.written, 1, "same day repeats are deduped")

	svc.now = func() time.Time { return day1.Add(24 * time.Hour) }
	require.NoError(t, svc.InventoryLowStock(context.Background(), item))
	require.Len(t, store.written, 2, "a lingering shortage re-alerts the next day")
}

func TestPurchaseRequestRaisedAsksCEOs(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	require.NoError(t, svc.PurchaseRequestRaised(context.Background(), "PR-2026-0001", "Sari Sales"))
	require.Len(t, store.written, 1)
	require.Equal(t, KindPurchaseRequestRaised, store.written[0].Kind)
	require.True(t, store.written[0].ActionRequired)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	svc, store := newTestService(
		users.User{ID: 1, Role: shared.RoleCEO, Active: true},
	)
	require.NoError(t, svc.OrderStatusChanged(context.Background(), sampleOrder(), orders.StatusDraft, orders.StatusPendingCEOReview, shared.Actor{ID: 50}))
	id := store.written[0].ID
	owner := store.written[0].UserID

	require.ErrorIs(t, svc.MarkRead(context.Background(), id, owner+999), shared.ErrNotFound)
	require.Nil(t, store.written[0].ReadAt)
	require.NoError(t, svc.MarkRead(context.Background(), id, owner))
	require.NotNil(t, store.written[0].ReadAt, "reading stamps the timestamp")

	unread, err := svc.CountUnread(context.Background(), owner)
	require.NoError(t, err)
	require.Zero(t, unread)
}
