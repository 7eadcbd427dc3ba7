package procurement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/printflow-erp/printflow-erp/internal/inventory"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

type memoryRepo struct {
	requests map[int64]PurchaseRequest
	lines    map[int64][]Line
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		requests: make(map[int64]PurchaseRequest),
		lines:    make(map[int64][]Line),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*PurchaseRequest, error) {
	pr, ok := r.requests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	pr.Lines = append([]Line(nil), r.lines[id]...)
	return &pr, nil
}

func (r *memoryRepo) List(ctx context.Context, filter Filter) ([]PurchaseRequest, error) {
	var out []PurchaseRequest
	for _, pr := range r.requests {
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if pr.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.RequestedBy != 0 && pr.RequestedBy != filter.RequestedBy {
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error) {
	pr, ok := tx.repo.requests[id]
	if !ok {
		return PurchaseRequest{}, shared.ErrNotFound
	}
	return pr, nil
}

func (tx *memoryTx) Insert(ctx context.Context, pr PurchaseRequest) (int64, error) {
	tx.repo.nextID++
	pr.ID = tx.repo.nextID
	pr.CreatedAt = time.Now()
	pr.UpdatedAt = pr.CreatedAt
	tx.repo.requests[pr.ID] = pr
	return pr.ID, nil
}

func (tx *memoryTx) InsertLines(ctx context.Context, requestID int64, lines []Line) error {
	for i := range lines {
		lines[i].RequestID = requestID
	}
	tx.repo.lines[requestID] = append(tx.repo.lines[requestID], lines...)
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status, decidedBy *int64, decidedByName, note string) error {
	pr := tx.repo.requests[id]
	pr.Status = status
	if decidedBy != nil {
		pr.DecidedBy = decidedBy
		pr.DecidedByName = decidedByName
	}
	if note != "" {
		pr.DecisionNote = note
	}
	pr.UpdatedAt = time.Now()
	tx.repo.requests[id] = pr
	return nil
}

type fakeSequencer struct {
	n int64
}

func (s *fakeSequencer) NextNumber(ctx context.Context, key, prefix string) (string, error) {
	s.n++
	return fmt.Sprintf("%s-2026-%04d", prefix, s.n), nil
}

type fakeStocker struct {
	returned []inventory.MaterialLine
	short    map[int64]error
}

func (f *fakeStocker) Return(ctx context.Context, lines []inventory.MaterialLine, ref inventory.OrderRef, actor shared.Actor) (inventory.ApplyResult, error) {
	var result inventory.ApplyResult
	for _, line := range lines {
		if err, bad := f.short[line.ItemID]; bad {
			result.Errors = append(result.Errors, inventory.LineError{ItemID: line.ItemID, Name: line.Name, Reason: err})
			continue
		}
		f.returned = append(f.returned, line)
		result.Applied = append(result.Applied, inventory.Transaction{ItemID: line.ItemID, Direction: inventory.DirectionIn, Quantity: line.Quantity})
	}
	result.Success = len(result.Errors) == 0
	return result, nil
}

type fakeNotifier struct {
	raised []string
}

func (f *fakeNotifier) PurchaseRequestRaised(ctx context.Context, number, requesterName string) error {
	f.raised = append(f.raised, number)
	return nil
}

var (
	staffActor = shared.Actor{ID: 20, Name: "Sinta Staff", Role: shared.RoleStaff, Department: shared.DepartmentSales, Active: true}
	ceoActor   = shared.Actor{ID: 1, Name: "Citra CEO", Role: shared.RoleCEO, Department: shared.DepartmentManagement, Active: true}
	mgmtActor  = shared.Actor{ID: 2, Name: "Maya Manager", Role: shared.RoleHead, Department: shared.DepartmentManagement, Active: true}
)

func newTestService() (*Service, *memoryRepo, *fakeStocker, *fakeNotifier) {
	repo := newMemoryRepo()
	stocker := &fakeStocker{short: map[int64]error{}}
	notifier := &fakeNotifier{}
	svc := NewService(repo, &fakeSequencer{}, stocker, notifier, nil)
	return svc, repo, stocker, notifier
}

func raise(t *testing.T, svc *Service) *PurchaseRequest {
	t.Helper()
	pr, err := svc.Raise(context.Background(), RaiseInput{
		Reason: "paper-A4 out of stock",
		Lines: []Line{
			{ItemID: 3, ItemName: "paper-A4", Category: "paper", Quantity: 100, Unit: "rim", EstimatedCost: 55000},
			{ItemID: 4, ItemName: "toner-black", Category: "consumable", Quantity: 5, Unit: "pcs", EstimatedCost: 420000},
		},
	}, staffActor)
	require.NoError(t, err)
	return pr
}

func TestRaiseOpensPendingAndNotifies(t *testing.T) {
	svc, _, _, notifier := newTestService()

	pr := raise(t, svc)
	require.Equal(t, "PR-2026-0001", pr.Number)
	require.Equal(t, StatusPending, pr.Status)
	require.Equal(t, shared.PriorityMedium, pr.Priority, "priority defaults to medium")
	require.Nil(t, pr.OrderID)
	require.Equal(t, staffActor.ID, pr.RequestedBy)
	require.Len(t, pr.Lines, 2)
	require.Equal(t, "paper", pr.Lines[0].Category)
	require.Equal(t, []string{"PR-2026-0001"}, notifier.raised)
}

func TestRaiseCarriesPriorityAndOrderRef(t *testing.T) {
	svc, _, _, _ := newTestService()

	orderID := int64(42)
	pr, err := svc.Raise(context.Background(), RaiseInput{
		Reason:   "urgent restock for ORD-2026-0042",
		Priority: shared.PriorityUrgent,
		OrderID:  &orderID,
		Lines: []Line{
			{ItemID: 3, ItemName: "paper-A4", Category: "paper", Quantity: 50, Unit: "rim"},
		},
	}, staffActor)
	require.NoError(t, err)
	require.Equal(t, shared.PriorityUrgent, pr.Priority)
	require.NotNil(t, pr.OrderID)
	require.Equal(t, orderID, *pr.OrderID)

	_, err = svc.Raise(context.Background(), RaiseInput{
		Priority: shared.Priority("critical"),
		Lines:    []Line{{ItemID: 3, ItemName: "paper-A4", Quantity: 1}},
	}, staffActor)
	require.Error(t, err, "unknown priority")
}

func TestRaiseValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Raise(context.Background(), RaiseInput{Reason: "x"}, staffActor)
	require.Error(t, err, "empty line set")

	_, err = svc.Raise(context.Background(), RaiseInput{
		Lines: []Line{{ItemID: 3, ItemName: "paper-A4", Quantity: -1}},
	}, staffActor)
	require.Error(t, err, "non-positive quantity")

	inactive := staffActor
	inactive.Active = false
	_, err = svc.Raise(context.Background(), RaiseInput{
		Lines: []Line{{ItemID: 3, ItemName: "paper-A4", Quantity: 1}},
	}, inactive)
	require.ErrorIs(t, err, shared.ErrInactiveActor)
}

func TestOnlyCEODecides(t *testing.T) {
	svc, _, _, _ := newTestService()
	pr := raise(t, svc)

	_, err := svc.Approve(context.Background(), pr.ID, "", mgmtActor)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.Reject(context.Background(), pr.ID, "", staffActor)
	require.ErrorIs(t, err, shared.ErrForbidden)

	approved, err := svc.Approve(context.Background(), pr.ID, "go ahead", ceoActor)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, ceoActor.ID, *approved.DecidedBy)
	require.Equal(t, "go ahead", approved.DecisionNote)
}

func TestRejectIsTerminal(t *testing.T) {
	svc, _, _, _ := newTestService()
	pr := raise(t, svc)

	rejected, err := svc.Reject(context.Background(), pr.ID, "too expensive", ceoActor)
	require.NoError(t, err)
	require.Equal(t, StatusRejected, rejected.Status)
	require.True(t, rejected.Status.Terminal())

	_, err = svc.Approve(context.Background(), pr.ID, "", ceoActor)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	_, err = svc.MarkOrdered(context.Background(), pr.ID, mgmtActor)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestFlowEnforcesOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	pr := raise(t, svc)

	_, err := svc.MarkOrdered(context.Background(), pr.ID, mgmtActor)
	require.ErrorIs(t, err, shared.ErrInvalidTransition, "cannot order before approval")
	_, _, err = svc.Receive(context.Background(), pr.ID, mgmtActor)
	require.ErrorIs(t, err, shared.ErrInvalidTransition, "cannot receive before ordering")

	_, err = svc.Approve(context.Background(), pr.ID, "", ceoActor)
	require.NoError(t, err)
	ordered, err := svc.MarkOrdered(context.Background(), pr.ID, mgmtActor)
	require.NoError(t, err)
	require.Equal(t, StatusOrdered, ordered.Status)
}

func TestReceiveRestocksInventory(t *testing.T) {
	svc, _, stocker, _ := newTestService()
	pr := raise(t, svc)
	_, err := svc.Approve(context.Background(), pr.ID, "", ceoActor)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(context.Background(), pr.ID, mgmtActor)
	require.NoError(t, err)

	received, result, err := svc.Receive(context.Background(), pr.ID, mgmtActor)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)
	require.True(t, result.Success)
	require.Len(t, stocker.returned, 2)
	require.Equal(t, 100.0, stocker.returned[0].Quantity)

	_, _, err = svc.Receive(context.Background(), pr.ID, mgmtActor)
	require.ErrorIs(t, err, shared.ErrInvalidTransition, "received is terminal")
}

func TestReceiveReportsLinesThatFailedToRestock(t *testing.T) {
	svc, _, stocker, _ := newTestService()
	stocker.short[4] = shared.ErrNotFound

	pr := raise(t, svc)
	_, err := svc.Approve(context.Background(), pr.ID, "", ceoActor)
	require.NoError(t, err)
	_, err = svc.MarkOrdered(context.Background(), pr.ID, mgmtActor)
	require.NoError(t, err)

	received, result, err := svc.Receive(context.Background(), pr.ID, mgmtActor)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status, "a failed line does not reopen the request")
	require.False(t, result.Success)
	require.Len(t, result.Applied, 1)
	require.Len(t, result.Errors, 1)
	require.Equal(t, int64(4), result.Errors[0].ItemID)
}

func TestReceiveGate(t *testing.T) {
	svc, _, _, _ := newTestService()
	pr := raise(t, svc)

	_, _, err := svc.Receive(context.Background(), pr.ID, staffActor)
	require.ErrorIs(t, err, shared.ErrForbidden)
}
