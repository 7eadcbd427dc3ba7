package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/printflow-erp/printflow-erp/internal/shared"
	"github.com/printflow-erp/printflow-erp/internal/users"
)

// In-memory fakes shared by the service and assignment tests.

type memoryRepo struct {
	orders      map[int64]Order
	materials   map[int64][]Material
	assignments map[string]Assignment
	timeline    []TimelineEntry
	comments    []Comment
	nextID      int64
	clock       time.Time
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:      make(map[int64]Order),
		materials:   make(map[int64][]Material),
		assignments: make(map[string]Assignment),
		clock:       time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	}
}

func assignmentKey(orderID int64, dept shared.Department) string {
	return fmt.Sprintf("%d:%s", orderID, dept)
}

func (r *memoryRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	o.Materials = append([]Material(nil), r.materials[id]...)
	o.Assignments = make(map[shared.Department]Assignment)
	for _, dept := range shared.Departments() {
		if a, ok := r.assignments[assignmentKey(id, dept)]; ok {
			o.Assignments[dept] = a
		}
	}
	for _, e := range r.timeline {
		if e.OrderID == id {
			o.Timeline = append(o.Timeline, e)
		}
	}
	for _, c := range r.comments {
		if c.OrderID == id {
			o.Comments = append(o.Comments, c)
		}
	}
	return &o, nil
}

func (r *memoryRepo) List(ctx context.Context, filter Filter) ([]Order, error) {
	var result []Order
	for _, o := range r.orders {
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if o.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.CreatedBy != 0 && o.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.IsQuotation != nil && o.IsQuotation != *filter.IsQuotation {
			continue
		}
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := tx.repo.orders[id]
	if !ok {
		return Order{}, shared.ErrNotFound
	}
	return o, nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, o Order) (int64, error) {
	tx.repo.nextID++
	o.ID = tx.repo.nextID
	o.CreatedAt = tx.repo.tick()
	o.UpdatedAt = o.CreatedAt
	tx.repo.orders[o.ID] = o
	return o.ID, nil
}

func (tx *memoryTx) InsertMaterials(ctx context.Context, orderID int64, materials []Material) error {
	tx.repo.materials[orderID] = append(tx.repo.materials[orderID], materials...)
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id int64, status Status) error {
	o := tx.repo.orders[id]
	o.Status = status
	o.UpdatedAt = tx.repo.tick()
	tx.repo.orders[id] = o
	return nil
}

func (tx *memoryTx) GetAssignmentForUpdate(ctx context.Context, orderID int64, dept shared.Department) (Assignment, error) {
	a, ok := tx.repo.assignments[assignmentKey(orderID, dept)]
	if !ok {
		return Assignment{}, shared.ErrNotFound
	}
	return a, nil
}

func (tx *memoryTx) UpsertAssignment(ctx context.Context, orderID int64, a Assignment) error {
	tx.repo.assignments[assignmentKey(orderID, a.Department)] = a
	return nil
}

func (tx *memoryTx) AppendTimeline(ctx context.Context, e TimelineEntry) error {
	tx.repo.nextID++
	e.ID = tx.repo.nextID
	e.CreatedAt = tx.repo.tick()
	tx.repo.timeline = append(tx.repo.timeline, e)
	return nil
}

func (tx *memoryTx) InsertComment(ctx context.Context, c Comment) (int64, error) {
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	c.CreatedAt = tx.repo.tick()
	tx.repo.comments = append(tx.repo.comments, c)
	return c.ID, nil
}

type fakeSequencer struct {
	n int64
}

func (s *fakeSequencer) NextNumber(ctx context.Context, key, prefix string) (string, error) {
	s.n++
	return fmt.Sprintf("%s-2026-%04d", prefix, s.n), nil
}

type fakeDirectory struct {
	users map[int64]users.User
}

func (d *fakeDirectory) Get(ctx context.Context, id int64) (*users.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

type notifierCall struct {
	kind string
	from Status
	to   Status
	dept shared.Department
}

type fakeNotifier struct {
	calls []notifierCall
	fail  bool
}

func (n *fakeNotifier) OrderStatusChanged(ctx context.Context, order Order, from, to Status, actor shared.Actor) error {
	if n.fail {
		return fmt.Errorf("notifier down")
	}
	n.calls = append(n.calls, notifierCall{kind: "status", from: from, to: to})
	return nil
}

func (n *fakeNotifier) TaskAssigned(ctx context.Context, order Order, a Assignment) error {
	if n.fail {
		return fmt.Errorf("notifier down")
	}
	n.calls = append(n.calls, notifierCall{kind: "assigned", dept: a.Department})
	return nil
}

func (n *fakeNotifier) TaskCompleted(ctx context.Context, order Order, a Assignment, actor shared.Actor) error {
	if n.fail {
		return fmt.Errorf("notifier down")
	}
	n.calls = append(n.calls, notifierCall{kind: "completed", dept: a.Department})
	return nil
}

type fakePublisher struct {
	changed []int64
}

func (p *fakePublisher) OrderChanged(ctx context.Context, orderID int64) error {
	p.changed = append(p.changed, orderID)
	return nil
}

func newTestService() (*Service, *memoryRepo, *fakeNotifier, *fakePublisher) {
	repo := newMemoryRepo()
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}
	directory := &fakeDirectory{users: map[int64]users.User{
		10: {ID: 10, FullName: "Dewi Designer", Role: shared.RoleStaff, Department: shared.DepartmentDesign, Active: true},
		11: {ID: 11, FullName: "Iman Inactive", Role: shared.RoleStaff, Department: shared.DepartmentDesign, Active: false},
		12: {ID: 12, FullName: "Putra Printer", Role: shared.RoleStaff, Department: shared.DepartmentPrinting, Active: true},
	}}
	svc := NewService(repo, &fakeSequencer{}, directory, notifier, publisher, nil, nil)
	return svc, repo, notifier, publisher
}

var (
	salesActor      = shared.Actor{ID: 1, Name: "Sari Sales", Role: shared.RoleStaff, Department: shared.DepartmentSales, Active: true}
	ceoActor        = shared.Actor{ID: 2, Name: "Citra CEO", Role: shared.RoleCEO, Department: shared.DepartmentManagement, Active: true}
	designActor     = shared.Actor{ID: 3, Name: "Dimas Design", Role: shared.RoleHead, Department: shared.DepartmentDesign, Active: true}
	managementActor = shared.Actor{ID: 4, Name: "Maya Manager", Role: shared.RoleHead, Department: shared.DepartmentManagement, Active: true}
)
