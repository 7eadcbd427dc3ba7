package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printflow-erp/printflow-erp/internal/platform/db"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// TxRepository exposes the per-order transactional operations used by the
// service. A status change and its timeline entry always commit together.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Order, error)
	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertMaterials(ctx context.Context, orderID int64, materials []Material) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	GetAssignmentForUpdate(ctx context.Context, orderID int64, dept shared.Department) (Assignment, error)
	UpsertAssignment(ctx context.Context, orderID int64, a Assignment) error
	AppendTimeline(ctx context.Context, entry TimelineEntry) error
	InsertComment(ctx context.Context, c Comment) (int64, error)
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, number, status, priority, customer_name, customer_phone, customer_email,
	print_type, print_quantity, estimated_cost, final_cost, paid_amount, payment_status,
	is_quotation, is_urgent, created_by, created_by_name, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.Status, &o.Priority, &o.CustomerName, &o.CustomerPhone,
		&o.CustomerEmail, &o.PrintType, &o.PrintQuantity, &o.EstimatedCost, &o.FinalCost,
		&o.PaidAmount, &o.PaymentStatus, &o.IsQuotation, &o.IsUrgent, &o.CreatedBy,
		&o.CreatedByName, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, shared.ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

// Get loads the full order aggregate: header, materials, assignments,
// timeline and comments.
func (r *Repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	if o.Materials, err = r.materials(ctx, id); err != nil {
		return nil, err
	}
	if o.Assignments, err = r.assignments(ctx, id); err != nil {
		return nil, err
	}
	if o.Timeline, err = r.timeline(ctx, id); err != nil {
		return nil, err
	}
	if o.Comments, err = r.comments(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

// List returns order headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var conditions []string
	var args []any
	argPos := 1

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argPos))
		args = append(args, statuses)
		argPos++
	}
	if filter.CreatedBy != 0 {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", argPos))
		args = append(args, filter.CreatedBy)
		argPos++
	}
	if filter.IsQuotation != nil {
		conditions = append(conditions, fmt.Sprintf("is_quotation = $%d", argPos))
		args = append(args, *filter.IsQuotation)
		argPos++
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (r *Repository) materials(ctx context.Context, orderID int64) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, name, quantity FROM order_materials WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var materials []Material
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ItemID, &m.Name, &m.Quantity); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func (r *Repository) assignments(ctx context.Context, orderID int64) (map[shared.Department]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT department, assignee_id, assignee_name, assigner_id, assigner_name,
		       assigned_at, started_at, completed_at, estimated_hours, actual_hours, notes
		FROM order_assignments WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make(map[shared.Department]Assignment)
	for rows.Next() {
		var a Assignment
		err := rows.Scan(&a.Department, &a.AssigneeID, &a.AssigneeName, &a.AssignerID, &a.AssignerName,
			&a.AssignedAt, &a.StartedAt, &a.CompletedAt, &a.EstimatedHours, &a.ActualHours, &a.Notes)
		if err != nil {
			return nil, err
		}
		assignments[a.Department] = a
	}
	return assignments, rows.Err()
}

func (r *Repository) timeline(ctx context.Context, orderID int64) ([]TimelineEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, action, description, actor_id, actor_name, created_at
		FROM order_timeline WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TimelineEntry
	for rows.Next() {
		var e TimelineEntry
		err := rows.Scan(&e.ID, &e.OrderID, &e.Action, &e.Description, &e.ActorID, &e.ActorName, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) comments(ctx context.Context, orderID int64) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, body, actor_id, actor_name, created_at
		FROM order_comments WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		err := rows.Scan(&c.ID, &c.OrderID, &c.Body, &c.ActorID, &c.ActorName, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (Order, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

func (r *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO orders
			(number, status, priority, customer_name, customer_phone, customer_email,
			 print_type, print_quantity, estimated_cost, final_cost, paid_amount, payment_status,
			 is_quotation, is_urgent, created_by, created_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		o.Number, string(o.Status), string(o.Priority), o.CustomerName, o.CustomerPhone, o.CustomerEmail,
		o.PrintType, o.PrintQuantity, o.EstimatedCost, o.FinalCost, o.PaidAmount, string(o.PaymentStatus),
		o.IsQuotation, o.IsUrgent, o.CreatedBy, o.CreatedByName,
	).Scan(&id)
	return id, err
}

func (r *txRepo) InsertMaterials(ctx context.Context, orderID int64, materials []Material) error {
	for _, m := range materials {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO order_materials (order_id, item_id, name, quantity)
			VALUES ($1, $2, $3, $4)`, orderID, m.ItemID, m.Name, m.Quantity)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	return err
}

func (r *txRepo) GetAssignmentForUpdate(ctx context.Context, orderID int64, dept shared.Department) (Assignment, error) {
	row := r.tx.QueryRow(ctx, `
		SELECT department, assignee_id, assignee_name, assigner_id, assigner_name,
		       assigned_at, started_at, completed_at, estimated_hours, actual_hours, notes
		FROM order_assignments WHERE order_id = $1 AND department = $2 FOR UPDATE`,
		orderID, string(dept))
	var a Assignment
	err := row.Scan(&a.Department, &a.AssigneeID, &a.AssigneeName, &a.AssignerID, &a.AssignerName,
		&a.AssignedAt, &a.StartedAt, &a.CompletedAt, &a.EstimatedHours, &a.ActualHours, &a.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, shared.ErrNotFound
		}
		return Assignment{}, err
	}
	return a, nil
}

func (r *txRepo) UpsertAssignment(ctx context.Context, orderID int64, a Assignment) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO order_assignments
			(order_id, department, assignee_id, assignee_name, assigner_id, assigner_name,
			 assigned_at, started_at, completed_at, estimated_hours, actual_hours, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id, department) DO UPDATE SET
			assignee_id = EXCLUDED.assignee_id,
			assignee_name = EXCLUDED.assignee_name,
			assigner_id = EXCLUDED.assigner_id,
			assigner_name = EXCLUDED.assigner_name,
			assigned_at = EXCLUDED.assigned_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			estimated_hours = EXCLUDED.estimated_hours,
			actual_hours = EXCLUDED.actual_hours,
			notes = EXCLUDED.notes`,
		orderID, string(a.Department), a.AssigneeID, a.AssigneeName, a.AssignerID, a.AssignerName,
		a.AssignedAt, a.StartedAt, a.CompletedAt, a.EstimatedHours, a.ActualHours, a.Notes)
	return err
}

func (r *txRepo) AppendTimeline(ctx context.Context, e TimelineEntry) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO order_timeline (order_id, action, description, actor_id, actor_name)
		VALUES ($1, $2, $3, $4, $5)`,
		e.OrderID, e.Action, e.Description, e.ActorID, e.ActorName)
	return err
}

func (r *txRepo) InsertComment(ctx context.Context, c Comment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_comments (order_id, body, actor_id, actor_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, c.OrderID, c.Body, c.ActorID, c.ActorName).Scan(&id)
	return id, err
}
