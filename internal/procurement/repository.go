package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printflow-erp/printflow-erp/internal/platform/db"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// TxRepository exposes the transactional operations the service runs per
// purchase request.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error)
	Insert(ctx context.Context, pr PurchaseRequest) (int64, error)
	InsertLines(ctx context.Context, requestID int64, lines []Line) error
	UpdateStatus(ctx context.Context, id int64, status Status, decidedBy *int64, decidedByName, note string) error
}

// Repository persists purchase requests in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

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

const prColumns = `id, number, status, priority, reason, order_id, requested_by, requested_by_name,
	decided_by, COALESCE(decided_by_name, ''), COALESCE(decision_note, ''), created_at, updated_at`

// Get loads one purchase request with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*PurchaseRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+prColumns+` FROM purchase_requests WHERE id = $1`, id)
	pr, err := scanRequest(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, item_id, item_name, category, quantity, unit, estimated_cost
		FROM purchase_request_lines
		WHERE request_id = $1
		ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("procurement: load lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.RequestID, &line.ItemID, &line.ItemName, &line.Category, &line.Quantity, &line.Unit, &line.EstimatedCost); err != nil {
			return nil, err
		}
		pr.Lines = append(pr.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &pr, nil
}

// List returns purchase request headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]PurchaseRequest, error) {
	query := `SELECT ` + prColumns + ` FROM purchase_requests`
	var conditions []string
	var args []any

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.RequestedBy != 0 {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
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
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("procurement: list: %w", err)
	}
	defer rows.Close()

	var out []PurchaseRequest
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *txRepo) GetForUpdate(ctx context.Context, id int64) (PurchaseRequest, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+prColumns+` FROM purchase_requests WHERE id = $1 FOR UPDATE`, id)
	return scanRequest(row)
}

func (r *txRepo) Insert(ctx context.Context, pr PurchaseRequest) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO purchase_requests (number, status, priority, reason, order_id, requested_by, requested_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		pr.Number, string(pr.Status), string(pr.Priority), pr.Reason, pr.OrderID, pr.RequestedBy, pr.RequestedByName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("procurement: insert: %w", err)
	}
	return id, nil
}

func (r *txRepo) InsertLines(ctx context.Context, requestID int64, lines []Line) error {
	for _, line := range lines {
		_, err := r.tx.Exec(ctx, `
			INSERT INTO purchase_request_lines (request_id, item_id, item_name, category, quantity, unit, estimated_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			requestID, line.ItemID, line.ItemName, line.Category, line.Quantity, line.Unit, line.EstimatedCost)
		if err != nil {
			return fmt.Errorf("procurement: insert line: %w", err)
		}
	}
	return nil
}

func (r *txRepo) UpdateStatus(ctx context.Context, id int64, status Status, decidedBy *int64, decidedByName, note string) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE purchase_requests
		SET status = $1,
		    decided_by = COALESCE($2, decided_by),
		    decided_by_name = COALESCE(NULLIF($3, ''), decided_by_name),
		    decision_note = COALESCE(NULLIF($4, ''), decision_note),
		    updated_at = NOW()
		WHERE id = $5`,
		string(status), decidedBy, decidedByName, note, id)
	return err
}

func scanRequest(row pgx.Row) (PurchaseRequest, error) {
	var pr PurchaseRequest
	err := row.Scan(&pr.ID, &pr.Number, &pr.Status, &pr.Priority, &pr.Reason, &pr.OrderID, &pr.RequestedBy,
		&pr.RequestedByName, &pr.DecidedBy, &pr.DecidedByName, &pr.DecisionNote, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRequest{}, shared.ErrNotFound
		}
		return PurchaseRequest{}, err
	}
	return pr, nil
}
