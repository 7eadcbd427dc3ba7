package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printflow-erp/printflow-erp/internal/platform/db"
	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// TxRepository exposes the per-item transactional operations used by the
// service. Each material line is one read-modify-write within one of these.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	UpdateItemStock(ctx context.Context, id int64, quantity float64, status StockStatus) error
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
}

// Repository persists inventory data in PostgreSQL.
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

const itemColumns = `id, name, category, department, quantity, min_quantity, status, created_at, updated_at`

// GetItem loads one item without locking.
func (r *Repository) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns items matching the filter, ordered by name.
func (r *Repository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items`
	var conditions []string
	var args []any
	argPos := 1

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", argPos))
		args = append(args, string(filter.Department))
		argPos++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(filter.Status))
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
		limit = 200
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListBelowThreshold returns items whose quantity is at or below min_quantity.
func (r *Repository) ListBelowThreshold(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE quantity <= min_quantity ORDER BY quantity`)
	if err != nil {
		return nil, fmt.Errorf("inventory: list below threshold: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListTransactions returns the audit trail for one item, newest first.
func (r *Repository) ListTransactions(ctx context.Context, itemID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.item_id, i.name, t.direction, t.quantity, t.previous_quantity,
		       t.new_quantity, t.reason, t.order_id, t.actor_id, t.actor_name, t.created_at
		FROM inventory_transactions t
		JOIN inventory_items i ON i.id = t.item_id
		WHERE t.item_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("inventory: list transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		err := rows.Scan(&t.ID, &t.ItemID, &t.ItemName, &t.Direction, &t.Quantity,
			&t.PreviousQuantity, &t.NewQuantity, &t.Reason, &t.OrderID, &t.ActorID, &t.ActorName, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// CreateItem inserts a new material with derived status.
func (r *Repository) CreateItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO inventory_items (name, category, department, quantity, min_quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		item.Name, item.Category, string(item.Department), item.Quantity, item.MinQuantity,
		string(DeriveStatus(item.Quantity, item.MinQuantity)),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inventory: create item: %w", err)
	}
	return id, nil
}

func (r *txRepo) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
	return scanItem(row)
}

func (r *txRepo) UpdateItemStock(ctx context.Context, id int64, quantity float64, status StockStatus) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE inventory_items SET quantity = $1, status = $2, updated_at = NOW()
		WHERE id = $3`, quantity, string(status), id)
	return err
}

func (r *txRepo) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO inventory_transactions
			(item_id, direction, quantity, previous_quantity, new_quantity, reason, order_id, actor_id, actor_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		t.ItemID, string(t.Direction), t.Quantity, t.PreviousQuantity, t.NewQuantity,
		t.Reason, t.OrderID, t.ActorID, t.ActorName,
	).Scan(&id)
	return id, err
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Department, &item.Quantity,
		&item.MinQuantity, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}
