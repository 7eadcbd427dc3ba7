package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// ErrDuplicate reports that a notification with the same dedupe key was
// already written. Callers treat it as success.
var ErrDuplicate = errors.New("notifications: duplicate")

const uniqueViolation = "23505"

// Repository persists notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts one notification. A dedupe key collision maps to
// ErrDuplicate so retried deliveries stay exactly-once.
func (r *Repository) Create(ctx context.Context, n Notification) (int64, error) {
	const q = `
		INSERT INTO notifications (user_id, kind, title, body, priority, order_id, action_url, action_required, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, q,
		n.UserID, n.Kind, n.Title, n.Body, string(n.Priority), n.OrderID, n.ActionURL, n.ActionRequired, n.DedupeKey,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("notifications: create: %w", err)
	}
	return id, nil
}

// ListForUser returns the user's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID int64, filter Filter) ([]Notification, error) {
	q := `
		SELECT id, user_id, kind, title, body, priority, order_id, action_url, action_required, read, read_at, COALESCE(dedupe_key, ''), created_at
		FROM notifications
		WHERE user_id = $1`
	args := []any{userID}
	if filter.UnreadOnly {
		q += ` AND read = FALSE`
	}
	q += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("notifications: list: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Priority, &n.OrderID, &n.ActionURL, &n.ActionRequired, &n.Read, &n.ReadAt, &n.DedupeKey, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifications: scan: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns how many unread notifications the user has.
func (r *Repository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("notifications: count unread: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification to read and stamps read_at. The user id
// guards against marking someone else's notification.
func (r *Repository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notifications: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification for the user.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, read_at = NOW() WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("notifications: mark all read: %w", err)
	}
	return nil
}
