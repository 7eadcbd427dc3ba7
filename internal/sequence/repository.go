package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printflow-erp/printflow-erp/internal/platform/db"
)

// Repository advances counters stored in the counters table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Next increments the named counter and returns the new value. The upsert
// runs inside a repeatable-read transaction so concurrent callers serialize
// on the counter row and no two of them ever see the same value.
func (r *Repository) Next(ctx context.Context, key string) (int64, error) {
	var value int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO counters (name, value)
			VALUES ($1, 1)
			ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
			RETURNING value`, key,
		).Scan(&value)
	})
	if err != nil {
		return 0, fmt.Errorf("sequence: next %q: %w", key, err)
	}
	return value, nil
}
