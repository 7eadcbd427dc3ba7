package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// Repository persists user accounts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, full_name, email, role, department, active, password_hash, created_at, updated_at`

// Get loads one user by id.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail loads one user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ListActiveByRole returns all active users holding the given role.
func (r *Repository) ListActiveByRole(ctx context.Context, role shared.Role) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 AND active ORDER BY id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("users: list by role: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// ListByDepartment returns active users in a department, heads first.
func (r *Repository) ListByDepartment(ctx context.Context, dept shared.Department) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE department = $1 AND active ORDER BY role, full_name`, string(dept))
	if err != nil {
		return nil, fmt.Errorf("users: list by department: %w", err)
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// Create inserts a user and returns the generated id.
func (r *Repository) Create(ctx context.Context, u User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (full_name, email, role, department, active, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		u.FullName, u.Email, string(u.Role), string(u.Department), u.Active, u.PasswordHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.Department, &u.Active, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func scanUserRow(rows pgx.Rows) (User, error) {
	var u User
	err := rows.Scan(&u.ID, &u.FullName, &u.Email, &u.Role, &u.Department, &u.Active, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
