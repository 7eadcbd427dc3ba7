package users

import (
	"time"

	"github.com/printflow-erp/printflow-erp/internal/shared"
)

// User is an employee account. The engine consumes identity, role, department
// and the active flag; authentication itself lives outside this core.
type User struct {
	ID           int64
	FullName     string
	Email        string
	Role         shared.Role
	Department   shared.Department
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor converts the user into the context identity carried through requests.
func (u User) Actor() shared.Actor {
	return shared.Actor{
		ID:         u.ID,
		Name:       u.FullName,
		Role:       u.Role,
		Department: u.Department,
		Active:     u.Active,
	}
}
