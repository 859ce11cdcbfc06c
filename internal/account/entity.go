// AngelaMos | 2026
// entity.go

package account

import (
	"time"
)

// Account is the authenticated identity of a client or staff member. At
// most one exists per email.
type Account struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Type         string    `db:"account_type"`
	Tier         int       `db:"tier"`
	TokenVersion int       `db:"token_version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (a *Account) IsAdmin() bool {
	return a.Type == TypeAdmin
}

const (
	TypeClient = "client"
	TypeAdmin  = "admin"
)
