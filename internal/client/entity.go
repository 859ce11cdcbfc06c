// AngelaMos | 2026
// entity.go

package client

import (
	"time"
)

// Client is the commercial relationship tied 1:1 to an account.
type Client struct {
	ID             string    `db:"id"`
	AccountID      string    `db:"account_id"`
	Tier           int       `db:"tier"`
	Status         string    `db:"status"`
	ProjectAddress string    `db:"project_address"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const (
	StatusOnboarding = "onboarding"
	StatusActive     = "active"
	StatusInactive   = "inactive"
)
