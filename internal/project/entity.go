// AngelaMos | 2026
// entity.go

package project

import (
	"time"
)

// Project is one engagement for a client. Every provisioned payment gets a
// new project.
type Project struct {
	ID             string    `db:"id"`
	ClientID       string    `db:"client_id"`
	Name           string    `db:"name"`
	Tier           int       `db:"tier"`
	Status         string    `db:"status"`
	PaymentStatus  string    `db:"payment_status"`
	AccessCode     string    `db:"access_code"`
	ProjectAddress string    `db:"project_address"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

const (
	StatusOnboarding = "onboarding"
	StatusActive     = "active"
	StatusCompleted  = "completed"
)

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPending = "pending"
)
