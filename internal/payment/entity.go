// AngelaMos | 2026
// entity.go

package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/atelierline/portal/internal/core"
)

// Payment records a confirmed charge. PaymentIntentID is unique across all
// payments and is the idempotency key for provisioning.
type Payment struct {
	ID              string    `db:"id"`
	ProjectID       string    `db:"project_id"`
	PaymentIntentID string    `db:"payment_intent_id"`
	CustomerID      string    `db:"customer_id"`
	Amount          int64     `db:"amount"`
	Currency        string    `db:"currency"`
	Status          string    `db:"status"`
	Tier            int       `db:"tier"`
	CreatedAt       time.Time `db:"created_at"`
}

const StatusSucceeded = "succeeded"

var ErrDuplicateIntent = fmt.Errorf(
	"payment intent already recorded: %w",
	core.ErrDuplicateKey,
)

func IsDuplicateIntent(err error) bool {
	return errors.Is(err, ErrDuplicateIntent)
}
