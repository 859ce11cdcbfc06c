// AngelaMos | 2026
// errors.go

package provision

import (
	"errors"
	"fmt"

	"github.com/atelierline/portal/internal/core"
)

// ErrValidation marks events rejected before any write.
var ErrValidation = fmt.Errorf("invalid payment event: %w", core.ErrInvalidInput)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// TransactionError means the provisioning unit of work rolled back. The
// whole event is safe to redeliver.
type TransactionError struct {
	PaymentIntentID string
	Err             error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("provisioning %s rolled back: %v", e.PaymentIntentID, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// NotificationError means provisioning committed but the access notice was
// not delivered. It is returned alongside a non-nil Result.
type NotificationError struct {
	Email     string
	ProjectID string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("access notice for project %s not delivered: %v", e.ProjectID, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func IsNotificationError(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}

func IsTransactionError(err error) bool {
	var te *TransactionError
	return errors.As(err, &te)
}
