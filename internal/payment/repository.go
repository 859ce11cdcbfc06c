// AngelaMos | 2026
// repository.go

package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atelierline/portal/internal/core"
)

const intentConstraint = "payments_payment_intent_id_key"

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByIntentID(ctx context.Context, intentID string) (*Payment, error)
	SumSucceeded(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, p *Payment) error {
	query := `
		INSERT INTO payments (id, project_id, payment_intent_id, customer_id,
		                      amount, currency, status, tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &p.CreatedAt, query,
		p.ID,
		p.ProjectID,
		p.PaymentIntentID,
		p.CustomerID,
		p.Amount,
		p.Currency,
		p.Status,
		p.Tier,
	)
	if err != nil {
		if core.IsUniqueViolation(err, intentConstraint) {
			return fmt.Errorf("create payment: %w", ErrDuplicateIntent)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

func (r *repository) GetByIntentID(
	ctx context.Context,
	intentID string,
) (*Payment, error) {
	query := `
		SELECT id, project_id, payment_intent_id, customer_id, amount, currency,
		       status, tier, created_at
		FROM payments
		WHERE payment_intent_id = $1`

	var p Payment
	err := r.db.GetContext(ctx, &p, query, intentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return &p, nil
}

func (r *repository) SumSucceeded(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = $1`
	if err := r.db.GetContext(ctx, &total, query, StatusSucceeded); err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}
