// AngelaMos | 2026
// repository.go

package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atelierline/portal/internal/core"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	// CreateIfAbsent inserts a unless an account with the same email exists,
	// in which case a is overwritten with the stored row and created is false.
	CreateIfAbsent(ctx context.Context, a *Account) (created bool, err error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectColumns = `
		SELECT id, email, password_hash, name, account_type, tier,
		       token_version, created_at, updated_at
		FROM accounts`

func (r *repository) GetByID(ctx context.Context, id string) (*Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, selectColumns+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &a, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, selectColumns+` WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get account by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by email: %w", err)
	}

	return &a, nil
}

func (r *repository) CreateIfAbsent(
	ctx context.Context,
	a *Account,
) (bool, error) {
	query := `
		INSERT INTO accounts (id, email, password_hash, name, account_type, tier)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
		RETURNING token_version, created_at, updated_at`

	err := r.db.GetContext(ctx, a, query,
		a.ID,
		a.Email,
		a.PasswordHash,
		a.Name,
		a.Type,
		a.Tier,
	)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetByEmail(ctx, a.Email)
		if getErr != nil {
			return false, fmt.Errorf("create account: %w", getErr)
		}
		*a = *existing
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create account: %w", err)
	}

	return true, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}
