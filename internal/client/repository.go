// AngelaMos | 2026
// repository.go

package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atelierline/portal/internal/core"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Client, error)
	GetByAccountID(ctx context.Context, accountID string) (*Client, error)
	// CreateIfAbsent inserts c unless the account already has a client, in
	// which case c is overwritten with the stored row.
	CreateIfAbsent(ctx context.Context, c *Client) (created bool, err error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectColumns = `
		SELECT id, account_id, tier, status, project_address, created_at, updated_at
		FROM clients`

func (r *repository) GetByID(ctx context.Context, id string) (*Client, error) {
	var c Client
	err := r.db.GetContext(ctx, &c, selectColumns+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get client: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

func (r *repository) GetByAccountID(
	ctx context.Context,
	accountID string,
) (*Client, error) {
	var c Client
	err := r.db.GetContext(ctx, &c, selectColumns+` WHERE account_id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get client by account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get client by account: %w", err)
	}
	return &c, nil
}

func (r *repository) CreateIfAbsent(ctx context.Context, c *Client) (bool, error) {
	query := `
		INSERT INTO clients (id, account_id, tier, status, project_address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO NOTHING
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, c, query,
		c.ID,
		c.AccountID,
		c.Tier,
		c.Status,
		c.ProjectAddress,
	)
	if errors.Is(err, sql.ErrNoRows) {
		existing, getErr := r.GetByAccountID(ctx, c.AccountID)
		if getErr != nil {
			return false, fmt.Errorf("create client: %w", getErr)
		}
		*c = *existing
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create client: %w", err)
	}

	return true, nil
}
