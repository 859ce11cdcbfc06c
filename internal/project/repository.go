// AngelaMos | 2026
// repository.go

package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atelierline/portal/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	GetByAccessCode(ctx context.Context, code string) (*Project, error)
	ListByAccount(ctx context.Context, accountID string) ([]Project, error)
	// GetForAccount finds a project by access code, scoped to the account
	// that owns it.
	GetForAccount(ctx context.Context, accountID, code string) (*Project, error)
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectColumns = `
		SELECT p.id, p.client_id, p.name, p.tier, p.status, p.payment_status,
		       p.access_code, p.project_address, p.created_at, p.updated_at
		FROM projects p`

func (r *repository) Create(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (id, client_id, name, tier, status, payment_status,
		                      access_code, project_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.ClientID,
		p.Name,
		p.Tier,
		p.Status,
		p.PaymentStatus,
		p.AccessCode,
		p.ProjectAddress,
	)
	if err != nil {
		if core.IsUniqueViolation(err, "projects_access_code_key") {
			return fmt.Errorf("create project: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := r.db.GetContext(ctx, &p, selectColumns+` WHERE p.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &p, nil
}

func (r *repository) GetByAccessCode(
	ctx context.Context,
	code string,
) (*Project, error) {
	var p Project
	err := r.db.GetContext(ctx, &p, selectColumns+` WHERE p.access_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project by access code: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project by access code: %w", err)
	}

	return &p, nil
}

func (r *repository) ListByAccount(
	ctx context.Context,
	accountID string,
) ([]Project, error) {
	query := selectColumns + `
		JOIN clients c ON c.id = p.client_id
		WHERE c.account_id = $1
		ORDER BY p.created_at DESC`

	var projects []Project
	if err := r.db.SelectContext(ctx, &projects, query, accountID); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

func (r *repository) GetForAccount(
	ctx context.Context,
	accountID, code string,
) (*Project, error) {
	query := selectColumns + `
		JOIN clients c ON c.id = p.client_id
		WHERE p.access_code = $1 AND c.account_id = $2`

	var p Project
	err := r.db.GetContext(ctx, &p, query, code, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get project for account: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project for account: %w", err)
	}

	return &p, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM projects`); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}
