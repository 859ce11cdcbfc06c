// AngelaMos | 2026
// repository.go

package lead

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atelierline/portal/internal/core"
)

type Repository interface {
	Create(ctx context.Context, l *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
	Update(ctx context.Context, l *Lead) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const selectColumns = `
		SELECT id, email, name, project_address, budget_range, timeline,
		       project_type, has_survey, has_drawings, status, recommended_tier,
		       confidence, needs_review, recommendation_reason, tier_override,
		       override_reason, created_at, updated_at
		FROM leads`

func (r *repository) Create(ctx context.Context, l *Lead) error {
	query := `
		INSERT INTO leads (id, email, name, project_address, budget_range, timeline,
		                   project_type, has_survey, has_drawings, status,
		                   recommended_tier, confidence, needs_review,
		                   recommendation_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, l, query,
		l.ID,
		l.Email,
		l.Name,
		l.ProjectAddress,
		l.BudgetRange,
		l.Timeline,
		l.ProjectType,
		l.HasSurvey,
		l.HasDrawings,
		l.Status,
		l.RecommendedTier,
		l.Confidence,
		l.NeedsReview,
		l.RecommendationReason,
	)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Lead, error) {
	var l Lead
	err := r.db.GetContext(ctx, &l, selectColumns+` WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get lead: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}

	return &l, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Lead, int, error) {
	params.Normalize()

	var (
		conditions []string
		args       []any
	)

	if params.Status != "" {
		args = append(args, params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d OR project_address ILIKE $%d)",
			len(args), len(args), len(args),
		))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM leads`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`%s%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, selectColumns, where, len(args)+1, len(args)+2)

	args = append(args, params.PageSize, offset)

	var leads []Lead
	if err := r.db.SelectContext(ctx, &leads, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}

	return leads, total, nil
}

func (r *repository) Update(ctx context.Context, l *Lead) error {
	query := `
		UPDATE leads
		SET project_address = $2,
		    budget_range = $3,
		    timeline = $4,
		    project_type = $5,
		    has_survey = $6,
		    has_drawings = $7,
		    status = $8,
		    recommended_tier = $9,
		    confidence = $10,
		    needs_review = $11,
		    recommendation_reason = $12,
		    tier_override = $13,
		    override_reason = $14,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &l.UpdatedAt, query,
		l.ID,
		l.ProjectAddress,
		l.BudgetRange,
		l.Timeline,
		l.ProjectType,
		l.HasSurvey,
		l.HasDrawings,
		l.Status,
		l.RecommendedTier,
		l.Confidence,
		l.NeedsReview,
		l.RecommendationReason,
		l.TierOverride,
		l.OverrideReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update lead: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}

	return nil
}

func (r *repository) UpdateStatus(
	ctx context.Context,
	id string,
	status Status,
) error {
	query := `UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update lead status: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}

	query := `SELECT status, COUNT(*) AS count FROM leads GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}

	counts := make(map[Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
