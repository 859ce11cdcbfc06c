// AngelaMos | 2026
// repository.go

package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelierline/portal/internal/core"
)

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, params ListParams) ([]Entry, int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO audit_log (id, actor, action, resource_type, resource_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &e.CreatedAt, query,
		e.ID,
		e.Actor,
		e.Action,
		e.ResourceType,
		e.ResourceID,
		e.Details,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Entry, int, error) {
	params.Normalize()

	var (
		conditions []string
		args       []any
	)

	if params.Action != "" {
		args = append(args, params.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if params.ResourceType != "" {
		args = append(args, params.ResourceType)
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", len(args)))
	}
	if params.ResourceID != "" {
		args = append(args, params.ResourceID)
		conditions = append(conditions, fmt.Sprintf("resource_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_log` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	listArgs := append(args, params.PageSize, offset)
	query := fmt.Sprintf(`
		SELECT id, actor, action, resource_type, resource_id, details, created_at
		FROM audit_log%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}

	return entries, total, nil
}
