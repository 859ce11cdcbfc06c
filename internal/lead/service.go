// AngelaMos | 2026
// service.go

package lead

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/atelierline/portal/internal/recommend"
)

// Recommender is satisfied by *recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, in recommend.Intake) recommend.Recommendation
}

type Service struct {
	repo        Repository
	recommender Recommender
}

func NewService(repo Repository, recommender Recommender) *Service {
	return &Service{
		repo:        repo,
		recommender: recommender,
	}
}

func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Lead, error) {
	l := &Lead{
		ID:             uuid.New().String(),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Name:           strings.TrimSpace(req.Name),
		ProjectAddress: strings.TrimSpace(req.ProjectAddress),
		BudgetRange:    req.BudgetRange,
		Timeline:       req.Timeline,
		ProjectType:    req.ProjectType,
		HasSurvey:      req.HasSurvey,
		HasDrawings:    req.HasDrawings,
		Status:         StatusNew,
	}

	rec := s.recommender.Recommend(ctx, l.Intake())
	if err := l.ApplyRecommendation(rec); err != nil {
		return nil, fmt.Errorf("submit lead: %w", err)
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

// Preview runs the engine without persisting anything.
func (s *Service) Preview(
	ctx context.Context,
	req IntakeRequest,
) recommend.Recommendation {
	return s.recommender.Recommend(ctx, req.Intake())
}

func (s *Service) Get(ctx context.Context, id string) (*Lead, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]Lead, int, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}

// UpdateIntake replaces the intake answers and recomputes the stored
// recommendation.
func (s *Service) UpdateIntake(
	ctx context.Context,
	id string,
	req UpdateIntakeRequest,
) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ProjectAddress != nil {
		l.ProjectAddress = strings.TrimSpace(*req.ProjectAddress)
	}
	l.BudgetRange = req.BudgetRange
	l.Timeline = req.Timeline
	l.ProjectType = req.ProjectType
	l.HasSurvey = req.HasSurvey
	l.HasDrawings = req.HasDrawings

	rec := s.recommender.Recommend(ctx, l.Intake())
	if err := l.ApplyRecommendation(rec); err != nil {
		return nil, fmt.Errorf("update lead intake: %w", err)
	}

	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

func (s *Service) SetOverride(
	ctx context.Context,
	id string,
	req OverrideRequest,
) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if l.Status.Terminal() {
		return nil, fmt.Errorf(
			"set lead override: %w: lead is %s",
			ErrInvalidTransition, l.Status,
		)
	}

	if err := l.SetOverride(req.Tier, req.Reason); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}

	return l, nil
}

// Approve clears a manual review flag by moving the lead to QUALIFIED.
func (s *Service) Approve(ctx context.Context, id string) (*Lead, error) {
	return s.transition(ctx, id, StatusQualified)
}

func (s *Service) Close(ctx context.Context, id string) (*Lead, error) {
	return s.transition(ctx, id, StatusClosed)
}

func (s *Service) transition(
	ctx context.Context,
	id string,
	next Status,
) (*Lead, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := l.TransitionTo(next); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, l.ID, l.Status); err != nil {
		return nil, err
	}

	return l, nil
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
