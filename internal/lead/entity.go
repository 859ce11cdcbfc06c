// AngelaMos | 2026
// entity.go

package lead

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/recommend"
)

type Status string

const (
	StatusNew         Status = "NEW"
	StatusQualified   Status = "QUALIFIED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
	StatusConverted   Status = "CONVERTED"
	StatusClosed      Status = "CLOSED"
)

var transitions = map[Status]map[Status]bool{
	StatusNew: {
		StatusQualified:   true,
		StatusNeedsReview: true,
		StatusConverted:   true,
		StatusClosed:      true,
	},
	StatusQualified: {
		StatusNeedsReview: true,
		StatusConverted:   true,
		StatusClosed:      true,
	},
	StatusNeedsReview: {
		StatusQualified: true,
		StatusConverted: true,
		StatusClosed:    true,
	},
	StatusConverted: {},
	StatusClosed:    {},
}

func (s Status) CanTransition(to Status) bool {
	return transitions[s][to]
}

func (s Status) Terminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

var (
	ErrInvalidTransition = errors.New("lead status transition not allowed")
	ErrOverrideReason    = fmt.Errorf(
		"tier override requires a reason: %w",
		core.ErrInvalidInput,
	)
	ErrOverrideTier = fmt.Errorf(
		"tier override must be between %d and %d: %w",
		recommend.MinTier, recommend.MaxTier, core.ErrInvalidInput,
	)
)

// Lead is a prospective customer. Leads are closed, never deleted.
type Lead struct {
	ID                   string    `db:"id"`
	Email                string    `db:"email"`
	Name                 string    `db:"name"`
	ProjectAddress       string    `db:"project_address"`
	BudgetRange          string    `db:"budget_range"`
	Timeline             string    `db:"timeline"`
	ProjectType          string    `db:"project_type"`
	HasSurvey            bool      `db:"has_survey"`
	HasDrawings          bool      `db:"has_drawings"`
	Status               Status    `db:"status"`
	RecommendedTier      int       `db:"recommended_tier"`
	Confidence           string    `db:"confidence"`
	NeedsReview          bool      `db:"needs_review"`
	RecommendationReason string    `db:"recommendation_reason"`
	TierOverride         *int      `db:"tier_override"`
	OverrideReason       *string   `db:"override_reason"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (l *Lead) Intake() recommend.Intake {
	return recommend.ParseIntake(
		l.BudgetRange,
		l.Timeline,
		l.ProjectType,
		l.HasSurvey,
		l.HasDrawings,
	)
}

// EffectiveTier is the override when one is set, else the recommendation.
func (l *Lead) EffectiveTier() int {
	if l.TierOverride != nil {
		return *l.TierOverride
	}
	return l.RecommendedTier
}

// ApplyRecommendation stores rec on the lead and moves an open lead to
// QUALIFIED or NEEDS_REVIEW to match it.
func (l *Lead) ApplyRecommendation(rec recommend.Recommendation) error {
	if l.Status.Terminal() {
		return fmt.Errorf("%w: %s lead cannot be re-evaluated", ErrInvalidTransition, l.Status)
	}

	l.RecommendedTier = rec.Tier
	l.Confidence = string(rec.Confidence)
	l.NeedsReview = rec.NeedsManualReview
	l.RecommendationReason = rec.Reason

	next := StatusQualified
	if rec.NeedsManualReview {
		next = StatusNeedsReview
	}
	if next != l.Status {
		return l.TransitionTo(next)
	}
	return nil
}

func (l *Lead) TransitionTo(next Status) error {
	if !l.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, l.Status, next)
	}
	l.Status = next
	return nil
}

// SetOverride sets or clears the admin tier override. A nil tier clears it.
func (l *Lead) SetOverride(tier *int, reason string) error {
	if tier == nil {
		l.TierOverride = nil
		l.OverrideReason = nil
		return nil
	}

	if *tier < recommend.MinTier || *tier > recommend.MaxTier {
		return ErrOverrideTier
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrOverrideReason
	}

	t := *tier
	l.TierOverride = &t
	l.OverrideReason = &reason
	return nil
}
