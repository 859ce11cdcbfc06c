// AngelaMos | 2026
// dto.go

package lead

import (
	"time"

	"github.com/atelierline/portal/internal/recommend"
)

type IntakeRequest struct {
	BudgetRange string `json:"budget_range" validate:"required,max=64"`
	Timeline    string `json:"timeline"     validate:"required,max=64"`
	ProjectType string `json:"project_type" validate:"required,max=64"`
	HasSurvey   bool   `json:"has_survey"`
	HasDrawings bool   `json:"has_drawings"`
}

func (r IntakeRequest) Intake() recommend.Intake {
	return recommend.ParseIntake(
		r.BudgetRange,
		r.Timeline,
		r.ProjectType,
		r.HasSurvey,
		r.HasDrawings,
	)
}

type SubmitRequest struct {
	Email          string `json:"email"           validate:"required,email,max=255"`
	Name           string `json:"name"            validate:"omitempty,max=100"`
	ProjectAddress string `json:"project_address" validate:"omitempty,max=500"`
	IntakeRequest
}

type UpdateIntakeRequest struct {
	ProjectAddress *string `json:"project_address,omitempty" validate:"omitempty,max=500"`
	IntakeRequest
}

type OverrideRequest struct {
	Tier   *int   `json:"tier"   validate:"omitempty,min=1,max=4"`
	Reason string `json:"reason" validate:"max=1000"`
}

type LeadResponse struct {
	ID             string                   `json:"id"`
	Email          string                   `json:"email"`
	Name           string                   `json:"name,omitempty"`
	ProjectAddress string                   `json:"project_address,omitempty"`
	BudgetRange    string                   `json:"budget_range"`
	Timeline       string                   `json:"timeline"`
	ProjectType    string                   `json:"project_type"`
	HasSurvey      bool                     `json:"has_survey"`
	HasDrawings    bool                     `json:"has_drawings"`
	Status         Status                   `json:"status"`
	Recommendation recommend.Recommendation `json:"recommendation"`
	TierOverride   *int                     `json:"tier_override,omitempty"`
	OverrideReason *string                  `json:"override_reason,omitempty"`
	EffectiveTier  int                      `json:"effective_tier"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// SubmitResponse is what the public intake form gets back. It omits admin
// review fields.
type SubmitResponse struct {
	ID                string `json:"id"`
	RecommendedTier   int    `json:"recommended_tier"`
	Confidence        string `json:"confidence"`
	NeedsManualReview bool   `json:"needs_manual_review"`
	Reason            string `json:"reason"`
}

func ToLeadResponse(l *Lead) LeadResponse {
	rec := recommend.Recommend(l.Intake())

	return LeadResponse{
		ID:             l.ID,
		Email:          l.Email,
		Name:           l.Name,
		ProjectAddress: l.ProjectAddress,
		BudgetRange:    l.BudgetRange,
		Timeline:       l.Timeline,
		ProjectType:    l.ProjectType,
		HasSurvey:      l.HasSurvey,
		HasDrawings:    l.HasDrawings,
		Status:         l.Status,
		Recommendation: rec,
		TierOverride:   l.TierOverride,
		OverrideReason: l.OverrideReason,
		EffectiveTier:  l.EffectiveTier(),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func ToSubmitResponse(l *Lead) SubmitResponse {
	return SubmitResponse{
		ID:                l.ID,
		RecommendedTier:   l.RecommendedTier,
		Confidence:        l.Confidence,
		NeedsManualReview: l.NeedsReview,
		Reason:            l.RecommendationReason,
	}
}

type ListParams struct {
	Page     int
	PageSize int
	Status   Status
	Search   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}
