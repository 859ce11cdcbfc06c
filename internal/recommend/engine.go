// AngelaMos | 2026
// engine.go

// Package recommend turns a prospect's intake answers into a service-tier
// recommendation. Everything here is pure and safe for concurrent use.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/atelierline/portal/internal/core"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const maxReasonFactors = 3

// Intake is the subset of a lead the engine reads.
type Intake struct {
	Budget      BudgetRange
	Timeline    Timeline
	ProjectType ProjectType
	HasSurvey   bool
	HasDrawings bool
}

// ParseIntake maps raw category strings onto the tagged enums. Unknown
// values become the Unrecognized variant and never fail.
func ParseIntake(budget, timeline, projectType string, hasSurvey, hasDrawings bool) Intake {
	return Intake{
		Budget:      ParseBudget(budget),
		Timeline:    ParseTimeline(timeline),
		ProjectType: ParseProjectType(projectType),
		HasSurvey:   hasSurvey,
		HasDrawings: hasDrawings,
	}
}

type Recommendation struct {
	Tier              int        `json:"tier"`
	Confidence        Confidence `json:"confidence"`
	NeedsManualReview bool       `json:"needs_manual_review"`
	Reason            string     `json:"reason"`
	Factors           []Factor   `json:"factors"`
	Alternatives      []int      `json:"alternatives,omitempty"`
}

// Recommend is total: every Intake, including unrecognized categories,
// yields a tier in [MinTier, MaxTier] and a non-empty reason.
func Recommend(in Intake) Recommendation {
	factors := []Factor{
		in.Budget.classify(),
		in.Timeline.classify(),
		in.ProjectType.classify(),
		classifyAssets(in.HasSurvey, in.HasDrawings),
	}

	tier := weightedTier(factors)
	if in.Budget == BudgetOver50K && in.ProjectType.Complex() {
		tier = MaxTier
	}
	strongConflict := hasStrongConflict(factors, tier)
	confidence := confidenceFor(factors, tier, strongConflict)

	return Recommendation{
		Tier:              tier,
		Confidence:        confidence,
		NeedsManualReview: needsReview(in, tier, confidence, strongConflict),
		Reason:            reasonFor(factors, tier),
		Factors:           factors,
		Alternatives:      alternatives(factors, tier),
	}
}

func weightedTier(factors []Factor) int {
	var sum, weights int
	for _, f := range factors {
		sum += f.SuggestedTier * f.Weight
		weights += f.Weight
	}
	if weights == 0 {
		return midTier
	}

	tier := int(math.Round(float64(sum) / float64(weights)))
	return clampTier(tier)
}

func clampTier(tier int) int {
	if tier < MinTier {
		return MinTier
	}
	if tier > MaxTier {
		return MaxTier
	}
	return tier
}

// hasStrongConflict reports a weight-3 signal two or more tiers away from
// the outcome.
func hasStrongConflict(factors []Factor, tier int) bool {
	for _, f := range factors {
		if f.Weight >= WeightStrong && distance(f.SuggestedTier, tier) >= 2 {
			return true
		}
	}
	return false
}

func confidenceFor(factors []Factor, tier int, strongConflict bool) Confidence {
	if strongConflict {
		return ConfidenceLow
	}

	matches := 0
	for _, f := range factors {
		if f.SuggestedTier == tier {
			matches++
		}
	}

	ratio := float64(matches) / float64(len(factors))
	switch {
	case ratio >= 0.75:
		return ConfidenceHigh
	case ratio >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func needsReview(in Intake, tier int, confidence Confidence, strongConflict bool) bool {
	switch {
	case tier == MaxTier:
		return true
	case confidence == ConfidenceLow:
		return true
	case in.Budget == BudgetNotSure:
		return true
	case in.Timeline.Fastest() && tier >= 3:
		return true
	case in.ProjectType.Complex():
		return true
	default:
		return strongConflict
	}
}

func reasonFor(factors []Factor, tier int) string {
	supporting := make([]Factor, 0, len(factors))
	for _, f := range factors {
		if distance(f.SuggestedTier, tier) <= 1 {
			supporting = append(supporting, f)
		}
	}

	if len(supporting) == 0 {
		return fmt.Sprintf(
			"Tier %d selected by weighted analysis of budget, timeline, project type and existing assets",
			tier,
		)
	}

	sort.SliceStable(supporting, func(i, j int) bool {
		return supporting[i].Weight > supporting[j].Weight
	})
	if len(supporting) > maxReasonFactors {
		supporting = supporting[:maxReasonFactors]
	}

	parts := make([]string, 0, len(supporting))
	for _, f := range supporting {
		parts = append(parts, f.Rationale)
	}
	return strings.Join(parts, "; ")
}

func alternatives(factors []Factor, tier int) []int {
	weightByTier := make(map[int]int)
	for _, f := range factors {
		if f.SuggestedTier != tier {
			weightByTier[f.SuggestedTier] += f.Weight
		}
	}

	if len(weightByTier) == 0 {
		return nil
	}

	alts := make([]int, 0, len(weightByTier))
	for t := range weightByTier {
		alts = append(alts, t)
	}
	sort.Slice(alts, func(i, j int) bool {
		wi, wj := weightByTier[alts[i]], weightByTier[alts[j]]
		if wi != wj {
			return wi > wj
		}
		return alts[i] < alts[j]
	})
	return alts
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Engine wraps Recommend with tracing and counters. It adds no state to the
// decision itself.
type Engine struct {
	metrics *core.Metrics
}

func NewEngine(metrics *core.Metrics) *Engine {
	return &Engine{metrics: metrics}
}

func (e *Engine) Recommend(ctx context.Context, in Intake) Recommendation {
	_, span := core.StartSpan(ctx, "recommend", "recommend.tier",
		attribute.String("budget", in.Budget.String()),
		attribute.String("timeline", in.Timeline.String()),
		attribute.String("project_type", in.ProjectType.String()),
	)

	rec := Recommend(in)

	span.SetAttributes(
		attribute.Int("tier", rec.Tier),
		attribute.String("confidence", string(rec.Confidence)),
		attribute.Bool("needs_manual_review", rec.NeedsManualReview),
	)
	core.EndSpan(span, nil)

	if e.metrics != nil {
		e.metrics.Recommendations.
			WithLabelValues(strconv.Itoa(rec.Tier), string(rec.Confidence)).
			Inc()
	}

	return rec
}
