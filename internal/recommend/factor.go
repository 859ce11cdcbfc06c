// AngelaMos | 2026
// factor.go

package recommend

import (
	"strings"
)

// Tier bounds. 1 is the lightest automated package, 4 the bespoke one.
const (
	MinTier = 1
	MaxTier = 4
	midTier = 2
)

// Factor weights.
const (
	WeightWeak   = 1
	WeightMedium = 2
	WeightStrong = 3
)

type FactorName string

const (
	FactorBudget      FactorName = "budget"
	FactorTimeline    FactorName = "timeline"
	FactorProjectType FactorName = "project_type"
	FactorAssets      FactorName = "assets"
)

// Factor is one classified input signal.
type Factor struct {
	Name          FactorName `json:"factor"`
	SuggestedTier int        `json:"suggested_tier"`
	Weight        int        `json:"weight"`
	Rationale     string     `json:"rationale"`
}

type BudgetRange int

const (
	BudgetUnrecognized BudgetRange = iota
	BudgetUnder5K
	Budget5KTo15K
	Budget15KTo50K
	BudgetOver50K
	BudgetNotSure
)

var budgetNames = map[string]BudgetRange{
	"under_5k": BudgetUnder5K,
	"5k_15k":   Budget5KTo15K,
	"15k_50k":  Budget15KTo50K,
	"50k_plus": BudgetOver50K,
	"not_sure": BudgetNotSure,
}

func ParseBudget(s string) BudgetRange {
	return budgetNames[normalize(s)]
}

func (b BudgetRange) String() string {
	for name, v := range budgetNames {
		if v == b {
			return name
		}
	}
	return "unrecognized"
}

func (b BudgetRange) classify() Factor {
	f := Factor{Name: FactorBudget}
	switch b {
	case BudgetUnder5K:
		f.SuggestedTier, f.Weight = 1, WeightStrong
		f.Rationale = "Budget under $5k fits the automated design package"
	case Budget5KTo15K:
		f.SuggestedTier, f.Weight = 2, WeightMedium
		f.Rationale = "Budget of $5k-$15k supports a guided design package"
	case Budget15KTo50K:
		f.SuggestedTier, f.Weight = 3, WeightMedium
		f.Rationale = "Budget of $15k-$50k supports a full-service design package"
	case BudgetOver50K:
		f.SuggestedTier, f.Weight = 4, WeightStrong
		f.Rationale = "Budget over $50k warrants a bespoke design engagement"
	case BudgetNotSure:
		f.SuggestedTier, f.Weight = midTier, WeightWeak
		f.Rationale = "Budget not yet decided"
	default:
		f.SuggestedTier, f.Weight = midTier, WeightWeak
		f.Rationale = "Budget range not recognized"
	}
	return f
}

type Timeline int

const (
	TimelineUnrecognized Timeline = iota
	TimelineASAP
	Timeline1To3Months
	Timeline3To6Months
	Timeline6PlusMonths
	TimelineFlexible
)

var timelineNames = map[string]Timeline{
	"asap":          TimelineASAP,
	"1_3_months":    Timeline1To3Months,
	"3_6_months":    Timeline3To6Months,
	"6_plus_months": Timeline6PlusMonths,
	"flexible":      TimelineFlexible,
}

func ParseTimeline(s string) Timeline {
	return timelineNames[normalize(s)]
}

func (t Timeline) String() string {
	for name, v := range timelineNames {
		if v == t {
			return name
		}
	}
	return "unrecognized"
}

// Fastest reports whether t is the shortest timeline category offered.
func (t Timeline) Fastest() bool {
	return t == TimelineASAP
}

func (t Timeline) classify() Factor {
	f := Factor{Name: FactorTimeline}
	switch t {
	case TimelineASAP:
		f.SuggestedTier, f.Weight = 1, WeightMedium
		f.Rationale = "ASAP timeline suits a fast-turnaround package"
	case Timeline1To3Months:
		f.SuggestedTier, f.Weight = 2, WeightMedium
		f.Rationale = "1-3 month timeline allows a guided design process"
	case Timeline3To6Months:
		f.SuggestedTier, f.Weight = 3, WeightMedium
		f.Rationale = "3-6 month timeline allows iterative full-service design"
	case Timeline6PlusMonths:
		f.SuggestedTier, f.Weight = 4, WeightMedium
		f.Rationale = "Timeline beyond 6 months suggests a long-running bespoke engagement"
	case TimelineFlexible:
		f.SuggestedTier, f.Weight = midTier, WeightWeak
		f.Rationale = "Flexible timeline"
	default:
		f.SuggestedTier, f.Weight = midTier, WeightWeak
		f.Rationale = "Timeline not recognized"
	}
	return f
}

type ProjectType int

const (
	ProjectUnrecognized ProjectType = iota
	ProjectSimpleRefresh
	ProjectRenovation
	ProjectAddition
	ProjectNewConstruction
	ProjectCommercial
	ProjectMultiProperty
)

var projectTypeNames = map[string]ProjectType{
	"simple_refresh":   ProjectSimpleRefresh,
	"renovation":       ProjectRenovation,
	"addition":         ProjectAddition,
	"new_construction": ProjectNewConstruction,
	"commercial":       ProjectCommercial,
	"multi_property":   ProjectMultiProperty,
}

func ParseProjectType(s string) ProjectType {
	return projectTypeNames[normalize(s)]
}

func (p ProjectType) String() string {
	for name, v := range projectTypeNames {
		if v == p {
			return name
		}
	}
	return "unrecognized"
}

// Complex reports whether p always needs a human to scope it.
func (p ProjectType) Complex() bool {
	return p == ProjectCommercial || p == ProjectMultiProperty
}

func (p ProjectType) classify() Factor {
	f := Factor{Name: FactorProjectType}
	switch p {
	case ProjectSimpleRefresh:
		f.SuggestedTier, f.Weight = 1, WeightMedium
		f.Rationale = "Simple refresh projects are well served by templated design"
	case ProjectRenovation:
		f.SuggestedTier, f.Weight = 2, WeightMedium
		f.Rationale = "Renovation scope benefits from designer guidance"
	case ProjectAddition:
		f.SuggestedTier, f.Weight = 3, WeightMedium
		f.Rationale = "Additions need structural coordination and full design"
	case ProjectNewConstruction:
		f.SuggestedTier, f.Weight = 3, WeightStrong
		f.Rationale = "New construction requires a complete design package"
	case ProjectCommercial:
		f.SuggestedTier, f.Weight = 4, WeightStrong
		f.Rationale = "Commercial projects require a bespoke engagement"
	case ProjectMultiProperty:
		f.SuggestedTier, f.Weight = 4, WeightStrong
		f.Rationale = "Multi-property work requires a bespoke engagement"
	default:
		f.SuggestedTier, f.Weight = midTier, WeightWeak
		f.Rationale = "Project type not recognized"
	}
	return f
}

// classifyAssets scores how complete the client's existing design inputs are.
// Missing inputs force a site visit regardless of budget.
func classifyAssets(hasSurvey, hasDrawings bool) Factor {
	f := Factor{Name: FactorAssets}
	switch {
	case hasSurvey && hasDrawings:
		f.SuggestedTier, f.Weight = 1, WeightStrong
		f.Rationale = "Survey and drawings on hand allow a fast-track start"
	case hasSurvey || hasDrawings:
		f.SuggestedTier, f.Weight = 2, WeightMedium
		f.Rationale = "Partial site documentation needs some designer follow-up"
	default:
		f.SuggestedTier, f.Weight = 3, WeightStrong
		f.Rationale = "No survey or drawings, a site visit is required"
	}
	return f
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}
