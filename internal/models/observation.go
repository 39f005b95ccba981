package models

import "time"

type ObservationScope string

const (
	ScopeDaily     ObservationScope = "daily"
	ScopeWeekly    ObservationScope = "weekly"
	ScopeQuarterly ObservationScope = "quarterly"
)

type AnalysisDepth string

const (
	Depth7Day  AnalysisDepth = "7day"
	Depth30Day AnalysisDepth = "30day"
	DepthFull  AnalysisDepth = "full"
)

type ObservationCategory string

const (
	CategoryHabitTrend        ObservationCategory = "habit_trend"
	CategoryStreakRisk        ObservationCategory = "streak_risk"
	CategoryIdentityAlignment ObservationCategory = "identity_alignment"
	CategoryReflectionTheme   ObservationCategory = "reflection_theme"
	CategoryTimePattern       ObservationCategory = "time_pattern"
	CategoryCorrelation       ObservationCategory = "correlation"
	CategoryGrowthSignal      ObservationCategory = "growth_signal"
)

// Categories lists every recognized observation category.
var Categories = []ObservationCategory{
	CategoryHabitTrend,
	CategoryStreakRisk,
	CategoryIdentityAlignment,
	CategoryReflectionTheme,
	CategoryTimePattern,
	CategoryCorrelation,
	CategoryGrowthSignal,
}

// IsValid reports whether c is one of the recognized categories.
func (c ObservationCategory) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type DismissReason string

const (
	DismissIntentional DismissReason = "intentional"
	DismissOutdated    DismissReason = "outdated"
	DismissIncorrect   DismissReason = "incorrect"
)

// IsValid reports whether r is a recognized dismiss reason.
func (r DismissReason) IsValid() bool {
	switch r {
	case DismissIntentional, DismissOutdated, DismissIncorrect:
		return true
	}
	return false
}

type EntityType string

const (
	EntityHabit          EntityType = "habit"
	EntityGoal           EntityType = "goal"
	EntityIdentityMetric EntityType = "identity_metric"
)

// EntityRef is an informational pointer from an observation to a habit, goal or
// identity metric. It is never enforced as a foreign key.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// ScopeForDepth returns the scope paired with an analysis depth.
func ScopeForDepth(depth AnalysisDepth) ObservationScope {
	switch depth {
	case Depth30Day:
		return ScopeWeekly
	case DepthFull:
		return ScopeQuarterly
	default:
		return ScopeDaily
	}
}

// Observation is a persisted, user-scoped insight produced by the observation pipeline
type Observation struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Scope         ObservationScope    `json:"scope"`
	AnalysisDepth AnalysisDepth       `json:"analysis_depth"`
	Category      ObservationCategory `json:"category"`
	Text          string              `json:"observation"`
	DateRef       string              `json:"date_ref"` // YYYY-MM-DD
	Confidence    int                 `json:"confidence"`
	EntityRefs    []EntityRef         `json:"entity_refs,omitempty"`
	Dismissed     bool                `json:"dismissed"`
	DismissReason DismissReason       `json:"dismiss_reason,omitempty"`
	DismissNote   string              `json:"dismiss_note,omitempty"`
	DismissedAt   *time.Time          `json:"dismissed_at,omitempty"`
	SupersededBy  string              `json:"superseded_by,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// IsActive reports whether the observation is neither dismissed nor superseded.
func (o Observation) IsActive() bool {
	return !o.Dismissed && o.SupersededBy == ""
}
