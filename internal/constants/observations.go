package constants

const (
	// Pipeline capacity and context limits
	ObservationCap          = 200 // Hard cap on active observations per user
	ActiveContextLimit      = 50  // Active observations embedded in analysis context
	DismissedContextLimit   = 30  // Dismissed observations embedded as corrective context
	RecentObservationsLimit = 5   // Observations returned to the caller
	MaxObservationLength    = 500 // Characters

	// Confidence bounds
	MinConfidence = 1
	MaxConfidence = 5

	// Frequency gates, in whole days since the tier last produced output
	Gate7DayDays  = 1
	Gate30DayDays = 5
	GateFullDays  = 14

	// Identity metric windows, in days ending yesterday
	ShortMetricsWindowDays = 7
	LongMetricsWindowDays  = 30

	// Reflections embedded per tier
	ShortReflectionCount  = 1
	MediumReflectionCount = 4
	LongReflectionCount   = 12

	// Consolidation thresholds
	WeeklyConsolidationAgeDays    = 7
	QuarterlyConsolidationAgeDays = 28
	ConsolidationMinStale         = 2
	ConsolidationMinTotal         = 3

	// Output token budgets per LLM call
	MaxTokens7Day         = 1500
	MaxTokens30Day        = 2000
	MaxTokensFull         = 2500
	MaxTokensConsolidate  = 1500
	RecentTaskTitlesLimit = 20
)

func init() {
	// Runtime validation: gates must be strictly increasing with depth
	if !(Gate7DayDays < Gate30DayDays && Gate30DayDays < GateFullDays) {
		panic("analysis frequency gates must increase with depth")
	}
	if ConsolidationMinStale > ConsolidationMinTotal {
		panic("ConsolidationMinStale must not exceed ConsolidationMinTotal")
	}
}
