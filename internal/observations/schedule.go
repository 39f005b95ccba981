package observations

import (
	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

// GateDays returns the minimum number of whole days between runs of a tier.
func GateDays(depth models.AnalysisDepth) int {
	switch depth {
	case models.Depth30Day:
		return constants.Gate30DayDays
	case models.DepthFull:
		return constants.GateFullDays
	default:
		return constants.Gate7DayDays
	}
}

// ShouldRunAnalysis reports whether a tier is due. An empty or unparseable
// lastRunDate means the tier has never run.
func ShouldRunAnalysis(depth models.AnalysisDepth, lastRunDate, today string) bool {
	if lastRunDate == "" {
		return true
	}
	days, ok := utils.DayKeysBetween(lastRunDate, today)
	if !ok {
		return true
	}
	return days >= GateDays(depth)
}
