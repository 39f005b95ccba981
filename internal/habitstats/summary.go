package habitstats

import (
	"fmt"
	"strings"
	"time"
)

// Summarize renders results as the plain-text habit block used in analysis
// prompts and CLI output. One habit per paragraph, in input order.
func Summarize(results []Result) string {
	if len(results) == 0 {
		return "No active habits."
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		unit := "days"
		if r.Cadence == CadenceWeekly {
			unit = "weeks"
		}
		fmt.Fprintf(&sb, "- %s", r.Title)
		if r.Category != "" {
			fmt.Fprintf(&sb, " [%s]", r.Category)
		}
		fmt.Fprintf(&sb, " (%s, %s, target %d)\n", r.Cadence, r.Kind, r.Target)
		fmt.Fprintf(&sb, "  streak: %d %s active, %d longest\n", r.ActiveStreak, unit, r.LongestStreak)
		fmt.Fprintf(&sb, "  adherence: all-time %d%% (%d/%d), last 365 %d%%, this year %d%%\n",
			r.AllTime.Percent, r.AllTime.SuccessPeriods, r.AllTime.TotalPeriods,
			r.Trailing365.Percent, r.YearToDate.Percent)
		fmt.Fprintf(&sb, "  last 7 days: %s\n", Strip(r.Last7Days))
		if r.Cadence == CadenceWeekly {
			status := "not yet met"
			if r.CurrentWeekSuccess {
				status = "met"
			}
			fmt.Fprintf(&sb, "  current week: %s\n", status)
		}
		if best, ok := bestWeekday(r); ok {
			fmt.Fprintf(&sb, "  most active on %s\n", best)
		}
	}
	return sb.String()
}

// Strip renders the recent-days window as a compact string, one rune per day.
func Strip(days []DayStatus) string {
	var sb strings.Builder
	for _, d := range days {
		switch {
		case d.Success:
			sb.WriteRune('●')
		case d.Total > 0:
			sb.WriteRune('◐')
		default:
			sb.WriteRune('·')
		}
	}
	return sb.String()
}

func bestWeekday(r Result) (string, bool) {
	best, top := -1, 0
	for i, n := range r.WeekdayTotals {
		if n > top {
			best, top = i, n
		}
	}
	if best < 0 {
		return "", false
	}
	return time.Weekday(best).String(), true
}
