package habitstats

import (
	"time"

	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

// CadencePolicy captures everything that differs between day-graded and
// week-graded habits.
type CadencePolicy interface {
	Cadence() Cadence
	// SuccessDays returns the day keys counted as successful.
	SuccessDays(b *buckets, threshold int) map[string]bool
	// SuccessWeeks returns the week-start keys counted as successful.
	SuccessWeeks(b *buckets, tl timeline, threshold int) map[string]bool
	// Streaks returns the active and longest streak, in periods.
	Streaks(tl timeline) (active, longest int)
	// Adherence returns all-time, trailing-365 and current-year adherence.
	Adherence(tl timeline) (allTime, trailing365, yearToDate Adherence)
}

// PolicyFor classifies a habit's cadence from its period text.
func PolicyFor(habit models.Habit) CadencePolicy {
	if habit.IsDaily() {
		return DailyCadencePolicy{}
	}
	return WeeklyCadencePolicy{}
}

// DailyCadencePolicy grades each calendar day against the threshold.
type DailyCadencePolicy struct{}

func (DailyCadencePolicy) Cadence() Cadence { return CadenceDaily }

func (DailyCadencePolicy) SuccessDays(b *buckets, threshold int) map[string]bool {
	days := make(map[string]bool)
	for key, total := range b.day {
		if total >= threshold {
			days[key] = true
		}
	}
	return days
}

// SuccessWeeks marks a week successful when every eligible day in it succeeded.
// Eligible days are those between the first activity and the metrics end.
func (DailyCadencePolicy) SuccessWeeks(_ *buckets, tl timeline, _ int) map[string]bool {
	weeks := make(map[string]bool)
	if tl.metricsEnd.Before(tl.firstActivity) {
		return weeks
	}
	eligible := make(map[string]int)
	hits := make(map[string]int)
	for d := tl.firstActivity; !d.After(tl.metricsEnd); d = utils.AddDays(d, 1) {
		week := utils.WeekStartKey(d)
		eligible[week]++
		if tl.successDays[utils.DayKey(d)] {
			hits[week]++
		}
	}
	for week, n := range eligible {
		if hits[week] > 0 && hits[week] == n {
			weeks[week] = true
		}
	}
	return weeks
}

func (DailyCadencePolicy) Streaks(tl timeline) (int, int) {
	active := 0
	for d := tl.metricsEnd; tl.successDays[utils.DayKey(d)]; d = utils.AddDays(d, -1) {
		active++
	}

	longest, run := 0, 0
	for d := tl.firstActivity; !d.After(tl.metricsEnd); d = utils.AddDays(d, 1) {
		if tl.successDays[utils.DayKey(d)] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return active, longest
}

func (p DailyCadencePolicy) Adherence(tl timeline) (Adherence, Adherence, Adherence) {
	end := tl.metricsEnd
	allTime := p.window(tl, tl.start, end)
	trailing := p.window(tl, latest(utils.AddDays(end, -364), tl.start), end)
	jan1 := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, end.Location())
	ytd := p.window(tl, latest(jan1, tl.start), end)
	return allTime, trailing, ytd
}

func (DailyCadencePolicy) window(tl timeline, from, to time.Time) Adherence {
	total := utils.DaysBetween(from, to) + 1
	success := 0
	for d := from; !d.After(to); d = utils.AddDays(d, 1) {
		if tl.successDays[utils.DayKey(d)] {
			success++
		}
	}
	return newAdherence(success, total)
}

// WeeklyCadencePolicy grades Sunday-anchored weeks against the threshold. Days
// with any activity are still reported as successful days for display.
type WeeklyCadencePolicy struct{}

func (WeeklyCadencePolicy) Cadence() Cadence { return CadenceWeekly }

func (WeeklyCadencePolicy) SuccessDays(b *buckets, _ int) map[string]bool {
	days := make(map[string]bool)
	for key, total := range b.day {
		if total > 0 {
			days[key] = true
		}
	}
	return days
}

func (WeeklyCadencePolicy) SuccessWeeks(b *buckets, _ timeline, threshold int) map[string]bool {
	weeks := make(map[string]bool)
	for key, total := range b.week {
		if total >= threshold {
			weeks[key] = true
		}
	}
	return weeks
}

// Streaks walks back from the current week. A current week that has not yet met
// its target is still in progress, so the walk starts from the week before it.
func (WeeklyCadencePolicy) Streaks(tl timeline) (int, int) {
	current := utils.StartOfWeek(tl.today)

	active := 0
	w := current
	if !tl.successWeeks[utils.DayKey(w)] {
		w = utils.AddDays(w, -7)
	}
	for ; tl.successWeeks[utils.DayKey(w)]; w = utils.AddDays(w, -7) {
		active++
	}

	longest, run := 0, 0
	for w := utils.StartOfWeek(tl.firstActivity); !w.After(current); w = utils.AddDays(w, 7) {
		if tl.successWeeks[utils.DayKey(w)] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return active, longest
}

// Adherence measures weeks through the week containing yesterday, since the
// current week cannot close until it ends.
func (p WeeklyCadencePolicy) Adherence(tl timeline) (Adherence, Adherence, Adherence) {
	end := tl.yesterday
	allTime := p.window(tl, tl.start, end)
	trailing := p.window(tl, latest(utils.AddDays(end, -364), tl.start), end)
	jan1 := time.Date(end.Year(), time.January, 1, 0, 0, 0, 0, end.Location())
	ytd := p.window(tl, latest(jan1, tl.start), end)
	return allTime, trailing, ytd
}

func (WeeklyCadencePolicy) window(tl timeline, from, to time.Time) Adherence {
	first := utils.StartOfWeek(from)
	last := utils.StartOfWeek(to)
	total := utils.WeeksBetween(first, last) + 1
	success := 0
	for w := first; !w.After(last); w = utils.AddDays(w, 7) {
		if tl.successWeeks[utils.DayKey(w)] {
			success++
		}
	}
	return newAdherence(success, total)
}
