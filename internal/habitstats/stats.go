// Package habitstats computes streaks, adherence and distribution statistics for
// habits from their raw session logs. Everything here is a pure function of the
// habit, its sessions and the reference day.
package habitstats

import (
	"math"
	"time"

	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

type Cadence string

const (
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// DayStatus is one entry of the recent-days strip.
type DayStatus struct {
	Day     string `json:"day"`
	Total   int    `json:"total"`
	Success bool   `json:"success"`
}

// Adherence is the share of eligible periods in a window where the habit succeeded.
type Adherence struct {
	SuccessPeriods int `json:"success_periods"`
	TotalPeriods   int `json:"total_periods"`
	Percent        int `json:"percent"`
}

func newAdherence(success, total int) Adherence {
	if total < 1 {
		total = 1
	}
	if success > total {
		success = total
	}
	if success < 0 {
		success = 0
	}
	return Adherence{
		SuccessPeriods: success,
		TotalPeriods:   total,
		Percent:        int(math.Round(100 * float64(success) / float64(total))),
	}
}

// Result holds the derived statistics for a single habit. It is never persisted.
type Result struct {
	HabitID  string           `json:"habit_id"`
	Title    string           `json:"title"`
	Category string           `json:"category,omitempty"`
	Kind     models.HabitKind `json:"kind"`
	Target   int              `json:"target"`
	Cadence  Cadence          `json:"cadence"`
	Start    string           `json:"start"`

	DayTotals   map[string]int `json:"day_totals"`
	WeekTotals  map[string]int `json:"week_totals"`
	MonthTotals map[string]int `json:"month_totals"`
	YearTotals  map[string]int `json:"year_totals"`

	SuccessDays  map[string]bool `json:"success_days"`
	SuccessWeeks map[string]bool `json:"success_weeks"`

	ActiveStreak  int `json:"active_streak"`
	LongestStreak int `json:"longest_streak"`

	// TotalPeriods and SuccessPeriods mirror the all-time adherence window.
	TotalPeriods   int `json:"total_periods"`
	SuccessPeriods int `json:"success_periods"`

	AllTime     Adherence `json:"all_time"`
	Trailing365 Adherence `json:"trailing_365"`
	YearToDate  Adherence `json:"year_to_date"`

	CurrentWeekSuccess bool        `json:"current_week_success"`
	MetricsEnd         string      `json:"metrics_end"`
	Last7Days          []DayStatus `json:"last_7_days"`

	WeekdayTotals      [7]int  `json:"weekday_totals"` // Indexed by time.Weekday
	WeekdaySuccess     [7]int  `json:"weekday_success"`
	MonthTotalsOfYear  [12]int `json:"month_of_year_totals"` // January first
	MonthSuccessOfYear [12]int `json:"month_of_year_success"`

	SessionCount   int    `json:"session_count"`
	TotalUnits     int    `json:"total_units"`
	LastSessionDay string `json:"last_session_day,omitempty"`
}

// buckets accumulates per-period totals from a single pass over the sessions.
type buckets struct {
	day   map[string]int
	week  map[string]int
	month map[string]int
	year  map[string]int

	weekday     [7]int
	monthOfYear [12]int
	sessions    int
	units       int
	earliest    time.Time
	latest      time.Time
}

func collect(habit models.Habit, sessions []models.HabitSession, loc *time.Location) *buckets {
	b := &buckets{
		day:   make(map[string]int),
		week:  make(map[string]int),
		month: make(map[string]int),
		year:  make(map[string]int),
	}
	for _, s := range sessions {
		if s.CreatedAt.IsZero() {
			continue
		}
		at := s.CreatedAt.In(loc)
		units := s.Units(habit.Kind)

		b.day[utils.DayKey(at)] += units
		b.week[utils.WeekStartKey(at)] += units
		b.month[utils.MonthKey(at)] += units
		b.year[utils.YearKey(at)] += units
		b.weekday[at.Weekday()] += units
		b.monthOfYear[at.Month()-1] += units
		b.sessions++
		b.units += units

		if b.earliest.IsZero() || at.Before(b.earliest) {
			b.earliest = at
		}
		if b.latest.IsZero() || at.After(b.latest) {
			b.latest = at
		}
	}
	return b
}

// timeline is the temporal frame a cadence policy measures against.
type timeline struct {
	today     time.Time // local midnight
	yesterday time.Time
	// start is the habit's start date: creation, else earliest session, else today.
	start time.Time
	// firstActivity is the earlier of start and the first session day.
	firstActivity time.Time
	// metricsEnd is today when a session landed today, otherwise yesterday.
	metricsEnd time.Time

	successDays  map[string]bool
	successWeeks map[string]bool
}

// ComputeHabitStats computes statistics for each habit from its sessions.
// sessionsByHabitID may list sessions in any order; sessions with a zero timestamp
// are skipped. last7DayKeys selects the recent-days strip. All bucketing happens in
// today's location.
func ComputeHabitStats(habits []models.Habit, sessionsByHabitID map[string][]models.HabitSession, last7DayKeys []string, today time.Time) []Result {
	results := make([]Result, 0, len(habits))
	for _, h := range habits {
		results = append(results, ComputeHabit(h, sessionsByHabitID[h.ID], last7DayKeys, today))
	}
	return results
}

// ComputeHabit computes statistics for one habit.
func ComputeHabit(habit models.Habit, sessions []models.HabitSession, last7DayKeys []string, today time.Time) Result {
	loc := today.Location()
	policy := PolicyFor(habit)
	threshold := Threshold(habit)
	b := collect(habit, sessions, loc)

	tl := timeline{
		today:     utils.StartOfDay(today),
		yesterday: utils.AddDays(utils.StartOfDay(today), -1),
	}
	tl.start = startDate(habit, b, tl.today)
	tl.firstActivity = tl.start
	if !b.earliest.IsZero() && utils.StartOfDay(b.earliest).Before(tl.firstActivity) {
		tl.firstActivity = utils.StartOfDay(b.earliest)
	}
	tl.metricsEnd = tl.yesterday
	if _, ok := b.day[utils.DayKey(tl.today)]; ok {
		tl.metricsEnd = tl.today
	}

	tl.successDays = policy.SuccessDays(b, threshold)
	tl.successWeeks = policy.SuccessWeeks(b, tl, threshold)

	active, longest := policy.Streaks(tl)
	if active > longest {
		longest = active
	}
	allTime, trailing, ytd := policy.Adherence(tl)

	res := Result{
		HabitID:            habit.ID,
		Title:              habit.Title,
		Category:           habit.Category,
		Kind:               habit.Kind,
		Target:             habit.Target(),
		Cadence:            policy.Cadence(),
		Start:              utils.DayKey(tl.start),
		DayTotals:          b.day,
		WeekTotals:         b.week,
		MonthTotals:        b.month,
		YearTotals:         b.year,
		SuccessDays:        tl.successDays,
		SuccessWeeks:       tl.successWeeks,
		ActiveStreak:       active,
		LongestStreak:      longest,
		TotalPeriods:       allTime.TotalPeriods,
		SuccessPeriods:     allTime.SuccessPeriods,
		AllTime:            allTime,
		Trailing365:        trailing,
		YearToDate:         ytd,
		CurrentWeekSuccess: tl.successWeeks[utils.WeekStartKey(tl.today)],
		MetricsEnd:         utils.DayKey(tl.metricsEnd),
		WeekdayTotals:      b.weekday,
		MonthTotalsOfYear:  b.monthOfYear,
		SessionCount:       b.sessions,
		TotalUnits:         b.units,
	}
	if !b.latest.IsZero() {
		res.LastSessionDay = utils.DayKey(b.latest)
	}

	for day := range tl.successDays {
		d, err := utils.ParseDayKey(day, loc)
		if err != nil {
			continue
		}
		res.WeekdaySuccess[d.Weekday()]++
		res.MonthSuccessOfYear[d.Month()-1]++
	}

	res.Last7Days = make([]DayStatus, 0, len(last7DayKeys))
	for _, key := range last7DayKeys {
		res.Last7Days = append(res.Last7Days, DayStatus{
			Day:     key,
			Total:   b.day[key],
			Success: tl.successDays[key],
		})
	}

	return res
}

// Threshold returns the per-period total a habit must reach to succeed: the target
// count for amount habits, a single session for check habits.
func Threshold(habit models.Habit) int {
	if habit.Kind == models.HabitKindAmount {
		return habit.Target()
	}
	return 1
}

func startDate(habit models.Habit, b *buckets, today time.Time) time.Time {
	var start time.Time
	switch {
	case !habit.CreatedAt.IsZero():
		start = utils.StartOfDay(habit.CreatedAt.In(today.Location()))
	case !b.earliest.IsZero():
		start = utils.StartOfDay(b.earliest)
	default:
		start = today
	}
	if start.After(today) {
		start = today
	}
	return start
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
