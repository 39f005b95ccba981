package habits

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/utils"
)

type HabitStatsCmd struct {
	Habit  string `arg:"" optional:"" help:"Habit title or ID (default: all active habits)."`
	JSON   bool   `help:"Print the full statistics as JSON." name:"json"`
	Detail bool   `help:"Print a per-habit summary instead of a table."`
}

func (c *HabitStatsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	var results []habitstats.Result
	if c.Habit != "" {
		habit, err := resolveHabit(ctx, c.Habit, false)
		if err != nil {
			return err
		}
		sessions, err := ctx.Store.GetHabitSessions(habit.ID)
		if err != nil {
			return err
		}
		today := ctx.Today()
		results = []habitstats.Result{habitstats.ComputeHabit(habit, sessions, utils.LastNDayKeys(today, 7), today)}
	} else {
		var err error
		results, err = ctx.HabitStats()
		if err != nil {
			return err
		}
	}

	if c.JSON {
		return ctx.PrintJSON(results)
	}
	if len(results) == 0 {
		ctx.Println("No active habits.")
		return nil
	}
	if c.Detail {
		ctx.Println(habitstats.Summarize(results))
		return nil
	}

	ctx.Println(cli.Table(StatsHeaders, StatsRows(results)))
	return nil
}

// StatsHeaders are the column titles of StatsRows.
var StatsHeaders = []string{"Habit", "Cadence", "Streak", "Best", "All", "365d", "YTD", "Last 7"}

// StatsRows renders one table row per result.
func StatsRows(results []habitstats.Result) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		unit := "d"
		if r.Cadence == habitstats.CadenceWeekly {
			unit = "w"
		}
		rows = append(rows, []string{
			r.Title,
			string(r.Cadence),
			strconv.Itoa(r.ActiveStreak) + unit,
			strconv.Itoa(r.LongestStreak) + unit,
			fmt.Sprintf("%d%%", r.AllTime.Percent),
			fmt.Sprintf("%d%%", r.Trailing365.Percent),
			fmt.Sprintf("%d%%", r.YearToDate.Percent),
			habitstats.Strip(r.Last7Days),
		})
	}
	return rows
}
