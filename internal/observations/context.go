package observations

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

// analysisContext is everything loaded once per run and shared by all tiers.
type analysisContext struct {
	today     string
	yesterday string

	habits      []habitstats.Result
	metrics     []models.IdentityMetric
	checkins    []models.IdentityCheckin  // widest window any tier needs
	reflections []models.WeeklyReflection // newest first
	active      []models.Observation
	dismissed   []models.Observation
	tasks       []models.CompletedTask
}

// render builds the user prompt for one tier.
func (ac analysisContext) render(t tier) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Dates\n\nToday: %s\nAnalysis covers through: %s\n\n", ac.today, ac.yesterday)

	sb.WriteString("## Habits\n\n")
	sb.WriteString(habitstats.Summarize(ac.habits))
	sb.WriteString("\n\n")

	ac.writeCheckins(&sb, t.metricsDays)
	ac.writeReflections(&sb, t.reflections)

	if len(ac.active) > 0 {
		sb.WriteString("## Current observations\n\n")
		for _, o := range ac.active {
			fmt.Fprintf(&sb, "- (%s, %s) [%s] %s\n", o.Scope, o.DateRef, o.Category, o.Text)
		}
		sb.WriteString("\n")
	}

	if len(ac.dismissed) > 0 {
		sb.WriteString("## Dismissed observations (do not repeat)\n\n")
		for _, o := range ac.dismissed {
			fmt.Fprintf(&sb, "- [%s] %s", o.Category, o.Text)
			if o.DismissReason != "" {
				fmt.Fprintf(&sb, " (reason: %s)", o.DismissReason)
			}
			if o.DismissNote != "" {
				fmt.Fprintf(&sb, " note: %s", o.DismissNote)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(ac.tasks) > 0 {
		sb.WriteString("## Recently completed tasks\n\n")
		tasks := append([]models.CompletedTask(nil), ac.tasks...)
		sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CompletedAt.After(tasks[j].CompletedAt) })
		if len(tasks) > constants.RecentTaskTitlesLimit {
			tasks = tasks[:constants.RecentTaskTitlesLimit]
		}
		for _, task := range tasks {
			fmt.Fprintf(&sb, "- %s\n", task.Title)
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func (ac analysisContext) writeCheckins(sb *strings.Builder, days int) {
	if len(ac.metrics) == 0 {
		return
	}
	from := utils.ShiftDayKey(ac.yesterday, -(days - 1))
	fmt.Fprintf(sb, "## Identity check-ins (%s to %s)\n\n", from, ac.yesterday)

	byMetric := make(map[string][]models.IdentityCheckin)
	for _, c := range ac.checkins {
		if c.Day < from || c.Day > ac.yesterday {
			continue
		}
		byMetric[c.MetricID] = append(byMetric[c.MetricID], c)
	}

	for _, m := range ac.metrics {
		checkins := byMetric[m.ID]
		fmt.Fprintf(sb, "- %s (id %s)", m.Name, m.ID)
		if len(checkins) == 0 {
			sb.WriteString(": no check-ins\n")
			continue
		}
		sort.Slice(checkins, func(i, j int) bool { return checkins[i].Day < checkins[j].Day })
		sum := 0
		scores := make([]string, 0, len(checkins))
		for _, c := range checkins {
			sum += c.Score
			scores = append(scores, fmt.Sprintf("%s=%d", c.Day, c.Score))
		}
		fmt.Fprintf(sb, ": avg %.1f over %d/%d days [%s]\n",
			float64(sum)/float64(len(checkins)), len(checkins), days, strings.Join(scores, " "))
	}
	sb.WriteString("\n")
}

func (ac analysisContext) writeReflections(sb *strings.Builder, n int) {
	if len(ac.reflections) == 0 || n <= 0 {
		return
	}
	reflections := ac.reflections
	if len(reflections) > n {
		reflections = reflections[:n]
	}
	sb.WriteString("## Weekly reflections\n\n")
	for _, r := range reflections {
		fmt.Fprintf(sb, "### Week of %s\n%s\n\n", r.WeekStart, strings.TrimSpace(r.Content))
	}
}
