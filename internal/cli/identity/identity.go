package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/storage"
	"github.com/julianstephens/anchor/internal/utils"
	"github.com/julianstephens/anchor/internal/validation"
)

type MetricCmd struct {
	Add     MetricAddCmd     `cmd:"" help:"Add an identity metric."`
	List    MetricListCmd    `cmd:"" help:"List identity metrics."`
	Archive MetricArchiveCmd `cmd:"" help:"Archive an identity metric."`
}

// resolveMetric finds a metric by name (case-insensitive) or id.
func resolveMetric(ctx *cli.Context, ref string) (models.IdentityMetric, error) {
	metrics, err := ctx.Store.GetAllIdentityMetrics(true)
	if err != nil {
		return models.IdentityMetric{}, err
	}
	for _, m := range metrics {
		if m.ID == ref || strings.EqualFold(m.Name, ref) {
			return m, nil
		}
	}
	return models.IdentityMetric{}, fmt.Errorf("identity metric %q: %w", ref, storage.ErrNotFound)
}

type MetricAddCmd struct {
	Name        string `arg:"" help:"Metric name, e.g. 'someone who trains'."`
	Description string `help:"Optional description." default:""`
}

func (c *MetricAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}
	if len([]rune(name)) > validation.MaxTitleLength {
		return fmt.Errorf("metric name must be at most %d characters", validation.MaxTitleLength)
	}
	if existing, err := resolveMetric(ctx, name); err == nil && existing.ArchivedAt == nil {
		return fmt.Errorf("identity metric %q already exists", existing.Name)
	}

	m, err := ctx.Store.AddIdentityMetric(models.IdentityMetric{
		Name:        name,
		Description: strings.TrimSpace(c.Description),
		CreatedAt:   ctx.Today(),
	})
	if err != nil {
		return err
	}
	ctx.Printf("Added identity metric: %s\n", m.Name)
	return nil
}

type MetricListCmd struct {
	Archived bool `help:"Include archived metrics."`
	ShowIDs  bool `help:"Show metric IDs." name:"show-ids"`
}

func (c *MetricListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	metrics, err := ctx.Store.GetAllIdentityMetrics(c.Archived)
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		ctx.Println("No identity metrics found.")
		return nil
	}

	for _, m := range metrics {
		line := m.Name
		if c.ShowIDs {
			line += fmt.Sprintf(" (ID: %s)", m.ID)
		}
		if m.Description != "" {
			line += " - " + m.Description
		}
		if m.ArchivedAt != nil {
			line += " [ARCHIVED]"
		}
		ctx.Println(line)
	}
	return nil
}

type MetricArchiveCmd struct {
	Metric string `arg:"" help:"Metric name or ID."`
}

func (c *MetricArchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	m, err := resolveMetric(ctx, c.Metric)
	if err != nil {
		return err
	}
	if err := ctx.Store.ArchiveIdentityMetric(m.ID); err != nil {
		return err
	}
	ctx.Printf("Archived identity metric: %s\n", m.Name)
	return nil
}

// CheckinCmd records a 1-5 score for one metric, or prompts for every active
// metric when no metric is given.
type CheckinCmd struct {
	Metric string `arg:"" optional:"" help:"Metric name or ID (omit to check in on every metric interactively)."`
	Score  int    `help:"Score from 1 to 5." short:"s" default:"0"`
	Note   string `help:"Optional note." default:""`
	Day    string `help:"Day in YYYY-MM-DD format (default: today)." default:""`
}

func (c *CheckinCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	day := utils.DayKey(ctx.Today())
	if c.Day != "" {
		if _, err := utils.ParseDayKey(c.Day, ctx.Location()); err != nil {
			return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", c.Day)
		}
		day = c.Day
	}

	if c.Metric == "" {
		return c.runInteractive(ctx, day)
	}

	m, err := resolveMetric(ctx, c.Metric)
	if err != nil {
		return err
	}
	return saveCheckin(ctx, m, day, c.Score, c.Note)
}

func saveCheckin(ctx *cli.Context, m models.IdentityMetric, day string, score int, note string) error {
	checkin := models.IdentityCheckin{
		MetricID:  m.ID,
		Day:       day,
		Score:     score,
		Note:      strings.TrimSpace(note),
		CreatedAt: ctx.Today(),
	}
	if err := validation.ValidateCheckin(checkin); err != nil {
		return err
	}
	if _, err := ctx.Store.SaveCheckin(checkin); err != nil {
		return err
	}
	ctx.Printf("Checked in on %s for %s: %d/5\n", m.Name, day, score)
	return nil
}

type checkinAnswer struct {
	metric models.IdentityMetric
	score  string
	note   string
}

func (c *CheckinCmd) runInteractive(ctx *cli.Context, day string) error {
	metrics, err := ctx.Store.GetIdentityMetrics(context.Background())
	if err != nil {
		return err
	}
	if len(metrics) == 0 {
		ctx.Println("No identity metrics yet. Add one with 'anchor metric add'.")
		return nil
	}

	answers := make([]*checkinAnswer, 0, len(metrics))
	groups := make([]*huh.Group, 0, len(metrics))
	for _, m := range metrics {
		a := &checkinAnswer{metric: m, score: "3"}
		answers = append(answers, a)
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("%s (%s)", m.Name, day)).
				Description(m.Description).
				Options(scoreOptions()...).
				Value(&a.score),
			huh.NewInput().
				Title("Note").
				CharLimit(validation.MaxNoteLength).
				Value(&a.note),
		))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		return fmt.Errorf("check-in cancelled: %w", err)
	}

	for _, a := range answers {
		score, err := strconv.Atoi(a.score)
		if err != nil {
			return fmt.Errorf("invalid score %q", a.score)
		}
		if err := saveCheckin(ctx, a.metric, day, score, a.note); err != nil {
			return err
		}
	}
	return nil
}

func scoreOptions() []huh.Option[string] {
	labels := []string{"1 - not at all", "2 - barely", "3 - somewhat", "4 - mostly", "5 - fully"}
	opts := make([]huh.Option[string], 0, len(labels))
	for i, label := range labels {
		opts = append(opts, huh.NewOption(label, strconv.Itoa(i+1)))
	}
	return opts
}

// CheckinsCmd prints recent check-ins per metric.
type CheckinsCmd struct {
	Days int `help:"Number of days to show, ending today." default:"7"`
}

func (c *CheckinsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	today := ctx.Today()
	from := utils.DayKey(utils.AddDays(today, -(c.Days - 1)))
	checkins, err := ctx.Store.GetCheckinsBetween(context.Background(), from, utils.DayKey(today))
	if err != nil {
		return err
	}
	metrics, err := ctx.Store.GetAllIdentityMetrics(true)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(metrics))
	for _, m := range metrics {
		names[m.ID] = m.Name
	}

	if len(checkins) == 0 {
		ctx.Printf("No check-ins since %s.\n", from)
		return nil
	}
	rows := make([][]string, 0, len(checkins))
	for _, ch := range checkins {
		rows = append(rows, []string{ch.Day, names[ch.MetricID], strconv.Itoa(ch.Score), ch.Note})
	}
	ctx.Println(cli.Table([]string{"Day", "Metric", "Score", "Note"}, rows))
	return nil
}

// ReflectCmd saves the reflection for the week containing --week. Without
// content an editor form is opened.
type ReflectCmd struct {
	Content string `arg:"" optional:"" help:"Reflection text (omit to open an editor)."`
	Week    string `help:"Any day of the week to reflect on, YYYY-MM-DD (default: this week)." default:""`
	Show    bool   `help:"Print recent reflections instead of writing one."`
}

func (c *ReflectCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	if c.Show {
		reflections, err := ctx.Store.GetRecentReflections(context.Background(), constants.MediumReflectionCount)
		if err != nil {
			return err
		}
		if len(reflections) == 0 {
			ctx.Println("No reflections yet.")
			return nil
		}
		for _, r := range reflections {
			ctx.Printf("Week of %s\n%s\n\n", r.WeekStart, r.Content)
		}
		return nil
	}

	day := ctx.Today()
	if c.Week != "" {
		parsed, err := utils.ParseDayKey(c.Week, ctx.Location())
		if err != nil {
			return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", c.Week)
		}
		day = parsed
	}
	weekStart := utils.WeekStartKey(day)

	content := c.Content
	if strings.TrimSpace(content) == "" {
		err := huh.NewForm(huh.NewGroup(
			huh.NewText().
				Title("Reflection for the week of " + weekStart).
				CharLimit(validation.MaxReflectionLength).
				Value(&content),
		)).Run()
		if err != nil {
			return fmt.Errorf("reflection cancelled: %w", err)
		}
	}

	r := models.WeeklyReflection{
		WeekStart: weekStart,
		Content:   strings.TrimSpace(content),
		CreatedAt: ctx.Today(),
	}
	if err := validation.ValidateReflection(r); err != nil {
		return err
	}
	if _, err := ctx.Store.SaveReflection(r); err != nil {
		return err
	}
	ctx.Printf("Saved reflection for the week of %s\n", weekStart)
	return nil
}
