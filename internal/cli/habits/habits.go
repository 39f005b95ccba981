package habits

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/storage"
	"github.com/julianstephens/anchor/internal/utils"
	"github.com/julianstephens/anchor/internal/validation"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Log       HabitLogCmd       `cmd:"" help:"Log a session for a habit."`
	Sessions  HabitSessionsCmd  `cmd:"" help:"List logged sessions of a habit."`
	Unlog     HabitUnlogCmd     `cmd:"" help:"Delete a logged session."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Unarchive a habit."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit (soft delete)."`
	Restore   HabitRestoreCmd   `cmd:"" help:"Restore a deleted habit."`
	Stats     HabitStatsCmd     `cmd:"" help:"Show streaks and adherence."`
	Import    HabitImportCmd    `cmd:"" help:"Import sessions from a CSV file."`
}

// resolveHabit finds a habit by title, falling back to its id. Deleted habits
// are only matched when includeDeleted is set.
func resolveHabit(ctx *cli.Context, ref string, includeDeleted bool) (models.Habit, error) {
	if !includeDeleted {
		h, err := ctx.Store.GetHabitByTitle(ref)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return models.Habit{}, err
		}
		h, err = ctx.Store.GetHabit(ref)
		if err != nil {
			return models.Habit{}, fmt.Errorf("habit %q: %w", ref, storage.ErrNotFound)
		}
		if h.DeletedAt != nil {
			return models.Habit{}, fmt.Errorf("habit %q is deleted: %w", ref, storage.ErrNotFound)
		}
		return h, nil
	}

	all, err := ctx.Store.GetAllHabits(true, true)
	if err != nil {
		return models.Habit{}, err
	}
	var match *models.Habit
	for i := range all {
		h := all[i]
		if h.ID == ref {
			return h, nil
		}
		// Prefer the most recently deleted habit with this title
		if strings.EqualFold(h.Title, ref) {
			if match == nil || deletedAfter(h, *match) {
				match = &all[i]
			}
		}
	}
	if match == nil {
		return models.Habit{}, fmt.Errorf("habit %q: %w", ref, storage.ErrNotFound)
	}
	return *match, nil
}

func deletedAfter(a, b models.Habit) bool {
	if a.DeletedAt == nil {
		return false
	}
	if b.DeletedAt == nil {
		return true
	}
	return a.DeletedAt.After(*b.DeletedAt)
}

type HabitAddCmd struct {
	Title    string `arg:"" help:"Habit title."`
	Category string `help:"Optional category." default:""`
	Kind     string `help:"Habit kind: check or amount." enum:"check,amount" default:"check"`
	Count    int    `help:"Target per period (sessions for check habits, total amount for amount habits)." default:"1"`
	Period   string `help:"Success period, e.g. day or week." default:"day"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit := models.Habit{
		Title:     strings.TrimSpace(c.Title),
		Category:  strings.TrimSpace(c.Category),
		Kind:      models.HabitKind(c.Kind),
		Count:     c.Count,
		Period:    c.Period,
		CreatedAt: ctx.Today(),
	}
	if err := validation.ValidateHabit(habit); err != nil {
		return err
	}

	// Check if habit with same title already exists
	if _, err := ctx.Store.GetHabitByTitle(habit.Title); err == nil {
		return fmt.Errorf("habit with title %q already exists", habit.Title)
	}

	added, err := ctx.Store.AddHabit(habit)
	if err != nil {
		return err
	}

	ctx.Printf("Added habit: %s (%s, target %d per %s)\n", added.Title, added.Kind, added.Target(), added.Period)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
	Deleted  bool `help:"Include deleted habits."`
	ShowIDs  bool `help:"Show habit IDs." name:"show-ids"`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habits, err := ctx.Store.GetAllHabits(c.Archived, c.Deleted)
	if err != nil {
		return err
	}

	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	for _, habit := range habits {
		status := ""
		if habit.DeletedAt != nil {
			status = " [DELETED]"
		} else if habit.ArchivedAt != nil {
			status = " [ARCHIVED]"
		}
		idStr := ""
		if c.ShowIDs {
			idStr = fmt.Sprintf(" (ID: %s)", habit.ID)
		}
		category := ""
		if habit.Category != "" {
			category = fmt.Sprintf(" [%s]", habit.Category)
		}
		ctx.Printf("%s%s%s - %s, target %d per %s%s\n",
			habit.Title, category, idStr, habit.Kind, habit.Target(), habit.Period, status)
	}

	return nil
}

type HabitLogCmd struct {
	Habit    string `arg:"" help:"Habit title or ID."`
	Amount   *int   `help:"Amount logged (required for amount habits)."`
	Duration *int   `help:"Duration in minutes."`
	Note     string `help:"Optional note for this session." default:""`
	At       string `help:"When the session happened: RFC3339, 'YYYY-MM-DD HH:MM' or YYYY-MM-DD (default: now)." default:""`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}
	if habit.ArchivedAt != nil {
		return fmt.Errorf("habit %q is archived; unarchive it before logging", habit.Title)
	}

	at := ctx.Today()
	if c.At != "" {
		at, err = utils.ParseTimestamp(c.At, ctx.Location())
		if err != nil {
			return fmt.Errorf("invalid --at value: %w", err)
		}
	}

	session := models.HabitSession{
		HabitID:     habit.ID,
		Amount:      c.Amount,
		DurationMin: c.Duration,
		Note:        strings.TrimSpace(c.Note),
		CreatedAt:   at,
	}
	if c.Duration != nil {
		finished := at.Add(time.Duration(*c.Duration) * time.Minute)
		session.FinishedAt = &finished
	}
	if err := validation.ValidateSession(session, habit); err != nil {
		return err
	}

	added, err := ctx.Store.AddHabitSession(session)
	if err != nil {
		return err
	}

	detail := ""
	if habit.Kind == models.HabitKindAmount {
		detail = fmt.Sprintf(" (+%d)", *added.Amount)
	}
	ctx.Printf("Logged %s%s at %s\n", habit.Title, detail, ctx.FormatTimestamp(added.CreatedAt))
	return nil
}

type HabitSessionsCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
	Limit int    `help:"Number of most recent sessions to show (0 for all)." default:"20"`
}

func (c *HabitSessionsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}
	sessions, err := ctx.Store.GetHabitSessions(habit.ID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ctx.Printf("No sessions logged for %s.\n", habit.Title)
		return nil
	}
	if c.Limit > 0 && len(sessions) > c.Limit {
		sessions = sessions[len(sessions)-c.Limit:]
	}

	ctx.Printf("Sessions for %s:\n", habit.Title)
	for _, s := range sessions {
		line := fmt.Sprintf("  %s  %s", ctx.FormatTimestamp(s.CreatedAt), s.ID)
		if s.Amount != nil {
			line += fmt.Sprintf("  amount %d", *s.Amount)
		}
		if s.DurationMin != nil {
			line += fmt.Sprintf("  %dm", *s.DurationMin)
		}
		if s.Note != "" {
			line += "  " + s.Note
		}
		ctx.Println(line)
	}
	return nil
}

type HabitUnlogCmd struct {
	ID string `arg:"" help:"Session ID."`
}

func (c *HabitUnlogCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if err := ctx.Store.DeleteHabitSession(c.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted session %s\n", c.ID)
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}
	if err := ctx.Store.ArchiveHabit(habit.ID); err != nil {
		return err
	}

	ctx.Printf("Archived habit: %s\n", habit.Title)
	return nil
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}
	if err := ctx.Store.UnarchiveHabit(habit.ID); err != nil {
		return err
	}

	ctx.Printf("Unarchived habit: %s\n", habit.Title)
	return nil
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, false)
	if err != nil {
		return err
	}
	if err := ctx.Store.DeleteHabit(habit.ID); err != nil {
		return err
	}

	ctx.Printf("Deleted habit: %s\n", habit.Title)
	ctx.Println("Use 'anchor habit restore' to undo.")
	return nil
}

type HabitRestoreCmd struct {
	Habit string `arg:"" help:"Habit title or ID."`
}

func (c *HabitRestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	habit, err := resolveHabit(ctx, c.Habit, true)
	if err != nil {
		return err
	}
	if habit.DeletedAt == nil {
		return fmt.Errorf("habit %q is not deleted", habit.Title)
	}
	if _, err := ctx.Store.GetHabitByTitle(habit.Title); err == nil {
		return fmt.Errorf("an active habit titled %q already exists", habit.Title)
	}
	if err := ctx.Store.RestoreHabit(habit.ID); err != nil {
		return err
	}

	ctx.Printf("Restored habit: %s\n", habit.Title)
	return nil
}
