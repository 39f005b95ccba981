package tasks

import (
	"fmt"
	"strings"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
	"github.com/julianstephens/anchor/internal/validation"
)

type TaskCmd struct {
	Done TaskDoneCmd `cmd:"" help:"Record a completed task."`
	List TaskListCmd `cmd:"" help:"List recently completed tasks."`
}

type TaskDoneCmd struct {
	Title string `arg:"" help:"Task title."`
	At    string `help:"Completion time: RFC3339, 'YYYY-MM-DD HH:MM' or YYYY-MM-DD (default: now)." default:""`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	title := strings.TrimSpace(c.Title)
	if title == "" {
		return fmt.Errorf("task title cannot be empty")
	}
	if len([]rune(title)) > validation.MaxNoteLength {
		return fmt.Errorf("task title must be at most %d characters", validation.MaxNoteLength)
	}

	at := ctx.Today()
	if c.At != "" {
		var err error
		at, err = utils.ParseTimestamp(c.At, ctx.Location())
		if err != nil {
			return fmt.Errorf("invalid --at value: %w", err)
		}
	}

	task, err := ctx.Store.AddCompletedTask(models.CompletedTask{Title: title, CompletedAt: at})
	if err != nil {
		return err
	}
	ctx.Printf("Completed: %s (%s)\n", task.Title, ctx.FormatTimestamp(task.CompletedAt))
	return nil
}

type TaskListCmd struct {
	Days int `help:"Number of days to look back, including today." default:"7"`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	since := utils.AddDays(utils.StartOfDay(ctx.Today()), -(c.Days - 1))
	tasks, err := ctx.Store.GetCompletedTasks(since)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	if len(tasks) == 0 {
		ctx.Println("No completed tasks found")
		return nil
	}

	ctx.Printf("Completed since %s:\n", utils.DayKey(since))
	for _, task := range tasks {
		ctx.Printf("  %s  %s\n", ctx.FormatTimestamp(task.CompletedAt), task.Title)
	}
	return nil
}
