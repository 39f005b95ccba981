package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/anchor/internal/backup"
	"github.com/julianstephens/anchor/internal/config"
	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/keyring"
	"github.com/julianstephens/anchor/internal/llm"
	"github.com/julianstephens/anchor/internal/logger"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/observations"
	"github.com/julianstephens/anchor/internal/storage"
	"github.com/julianstephens/anchor/internal/storage/sqlite"
	"github.com/julianstephens/anchor/internal/utils"
)

// Notifier delivers a short message outside the terminal.
type Notifier interface {
	Notify(ctx context.Context, title, text string) error
}

type Context struct {
	Store    storage.Provider
	Config   *config.Config
	Notifier Notifier

	// Out receives command output; nil means stdout.
	Out io.Writer
	// In supplies answers to confirmation prompts; nil means stdin.
	In io.Reader
	// Now overrides the clock in tests.
	Now func() time.Time
	// NewLLM builds the completion client used by the observation pipeline.
	NewLLM func() (llm.Client, error)

	pipeline *observations.Pipeline
}

func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) Stdin() io.Reader {
	if c.In == nil {
		return os.Stdin
	}
	return c.In
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Stdout(), format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Stdout(), args...)
}

// UserID returns the configured observation owner.
func (c *Context) UserID() string {
	if c.Config == nil || c.Config.UserID == "" {
		return constants.DefaultUserID
	}
	return c.Config.UserID
}

// Location returns the configured timezone, falling back to the system zone.
func (c *Context) Location() *time.Location {
	if c.Config == nil {
		return time.Local
	}
	loc, err := c.Config.Location()
	if err != nil {
		logger.Warn("Invalid timezone, using local time", "timezone", c.Config.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// Today returns the current instant in the configured timezone.
func (c *Context) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().In(c.Location())
}

// Confirm asks a y/N question and reports whether the answer was yes.
func (c *Context) Confirm(question string) bool {
	c.Printf("%s (y/N): ", question)
	var response string
	_, _ = fmt.Fscanln(c.Stdin(), &response)
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	if c.Config != nil && !c.Config.Backup.Auto {
		return
	}
	if !c.IsSQLite() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// IsSQLite reports whether the store is a local SQLite file.
func (c *Context) IsSQLite() bool {
	_, ok := c.Store.(*sqlite.Store)
	return ok
}

// HabitStats computes statistics for every active habit as of today.
func (c *Context) HabitStats() ([]habitstats.Result, error) {
	habits, err := c.Store.GetAllHabits(false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load habits: %w", err)
	}
	sessions, err := c.Store.GetAllHabitSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to load habit sessions: %w", err)
	}
	today := c.Today()
	return habitstats.ComputeHabitStats(habits, sessions, utils.LastNDayKeys(today, 7), today), nil
}

// Pipeline returns the observation pipeline, building it on first use.
func (c *Context) Pipeline() (*observations.Pipeline, error) {
	if c.pipeline != nil {
		return c.pipeline, nil
	}
	if c.NewLLM == nil {
		return nil, llm.ErrMissingAPIKey
	}
	client, err := c.NewLLM()
	if err != nil {
		return nil, err
	}
	var opts []observations.Option
	opts = append(opts, observations.WithLogger(logger.Component("observations")))
	if c.Config != nil {
		opts = append(opts, observations.WithCap(c.Config.Pipeline.ObservationCap))
	}
	c.pipeline = observations.NewPipeline(c.Store, c.Store, client, opts...)
	return c.pipeline, nil
}

// Briefing computes habit stats and runs one pipeline pass. When no completion
// client can be built the stored observations are returned with the build error.
func (c *Context) Briefing(ctx context.Context) ([]habitstats.Result, []models.Observation, error) {
	stats, err := c.HabitStats()
	if err != nil {
		return nil, nil, err
	}

	today := c.Today()
	tasks, err := c.Store.GetCompletedTasks(utils.AddDays(utils.StartOfDay(today), -constants.ShortMetricsWindowDays))
	if err != nil {
		logger.Warn("Failed to load completed tasks", "error", err)
		tasks = nil
	}

	p, perr := c.Pipeline()
	if perr != nil {
		obs, err := c.Store.GetActiveObservations(ctx, c.UserID(), constants.RecentObservationsLimit)
		if err != nil {
			return stats, nil, fmt.Errorf("failed to load observations: %w", err)
		}
		return stats, obs, perr
	}

	obs := p.Run(ctx, observations.Input{
		UserID:         c.UserID(),
		Today:          today,
		Habits:         stats,
		CompletedTasks: tasks,
	})
	return stats, obs, nil
}

// LLMFactory builds completion clients from configuration. The API key comes
// from the provider's environment variable, else the OS keyring.
func LLMFactory(cfg *config.Config) func() (llm.Client, error) {
	return func() (llm.Client, error) {
		env := llm.APIKeyEnv(cfg.LLM.Provider)
		key, err := keyring.Lookup(keyring.LLMAPIKey, os.Getenv(env))
		if err != nil {
			return nil, fmt.Errorf("no API key in %s or the keyring (%v): %w", env, err, llm.ErrMissingAPIKey)
		}
		return llm.New(llm.Config{
			Provider:          cfg.LLM.Provider,
			Model:             cfg.LLM.Model,
			BaseURL:           cfg.LLM.BaseURL,
			Timeout:           cfg.LLM.Timeout,
			MaxRetries:        cfg.LLM.MaxRetries,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
			Logger:            logger.Component("llm"),
		}, key)
	}
}

// FormatTimestamp renders t in the configured timezone.
func (c *Context) FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(c.Location()).Format(constants.DateFormat + " " + constants.TimeFormat)
}
