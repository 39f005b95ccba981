package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/cli/backups"
	"github.com/julianstephens/anchor/internal/cli/habits"
	"github.com/julianstephens/anchor/internal/cli/identity"
	"github.com/julianstephens/anchor/internal/cli/insights"
	"github.com/julianstephens/anchor/internal/cli/system"
	"github.com/julianstephens/anchor/internal/cli/tasks"
	"github.com/julianstephens/anchor/internal/config"
	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/errors"
	"github.com/julianstephens/anchor/internal/keyring"
	"github.com/julianstephens/anchor/internal/logger"
	"github.com/julianstephens/anchor/internal/notifier"
	"github.com/julianstephens/anchor/internal/storage"
	"github.com/julianstephens/anchor/internal/storage/postgres"
	"github.com/julianstephens/anchor/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path (defaults to ~/.config/anchor/config.yaml)." type:"string"`
	DB      string `help:"SQLite file path or PostgreSQL connection string. PostgreSQL credentials must NOT be embedded; use ANCHOR_DB_CONNECTION, .pgpass or the OS keyring instead." name:"db" type:"string"`
	Debug   bool   `help:"Log debug output to stderr."`

	Init         system.InitCmd           `cmd:"" help:"Initialize anchor storage."`
	Migrate      system.MigrateCmd        `cmd:"" help:"Run database migrations."`
	Doctor       system.DoctorCmd         `cmd:"" help:"Run health checks and diagnostics."`
	Validate     system.ValidateCmd       `cmd:"" help:"Check stored habits and observations for conflicts."`
	Tui          system.TuiCmd            `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Habit        habits.HabitCmd          `cmd:"" help:"Manage habits and habit sessions."`
	Metric       identity.MetricCmd       `cmd:"" help:"Manage identity metrics."`
	Checkin      identity.CheckinCmd      `cmd:"" help:"Record identity check-ins."`
	Checkins     identity.CheckinsCmd     `cmd:"" help:"List recent identity check-ins."`
	Reflect      identity.ReflectCmd      `cmd:"" help:"Write or show weekly reflections."`
	Task         tasks.TaskCmd            `cmd:"" help:"Record and list completed tasks."`
	Observations insights.ObservationsCmd `cmd:"" help:"Review generated observations."`
	Briefing     insights.BriefingCmd     `cmd:"" help:"Show habit stats and the latest observations."`
	Backup       backups.BackupCmd        `cmd:"" help:"Manage database backups."`
	Keyring      system.KeyringCmd        `cmd:"" help:"Manage secrets in the OS keyring."`
}

// noPreload lists commands that open or inspect storage themselves.
var noPreload = map[string]bool{
	"init":    true,
	"keyring": true,
	"doctor":  true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracking with daily observations"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: CLI.Debug || cfg.Debug, ConfigDir: config.Dir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	appCtx := &cli.Context{
		Store:    store,
		Config:   cfg,
		Notifier: notifier.New(),
		NewLLM:   cli.LLMFactory(cfg),
	}

	command := strings.Fields(ctx.Command())
	if len(command) > 0 && !noPreload[command[0]] {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		errors.Fatal(err)
	}
}

// openStore picks the backend from --db, ANCHOR_DB_CONNECTION, the keyring
// and finally storage.path, in that order.
func openStore(cfg *config.Config) (storage.Provider, error) {
	path, trusted := CLI.DB, false
	if path == "" {
		if conn := strings.TrimSpace(os.Getenv(config.DBConnectionEnv)); conn != "" {
			path, trusted = conn, true
		} else if conn, err := keyring.Get(keyring.ConnectionString); err == nil {
			path, trusted = conn, true
		} else if !stderrors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Keyring lookup skipped", "error", err)
		}
	}
	if path == "" {
		path = cfg.Storage.Path
	}

	if !config.IsPostgres(path) && !strings.Contains(path, "host=") {
		return sqlite.NewStore(config.ExpandPath(path)), nil
	}

	if _, err := postgres.ValidateConnString(path); err != nil {
		// Secrets from the environment or keyring may carry a password
		if !(trusted && stderrors.Is(err, postgres.ErrEmbeddedCredentials)) {
			if stderrors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w: use %s, .pgpass or 'anchor keyring set db' instead", err, config.DBConnectionEnv)
			}
			return nil, err
		}
	}
	logger.Debug("Using PostgreSQL storage")
	return postgres.New(path), nil
}
