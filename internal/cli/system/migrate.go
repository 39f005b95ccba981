package system

import (
	"fmt"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/migration"
)

// migrator is implemented by stores backed by the embedded SQL migrations.
type migrator interface {
	Migrate(logFn func(string)) (int, error)
	MigrationStatus() (migration.Status, error)
}

type MigrateCmd struct {
	Status bool `help:"Show the schema version and pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	m, ok := ctx.Store.(migrator)
	if !ok {
		return fmt.Errorf("storage backend does not support migrations")
	}

	st, err := m.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	ctx.Printf("Schema version: %d (latest %d)\n", st.Current, st.Latest)

	if c.Status {
		if len(st.Pending) == 0 {
			ctx.Println("No pending migrations.")
			return nil
		}
		ctx.Println("Pending migrations:")
		for _, p := range st.Pending {
			ctx.Printf("  %03d_%s\n", p.Version, p.Name)
		}
		return nil
	}

	if len(st.Pending) > 0 {
		ctx.PerformAutomaticBackup()
	}
	count, err := m.Migrate(func(msg string) { ctx.Println("  " + msg) })
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if count == 0 {
		ctx.Println("Database is up to date.")
		return nil
	}
	ctx.Printf("✓ Applied %d migration(s)\n", count)
	return nil
}
