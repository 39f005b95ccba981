package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/validation"
)

type ValidateCmd struct {
	Fix bool `help:"Delete sessions whose habit no longer exists."`
}

func (cmd *ValidateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load storage: %w", err)
	}

	ctx.Println("Validating habits and observations...")
	result, err := validate(ctx)
	if err != nil {
		return err
	}

	ctx.Println()
	ctx.Println(result.FormatReport())

	if cmd.Fix && result.HasConflicts() {
		actions := validation.AutoFixOrphanSessions(result.Conflicts, ctx.Store.DeleteHabitSession)
		if len(actions) == 0 {
			ctx.Println("Nothing to fix automatically.")
		}
		for _, a := range actions {
			ctx.Printf("  %s\n", a.Action)
		}
	}

	// Conflicts are reported, not returned as an error
	return nil
}

// validate checks every stored habit, session and observation of the user.
func validate(ctx *cli.Context) (validation.ValidationResult, error) {
	habits, err := ctx.Store.GetAllHabits(true, true)
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load habits: %w", err)
	}
	sessions, err := ctx.Store.GetAllHabitSessions()
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load habit sessions: %w", err)
	}
	observations, err := ctx.Store.GetAllObservations(context.Background(), ctx.UserID())
	if err != nil {
		return validation.ValidationResult{}, fmt.Errorf("failed to load observations: %w", err)
	}

	v := validation.New()
	if ctx.Config != nil {
		v = v.WithObservationCap(ctx.Config.Pipeline.ObservationCap)
	}
	result := v.ValidateHabits(habits, sessions)
	result.Conflicts = append(result.Conflicts, v.ValidateObservations(observations).Conflicts...)
	return result, nil
}
