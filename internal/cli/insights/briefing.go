package insights

import (
	"context"
	"os"
	"os/signal"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/cli/habits"
	"github.com/julianstephens/anchor/internal/errors"
	"github.com/julianstephens/anchor/internal/habitstats"
	"github.com/julianstephens/anchor/internal/logger"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

// BriefingCmd computes habit stats, runs the observation pipeline once and
// prints the latest observations.
type BriefingCmd struct {
	JSON     bool `help:"Print the briefing as JSON." name:"json"`
	Notify   bool `help:"Send the top observation as a notification (always on when notify.enabled is set)."`
	NoHabits bool `help:"Omit the habit table." name:"no-habits"`
}

// Briefing is the JSON shape of one briefing.
type Briefing struct {
	Date         string               `json:"date"`
	Habits       []habitstats.Result  `json:"habits"`
	Observations []models.Observation `json:"observations"`
	Warning      string               `json:"warning,omitempty"`
}

func (c *BriefingCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, obs, err := ctx.Briefing(runCtx)
	if err != nil && stats == nil {
		return err
	}

	b := Briefing{
		Date:         utils.DayKey(ctx.Today()),
		Habits:       stats,
		Observations: obs,
	}
	if b.Observations == nil {
		b.Observations = []models.Observation{}
	}
	if err != nil {
		// Stats and stored observations are still printed
		logger.Warn("Observation analysis skipped", "error", err)
		b.Warning = "analysis skipped: " + err.Error()
		if hint := errors.Hint(err); hint != "" {
			b.Warning += " (" + hint + ")"
		}
	}

	c.notify(ctx, runCtx, b.Observations)

	if c.JSON {
		return ctx.PrintJSON(b)
	}

	ctx.Printf("Briefing for %s\n\n", b.Date)
	if !c.NoHabits {
		if len(stats) == 0 {
			ctx.Println("No active habits.")
		} else {
			ctx.Println(cli.Table(habits.StatsHeaders, habits.StatsRows(stats)))
		}
		ctx.Println()
	}

	if b.Warning != "" {
		ctx.Printf("⚠ %s\n\n", b.Warning)
	}
	if len(b.Observations) == 0 {
		ctx.Println("No observations yet.")
		return nil
	}
	ctx.Println("Observations:")
	for _, o := range b.Observations {
		ctx.Println(FormatObservation(o, false))
	}
	return nil
}

func (c *BriefingCmd) notify(ctx *cli.Context, runCtx context.Context, obs []models.Observation) {
	enabled := c.Notify || (ctx.Config != nil && ctx.Config.Notify.Enabled)
	if !enabled || ctx.Notifier == nil || len(obs) == 0 {
		return
	}
	if err := ctx.Notifier.Notify(runCtx, "anchor briefing", obs[0].Text); err != nil {
		logger.Warn("Briefing notification failed", "error", err)
	}
}
