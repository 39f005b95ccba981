package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/anchor/internal/cli"
	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/validation"
)

type ObservationsCmd struct {
	List    ObservationListCmd    `cmd:"" default:"withargs" help:"List active observations."`
	Show    ObservationShowCmd    `cmd:"" help:"Show one observation in full."`
	Dismiss ObservationDismissCmd `cmd:"" help:"Dismiss an observation."`
	Restore ObservationRestoreCmd `cmd:"" help:"Restore a dismissed observation."`
}

type ObservationListCmd struct {
	Dismissed bool `help:"List dismissed observations instead."`
	All       bool `help:"List every observation, including superseded ones."`
	Limit     int  `help:"Maximum number of observations (0 for no limit)." default:"20"`
	JSON      bool `help:"Print as JSON." name:"json"`
}

func (c *ObservationListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	bg := context.Background()
	var (
		obs []models.Observation
		err error
	)
	switch {
	case c.All:
		obs, err = ctx.Store.GetAllObservations(bg, ctx.UserID())
		if err == nil && c.Limit > 0 && len(obs) > c.Limit {
			obs = obs[len(obs)-c.Limit:]
		}
	case c.Dismissed:
		obs, err = ctx.Store.GetDismissedObservations(bg, ctx.UserID(), c.Limit)
	default:
		obs, err = ctx.Store.GetActiveObservations(bg, ctx.UserID(), c.Limit)
	}
	if err != nil {
		return fmt.Errorf("failed to get observations: %w", err)
	}

	if c.JSON {
		return ctx.PrintJSON(obs)
	}
	if len(obs) == 0 {
		ctx.Println("No observations found.")
		return nil
	}
	for _, o := range obs {
		ctx.Println(FormatObservation(o, true))
	}
	return nil
}

// FormatObservation renders one observation on a single line.
func FormatObservation(o models.Observation, showID bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "• [%s %s/%s %s] %s", o.DateRef, o.Scope, o.Category, Confidence(o.Confidence), o.Text)
	switch {
	case o.Dismissed:
		fmt.Fprintf(&sb, " [DISMISSED: %s]", o.DismissReason)
	case o.SupersededBy != "":
		sb.WriteString(" [SUPERSEDED]")
	}
	if showID {
		fmt.Fprintf(&sb, " (ID: %s)", o.ID)
	}
	return sb.String()
}

// Confidence renders a 1-5 confidence as filled and empty stars.
func Confidence(n int) string {
	if n < constants.MinConfidence {
		n = constants.MinConfidence
	}
	if n > constants.MaxConfidence {
		n = constants.MaxConfidence
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", constants.MaxConfidence-n)
}

type ObservationShowCmd struct {
	ID   string `arg:"" help:"Observation ID."`
	JSON bool   `help:"Print as JSON." name:"json"`
}

func (c *ObservationShowCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	o, err := ctx.Store.GetObservation(context.Background(), ctx.UserID(), c.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(o)
	}

	ctx.Printf("ID:          %s\n", o.ID)
	ctx.Printf("Date:        %s\n", o.DateRef)
	ctx.Printf("Scope:       %s (%s analysis)\n", o.Scope, o.AnalysisDepth)
	ctx.Printf("Category:    %s\n", o.Category)
	ctx.Printf("Confidence:  %s (%d/5)\n", Confidence(o.Confidence), o.Confidence)
	ctx.Printf("Created:     %s\n", ctx.FormatTimestamp(o.CreatedAt))
	if len(o.EntityRefs) > 0 {
		refs := make([]string, 0, len(o.EntityRefs))
		for _, r := range o.EntityRefs {
			refs = append(refs, fmt.Sprintf("%s:%s", r.Type, r.ID))
		}
		ctx.Printf("References:  %s\n", strings.Join(refs, ", "))
	}
	if o.SupersededBy != "" {
		ctx.Printf("Superseded:  by %s\n", o.SupersededBy)
	}
	if o.Dismissed {
		ctx.Printf("Dismissed:   %s", o.DismissReason)
		if o.DismissedAt != nil {
			ctx.Printf(" on %s", ctx.FormatTimestamp(*o.DismissedAt))
		}
		ctx.Println()
		if o.DismissNote != "" {
			ctx.Printf("Note:        %s\n", o.DismissNote)
		}
	}
	ctx.Println()
	ctx.Println(o.Text)
	return nil
}

type ObservationDismissCmd struct {
	ID     string `arg:"" help:"Observation ID."`
	Reason string `help:"Why the observation is dismissed: intentional, outdated or incorrect (prompted when omitted)." default:""`
	Note   string `help:"Optional note carried into future analyses." default:""`
}

func (c *ObservationDismissCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	bg := context.Background()
	o, err := ctx.Store.GetObservation(bg, ctx.UserID(), c.ID)
	if err != nil {
		return err
	}
	if o.Dismissed {
		return fmt.Errorf("observation %s is already dismissed", o.ID)
	}

	reason := models.DismissReason(c.Reason)
	note := c.Note
	if reason == "" {
		ctx.Println(o.Text)
		if err := DismissForm(&reason, &note).Run(); err != nil {
			return fmt.Errorf("dismiss cancelled: %w", err)
		}
	}
	note = strings.TrimSpace(note)
	if err := validation.ValidateDismissal(reason, note); err != nil {
		return err
	}

	if err := ctx.Store.DismissObservation(bg, ctx.UserID(), o.ID, reason, note); err != nil {
		return err
	}
	ctx.Printf("Dismissed observation %s (%s)\n", o.ID, reason)
	return nil
}

// DismissForm asks for a dismiss reason and an optional note.
func DismissForm(reason *models.DismissReason, note *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[models.DismissReason]().
				Title("Why dismiss this observation?").
				Options(
					huh.NewOption("Intentional - I chose this on purpose", models.DismissIntentional),
					huh.NewOption("Outdated - no longer true", models.DismissOutdated),
					huh.NewOption("Incorrect - the analysis got it wrong", models.DismissIncorrect),
				).
				Value(reason),
			huh.NewInput().
				Title("Note (optional)").
				CharLimit(validation.MaxNoteLength).
				Value(note),
		),
	)
}

type ObservationRestoreCmd struct {
	ID string `arg:"" help:"Observation ID."`
}

func (c *ObservationRestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	if err := ctx.Store.RestoreObservation(context.Background(), ctx.UserID(), c.ID); err != nil {
		return err
	}
	ctx.Printf("Restored observation %s\n", c.ID)
	return nil
}
