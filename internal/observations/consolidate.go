package observations

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/llm"
	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/utils"
)

// consolidation merges old observations of one scope into the next scope up.
type consolidation struct {
	name    string
	from    models.ObservationScope
	to      models.ObservationScope
	depth   models.AnalysisDepth
	ageDays int
	count   string
}

var consolidations = []consolidation{
	{name: "weekly", from: models.ScopeDaily, to: models.ScopeWeekly, depth: models.Depth30Day, ageDays: constants.WeeklyConsolidationAgeDays, count: "2 to 3"},
	{name: "quarterly", from: models.ScopeWeekly, to: models.ScopeQuarterly, depth: models.DepthFull, ageDays: constants.QuarterlyConsolidationAgeDays, count: "1 to 2"},
}

// staleObservations returns the active observations of scope dated on or before
// cutoff, oldest first, plus the total number of active observations in scope.
// Ties on date keep the store's insertion order.
func staleObservations(active []models.Observation, scope models.ObservationScope, cutoff string) ([]models.Observation, int) {
	var stale []models.Observation
	total := 0
	for i := len(active) - 1; i >= 0; i-- {
		o := active[i]
		if o.Scope != scope {
			continue
		}
		total++
		if o.DateRef <= cutoff {
			stale = append(stale, o)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool { return stale[i].DateRef < stale[j].DateRef })
	return stale, total
}

func (p *Pipeline) consolidate(ctx context.Context, l *log.Logger, userID string, c consolidation, today, yesterday string) {
	l = l.With("consolidation", c.name)

	active, err := p.store.GetActiveObservations(ctx, userID, 0)
	if err != nil {
		l.Error("failed to load observations for consolidation", "error", err)
		return
	}

	cutoff := utils.ShiftDayKey(today, -c.ageDays)
	stale, total := staleObservations(active, c.from, cutoff)
	if total < constants.ConsolidationMinTotal || len(stale) < constants.ConsolidationMinStale {
		l.Debug("not enough observations to consolidate", "total", total, "stale", len(stale))
		return
	}

	text, err := p.llm.Complete(ctx, llm.Request{
		System:    consolidationSystemPrompt(c.to, c.count),
		User:      consolidationUserPrompt(stale),
		MaxTokens: constants.MaxTokensConsolidate,
	})
	if err != nil {
		l.Error("consolidation request failed", "error", err)
		return
	}

	payloads, err := parseAndSanitize(text)
	if err != nil {
		l.Error("failed to parse consolidation response", "error", err)
		return
	}
	if len(payloads) == 0 {
		l.Warn("consolidation returned no usable observations")
		return
	}

	ids, err := p.store.InsertObservations(ctx, userID, toObservations(userID, payloads, c.to, c.depth, yesterday))
	if err != nil {
		l.Error("failed to insert consolidated observations", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	staleIDs := make([]string, 0, len(stale))
	for _, o := range stale {
		staleIDs = append(staleIDs, o.ID)
	}
	if err := p.store.SupersedeObservations(ctx, userID, staleIDs, ids[0]); err != nil {
		l.Error("failed to supersede consolidated observations", "error", err)
		return
	}
	l.Info("consolidated observations", "merged", len(staleIDs), "created", len(ids))
}
