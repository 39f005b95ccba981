package observations

import (
	"fmt"
	"strings"

	"github.com/julianstephens/anchor/internal/models"
)

const outputSchema = `Respond with JSON only, no prose, in this shape:
[
  {
    "category": "habit_trend | streak_risk | identity_alignment | reflection_theme | time_pattern | correlation | growth_signal",
    "observation": "One or two sentences, at most 500 characters.",
    "confidence": 1-5,
    "entity_refs": [{"type": "habit | goal | identity_metric", "id": "<id from the context>"}]
  }
]`

const analysisPreamble = `You are a thoughtful coach reviewing one person's habit and identity data.
You write short, specific observations that help them notice patterns they might miss.

Rules:
- Ground every observation in the data provided. Quote numbers where they help.
- Do not repeat an existing observation unless something has changed.
- Never restate a dismissed observation. Treat the dismissal reason as a correction.
- Prefer what is actionable over what is merely true.
- Confidence reflects how strongly the data supports the observation.`

func analysisSystemPrompt(depth models.AnalysisDepth) string {
	var focus string
	switch depth {
	case models.Depth30Day:
		focus = `Focus: the last 30 days. Look for trends that recur week to week, correlations
between habits and identity scores, and themes across recent reflections.`
	case models.DepthFull:
		focus = `Focus: the long view. Look for slow shifts in identity alignment, habits that
have become stable or faded, and growth that only shows over months.`
	default:
		focus = `Focus: the last 7 days. Look for streaks at risk, days of the week that slip,
and short-term changes in identity check-ins.`
	}
	return fmt.Sprintf("%s\n\n%s\n\nWrite 3 to 5 observations.\n\n%s", analysisPreamble, focus, outputSchema)
}

func consolidationSystemPrompt(to models.ObservationScope, count string) string {
	return fmt.Sprintf(`You maintain a long-term memory of observations about one person.
You are given older %s observations. Merge them into %s %s observations that keep
every durable insight and drop anything that was only true for a single day.
Merged observations should read as standalone statements.

%s`, previousScope(to), count, to, outputSchema)
}

func previousScope(to models.ObservationScope) models.ObservationScope {
	if to == models.ScopeQuarterly {
		return models.ScopeWeekly
	}
	return models.ScopeDaily
}

func consolidationUserPrompt(stale []models.Observation) string {
	var sb strings.Builder
	sb.WriteString("## Observations to consolidate\n\n")
	for _, o := range stale {
		fmt.Fprintf(&sb, "- [%s] %s (confidence %d, as of %s)", o.Category, o.Text, o.Confidence, o.DateRef)
		writeRefs(&sb, o.EntityRefs)
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeRefs(sb *strings.Builder, refs []models.EntityRef) {
	if len(refs) == 0 {
		return
	}
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, fmt.Sprintf("%s:%s", r.Type, r.ID))
	}
	fmt.Fprintf(sb, " refs=%s", strings.Join(parts, ","))
}
