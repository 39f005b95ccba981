package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateHabitTitle  ConflictType = "duplicate_habit_title"
	ConflictOrphanSession        ConflictType = "orphan_session"
	ConflictFutureSession        ConflictType = "future_session"
	ConflictInvalidTimestamp     ConflictType = "invalid_timestamp"
	ConflictMissingAmount        ConflictType = "missing_amount"
	ConflictDanglingSupersession ConflictType = "dangling_supersession"
	ConflictInvalidConfidence    ConflictType = "invalid_confidence"
	ConflictObservationOverCap   ConflictType = "observation_over_cap"
)

// Conflict represents a detected problem in stored data
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string // Titles or texts involved
	IDs         []string // Record IDs involved (for auto-fixing)
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}
	var sb strings.Builder
	sb.WriteString("Conflicts detected:\n")
	for _, c := range vr.Conflicts {
		fmt.Fprintf(&sb, "- %s\n", c.Description)
	}
	return sb.String()
}

// Validator checks stored records for inconsistencies
type Validator struct {
	now func() time.Time
	cap int
}

func New() *Validator {
	return &Validator{now: time.Now, cap: constants.ObservationCap}
}

// WithObservationCap sets the active observation cap checked by ValidateObservations.
func (v *Validator) WithObservationCap(limit int) *Validator {
	v.cap = limit
	return v
}

// ValidateHabits checks habits and their sessions.
func (v *Validator) ValidateHabits(habits []models.Habit, sessionsByHabit map[string][]models.HabitSession) ValidationResult {
	var result ValidationResult
	now := v.now()

	byTitle := make(map[string][]models.Habit)
	known := make(map[string]models.Habit)
	for _, h := range habits {
		known[h.ID] = h
		if h.DeletedAt == nil {
			key := strings.ToLower(strings.TrimSpace(h.Title))
			byTitle[key] = append(byTitle[key], h)
		}
	}

	titles := make([]string, 0, len(byTitle))
	for title := range byTitle {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	for _, title := range titles {
		group := byTitle[title]
		if len(group) < 2 {
			continue
		}
		c := Conflict{
			Type:        ConflictDuplicateHabitTitle,
			Description: fmt.Sprintf("%d habits share the title %q", len(group), group[0].Title),
		}
		for _, h := range group {
			c.Items = append(c.Items, h.Title)
			c.IDs = append(c.IDs, h.ID)
		}
		result.Conflicts = append(result.Conflicts, c)
	}

	habitIDs := make([]string, 0, len(sessionsByHabit))
	for id := range sessionsByHabit {
		habitIDs = append(habitIDs, id)
	}
	sort.Strings(habitIDs)

	for _, habitID := range habitIDs {
		habit, ok := known[habitID]
		for _, s := range sessionsByHabit[habitID] {
			switch {
			case !ok:
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictOrphanSession,
					Description: fmt.Sprintf("session %s references missing habit %s", s.ID, habitID),
					IDs:         []string{s.ID},
				})
				continue
			case s.CreatedAt.IsZero():
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictInvalidTimestamp,
					Description: fmt.Sprintf("session %s of %q has no readable timestamp and is ignored by stats", s.ID, habit.Title),
					Items:       []string{habit.Title},
					IDs:         []string{s.ID},
				})
			case s.CreatedAt.After(now):
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictFutureSession,
					Description: fmt.Sprintf("session %s of %q is dated in the future (%s)", s.ID, habit.Title, s.CreatedAt.Format(time.RFC3339)),
					Items:       []string{habit.Title},
					IDs:         []string{s.ID},
				})
			}
			if habit.Kind == models.HabitKindAmount && s.Amount == nil {
				result.Conflicts = append(result.Conflicts, Conflict{
					Type:        ConflictMissingAmount,
					Description: fmt.Sprintf("session %s of amount habit %q has no amount and counts as zero", s.ID, habit.Title),
					Items:       []string{habit.Title},
					IDs:         []string{s.ID},
				})
			}
		}
	}

	return result
}

// ValidateObservations checks the observation set of one user.
func (v *Validator) ValidateObservations(all []models.Observation) ValidationResult {
	var result ValidationResult

	ids := make(map[string]bool, len(all))
	for _, o := range all {
		ids[o.ID] = true
	}

	active := 0
	for _, o := range all {
		if o.IsActive() {
			active++
		}
		if o.SupersededBy != "" && !ids[o.SupersededBy] {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDanglingSupersession,
				Description: fmt.Sprintf("observation %s is superseded by %s, which no longer exists", o.ID, o.SupersededBy),
				Items:       []string{o.Text},
				IDs:         []string{o.ID},
			})
		}
		if o.Confidence < constants.MinConfidence || o.Confidence > constants.MaxConfidence {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidConfidence,
				Description: fmt.Sprintf("observation %s has confidence %d outside %d-%d", o.ID, o.Confidence, constants.MinConfidence, constants.MaxConfidence),
				IDs:         []string{o.ID},
			})
		}
	}
	if active > v.cap {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictObservationOverCap,
			Description: fmt.Sprintf("%d active observations exceed the cap of %d; the next briefing will prune them", active, v.cap),
		})
	}
	return result
}

// AutoFixOrphanSessions deletes sessions whose habit no longer exists.
// Returns a slice of FixActions describing what was fixed
func AutoFixOrphanSessions(conflicts []Conflict, deleteFunc func(id string) error) []FixAction {
	actions := []FixAction{}
	for _, c := range conflicts {
		if c.Type != ConflictOrphanSession {
			continue
		}
		for _, id := range c.IDs {
			msg := fmt.Sprintf("Removed orphan session %s", id)
			if err := deleteFunc(id); err != nil {
				msg = fmt.Sprintf("Failed to remove orphan session %s: %v", id, err)
			}
			actions = append(actions, FixAction{Action: msg, SourceConflict: c})
		}
	}
	return actions
}
