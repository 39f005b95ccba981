package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/anchor/internal/models"
)

func intPtr(v int) *int { return &v }

func TestValidateHabit(t *testing.T) {
	tests := []struct {
		name    string
		habit   models.Habit
		wantErr string
	}{
		{"valid check", models.Habit{Title: "Read", Kind: models.HabitKindCheck, Count: 1, Period: "day"}, ""},
		{"valid amount", models.Habit{Title: "Pushups", Kind: models.HabitKindAmount, Count: 50, Period: "3x per week"}, ""},
		{"empty title", models.Habit{Title: "  ", Period: "day"}, "title cannot be empty"},
		{"long title", models.Habit{Title: strings.Repeat("a", MaxTitleLength+1), Period: "day"}, "at most"},
		{"bad kind", models.Habit{Title: "Read", Kind: "binary", Period: "day"}, "invalid habit kind"},
		{"negative count", models.Habit{Title: "Read", Count: -1, Period: "day"}, "must not be negative"},
		{"empty period", models.Habit{Title: "Read"}, "period cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHabit(tt.habit)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateSession(t *testing.T) {
	check := models.Habit{ID: "h1", Title: "Read", Kind: models.HabitKindCheck}
	amount := models.Habit{ID: "h2", Title: "Pushups", Kind: models.HabitKindAmount}
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	earlier := start.Add(-time.Hour)

	tests := []struct {
		name    string
		session models.HabitSession
		habit   models.Habit
		wantErr bool
	}{
		{"check session", models.HabitSession{HabitID: "h1", CreatedAt: start}, check, false},
		{"amount session", models.HabitSession{HabitID: "h2", Amount: intPtr(20), CreatedAt: start}, amount, false},
		{"missing amount", models.HabitSession{HabitID: "h2", CreatedAt: start}, amount, true},
		{"negative amount", models.HabitSession{HabitID: "h2", Amount: intPtr(-3), CreatedAt: start}, amount, true},
		{"negative duration", models.HabitSession{HabitID: "h1", DurationMin: intPtr(-5), CreatedAt: start}, check, true},
		{"finishes before start", models.HabitSession{HabitID: "h1", CreatedAt: start, FinishedAt: &earlier}, check, true},
		{"wrong habit", models.HabitSession{HabitID: "h2", CreatedAt: start}, check, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateSession(tt.session, tt.habit); (err != nil) != tt.wantErr {
				t.Errorf("ValidateSession() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCheckinAndReflection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		ok   bool
	}{
		{"checkin valid", ValidateCheckin(models.IdentityCheckin{MetricID: "m", Day: "2025-01-02", Score: 3}), true},
		{"checkin score low", ValidateCheckin(models.IdentityCheckin{MetricID: "m", Day: "2025-01-02", Score: 0}), false},
		{"checkin score high", ValidateCheckin(models.IdentityCheckin{MetricID: "m", Day: "2025-01-02", Score: 6}), false},
		{"checkin bad day", ValidateCheckin(models.IdentityCheckin{MetricID: "m", Day: "01/02/2025", Score: 3}), false},
		{"checkin no metric", ValidateCheckin(models.IdentityCheckin{Day: "2025-01-02", Score: 3}), false},
		{"reflection sunday", ValidateReflection(models.WeeklyReflection{WeekStart: "2025-01-05", Content: "good week"}), true},
		{"reflection monday", ValidateReflection(models.WeeklyReflection{WeekStart: "2025-01-06", Content: "good week"}), false},
		{"reflection empty", ValidateReflection(models.WeeklyReflection{WeekStart: "2025-01-05", Content: " "}), false},
		{"dismissal valid", ValidateDismissal(models.DismissOutdated, "moved cities"), true},
		{"dismissal bad reason", ValidateDismissal("meh", ""), false},
		{"dismissal long note", ValidateDismissal(models.DismissIncorrect, strings.Repeat("x", MaxNoteLength+1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err == nil) != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, tt.err)
			}
		})
	}
}

func TestValidateHabits(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	v := New()
	v.now = func() time.Time { return now }
	deleted := now.Add(-time.Hour)

	habits := []models.Habit{
		{ID: "a", Title: "Read"},
		{ID: "b", Title: "read "},
		{ID: "c", Title: "Read", DeletedAt: &deleted},
		{ID: "d", Title: "Lift", Kind: models.HabitKindAmount},
	}
	sessions := map[string][]models.HabitSession{
		"a":    {{ID: "s1", HabitID: "a", CreatedAt: now.Add(-time.Hour)}, {ID: "s2", HabitID: "a", CreatedAt: now.Add(48 * time.Hour)}},
		"d":    {{ID: "s3", HabitID: "d", CreatedAt: now.Add(-time.Hour)}, {ID: "s4", HabitID: "d"}},
		"gone": {{ID: "s5", HabitID: "gone", CreatedAt: now}},
	}

	result := v.ValidateHabits(habits, sessions)
	counts := map[ConflictType]int{}
	for _, c := range result.Conflicts {
		counts[c.Type]++
	}
	want := map[ConflictType]int{
		ConflictDuplicateHabitTitle: 1,
		ConflictFutureSession:       1,
		ConflictMissingAmount:       2,
		ConflictInvalidTimestamp:    1,
		ConflictOrphanSession:       1,
	}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("expected %d %s conflicts, got %d (%v)", n, typ, counts[typ], result.FormatReport())
		}
	}
	for _, c := range result.Conflicts {
		if c.Type == ConflictDuplicateHabitTitle && len(c.IDs) != 2 {
			t.Errorf("expected deleted habits to be ignored for duplicates, got %v", c.IDs)
		}
	}
}

func TestValidateObservations(t *testing.T) {
	all := []models.Observation{
		{ID: "1", Confidence: 3},
		{ID: "2", Confidence: 3, SupersededBy: "1"},
		{ID: "3", Confidence: 3, SupersededBy: "missing"},
		{ID: "4", Confidence: 9},
		{ID: "5", Confidence: 2},
	}
	result := New().WithObservationCap(1).ValidateObservations(all)

	counts := map[ConflictType]int{}
	for _, c := range result.Conflicts {
		counts[c.Type]++
	}
	if counts[ConflictDanglingSupersession] != 1 || counts[ConflictInvalidConfidence] != 1 || counts[ConflictObservationOverCap] != 1 {
		t.Errorf("unexpected conflicts %v", counts)
	}
}

func TestAutoFixOrphanSessions(t *testing.T) {
	conflicts := []Conflict{
		{Type: ConflictOrphanSession, IDs: []string{"s1"}},
		{Type: ConflictFutureSession, IDs: []string{"s2"}},
		{Type: ConflictOrphanSession, IDs: []string{"s3"}},
	}
	var deleted []string
	actions := AutoFixOrphanSessions(conflicts, func(id string) error {
		if id == "s3" {
			return errors.New("locked")
		}
		deleted = append(deleted, id)
		return nil
	})
	if len(deleted) != 1 || deleted[0] != "s1" {
		t.Errorf("expected only s1 to be deleted, got %v", deleted)
	}
	if len(actions) != 2 || !strings.Contains(actions[1].Action, "Failed") {
		t.Errorf("unexpected actions %+v", actions)
	}
}

func TestFormatReport(t *testing.T) {
	empty := ValidationResult{}
	if got := empty.FormatReport(); got != "No conflicts detected." {
		t.Errorf("unexpected empty report %q", got)
	}
	r := ValidationResult{Conflicts: []Conflict{{Description: "one"}, {Description: "two"}}}
	if got := r.FormatReport(); got != "Conflicts detected:\n- one\n- two\n" {
		t.Errorf("unexpected report %q", got)
	}
}
