package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/julianstephens/anchor/internal/constants"
	"github.com/julianstephens/anchor/internal/models"
)

const (
	MaxTitleLength      = 100
	MaxNoteLength       = 500
	MaxReflectionLength = 10000
)

// ValidateHabit checks a habit before it is stored.
func ValidateHabit(h models.Habit) error {
	title := strings.TrimSpace(h.Title)
	if title == "" {
		return errors.New("habit title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("habit title must be at most %d characters", MaxTitleLength)
	}
	switch h.Kind {
	case models.HabitKindCheck, models.HabitKindAmount, "":
	default:
		return fmt.Errorf("invalid habit kind %q (expected check or amount)", h.Kind)
	}
	if h.Count < 0 {
		return fmt.Errorf("habit target must not be negative, got %d", h.Count)
	}
	if strings.TrimSpace(h.Period) == "" {
		return errors.New("habit period cannot be empty")
	}
	return nil
}

// ValidateSession checks a session against the habit it is logged for.
func ValidateSession(s models.HabitSession, habit models.Habit) error {
	if s.HabitID != habit.ID {
		return fmt.Errorf("session belongs to habit %s, not %s", s.HabitID, habit.ID)
	}
	if habit.Kind == models.HabitKindAmount {
		if s.Amount == nil {
			return fmt.Errorf("habit %q tracks an amount; pass --amount", habit.Title)
		}
		if *s.Amount < 0 {
			return fmt.Errorf("amount must not be negative, got %d", *s.Amount)
		}
	}
	if s.DurationMin != nil && *s.DurationMin < 0 {
		return fmt.Errorf("duration must not be negative, got %d", *s.DurationMin)
	}
	if s.FinishedAt != nil && !s.CreatedAt.IsZero() && s.FinishedAt.Before(s.CreatedAt) {
		return errors.New("session cannot finish before it starts")
	}
	if utf8.RuneCountInString(s.Note) > MaxNoteLength {
		return fmt.Errorf("note must be at most %d characters", MaxNoteLength)
	}
	return nil
}

// ValidateCheckin checks a daily identity check-in.
func ValidateCheckin(c models.IdentityCheckin) error {
	if c.MetricID == "" {
		return errors.New("check-in must reference an identity metric")
	}
	if _, err := time.Parse(constants.DateFormat, c.Day); err != nil {
		return fmt.Errorf("invalid check-in day %q (expected YYYY-MM-DD)", c.Day)
	}
	if c.Score < 1 || c.Score > 5 {
		return fmt.Errorf("score must be between 1 and 5, got %d", c.Score)
	}
	if utf8.RuneCountInString(c.Note) > MaxNoteLength {
		return fmt.Errorf("note must be at most %d characters", MaxNoteLength)
	}
	return nil
}

// ValidateReflection checks a weekly reflection; the week must start on a Sunday.
func ValidateReflection(r models.WeeklyReflection) error {
	day, err := time.Parse(constants.DateFormat, r.WeekStart)
	if err != nil {
		return fmt.Errorf("invalid week start %q (expected YYYY-MM-DD)", r.WeekStart)
	}
	if day.Weekday() != time.Sunday {
		return fmt.Errorf("week start %s is a %s, not a Sunday", r.WeekStart, day.Weekday())
	}
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("reflection cannot be empty")
	}
	if utf8.RuneCountInString(r.Content) > MaxReflectionLength {
		return fmt.Errorf("reflection must be at most %d characters", MaxReflectionLength)
	}
	return nil
}

// ValidateDismissal checks the reason and note given when dismissing an observation.
func ValidateDismissal(reason models.DismissReason, note string) error {
	if !reason.IsValid() {
		return fmt.Errorf("invalid dismiss reason %q (expected intentional, outdated or incorrect)", reason)
	}
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return fmt.Errorf("note must be at most %d characters", MaxNoteLength)
	}
	return nil
}
