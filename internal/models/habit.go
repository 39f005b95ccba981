package models

import (
	"strings"
	"time"
)

type HabitKind string

const (
	HabitKindCheck  HabitKind = "check"
	HabitKindAmount HabitKind = "amount"
)

// Habit represents a recurring practice to track
type Habit struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Category   string     `json:"category,omitempty"`
	Kind       HabitKind  `json:"kind"`
	Count      int        `json:"count"`  // Target per period
	Period     string     `json:"period"` // Free text, e.g. "day", "week", "3x per week"
	CreatedAt  time.Time  `json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// IsDaily reports whether the habit's success unit is a day.
func (h Habit) IsDaily() bool {
	p := strings.ToLower(h.Period)
	return strings.Contains(p, "day") || strings.Contains(p, "daily")
}

// Target returns the per-period target, treating an unset or zero count as 1.
func (h Habit) Target() int {
	if h.Count <= 0 {
		return 1
	}
	return h.Count
}

// HabitSession represents a single logged occurrence of a habit
type HabitSession struct {
	ID          string     `json:"id"`
	HabitID     string     `json:"habit_id"`
	DurationMin *int       `json:"duration_min,omitempty"`
	Amount      *int       `json:"amount,omitempty"` // Only meaningful for amount habits
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // Authoritative event time
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Units returns how much the session contributes toward a habit of the given kind.
// Check habits count presence; amount habits count the logged amount (never negative).
func (s HabitSession) Units(kind HabitKind) int {
	if kind != HabitKindAmount {
		return 1
	}
	if s.Amount == nil || *s.Amount < 0 {
		return 0
	}
	return *s.Amount
}
