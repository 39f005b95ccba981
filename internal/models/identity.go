package models

import "time"

// IdentityMetric is a trait the user checks in against daily, e.g. "I am someone who trains"
type IdentityMetric struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// IdentityCheckin records one day's self-rating for an identity metric
type IdentityCheckin struct {
	ID        string    `json:"id"`
	MetricID  string    `json:"metric_id"`
	Day       string    `json:"day"`   // YYYY-MM-DD format
	Score     int       `json:"score"` // 1-5
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WeeklyReflection is free-text written at the end of a week
type WeeklyReflection struct {
	ID        string    `json:"id"`
	WeekStart string    `json:"week_start"` // YYYY-MM-DD, Sunday
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CompletedTask is a task finished outside of habit tracking
type CompletedTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CompletedAt time.Time `json:"completed_at"`
}
