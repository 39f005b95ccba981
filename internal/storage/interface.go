package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/anchor/internal/models"
)

// ErrNotFound is returned when a record addressed by id, title or day does not exist.
var ErrNotFound = errors.New("not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Habits
	AddHabit(models.Habit) (models.Habit, error)
	GetHabit(id string) (models.Habit, error)
	GetHabitByTitle(title string) (models.Habit, error)
	GetAllHabits(includeArchived, includeDeleted bool) ([]models.Habit, error)
	UpdateHabit(models.Habit) error
	ArchiveHabit(id string) error
	UnarchiveHabit(id string) error
	DeleteHabit(id string) error
	RestoreHabit(id string) error

	// Habit Sessions
	AddHabitSession(models.HabitSession) (models.HabitSession, error)
	GetHabitSessions(habitID string) ([]models.HabitSession, error)
	// GetAllHabitSessions returns the sessions of every non-deleted habit keyed by habit id.
	GetAllHabitSessions() (map[string][]models.HabitSession, error)
	DeleteHabitSession(id string) error

	// Identity
	AddIdentityMetric(models.IdentityMetric) (models.IdentityMetric, error)
	GetAllIdentityMetrics(includeArchived bool) ([]models.IdentityMetric, error)
	ArchiveIdentityMetric(id string) error
	GetIdentityMetrics(ctx context.Context) ([]models.IdentityMetric, error)
	// SaveCheckin inserts or replaces the check-in for (metric, day).
	SaveCheckin(models.IdentityCheckin) (models.IdentityCheckin, error)
	GetCheckinsBetween(ctx context.Context, from, to string) ([]models.IdentityCheckin, error)

	// Reflections
	SaveReflection(models.WeeklyReflection) (models.WeeklyReflection, error)
	GetRecentReflections(ctx context.Context, limit int) ([]models.WeeklyReflection, error)

	// Completed Tasks
	AddCompletedTask(models.CompletedTask) (models.CompletedTask, error)
	GetCompletedTasks(since time.Time) ([]models.CompletedTask, error)

	// Observations
	GetActiveObservations(ctx context.Context, userID string, limit int) ([]models.Observation, error)
	GetObservationsByDateRef(ctx context.Context, userID, dateRef string) ([]models.Observation, error)
	GetDismissedObservations(ctx context.Context, userID string, limit int) ([]models.Observation, error)
	InsertObservations(ctx context.Context, userID string, obs []models.Observation) ([]string, error)
	SupersedeObservations(ctx context.Context, userID string, ids []string, supersededBy string) error
	PruneObservations(ctx context.Context, userID string, keep int) (int, error)
	GetLastAnalysisDate(ctx context.Context, userID string, depth models.AnalysisDepth) (string, bool, error)
	GetAllObservations(ctx context.Context, userID string) ([]models.Observation, error)
	GetObservation(ctx context.Context, userID, id string) (models.Observation, error)
	DismissObservation(ctx context.Context, userID, id string, reason models.DismissReason, note string) error
	RestoreObservation(ctx context.Context, userID, id string) error

	// Utils
	GetConfigPath() string
}
