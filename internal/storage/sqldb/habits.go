package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/storage"
)

const habitColumns = "id, title, category, kind, count, period, created_at, archived_at, deleted_at"

func (d *DB) AddHabit(habit models.Habit) (models.Habit, error) {
	habit.ID = newID(habit.ID)
	if habit.Kind == "" {
		habit.Kind = models.HabitKindCheck
	}
	if habit.Period == "" {
		habit.Period = "day"
	}
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now()
	}

	_, err := d.exec(`
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.Title, habit.Category, string(habit.Kind), habit.Count, habit.Period,
		formatTime(habit.CreatedAt), formatNullTime(habit.ArchivedAt), formatNullTime(habit.DeletedAt))
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to add habit: %w", err)
	}
	return habit, nil
}

func (d *DB) GetHabit(id string) (models.Habit, error) {
	return d.getHabitWhere("id = ?", id)
}

func (d *DB) GetHabitByTitle(title string) (models.Habit, error) {
	return d.getHabitWhere("title = ? AND deleted_at IS NULL", title)
}

func (d *DB) getHabitWhere(cond string, arg any) (models.Habit, error) {
	row := d.queryRow("SELECT "+habitColumns+" FROM habits WHERE "+cond, arg)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %v: %w", arg, storage.ErrNotFound)
	}
	return h, err
}

func (d *DB) GetAllHabits(includeArchived, includeDeleted bool) ([]models.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits WHERE 1=1"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if !includeArchived {
		query += " AND archived_at IS NULL"
	}
	query += " ORDER BY created_at, title"

	rows, err := d.query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (d *DB) UpdateHabit(habit models.Habit) error {
	return d.execAffected(storage.ErrNotFound, `
		UPDATE habits SET title = ?, category = ?, kind = ?, count = ?, period = ?
		WHERE id = ?`,
		habit.Title, habit.Category, string(habit.Kind), habit.Count, habit.Period, habit.ID)
}

func (d *DB) ArchiveHabit(id string) error {
	return d.execAffected(storage.ErrNotFound,
		"UPDATE habits SET archived_at = ? WHERE id = ? AND deleted_at IS NULL", formatTime(time.Now()), id)
}

func (d *DB) UnarchiveHabit(id string) error {
	return d.execAffected(storage.ErrNotFound,
		"UPDATE habits SET archived_at = NULL WHERE id = ? AND deleted_at IS NULL", id)
}

func (d *DB) DeleteHabit(id string) error {
	return d.execAffected(storage.ErrNotFound,
		"UPDATE habits SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", formatTime(time.Now()), id)
}

func (d *DB) RestoreHabit(id string) error {
	return d.execAffected(storage.ErrNotFound,
		"UPDATE habits SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var kind, createdAt string
	var archivedAt, deletedAt sql.NullString

	if err := row.Scan(&h.ID, &h.Title, &h.Category, &kind, &h.Count, &h.Period, &createdAt, &archivedAt, &deletedAt); err != nil {
		return models.Habit{}, err
	}
	h.Kind = models.HabitKind(kind)

	var err error
	if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.ArchivedAt, err = parseNullTime("archived_at", archivedAt); err != nil {
		return models.Habit{}, err
	}
	if h.DeletedAt, err = parseNullTime("deleted_at", deletedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

const sessionColumns = "id, habit_id, duration_min, amount, note, created_at, finished_at"

func (d *DB) AddHabitSession(session models.HabitSession) (models.HabitSession, error) {
	session.ID = newID(session.ID)
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := d.exec(`
		INSERT INTO habit_sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.HabitID, nullInt(session.DurationMin), nullInt(session.Amount), session.Note,
		formatTime(session.CreatedAt), formatNullTime(session.FinishedAt))
	if err != nil {
		return models.HabitSession{}, fmt.Errorf("failed to add habit session: %w", err)
	}
	return session, nil
}

func (d *DB) GetHabitSessions(habitID string) ([]models.HabitSession, error) {
	rows, err := d.query("SELECT "+sessionColumns+" FROM habit_sessions WHERE habit_id = ? ORDER BY created_at", habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.HabitSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (d *DB) GetAllHabitSessions() (map[string][]models.HabitSession, error) {
	rows, err := d.query(`
		SELECT s.id, s.habit_id, s.duration_min, s.amount, s.note, s.created_at, s.finished_at
		FROM habit_sessions s JOIN habits h ON h.id = s.habit_id
		WHERE h.deleted_at IS NULL
		ORDER BY s.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byHabit := make(map[string][]models.HabitSession)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		byHabit[s.HabitID] = append(byHabit[s.HabitID], s)
	}
	return byHabit, rows.Err()
}

func (d *DB) DeleteHabitSession(id string) error {
	return d.execAffected(storage.ErrNotFound, "DELETE FROM habit_sessions WHERE id = ?", id)
}

func scanSession(row scanner) (models.HabitSession, error) {
	var s models.HabitSession
	var duration, amount sql.NullInt64
	var createdAt string
	var finishedAt sql.NullString

	if err := row.Scan(&s.ID, &s.HabitID, &duration, &amount, &s.Note, &createdAt, &finishedAt); err != nil {
		return models.HabitSession{}, err
	}
	s.DurationMin = intPtr(duration)
	s.Amount = intPtr(amount)

	// Rows with unreadable timestamps keep a zero CreatedAt; the stats engine skips them.
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = t
	}
	var err error
	if s.FinishedAt, err = parseNullTime("finished_at", finishedAt); err != nil {
		return models.HabitSession{}, err
	}
	return s, nil
}
