package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/storage"
)

func (d *DB) AddIdentityMetric(metric models.IdentityMetric) (models.IdentityMetric, error) {
	metric.ID = newID(metric.ID)
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now()
	}
	_, err := d.exec(`
		INSERT INTO identity_metrics (id, name, description, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?)`,
		metric.ID, metric.Name, metric.Description, formatTime(metric.CreatedAt), formatNullTime(metric.ArchivedAt))
	if err != nil {
		return models.IdentityMetric{}, fmt.Errorf("failed to add identity metric: %w", err)
	}
	return metric, nil
}

func (d *DB) GetAllIdentityMetrics(includeArchived bool) ([]models.IdentityMetric, error) {
	query := "SELECT id, name, description, created_at, archived_at FROM identity_metrics"
	if !includeArchived {
		query += " WHERE archived_at IS NULL"
	}
	query += " ORDER BY created_at, name"

	rows, err := d.query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := []models.IdentityMetric{}
	for rows.Next() {
		var m models.IdentityMetric
		var createdAt string
		var archivedAt sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &createdAt, &archivedAt); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		if m.ArchivedAt, err = parseNullTime("archived_at", archivedAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// GetIdentityMetrics returns the active identity metrics.
func (d *DB) GetIdentityMetrics(ctx context.Context) ([]models.IdentityMetric, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.GetAllIdentityMetrics(false)
}

func (d *DB) ArchiveIdentityMetric(id string) error {
	return d.execAffected(storage.ErrNotFound,
		"UPDATE identity_metrics SET archived_at = ? WHERE id = ? AND archived_at IS NULL", formatTime(time.Now()), id)
}

func (d *DB) SaveCheckin(checkin models.IdentityCheckin) (models.IdentityCheckin, error) {
	checkin.ID = newID(checkin.ID)
	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = time.Now()
	}
	_, err := d.exec(`
		INSERT INTO identity_checkins (id, metric_id, day, score, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (metric_id, day) DO UPDATE SET score = excluded.score, note = excluded.note`,
		checkin.ID, checkin.MetricID, checkin.Day, checkin.Score, checkin.Note, formatTime(checkin.CreatedAt))
	if err != nil {
		return models.IdentityCheckin{}, fmt.Errorf("failed to save check-in: %w", err)
	}
	return checkin, nil
}

// GetCheckinsBetween returns check-ins with from <= day <= to, oldest first.
func (d *DB) GetCheckinsBetween(ctx context.Context, from, to string) ([]models.IdentityCheckin, error) {
	rows, err := d.db.QueryContext(ctx, d.Rebind(`
		SELECT id, metric_id, day, score, note, created_at
		FROM identity_checkins WHERE day >= ? AND day <= ?
		ORDER BY day, metric_id`), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkins := []models.IdentityCheckin{}
	for rows.Next() {
		var c models.IdentityCheckin
		var createdAt string
		if err := rows.Scan(&c.ID, &c.MetricID, &c.Day, &c.Score, &c.Note, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}

// SaveReflection inserts or replaces the reflection for its week.
func (d *DB) SaveReflection(r models.WeeklyReflection) (models.WeeklyReflection, error) {
	r.ID = newID(r.ID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := d.exec(`
		INSERT INTO weekly_reflections (id, week_start, content, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (week_start) DO UPDATE SET content = excluded.content`,
		r.ID, r.WeekStart, r.Content, formatTime(r.CreatedAt))
	if err != nil {
		return models.WeeklyReflection{}, fmt.Errorf("failed to save reflection: %w", err)
	}
	return r, nil
}

// GetRecentReflections returns up to limit reflections, newest week first.
func (d *DB) GetRecentReflections(ctx context.Context, limit int) ([]models.WeeklyReflection, error) {
	if limit <= 0 {
		return []models.WeeklyReflection{}, nil
	}
	rows, err := d.db.QueryContext(ctx, d.Rebind(`
		SELECT id, week_start, content, created_at
		FROM weekly_reflections ORDER BY week_start DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reflections := []models.WeeklyReflection{}
	for rows.Next() {
		var r models.WeeklyReflection
		var createdAt string
		if err := rows.Scan(&r.ID, &r.WeekStart, &r.Content, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		reflections = append(reflections, r)
	}
	return reflections, rows.Err()
}

func (d *DB) AddCompletedTask(task models.CompletedTask) (models.CompletedTask, error) {
	task.ID = newID(task.ID)
	if task.CompletedAt.IsZero() {
		task.CompletedAt = time.Now()
	}
	_, err := d.exec("INSERT INTO completed_tasks (id, title, completed_at) VALUES (?, ?, ?)",
		task.ID, task.Title, formatTime(task.CompletedAt))
	if err != nil {
		return models.CompletedTask{}, fmt.Errorf("failed to add completed task: %w", err)
	}
	return task, nil
}

// GetCompletedTasks returns tasks completed at or after since, oldest first.
func (d *DB) GetCompletedTasks(since time.Time) ([]models.CompletedTask, error) {
	rows, err := d.query(`
		SELECT id, title, completed_at FROM completed_tasks
		WHERE completed_at >= ? ORDER BY completed_at`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.CompletedTask{}
	for rows.Next() {
		var t models.CompletedTask
		var completedAt string
		if err := rows.Scan(&t.ID, &t.Title, &completedAt); err != nil {
			return nil, err
		}
		if t.CompletedAt, err = parseTime("completed_at", completedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
