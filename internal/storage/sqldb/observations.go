package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/storage"
)

const observationColumns = `id, user_id, scope, analysis_depth, category, observation, date_ref, confidence,
	entity_refs, dismissed, dismiss_reason, dismiss_note, dismissed_at, superseded_by, created_at`

const activeCondition = "NOT dismissed AND superseded_by IS NULL"

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

func (d *DB) listObservations(ctx context.Context, query string, args ...any) ([]models.Observation, error) {
	rows, err := d.db.QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Observation{}
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// GetActiveObservations returns observations that are neither dismissed nor
// superseded, newest date_ref first and most recently inserted first within a day.
func (d *DB) GetActiveObservations(ctx context.Context, userID string, limit int) ([]models.Observation, error) {
	return d.listObservations(ctx, "SELECT "+observationColumns+` FROM observations
		WHERE user_id = ? AND `+activeCondition+`
		ORDER BY date_ref DESC, seq DESC`+limitClause(limit), userID)
}

func (d *DB) GetObservationsByDateRef(ctx context.Context, userID, dateRef string) ([]models.Observation, error) {
	return d.listObservations(ctx, "SELECT "+observationColumns+` FROM observations
		WHERE user_id = ? AND date_ref = ?
		ORDER BY seq`, userID, dateRef)
}

// GetDismissedObservations returns dismissed observations, most recently dismissed first.
func (d *DB) GetDismissedObservations(ctx context.Context, userID string, limit int) ([]models.Observation, error) {
	return d.listObservations(ctx, "SELECT "+observationColumns+` FROM observations
		WHERE user_id = ? AND dismissed
		ORDER BY dismissed_at DESC, seq DESC`+limitClause(limit), userID)
}

// GetAllObservations returns every observation of a user, including dismissed and
// superseded ones, in insertion order.
func (d *DB) GetAllObservations(ctx context.Context, userID string) ([]models.Observation, error) {
	return d.listObservations(ctx, "SELECT "+observationColumns+" FROM observations WHERE user_id = ? ORDER BY seq", userID)
}

func (d *DB) GetObservation(ctx context.Context, userID, id string) (models.Observation, error) {
	obs, err := d.listObservations(ctx, "SELECT "+observationColumns+" FROM observations WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return models.Observation{}, err
	}
	if len(obs) == 0 {
		return models.Observation{}, fmt.Errorf("observation %s: %w", id, storage.ErrNotFound)
	}
	return obs[0], nil
}

// InsertObservations stores obs in one transaction and returns their ids in input order.
// Missing ids are generated.
func (d *DB) InsertObservations(ctx context.Context, userID string, obs []models.Observation) ([]string, error) {
	ids := make([]string, 0, len(obs))
	if len(obs) == 0 {
		return ids, nil
	}

	now := formatTime(time.Now())
	query := d.Rebind(`
		INSERT INTO observations (id, user_id, scope, analysis_depth, category, observation, date_ref,
			confidence, entity_refs, dismissed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	err := inTx(ctx, d.db, func(tx *sql.Tx) error {
		for _, o := range obs {
			refs := o.EntityRefs
			if refs == nil {
				refs = []models.EntityRef{}
			}
			refsJSON, err := json.Marshal(refs)
			if err != nil {
				return fmt.Errorf("failed to encode entity refs: %w", err)
			}
			id := newID(o.ID)
			if _, err := tx.ExecContext(ctx, query,
				id, userID, string(o.Scope), string(o.AnalysisDepth), string(o.Category), o.Text, o.DateRef,
				o.Confidence, string(refsJSON), false, now); err != nil {
				return fmt.Errorf("failed to insert observation: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SupersedeObservations points each id at supersededBy. Dismissal state is untouched.
func (d *DB) SupersedeObservations(ctx context.Context, userID string, ids []string, supersededBy string) error {
	if len(ids) == 0 {
		return nil
	}
	query := d.Rebind("UPDATE observations SET superseded_by = ? WHERE user_id = ? AND id = ?")
	return inTx(ctx, d.db, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, query, supersededBy, userID, id); err != nil {
				return fmt.Errorf("failed to supersede observation %s: %w", id, err)
			}
		}
		return nil
	})
}

// PruneObservations hard-deletes active observations beyond the keep most valuable,
// ranked by date_ref, then confidence, then insertion order, all descending.
// Dismissed and superseded rows are never pruned.
func (d *DB) PruneObservations(ctx context.Context, userID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	rows, err := d.db.QueryContext(ctx, d.Rebind(`SELECT id FROM observations
		WHERE user_id = ? AND `+activeCondition+`
		ORDER BY date_ref DESC, confidence DESC, seq DESC`), userID)
	if err != nil {
		return 0, err
	}
	var ranked []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ranked = append(ranked, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ranked) <= keep {
		return 0, nil
	}

	doomed := ranked[keep:]
	query := d.Rebind("DELETE FROM observations WHERE user_id = ? AND id = ?")
	err = inTx(ctx, d.db, func(tx *sql.Tx) error {
		for _, id := range doomed {
			if _, err := tx.ExecContext(ctx, query, userID, id); err != nil {
				return fmt.Errorf("failed to prune observation %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doomed), nil
}

// GetLastAnalysisDate returns the latest date_ref produced at depth, if any.
func (d *DB) GetLastAnalysisDate(ctx context.Context, userID string, depth models.AnalysisDepth) (string, bool, error) {
	var last sql.NullString
	err := d.db.QueryRowContext(ctx, d.Rebind(
		"SELECT MAX(date_ref) FROM observations WHERE user_id = ? AND analysis_depth = ?"),
		userID, string(depth)).Scan(&last)
	if err != nil {
		return "", false, err
	}
	if !last.Valid || last.String == "" {
		return "", false, nil
	}
	return last.String, true, nil
}

func (d *DB) DismissObservation(ctx context.Context, userID, id string, reason models.DismissReason, note string) error {
	if !reason.IsValid() {
		return fmt.Errorf("invalid dismiss reason %q", reason)
	}
	return d.execAffectedContext(ctx, fmt.Errorf("observation %s: %w", id, storage.ErrNotFound), `
		UPDATE observations SET dismissed = ?, dismiss_reason = ?, dismiss_note = ?, dismissed_at = ?
		WHERE user_id = ? AND id = ?`,
		true, string(reason), nullString(note), formatTime(time.Now()), userID, id)
}

func (d *DB) RestoreObservation(ctx context.Context, userID, id string) error {
	return d.execAffectedContext(ctx, fmt.Errorf("observation %s: %w", id, storage.ErrNotFound), `
		UPDATE observations SET dismissed = ?, dismiss_reason = NULL, dismiss_note = NULL, dismissed_at = NULL
		WHERE user_id = ? AND id = ?`,
		false, userID, id)
}

func scanObservation(row scanner) (models.Observation, error) {
	var o models.Observation
	var scope, depth, category, refs, createdAt string
	var reason, note, dismissedAt, supersededBy sql.NullString

	if err := row.Scan(&o.ID, &o.UserID, &scope, &depth, &category, &o.Text, &o.DateRef, &o.Confidence,
		&refs, &o.Dismissed, &reason, &note, &dismissedAt, &supersededBy, &createdAt); err != nil {
		return models.Observation{}, err
	}
	o.Scope = models.ObservationScope(scope)
	o.AnalysisDepth = models.AnalysisDepth(depth)
	o.Category = models.ObservationCategory(category)
	o.DismissReason = models.DismissReason(reason.String)
	o.DismissNote = note.String
	o.SupersededBy = supersededBy.String

	if refs != "" {
		if err := json.Unmarshal([]byte(refs), &o.EntityRefs); err != nil {
			return models.Observation{}, fmt.Errorf("failed to decode entity refs: %w", err)
		}
	}
	if len(o.EntityRefs) == 0 {
		o.EntityRefs = nil
	}

	var err error
	if o.DismissedAt, err = parseNullTime("dismissed_at", dismissedAt); err != nil {
		return models.Observation{}, err
	}
	if o.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Observation{}, err
	}
	return o, nil
}
