package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/evan-hart/studyplan-api/internal/models"
)

// TimetableRepository provides persistence for timetable documents.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// FindByID loads a timetable by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	const query = `SELECT id, user_id, mode, snapshot, schedule, version, created_at, updated_at FROM timetables WHERE id = $1`
	var tt models.Timetable
	if err := r.db.GetContext(ctx, &tt, query, id); err != nil {
		return nil, err
	}
	return &tt, nil
}

// ListByUser returns a user's timetables, newest first.
func (r *TimetableRepository) ListByUser(ctx context.Context, userID string) ([]models.Timetable, error) {
	const query = `SELECT id, user_id, mode, snapshot, schedule, version, created_at, updated_at FROM timetables WHERE user_id = $1 ORDER BY created_at DESC`
	var timetables []models.Timetable
	if err := r.db.SelectContext(ctx, &timetables, query, userID); err != nil {
		return nil, fmt.Errorf("list timetables by user: %w", err)
	}
	return timetables, nil
}

// Create stores a new timetable document at version 1.
func (r *TimetableRepository) Create(ctx context.Context, tt *models.Timetable) error {
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = now
	}
	tt.UpdatedAt = now
	if tt.Version == 0 {
		tt.Version = 1
	}

	const query = `INSERT INTO timetables (id, user_id, mode, snapshot, schedule, version, created_at, updated_at) VALUES (:id, :user_id, :mode, :snapshot, :schedule, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tt); err != nil {
		return fmt.Errorf("create timetable: %w", err)
	}
	return nil
}

// UpdateScheduleVersioned replaces the schedule document only when the stored
// version still matches expectedVersion. Zero affected rows means another
// writer got there first and the caller must reload.
func (r *TimetableRepository) UpdateScheduleVersioned(ctx context.Context, id string, schedule types.JSONText, expectedVersion int) error {
	const query = `UPDATE timetables SET schedule = $2, version = version + 1, updated_at = $3 WHERE id = $1 AND version = $4`
	result, err := r.db.ExecContext(ctx, query, id, schedule, time.Now().UTC(), expectedVersion)
	if err != nil {
		return fmt.Errorf("update timetable schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timetable update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceDocument rewrites snapshot and schedule together under the same
// version check, used when a full regeneration supersedes the stored plan.
func (r *TimetableRepository) ReplaceDocument(ctx context.Context, id string, snapshot, schedule types.JSONText, mode string, expectedVersion int) error {
	const query = `UPDATE timetables SET snapshot = $2, schedule = $3, mode = $4, version = version + 1, updated_at = $5 WHERE id = $1 AND version = $6`
	result, err := r.db.ExecContext(ctx, query, id, snapshot, schedule, mode, time.Now().UTC(), expectedVersion)
	if err != nil {
		return fmt.Errorf("replace timetable document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timetable replace rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a timetable by id.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetables WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	return nil
}
