package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

const conflictColumns = `id, schedule_id, conflict_type, severity, description, exam_ids, professor_id, affected_students, overflow_count, suggested_resolution, detected_at`

// ConflictRepository stores the latest conflict analysis of each schedule.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs the repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// ReplaceForSchedule swaps the stored conflicts of a schedule in one transaction.
func (r *ConflictRepository) ReplaceForSchedule(ctx context.Context, scheduleID string, conflicts []models.ScheduleConflict) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conflict replace tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_conflicts WHERE schedule_id = $1`, scheduleID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear schedule conflicts: %w", err)
	}

	const insertQuery = `INSERT INTO schedule_conflicts (` + conflictColumns + `)
VALUES (:id, :schedule_id, :conflict_type, :severity, :description, :exam_ids, :professor_id, :affected_students, :overflow_count, :suggested_resolution, :detected_at)`
	now := time.Now().UTC()
	for i := range conflicts {
		c := conflicts[i]
		c.ScheduleID = scheduleID
		if c.DetectedAt.IsZero() {
			c.DetectedAt = now
		}
		if c.ID == "" {
			c.AssignID()
		}
		if _, err := tx.NamedExecContext(ctx, insertQuery, c); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert schedule conflict: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit conflict replace tx: %w", err)
	}
	return nil
}

// ListBySchedule returns the stored conflicts ordered by detection and severity.
func (r *ConflictRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM schedule_conflicts WHERE schedule_id = $1 ORDER BY detected_at, id`
	var conflicts []models.ScheduleConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule conflicts: %w", err)
	}
	return conflicts, nil
}
