package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// ScheduleVersionRepository persists immutable, numbered schedule snapshots.
type ScheduleVersionRepository struct {
	db *sqlx.DB
}

// NewScheduleVersionRepository constructs the repository.
func NewScheduleVersionRepository(db *sqlx.DB) *ScheduleVersionRepository {
	return &ScheduleVersionRepository{db: db}
}

func (r *ScheduleVersionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a snapshot under the next version number of its schedule.
// An empty label becomes "v<version>".
func (r *ScheduleVersionRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.ScheduleVersion) error {
	if version == nil {
		return fmt.Errorf("schedule version payload is nil")
	}
	if version.ScheduleID == "" {
		return fmt.Errorf("schedule_id is required")
	}
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if len(version.Payload) == 0 {
		version.Payload = types.JSONText(`{}`)
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_versions WHERE schedule_id = $1`
	if err := sqlx.GetContext(ctx, target, &version.Version, nextVersionQuery, version.ScheduleID); err != nil {
		return fmt.Errorf("compute next schedule version: %w", err)
	}
	if version.Label == "" {
		version.Label = fmt.Sprintf("v%d", version.Version)
	}

	const insertQuery = `INSERT INTO schedule_versions (id, schedule_id, version, label, payload, created_at) VALUES (:id, :schedule_id, :version, :label, :payload, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, version); err != nil {
		return fmt.Errorf("insert schedule version: %w", err)
	}
	return nil
}

// ListBySchedule returns one page of versions, newest first.
func (r *ScheduleVersionRepository) ListBySchedule(ctx context.Context, scheduleID string, limit, offset int) ([]models.ScheduleVersion, error) {
	const query = `SELECT id, schedule_id, version, label, payload, created_at FROM schedule_versions WHERE schedule_id = $1 ORDER BY version DESC LIMIT $2 OFFSET $3`
	var versions []models.ScheduleVersion
	if err := r.db.SelectContext(ctx, &versions, query, scheduleID, limit, offset); err != nil {
		return nil, fmt.Errorf("list schedule versions: %w", err)
	}
	return versions, nil
}

// CountBySchedule returns how many versions a schedule has.
func (r *ScheduleVersionRepository) CountBySchedule(ctx context.Context, scheduleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM schedule_versions WHERE schedule_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, scheduleID); err != nil {
		return 0, fmt.Errorf("count schedule versions: %w", err)
	}
	return total, nil
}

// FindByVersion loads one version. A missing row yields sql.ErrNoRows.
func (r *ScheduleVersionRepository) FindByVersion(ctx context.Context, scheduleID string, version int) (*models.ScheduleVersion, error) {
	const query = `SELECT id, schedule_id, version, label, payload, created_at FROM schedule_versions WHERE schedule_id = $1 AND version = $2`
	var v models.ScheduleVersion
	if err := r.db.GetContext(ctx, &v, query, scheduleID, version); err != nil {
		return nil, err
	}
	return &v, nil
}
