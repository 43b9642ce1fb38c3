package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// QualityMetricRepository persists quality snapshots for trend analysis.
type QualityMetricRepository struct {
	db *sqlx.DB
}

// NewQualityMetricRepository constructs the repository.
func NewQualityMetricRepository(db *sqlx.DB) *QualityMetricRepository {
	return &QualityMetricRepository{db: db}
}

// Create inserts one snapshot.
func (r *QualityMetricRepository) Create(ctx context.Context, metric *models.QualityMetric) error {
	if metric == nil {
		return fmt.Errorf("quality metric payload is nil")
	}
	if metric.ScheduleID == "" {
		return fmt.Errorf("schedule_id is required")
	}
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	if metric.RecordedAt.IsZero() {
		metric.RecordedAt = time.Now().UTC()
	}
	const query = `INSERT INTO schedule_quality_metrics (id, schedule_id, overall_score, preference_satisfaction, conflict_resolution, resource_utilization, workload_distribution, policy_compliance, total_conflicts, algorithm, recorded_at)
VALUES (:id, :schedule_id, :overall_score, :preference_satisfaction, :conflict_resolution, :resource_utilization, :workload_distribution, :policy_compliance, :total_conflicts, :algorithm, :recorded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, metric); err != nil {
		return fmt.Errorf("insert quality metric: %w", err)
	}
	return nil
}

// ListRecent returns up to limit snapshots, newest first.
func (r *QualityMetricRepository) ListRecent(ctx context.Context, scheduleID string, limit int) ([]models.QualityMetric, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT id, schedule_id, overall_score, preference_satisfaction, conflict_resolution, resource_utilization, workload_distribution, policy_compliance, total_conflicts, algorithm, recorded_at FROM schedule_quality_metrics WHERE schedule_id = $1 ORDER BY recorded_at DESC LIMIT $2`
	var metrics []models.QualityMetric
	if err := r.db.SelectContext(ctx, &metrics, query, scheduleID, limit); err != nil {
		return nil, fmt.Errorf("list quality metrics: %w", err)
	}
	return metrics, nil
}
