package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleStatus is the lifecycle phase of an exam schedule.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusGenerated ScheduleStatus = "GENERATED"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
	ScheduleStatusFinalized ScheduleStatus = "FINALIZED"
)

// ScheduleMetadata is the schedule-level part of a version snapshot.
type ScheduleMetadata struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    ScheduleStatus `json:"status"`
	StartDate time.Time      `json:"start_date"`
	EndDate   time.Time      `json:"end_date"`
}

// VersionSnapshot is the frozen content of a schedule version.
type VersionSnapshot struct {
	Schedule        ScheduleMetadata `json:"schedule"`
	Exams           []ScheduledExam  `json:"exams"`
	CommentCount    int              `json:"comment_count"`
	AdjustmentCount int              `json:"adjustment_count"`
}

// ScheduleVersion is an immutable, numbered snapshot of a schedule.
type ScheduleVersion struct {
	ID         string         `db:"id" json:"id"`
	ScheduleID string         `db:"schedule_id" json:"schedule_id"`
	Version    int            `db:"version" json:"version"`
	Label      string         `db:"label" json:"label"`
	Payload    types.JSONText `db:"payload" json:"payload"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Snapshot decodes the stored payload.
func (v ScheduleVersion) Snapshot() (*VersionSnapshot, error) {
	var snap VersionSnapshot
	if err := json.Unmarshal(v.Payload, &snap); err != nil {
		return nil, fmt.Errorf("decode version %d of schedule %s: %w", v.Version, v.ScheduleID, err)
	}
	return &snap, nil
}

// DifferenceType tags a change between two versions.
type DifferenceType string

const (
	DiffSchedulePropertyChanged DifferenceType = "SCHEDULE_PROPERTY_CHANGED"
	DiffExamAdded               DifferenceType = "EXAM_ADDED"
	DiffExamRemoved             DifferenceType = "EXAM_REMOVED"
	DiffExamModified            DifferenceType = "EXAM_MODIFIED"
)

// VersionDifference is one change found by comparing two versions.
type VersionDifference struct {
	Type     DifferenceType `json:"type"`
	ExamID   string         `json:"exam_id,omitempty"`
	Property string         `json:"property,omitempty"`
	OldValue string         `json:"old_value,omitempty"`
	NewValue string         `json:"new_value,omitempty"`
}

// VersionComparison lists the differences from one version to another.
type VersionComparison struct {
	ScheduleID  string              `json:"schedule_id"`
	FromVersion int                 `json:"from_version"`
	ToVersion   int                 `json:"to_version"`
	Differences []VersionDifference `json:"differences"`
}
