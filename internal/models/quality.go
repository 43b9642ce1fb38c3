package models

import "time"

// QualityBreakdown carries the counts behind a quality score.
type QualityBreakdown struct {
	TotalExams           int `json:"total_exams"`
	TotalPreferences     int `json:"total_preferences"`
	SatisfiedPreferences int `json:"satisfied_preferences"`
	TotalConflicts       int `json:"total_conflicts"`
	CriticalConflicts    int `json:"critical_conflicts"`
}

// QualityScoreResult is the weighted quality of a schedule and its components.
type QualityScoreResult struct {
	OverallScore           float64          `json:"overall_score"`
	PreferenceSatisfaction float64          `json:"preference_satisfaction"`
	ConflictMinimization   float64          `json:"conflict_minimization"`
	ResourceUtilization    float64          `json:"resource_utilization"`
	WorkloadDistribution   float64          `json:"workload_distribution"`
	PolicyCompliance       float64          `json:"policy_compliance"`
	Breakdown              QualityBreakdown `json:"breakdown"`
	Recommendations        []string         `json:"recommendations"`
	CalculatedAt           time.Time        `json:"calculated_at"`
}

// QualityMetric is a persisted quality snapshot used for trend analysis.
type QualityMetric struct {
	ID                     string    `db:"id" json:"id"`
	ScheduleID             string    `db:"schedule_id" json:"schedule_id"`
	OverallScore           float64   `db:"overall_score" json:"overall_score"`
	PreferenceSatisfaction float64   `db:"preference_satisfaction" json:"preference_satisfaction"`
	ConflictResolution     float64   `db:"conflict_resolution" json:"conflict_resolution"`
	ResourceUtilization    float64   `db:"resource_utilization" json:"resource_utilization"`
	WorkloadDistribution   float64   `db:"workload_distribution" json:"workload_distribution"`
	PolicyCompliance       float64   `db:"policy_compliance" json:"policy_compliance"`
	TotalConflicts         int       `db:"total_conflicts" json:"total_conflicts"`
	Algorithm              string    `db:"algorithm" json:"algorithm"`
	RecordedAt             time.Time `db:"recorded_at" json:"recorded_at"`
}

// TrendDirection classifies how quality moved between snapshots.
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendDeclining TrendDirection = "DECLINING"
	TrendStable    TrendDirection = "STABLE"
)

// TrendAnalysis compares the two most recent quality snapshots.
type TrendAnalysis struct {
	ScheduleID              string         `json:"schedule_id"`
	Trend                   TrendDirection `json:"trend"`
	QualityDelta            float64        `json:"quality_delta"`
	PreferenceDelta         float64        `json:"preference_delta"`
	ConflictResolutionDelta float64        `json:"conflict_resolution_delta"`
	Latest                  QualityMetric  `json:"latest"`
	Previous                QualityMetric  `json:"previous"`
	Recommendations         []string       `json:"recommendations"`
}
