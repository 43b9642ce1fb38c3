package models

import "time"

// EventType names a scheduling lifecycle notification.
type EventType string

const (
	EventScheduleGenerated        EventType = "SCHEDULE_GENERATED"
	EventEmergencyScheduleCreated EventType = "EMERGENCY_SCHEDULE_CREATED"
	EventScheduleVersionCreated   EventType = "SCHEDULE_VERSION_CREATED"
	EventConflictsAnalyzed        EventType = "CONFLICTS_ANALYZED"
)

// ScheduleEvent is published fire-and-forget on the event bus.
type ScheduleEvent struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	ScheduleID string                 `json:"schedule_id"`
	SessionID  string                 `json:"session_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// SessionStatus tracks a generation run.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionFailed    SessionStatus = "FAILED"
)

// SchedulingSession records progress of one generation request.
type SchedulingSession struct {
	ID           string          `json:"id"`
	ScheduleID   string          `json:"schedule_id"`
	Status       SessionStatus   `json:"status"`
	Strategy     SolvingStrategy `json:"strategy"`
	Algorithm    string          `json:"algorithm,omitempty"`
	QualityScore float64         `json:"quality_score"`
	ExamCount    int             `json:"exam_count"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// Pagination describes a page of list results.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
