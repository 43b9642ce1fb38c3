package models

import "fmt"

// Severity orders violations and conflicts by urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns an ordinal where higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ViolationKind tags a constraint violation reported by the solver or fallback chain.
type ViolationKind string

const (
	ViolationUnscheduled            ViolationKind = "UNSCHEDULED"
	ViolationCapacityExceeded       ViolationKind = "CAPACITY_EXCEEDED"
	ViolationRoomDoubleBooked       ViolationKind = "ROOM_DOUBLE_BOOKED"
	ViolationProfessorDoubleBooked  ViolationKind = "PROFESSOR_DOUBLE_BOOKED"
	ViolationProfessorUnavailable   ViolationKind = "PROFESSOR_UNAVAILABLE"
	ViolationOutsideWorkingHours    ViolationKind = "OUTSIDE_WORKING_HOURS"
	ViolationWeekendExam            ViolationKind = "WEEKEND_EXAM"
	ViolationDurationTooShort       ViolationKind = "DURATION_TOO_SHORT"
	ViolationInsufficientGap        ViolationKind = "INSUFFICIENT_GAP"
	ViolationDailyLimitExceeded     ViolationKind = "DAILY_LIMIT_EXCEEDED"
	ViolationRoomDailyLimitExceeded ViolationKind = "ROOM_DAILY_LIMIT_EXCEEDED"
	ViolationPreferenceNotMet       ViolationKind = "PREFERENCE_NOT_MET"
	ViolationEmergencySchedule      ViolationKind = "EMERGENCY_SCHEDULE"
)

// Hard reports whether the kind breaks a hard constraint.
func (k ViolationKind) Hard() bool {
	switch k {
	case ViolationUnscheduled,
		ViolationCapacityExceeded,
		ViolationRoomDoubleBooked,
		ViolationProfessorDoubleBooked,
		ViolationProfessorUnavailable,
		ViolationOutsideWorkingHours,
		ViolationWeekendExam,
		ViolationDurationTooShort:
		return true
	case ViolationInsufficientGap,
		ViolationDailyLimitExceeded,
		ViolationRoomDailyLimitExceeded,
		ViolationPreferenceNotMet,
		ViolationEmergencySchedule:
		return false
	default:
		panic(fmt.Sprintf("unknown violation kind %q", string(k)))
	}
}

// DefaultSeverity is the severity the kind is reported with.
func (k ViolationKind) DefaultSeverity() Severity {
	switch k {
	case ViolationCapacityExceeded, ViolationRoomDoubleBooked, ViolationProfessorDoubleBooked:
		return SeverityCritical
	case ViolationUnscheduled, ViolationProfessorUnavailable, ViolationEmergencySchedule:
		return SeverityHigh
	case ViolationOutsideWorkingHours, ViolationWeekendExam, ViolationDurationTooShort, ViolationDailyLimitExceeded:
		return SeverityMedium
	case ViolationInsufficientGap, ViolationRoomDailyLimitExceeded, ViolationPreferenceNotMet:
		return SeverityLow
	default:
		panic(fmt.Sprintf("unknown violation kind %q", string(k)))
	}
}

// ConstraintViolation describes one broken rule in a solution.
type ConstraintViolation struct {
	Kind                ViolationKind `json:"kind"`
	Severity            Severity      `json:"severity"`
	Description         string        `json:"description"`
	CourseIDs           []string      `json:"course_ids,omitempty"`
	ExamIDs             []string      `json:"exam_ids,omitempty"`
	AffectedStudents    int           `json:"affected_students"`
	SuggestedResolution string        `json:"suggested_resolution,omitempty"`
}

// NewViolation builds a violation using the kind's default severity.
func NewViolation(kind ViolationKind, description string, courseIDs ...string) ConstraintViolation {
	examIDs := make([]string, 0, len(courseIDs))
	for _, id := range courseIDs {
		examIDs = append(examIDs, ExamID(id))
	}
	return ConstraintViolation{
		Kind:        kind,
		Severity:    kind.DefaultSeverity(),
		Description: description,
		CourseIDs:   courseIDs,
		ExamIDs:     examIDs,
	}
}
