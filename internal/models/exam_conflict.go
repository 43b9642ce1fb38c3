package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ConflictKind tags a structural conflict found in a committed schedule.
type ConflictKind string

const (
	ConflictTimeOverlap       ConflictKind = "TIME_OVERLAP"
	ConflictInsufficientBreak ConflictKind = "INSUFFICIENT_BREAK"
	ConflictRoomCapacity      ConflictKind = "ROOM_CAPACITY"
	ConflictDoubleBooking     ConflictKind = "DOUBLE_BOOKING"
	ConflictProfessorOverlap  ConflictKind = "PROFESSOR_OVERLAP"
	ConflictProfessorOverload ConflictKind = "PROFESSOR_OVERLOAD"
)

// ConflictCategory groups conflict kinds by the resource they concern.
type ConflictCategory string

const (
	CategoryTime      ConflictCategory = "TIME"
	CategorySpace     ConflictCategory = "SPACE"
	CategoryProfessor ConflictCategory = "PROFESSOR"
)

// Category returns the resource group of the kind.
func (k ConflictKind) Category() ConflictCategory {
	switch k {
	case ConflictTimeOverlap, ConflictInsufficientBreak:
		return CategoryTime
	case ConflictRoomCapacity, ConflictDoubleBooking:
		return CategorySpace
	case ConflictProfessorOverlap, ConflictProfessorOverload:
		return CategoryProfessor
	default:
		return ""
	}
}

// DoubleBookingOverflow marks a double booking in OverflowCount.
const DoubleBookingOverflow = -1

var conflictNamespace = uuid.MustParse("6f1c1a4e-3f0a-4f7c-9f57-0d7f1c3b2a10")

// ScheduleConflict is one stored conflict of an exam schedule.
type ScheduleConflict struct {
	ID                  string         `db:"id" json:"id"`
	ScheduleID          string         `db:"schedule_id" json:"schedule_id"`
	Kind                ConflictKind   `db:"conflict_type" json:"conflict_type"`
	Severity            Severity       `db:"severity" json:"severity"`
	Description         string         `db:"description" json:"description"`
	ExamIDs             pq.StringArray `db:"exam_ids" json:"exam_ids"`
	ProfessorID         *string        `db:"professor_id" json:"professor_id,omitempty"`
	AffectedStudents    int            `db:"affected_students" json:"affected_students"`
	OverflowCount       *int           `db:"overflow_count" json:"overflow_count,omitempty"`
	SuggestedResolution string         `db:"suggested_resolution" json:"suggested_resolution"`
	DetectedAt          time.Time      `db:"detected_at" json:"detected_at"`
}

// ExamPair joins the conflict's exam ids in sorted order, ignoring kind.
func (c ScheduleConflict) ExamPair() string {
	ids := append([]string(nil), c.ExamIDs...)
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// PairKey identifies the conflict by its kind and unordered exam ids.
func (c ScheduleConflict) PairKey() string {
	key := string(c.Kind) + "|" + c.ExamPair()
	if c.ProfessorID != nil {
		key += "|" + *c.ProfessorID
	}
	return key
}

// AssignID derives a stable identifier so re-analysis of the same schedule yields the same ids.
func (c *ScheduleConflict) AssignID() {
	c.ID = uuid.NewSHA1(conflictNamespace, []byte(c.ScheduleID+"|"+c.PairKey())).String()
}

// ConflictAnalysisResult summarises one analysis run.
type ConflictAnalysisResult struct {
	ScheduleID       string                   `json:"schedule_id"`
	Conflicts        []ScheduleConflict       `json:"conflicts"`
	TotalConflicts   int                      `json:"total_conflicts"`
	BySeverity       map[Severity]int         `json:"by_severity"`
	ByCategory       map[ConflictCategory]int `json:"by_category"`
	AffectedStudents int                      `json:"affected_students"`
	SkippedExams     []string                 `json:"skipped_exams,omitempty"`
	AnalyzedAt       time.Time                `json:"analyzed_at"`
}

// NewConflictAnalysisResult tallies conflicts into a result.
func NewConflictAnalysisResult(scheduleID string, conflicts []ScheduleConflict, analyzedAt time.Time) *ConflictAnalysisResult {
	res := &ConflictAnalysisResult{
		ScheduleID: scheduleID,
		Conflicts:  conflicts,
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[ConflictCategory]int),
		AnalyzedAt: analyzedAt,
	}
	if res.Conflicts == nil {
		res.Conflicts = []ScheduleConflict{}
	}
	for _, c := range conflicts {
		res.TotalConflicts++
		res.BySeverity[c.Severity]++
		res.ByCategory[c.Kind.Category()]++
		res.AffectedStudents += c.AffectedStudents
	}
	return res
}

// CriticalCount returns the number of CRITICAL conflicts.
func (r *ConflictAnalysisResult) CriticalCount() int {
	if r == nil {
		return 0
	}
	return r.BySeverity[SeverityCritical]
}

// ChangeImpactResult describes how a proposed exam edit would change the conflict set.
type ChangeImpactResult struct {
	ExamID              string             `json:"exam_id"`
	Field               string             `json:"field"`
	Resolved            []ScheduleConflict `json:"resolved"`
	Created             []ScheduleConflict `json:"created"`
	NetImpactedStudents int                `json:"net_impacted_students"`
	RecommendationScore float64            `json:"recommendation_score"`
	Recommendation      string             `json:"recommendation"`
}
