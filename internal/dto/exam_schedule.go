package dto

import (
	"fmt"
	"time"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

const dateLayout = "2006-01-02"

// CourseRequest describes one course to examine.
type CourseRequest struct {
	ID                    string   `json:"id" yaml:"id" validate:"required"`
	Name                  string   `json:"name" yaml:"name"`
	StudentCount          int      `json:"studentCount" yaml:"studentCount" validate:"min=0"`
	ProfessorIDs          []string `json:"professorIds" yaml:"professorIds" validate:"omitempty,dive,required"`
	Mandatory             bool     `json:"mandatory" yaml:"mandatory"`
	EstimatedDuration     int      `json:"estimatedDuration" yaml:"estimatedDuration" validate:"omitempty,min=1,max=720"`
	RequiredEquipment     []string `json:"requiredEquipment" yaml:"requiredEquipment"`
	RequiresAccessibility bool     `json:"requiresAccessibility" yaml:"requiresAccessibility"`
}

// RoomRequest describes one examination room.
type RoomRequest struct {
	ID         string   `json:"id" yaml:"id" validate:"required"`
	Name       string   `json:"name" yaml:"name"`
	Capacity   int      `json:"capacity" yaml:"capacity" validate:"min=0"`
	Equipment  []string `json:"equipment" yaml:"equipment"`
	Accessible bool     `json:"accessible" yaml:"accessible"`
}

// TimeRangeRequest is an "HH:MM"-"HH:MM" window.
type TimeRangeRequest struct {
	Start string `json:"start" yaml:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" yaml:"end" validate:"required,datetime=15:04"`
}

// PreferenceRequest carries a professor's wishes for a course exam.
type PreferenceRequest struct {
	ProfessorID      string             `json:"professorId" yaml:"professorId" validate:"required"`
	CourseID         string             `json:"courseId" yaml:"courseId" validate:"required"`
	PreferredDates   []string           `json:"preferredDates" yaml:"preferredDates" validate:"omitempty,dive,datetime=2006-01-02"`
	UnavailableDates []string           `json:"unavailableDates" yaml:"unavailableDates" validate:"omitempty,dive,datetime=2006-01-02"`
	PreferredTimes   []TimeRangeRequest `json:"preferredTimes" yaml:"preferredTimes" validate:"omitempty,dive"`
	UnavailableTimes []TimeRangeRequest `json:"unavailableTimes" yaml:"unavailableTimes" validate:"omitempty,dive"`
	PreferredRooms   []string           `json:"preferredRooms" yaml:"preferredRooms"`
	Priority         int                `json:"priority" yaml:"priority" validate:"omitempty,min=1,max=5"`
}

// ConstraintsRequest overrides institutional defaults; zero values keep the default.
type ConstraintsRequest struct {
	WorkStart       string `json:"workStart" yaml:"workStart" validate:"omitempty,datetime=15:04"`
	WorkEnd         string `json:"workEnd" yaml:"workEnd" validate:"omitempty,datetime=15:04"`
	MinExamDuration int    `json:"minExamDuration" yaml:"minExamDuration" validate:"omitempty,min=1"`
	MinGapMinutes   int    `json:"minGapMinutes" yaml:"minGapMinutes" validate:"omitempty,min=0"`
	MaxExamsPerDay  int    `json:"maxExamsPerDay" yaml:"maxExamsPerDay" validate:"omitempty,min=1"`
	MaxExamsPerRoom int    `json:"maxExamsPerRoom" yaml:"maxExamsPerRoom" validate:"omitempty,min=1"`
	SlotGranularity int    `json:"slotGranularity" yaml:"slotGranularity" validate:"omitempty,min=5,max=240"`
	AllowWeekends   bool   `json:"allowWeekends" yaml:"allowWeekends"`
}

// GenerateExamScheduleRequest asks for a complete exam schedule.
type GenerateExamScheduleRequest struct {
	ScheduleID      string              `json:"scheduleId" yaml:"scheduleId" validate:"required"`
	SessionID       string              `json:"sessionId" yaml:"sessionId"`
	Name            string              `json:"name" yaml:"name"`
	StartDate       string              `json:"startDate" yaml:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate         string              `json:"endDate" yaml:"endDate" validate:"required,datetime=2006-01-02"`
	Strategy        string              `json:"strategy" yaml:"strategy" validate:"omitempty,oneof=BACKTRACKING_FC SIMULATED_ANNEALING HYBRID GREEDY_BACKTRACKING"`
	Courses         []CourseRequest     `json:"courses" yaml:"courses" validate:"omitempty,dive"`
	Rooms           []RoomRequest       `json:"rooms" yaml:"rooms" validate:"omitempty,dive"`
	Preferences     []PreferenceRequest `json:"preferences" yaml:"preferences" validate:"omitempty,dive"`
	Constraints     ConstraintsRequest  `json:"constraints" yaml:"constraints"`
	UseUpstreamData bool                `json:"useUpstreamData" yaml:"useUpstreamData"`
	SkipOptimizer   bool                `json:"skipOptimizer" yaml:"skipOptimizer"`
}

// ToProblem converts the payload into a solver input. Dates and times must already be validated.
func (r GenerateExamScheduleRequest) ToProblem() (*models.SchedulingProblem, error) {
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate: %v", models.ErrInvalidProblem, err)
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: endDate: %v", models.ErrInvalidProblem, err)
	}

	constraints, err := r.Constraints.toModel()
	if err != nil {
		return nil, err
	}

	problem := &models.SchedulingProblem{
		ScheduleID:  r.ScheduleID,
		SessionID:   r.SessionID,
		Courses:     make([]models.Course, 0, len(r.Courses)),
		Rooms:       make([]models.Room, 0, len(r.Rooms)),
		Preferences: make([]models.Preference, 0, len(r.Preferences)),
		Constraints: constraints,
		Period:      models.ExamPeriod{Start: start, End: end},
		Strategy:    models.SolvingStrategy(r.Strategy),
	}
	for _, c := range r.Courses {
		problem.Courses = append(problem.Courses, c.ToModel())
	}
	for _, room := range r.Rooms {
		problem.Rooms = append(problem.Rooms, room.ToModel())
	}
	for _, p := range r.Preferences {
		pref, err := p.ToModel()
		if err != nil {
			return nil, err
		}
		problem.Preferences = append(problem.Preferences, pref)
	}
	return problem, nil
}

// ToModel converts a course payload.
func (c CourseRequest) ToModel() models.Course {
	kind := models.CourseTypeElective
	if c.Mandatory {
		kind = models.CourseTypeMandatory
	}
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return models.Course{
		ID:                    c.ID,
		Name:                  name,
		StudentCount:          c.StudentCount,
		ProfessorIDs:          c.ProfessorIDs,
		Type:                  kind,
		EstimatedDuration:     c.EstimatedDuration,
		RequiredEquipment:     c.RequiredEquipment,
		RequiresAccessibility: c.RequiresAccessibility,
	}
}

// ToModel converts a room payload.
func (r RoomRequest) ToModel() models.Room {
	name := r.Name
	if name == "" {
		name = r.ID
	}
	return models.Room{
		ID:         r.ID,
		Name:       name,
		Capacity:   r.Capacity,
		Equipment:  r.Equipment,
		Accessible: r.Accessible,
	}
}

// ToModel converts a preference payload.
func (p PreferenceRequest) ToModel() (models.Preference, error) {
	pref := models.Preference{
		ProfessorID:    p.ProfessorID,
		CourseID:       p.CourseID,
		PreferredRooms: p.PreferredRooms,
		Priority:       p.Priority,
	}
	var err error
	if pref.PreferredDates, err = parseDates(p.PreferredDates); err != nil {
		return pref, err
	}
	if pref.UnavailableDates, err = parseDates(p.UnavailableDates); err != nil {
		return pref, err
	}
	if pref.PreferredTimes, err = parseRanges(p.PreferredTimes); err != nil {
		return pref, err
	}
	if pref.UnavailableTimes, err = parseRanges(p.UnavailableTimes); err != nil {
		return pref, err
	}
	return pref, nil
}

func (c ConstraintsRequest) toModel() (models.InstitutionalConstraints, error) {
	out := models.InstitutionalConstraints{
		MinExamDuration: c.MinExamDuration,
		MinGapMinutes:   c.MinGapMinutes,
		MaxExamsPerDay:  c.MaxExamsPerDay,
		MaxExamsPerRoom: c.MaxExamsPerRoom,
		SlotGranularity: c.SlotGranularity,
		AllowWeekends:   c.AllowWeekends,
	}
	defaults := models.DefaultConstraints()
	out.WorkStart, out.WorkEnd = defaults.WorkStart, defaults.WorkEnd
	if c.WorkStart != "" {
		start, err := models.ParseClock(c.WorkStart)
		if err != nil {
			return out, fmt.Errorf("%w: workStart: %v", models.ErrInvalidProblem, err)
		}
		out.WorkStart = start
	}
	if c.WorkEnd != "" {
		end, err := models.ParseClock(c.WorkEnd)
		if err != nil {
			return out, fmt.Errorf("%w: workEnd: %v", models.ErrInvalidProblem, err)
		}
		out.WorkEnd = end
	}
	return out.WithDefaults(), nil
}

func parseDates(raw []string) ([]time.Time, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(raw))
	for _, v := range raw {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q: %v", models.ErrInvalidProblem, v, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseRanges(raw []TimeRangeRequest) ([]models.TimeRange, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]models.TimeRange, 0, len(raw))
	for _, r := range raw {
		start, err := models.ParseClock(r.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidProblem, err)
		}
		end, err := models.ParseClock(r.End)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidProblem, err)
		}
		out = append(out, models.TimeRange{Start: start, End: end})
	}
	return out, nil
}

// AnalyzeConflictsRequest submits a committed exam list for analysis.
type AnalyzeConflictsRequest struct {
	Exams      []models.ScheduledExam `json:"exams" validate:"required,min=1"`
	Enrollment map[string]int         `json:"enrollment"`
}

// ChangeImpactRequest proposes a single-field edit of one exam.
type ChangeImpactRequest struct {
	Exams        []models.ScheduledExam `json:"exams" validate:"required,min=1"`
	Enrollment   map[string]int         `json:"enrollment"`
	ExamID       string                 `json:"examId" validate:"required"`
	Field        string                 `json:"field" validate:"required,oneof=date startTime roomId"`
	Value        string                 `json:"value" validate:"required"`
	RoomCapacity int                    `json:"roomCapacity" validate:"omitempty,min=0"`
	RoomName     string                 `json:"roomName"`
}

// ScheduleMetadataRequest is the schedule header frozen into a version.
type ScheduleMetadataRequest struct {
	Name      string `json:"name"`
	Status    string `json:"status" validate:"omitempty,oneof=DRAFT GENERATED PUBLISHED FINALIZED"`
	StartDate string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
}

// CreateVersionRequest snapshots a schedule into a new version.
type CreateVersionRequest struct {
	Label           string                  `json:"label" validate:"omitempty,max=64"`
	Schedule        ScheduleMetadataRequest `json:"schedule"`
	Exams           []models.ScheduledExam  `json:"exams" validate:"required"`
	CommentCount    int                     `json:"commentCount" validate:"min=0"`
	AdjustmentCount int                     `json:"adjustmentCount" validate:"min=0"`
}

// ToMetadata converts the header into the snapshot model.
func (r ScheduleMetadataRequest) ToMetadata(scheduleID string) models.ScheduleMetadata {
	meta := models.ScheduleMetadata{
		ID:     scheduleID,
		Name:   r.Name,
		Status: models.ScheduleStatus(r.Status),
	}
	if meta.Status == "" {
		meta.Status = models.ScheduleStatusDraft
	}
	if d, err := time.Parse(dateLayout, r.StartDate); err == nil {
		meta.StartDate = d
	}
	if d, err := time.Parse(dateLayout, r.EndDate); err == nil {
		meta.EndDate = d
	}
	return meta
}

// CompareVersionsQuery selects the two versions to diff.
type CompareVersionsQuery struct {
	From int `form:"from" validate:"required,min=1"`
	To   int `form:"to" validate:"required,min=1"`
}

// VersionListQuery pages through stored versions.
type VersionListQuery struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ExportQuery selects the rendered format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ExportResponse points at a rendered export.
type ExportResponse struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Format string `json:"format"`
}
