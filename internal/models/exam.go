package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProblem marks a scheduling problem that cannot be solved as given.
var ErrInvalidProblem = errors.New("invalid scheduling problem")

// CourseType distinguishes mandatory from elective courses.
type CourseType string

const (
	CourseTypeMandatory CourseType = "MANDATORY"
	CourseTypeElective  CourseType = "ELECTIVE"
)

// Course is one examinable course; each course needs exactly one exam slot.
type Course struct {
	ID                    string     `json:"id"`
	Name                  string     `json:"name"`
	StudentCount          int        `json:"student_count"`
	ProfessorIDs          []string   `json:"professor_ids"`
	Type                  CourseType `json:"type"`
	EstimatedDuration     int        `json:"estimated_duration"`
	RequiredEquipment     []string   `json:"required_equipment,omitempty"`
	RequiresAccessibility bool       `json:"requires_accessibility,omitempty"`
}

// Mandatory reports whether the course is compulsory for its students.
func (c Course) Mandatory() bool {
	return c.Type == CourseTypeMandatory
}

// SharesProfessor reports whether both courses have a professor in common.
func (c Course) SharesProfessor(other Course) bool {
	return sharesAny(c.ProfessorIDs, other.ProfessorIDs)
}

// Room is a physical examination room.
type Room struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Equipment  []string `json:"equipment,omitempty"`
	Accessible bool     `json:"accessible"`
}

// Suits reports whether the room can host the course.
func (r Room) Suits(c Course) bool {
	if r.Capacity < c.StudentCount {
		return false
	}
	if c.RequiresAccessibility && !r.Accessible {
		return false
	}
	for _, need := range c.RequiredEquipment {
		found := false
		for _, have := range r.Equipment {
			if have == need {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TimeSlot binds a date, a start/end time and a room.
type TimeSlot struct {
	Date         time.Time `json:"date"`
	StartTime    Clock     `json:"start_time"`
	EndTime      Clock     `json:"end_time"`
	RoomID       string    `json:"room_id"`
	RoomName     string    `json:"room_name"`
	RoomCapacity int       `json:"room_capacity"`
}

// DayOfWeek derives the weekday from the slot date.
func (t TimeSlot) DayOfWeek() time.Weekday {
	return t.Date.Weekday()
}

// Duration returns the slot length in minutes.
func (t TimeSlot) Duration() int {
	return int(t.EndTime - t.StartTime)
}

// Overlaps reports whether both slots share a date and their intervals intersect.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return SameDate(t.Date, other.Date) && t.StartTime < other.EndTime && other.StartTime < t.EndTime
}

// GapTo returns the minutes between the two intervals, or 0 when they overlap.
func (t TimeSlot) GapTo(other TimeSlot) int {
	switch {
	case t.EndTime <= other.StartTime:
		return int(other.StartTime - t.EndTime)
	case other.EndTime <= t.StartTime:
		return int(t.StartTime - other.EndTime)
	default:
		return 0
	}
}

// Key identifies the slot uniquely.
func (t TimeSlot) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.Date.Format("2006-01-02"), t.StartTime, t.RoomID)
}

// TimeRange is a time-of-day window.
type TimeRange struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Covers reports whether [start,end) fits inside the range widened by flex minutes on both sides.
func (r TimeRange) Covers(start, end Clock, flex int) bool {
	return start >= r.Start.Add(-flex) && end <= r.End.Add(flex)
}

// Intersects reports whether [start,end) intersects the range.
func (r TimeRange) Intersects(start, end Clock) bool {
	return start < r.End && r.Start < end
}

// Preference expresses a professor's wishes for one course exam.
type Preference struct {
	ProfessorID      string      `json:"professor_id"`
	CourseID         string      `json:"course_id"`
	PreferredDates   []time.Time `json:"preferred_dates,omitempty"`
	UnavailableDates []time.Time `json:"unavailable_dates,omitempty"`
	PreferredTimes   []TimeRange `json:"preferred_times,omitempty"`
	UnavailableTimes []TimeRange `json:"unavailable_times,omitempty"`
	PreferredRooms   []string    `json:"preferred_rooms,omitempty"`
	Priority         int         `json:"priority"`
}

// Excludes reports whether the professor has marked the slot unavailable.
func (p Preference) Excludes(slot TimeSlot) bool {
	for _, d := range p.UnavailableDates {
		if SameDate(d, slot.Date) {
			return true
		}
	}
	for _, r := range p.UnavailableTimes {
		if r.Intersects(slot.StartTime, slot.EndTime) {
			return true
		}
	}
	return false
}

// SatisfiedBy reports whether every stated date, time and room wish holds for slot.
func (p Preference) SatisfiedBy(slot TimeSlot, flexMinutes int) bool {
	if len(p.PreferredDates) > 0 {
		ok := false
		for _, d := range p.PreferredDates {
			if SameDate(d, slot.Date) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(p.PreferredTimes) > 0 {
		ok := false
		for _, r := range p.PreferredTimes {
			if r.Covers(slot.StartTime, slot.EndTime, flexMinutes) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(p.PreferredRooms) > 0 {
		ok := false
		for _, id := range p.PreferredRooms {
			if id == slot.RoomID {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// InstitutionalConstraints captures the institution's scheduling policy.
type InstitutionalConstraints struct {
	WorkStart       Clock `json:"work_start"`
	WorkEnd         Clock `json:"work_end"`
	MinExamDuration int   `json:"min_exam_duration"`
	MinGapMinutes   int   `json:"min_gap_minutes"`
	MaxExamsPerDay  int   `json:"max_exams_per_day"`
	MaxExamsPerRoom int   `json:"max_exams_per_room"`
	AllowWeekends   bool  `json:"allow_weekends"`
	SlotGranularity int   `json:"slot_granularity"`
}

// DefaultConstraints returns the institution-wide defaults.
func DefaultConstraints() InstitutionalConstraints {
	return InstitutionalConstraints{
		WorkStart:       8 * 60,
		WorkEnd:         20 * 60,
		MinExamDuration: 120,
		MinGapMinutes:   30,
		MaxExamsPerDay:  8,
		MaxExamsPerRoom: 4,
		SlotGranularity: 60,
	}
}

// WithDefaults fills unset fields from DefaultConstraints.
func (c InstitutionalConstraints) WithDefaults() InstitutionalConstraints {
	d := DefaultConstraints()
	if c.WorkStart == 0 && c.WorkEnd == 0 {
		c.WorkStart, c.WorkEnd = d.WorkStart, d.WorkEnd
	}
	if c.MinExamDuration <= 0 {
		c.MinExamDuration = d.MinExamDuration
	}
	if c.MinGapMinutes <= 0 {
		c.MinGapMinutes = d.MinGapMinutes
	}
	if c.MaxExamsPerDay <= 0 {
		c.MaxExamsPerDay = d.MaxExamsPerDay
	}
	if c.MaxExamsPerRoom <= 0 {
		c.MaxExamsPerRoom = d.MaxExamsPerRoom
	}
	if c.SlotGranularity <= 0 {
		c.SlotGranularity = d.SlotGranularity
	}
	return c
}

// ExamDuration is the scheduled length of the course exam in minutes.
func (c InstitutionalConstraints) ExamDuration(course Course) int {
	if course.EstimatedDuration > c.MinExamDuration {
		return course.EstimatedDuration
	}
	return c.MinExamDuration
}

// ExamPeriod is the inclusive date range exams may be placed in.
type ExamPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days lists every calendar day in the period.
func (p ExamPeriod) Days() []time.Time {
	start, end := DateOnly(p.Start), DateOnly(p.End)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// SchedulingProblem is the full input of one solve.
type SchedulingProblem struct {
	ScheduleID  string                   `json:"schedule_id"`
	SessionID   string                   `json:"session_id,omitempty"`
	Courses     []Course                 `json:"courses"`
	Rooms       []Room                   `json:"rooms"`
	Preferences []Preference             `json:"preferences"`
	Constraints InstitutionalConstraints `json:"constraints"`
	Period      ExamPeriod               `json:"period"`
	Strategy    SolvingStrategy          `json:"strategy"`
}

// Validate rejects malformed problems before any search starts.
func (p *SchedulingProblem) Validate() error {
	if len(p.Courses) == 0 {
		return fmt.Errorf("%w: at least one course is required", ErrInvalidProblem)
	}
	if len(p.Rooms) == 0 {
		return fmt.Errorf("%w: at least one room is required", ErrInvalidProblem)
	}
	courses := make(map[string]bool, len(p.Courses))
	for _, c := range p.Courses {
		if c.ID == "" {
			return fmt.Errorf("%w: course id is required", ErrInvalidProblem)
		}
		if courses[c.ID] {
			return fmt.Errorf("%w: duplicate course %s", ErrInvalidProblem, c.ID)
		}
		if c.StudentCount < 0 {
			return fmt.Errorf("%w: course %s has negative student count", ErrInvalidProblem, c.ID)
		}
		courses[c.ID] = true
	}
	rooms := make(map[string]bool, len(p.Rooms))
	for _, r := range p.Rooms {
		if r.ID == "" {
			return fmt.Errorf("%w: room id is required", ErrInvalidProblem)
		}
		if rooms[r.ID] {
			return fmt.Errorf("%w: duplicate room %s", ErrInvalidProblem, r.ID)
		}
		rooms[r.ID] = true
	}
	for _, pref := range p.Preferences {
		if !courses[pref.CourseID] {
			return fmt.Errorf("%w: preference references unknown course %s", ErrInvalidProblem, pref.CourseID)
		}
	}
	if p.Period.Start.IsZero() || p.Period.End.IsZero() {
		return fmt.Errorf("%w: exam period is required", ErrInvalidProblem)
	}
	if DateOnly(p.Period.End).Before(DateOnly(p.Period.Start)) {
		return fmt.Errorf("%w: exam period ends before it starts", ErrInvalidProblem)
	}
	c := p.Constraints.WithDefaults()
	if c.WorkStart >= c.WorkEnd {
		return fmt.Errorf("%w: working hours window is empty", ErrInvalidProblem)
	}
	if p.Strategy != "" && !p.Strategy.Valid() {
		return fmt.Errorf("%w: unknown strategy %s", ErrInvalidProblem, p.Strategy)
	}
	return nil
}

// CourseIndex maps course ids to courses.
func (p *SchedulingProblem) CourseIndex() map[string]Course {
	index := make(map[string]Course, len(p.Courses))
	for _, c := range p.Courses {
		index[c.ID] = c
	}
	return index
}

// PreferencesFor returns the preferences attached to a course.
func (p *SchedulingProblem) PreferencesFor(courseID string) []Preference {
	var out []Preference
	for _, pref := range p.Preferences {
		if pref.CourseID == courseID {
			out = append(out, pref)
		}
	}
	return out
}

// MaxRoomCapacity returns the largest room capacity.
func (p *SchedulingProblem) MaxRoomCapacity() int {
	max := 0
	for _, r := range p.Rooms {
		if r.Capacity > max {
			max = r.Capacity
		}
	}
	return max
}

// ScheduledExam is a course bound to a slot, with course attributes copied in.
type ScheduledExam struct {
	ID           string   `json:"id"`
	CourseID     string   `json:"course_id"`
	CourseName   string   `json:"course_name"`
	StudentCount int      `json:"student_count"`
	ProfessorIDs []string `json:"professor_ids"`
	Mandatory    bool     `json:"mandatory"`
	Slot         TimeSlot `json:"slot"`
}

// NewScheduledExam binds course to slot.
func NewScheduledExam(course Course, slot TimeSlot) ScheduledExam {
	return ScheduledExam{
		ID:           ExamID(course.ID),
		CourseID:     course.ID,
		CourseName:   course.Name,
		StudentCount: course.StudentCount,
		ProfessorIDs: append([]string(nil), course.ProfessorIDs...),
		Mandatory:    course.Mandatory(),
		Slot:         slot,
	}
}

// ExamID derives the exam identifier for a course.
func ExamID(courseID string) string {
	return "exam-" + courseID
}

// SharesProfessor reports whether both exams are supervised by a common professor.
func (e ScheduledExam) SharesProfessor(other ScheduledExam) bool {
	return sharesAny(e.ProfessorIDs, other.ProfessorIDs)
}

func sharesAny(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
