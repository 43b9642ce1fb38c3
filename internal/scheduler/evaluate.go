package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// Evaluate enumerates every constraint violation of an exam list against the problem.
func Evaluate(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, exams []models.ScheduledExam) []models.ConstraintViolation {
	var out []models.ConstraintViolation

	scheduled := make(map[string]bool, len(exams))
	for _, e := range exams {
		scheduled[e.CourseID] = true
	}
	for _, c := range problem.Courses {
		if !scheduled[c.ID] {
			v := models.NewViolation(models.ViolationUnscheduled, fmt.Sprintf("course %s has no exam slot", c.ID), c.ID)
			v.AffectedStudents = c.StudentCount
			v.SuggestedResolution = "extend the exam period or add rooms"
			out = append(out, v)
		}
	}

	courses := problem.CourseIndex()
	for _, e := range exams {
		out = append(out, examViolations(problem, constraints, courses[e.CourseID], e)...)
	}

	for i := 0; i < len(exams); i++ {
		for j := i + 1; j < len(exams); j++ {
			out = append(out, pairViolations(constraints, exams[i], exams[j])...)
		}
	}

	out = append(out, loadViolations(constraints, exams)...)

	for _, pref := range problem.Preferences {
		if !scheduled[pref.CourseID] || !hasWishes(pref) {
			continue
		}
		for _, e := range exams {
			if e.CourseID == pref.CourseID && !pref.SatisfiedBy(e.Slot, PreferenceFlexMinutes) {
				v := models.NewViolation(models.ViolationPreferenceNotMet,
					fmt.Sprintf("preference of professor %s for course %s not met", pref.ProfessorID, pref.CourseID), pref.CourseID)
				v.SuggestedResolution = "move the exam into a preferred date, time or room"
				out = append(out, v)
			}
		}
	}
	return out
}

func examViolations(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, course models.Course, e models.ScheduledExam) []models.ConstraintViolation {
	var out []models.ConstraintViolation
	if e.Slot.RoomCapacity > 0 && e.StudentCount > e.Slot.RoomCapacity {
		v := models.NewViolation(models.ViolationCapacityExceeded,
			fmt.Sprintf("exam %s seats %d students in room %s of capacity %d", e.ID, e.StudentCount, e.Slot.RoomID, e.Slot.RoomCapacity), e.CourseID)
		v.AffectedStudents = e.StudentCount - e.Slot.RoomCapacity
		v.SuggestedResolution = "move the exam to a larger room or split it"
		out = append(out, v)
	}
	if e.Slot.StartTime < constraints.WorkStart || e.Slot.EndTime > constraints.WorkEnd {
		v := models.NewViolation(models.ViolationOutsideWorkingHours,
			fmt.Sprintf("exam %s runs %s-%s outside %s-%s", e.ID, e.Slot.StartTime, e.Slot.EndTime, constraints.WorkStart, constraints.WorkEnd), e.CourseID)
		v.AffectedStudents = e.StudentCount
		out = append(out, v)
	}
	if !constraints.AllowWeekends && isWeekend(e.Slot.Date) {
		v := models.NewViolation(models.ViolationWeekendExam,
			fmt.Sprintf("exam %s is on a %s", e.ID, e.Slot.DayOfWeek()), e.CourseID)
		v.AffectedStudents = e.StudentCount
		out = append(out, v)
	}
	if e.Slot.Duration() < constraints.MinExamDuration {
		out = append(out, models.NewViolation(models.ViolationDurationTooShort,
			fmt.Sprintf("exam %s lasts %d minutes, minimum is %d", e.ID, e.Slot.Duration(), constraints.MinExamDuration), e.CourseID))
	}
	for _, pref := range problem.Preferences {
		binds := pref.CourseID == e.CourseID || containsString(course.ProfessorIDs, pref.ProfessorID)
		if binds && pref.Excludes(e.Slot) {
			v := models.NewViolation(models.ViolationProfessorUnavailable,
				fmt.Sprintf("professor %s is unavailable for exam %s", pref.ProfessorID, e.ID), e.CourseID)
			v.SuggestedResolution = "reschedule outside the professor's unavailable windows"
			out = append(out, v)
			break
		}
	}
	return out
}

func pairViolations(constraints models.InstitutionalConstraints, a, b models.ScheduledExam) []models.ConstraintViolation {
	if !models.SameDate(a.Slot.Date, b.Slot.Date) {
		return nil
	}
	sameRoom := a.Slot.RoomID == b.Slot.RoomID
	shared := a.SharesProfessor(b)
	if a.Slot.Overlaps(b.Slot) {
		var out []models.ConstraintViolation
		if sameRoom {
			v := models.NewViolation(models.ViolationRoomDoubleBooked,
				fmt.Sprintf("room %s is double booked by %s and %s", a.Slot.RoomID, a.ID, b.ID), a.CourseID, b.CourseID)
			v.AffectedStudents = a.StudentCount + b.StudentCount
			v.SuggestedResolution = "move one exam to another room or time"
			out = append(out, v)
		}
		if shared {
			v := models.NewViolation(models.ViolationProfessorDoubleBooked,
				fmt.Sprintf("a professor supervises both %s and %s at the same time", a.ID, b.ID), a.CourseID, b.CourseID)
			v.SuggestedResolution = "move one exam or assign another supervisor"
			out = append(out, v)
		}
		return out
	}
	if (sameRoom || shared) && a.Slot.GapTo(b.Slot) < constraints.MinGapMinutes {
		return []models.ConstraintViolation{models.NewViolation(models.ViolationInsufficientGap,
			fmt.Sprintf("exams %s and %s are %d minutes apart, minimum gap is %d", a.ID, b.ID, a.Slot.GapTo(b.Slot), constraints.MinGapMinutes),
			a.CourseID, b.CourseID)}
	}
	return nil
}

func loadViolations(constraints models.InstitutionalConstraints, exams []models.ScheduledExam) []models.ConstraintViolation {
	perDay := make(map[string][]string)
	perRoomDay := make(map[string][]string)
	for _, e := range exams {
		day := e.Slot.Date.Format("2006-01-02")
		perDay[day] = append(perDay[day], e.CourseID)
		perRoomDay[day+"|"+e.Slot.RoomID] = append(perRoomDay[day+"|"+e.Slot.RoomID], e.CourseID)
	}

	var out []models.ConstraintViolation
	for _, day := range sortedKeys(perDay) {
		ids := perDay[day]
		if len(ids) > constraints.MaxExamsPerDay {
			out = append(out, models.NewViolation(models.ViolationDailyLimitExceeded,
				fmt.Sprintf("%d exams on %s exceed the daily limit of %d", len(ids), day, constraints.MaxExamsPerDay), ids...))
		}
	}
	for _, key := range sortedKeys(perRoomDay) {
		ids := perRoomDay[key]
		if len(ids) > constraints.MaxExamsPerRoom {
			parts := strings.SplitN(key, "|", 2)
			out = append(out, models.NewViolation(models.ViolationRoomDailyLimitExceeded,
				fmt.Sprintf("room %s hosts %d exams on %s, limit is %d", parts[1], len(ids), parts[0], constraints.MaxExamsPerRoom), ids...))
		}
	}
	return out
}

// CountViolations splits violations into hard and soft counts.
func CountViolations(violations []models.ConstraintViolation) (hard, soft int) {
	for _, v := range violations {
		if v.Kind.Hard() {
			hard++
		} else {
			soft++
		}
	}
	return hard, soft
}

// SortBySeverity orders violations most severe first, hard before soft on ties.
func SortBySeverity(violations []models.ConstraintViolation) {
	sort.SliceStable(violations, func(i, j int) bool {
		ri, rj := violations[i].Severity.Rank(), violations[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return violations[i].Kind.Hard() && !violations[j].Kind.Hard()
	})
}

func hasWishes(p models.Preference) bool {
	return len(p.PreferredDates) > 0 || len(p.PreferredTimes) > 0 || len(p.PreferredRooms) > 0
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
