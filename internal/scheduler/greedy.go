package scheduler

import (
	"context"
	"time"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// CandidateSlots lists the admissible slots of one course in scan order:
// date, then start time, then room by ascending capacity.
func CandidateSlots(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, course models.Course) []models.TimeSlot {
	ds := &domainSet{problem: problem, constraints: constraints, days: admissibleDays(problem.Period, constraints)}
	values := ds.candidatesFor(course, roomsByCapacity(problem.Rooms))
	out := make([]models.TimeSlot, len(values))
	for i, c := range values {
		out[i] = c.slot
	}
	return out
}

// FirstFit places each course of order, in turn, into its earliest slot that
// clashes with nothing already placed. fixed exams are kept and respected.
// Courses without a free slot are returned as unplaced.
func FirstFit(ctx context.Context, problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, order []models.Course, fixed []models.ScheduledExam) ([]models.ScheduledExam, []models.Course) {
	placed := append([]models.ScheduledExam(nil), fixed...)
	perDay := make(map[string]int)
	for _, e := range placed {
		perDay[e.Slot.Date.Format("2006-01-02")]++
	}

	var unplaced []models.Course
	for idx, course := range order {
		if ctx.Err() != nil {
			unplaced = append(unplaced, order[idx:]...)
			break
		}
		found := false
		for _, slot := range CandidateSlots(problem, constraints, course) {
			day := slot.Date.Format("2006-01-02")
			if perDay[day] >= constraints.MaxExamsPerDay {
				continue
			}
			exam := models.NewScheduledExam(course, slot)
			if clashesWithAny(constraints, exam, placed) {
				continue
			}
			placed = append(placed, exam)
			perDay[day]++
			found = true
			break
		}
		if !found {
			unplaced = append(unplaced, course)
		}
	}
	return placed, unplaced
}

func clashesWithAny(constraints models.InstitutionalConstraints, exam models.ScheduledExam, placed []models.ScheduledExam) bool {
	for _, p := range placed {
		if !models.SameDate(p.Slot.Date, exam.Slot.Date) {
			continue
		}
		related := p.Slot.RoomID == exam.Slot.RoomID || p.SharesProfessor(exam)
		if !related {
			continue
		}
		if exam.Slot.Overlaps(p.Slot) || exam.Slot.GapTo(p.Slot) < constraints.MinGapMinutes {
			return true
		}
	}
	return false
}

// EmergencyAssign ignores optimisation and lays courses out back to back from the
// first day of the period, rotating through rooms and moving to the next day when
// the working window is used up. Every course gets an exam as long as a room exists.
func EmergencyAssign(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints) []models.ScheduledExam {
	if len(problem.Rooms) == 0 {
		return nil
	}
	date := models.DateOnly(problem.Period.Start)
	date = nextWorkingDay(date, constraints)
	cursor := constraints.WorkStart
	rotation := 0

	exams := make([]models.ScheduledExam, 0, len(problem.Courses))
	for _, course := range problem.Courses {
		duration := constraints.ExamDuration(course)
		if cursor.Add(duration) > constraints.WorkEnd && cursor > constraints.WorkStart {
			date = nextWorkingDay(date.AddDate(0, 0, 1), constraints)
			cursor = constraints.WorkStart
		}

		rooms := emergencyRooms(problem.Rooms, course)
		room := rooms[rotation%len(rooms)]
		rotation++

		slot := models.TimeSlot{
			Date:         date,
			StartTime:    cursor,
			EndTime:      cursor.Add(duration),
			RoomID:       room.ID,
			RoomName:     room.Name,
			RoomCapacity: room.Capacity,
		}
		exams = append(exams, models.NewScheduledExam(course, slot))
		cursor = cursor.Add(duration)
	}
	return exams
}

// emergencyRooms prefers rooms that fully suit the course, then rooms big enough,
// then any room.
func emergencyRooms(rooms []models.Room, course models.Course) []models.Room {
	var suits, fits []models.Room
	for _, r := range rooms {
		if r.Suits(course) {
			suits = append(suits, r)
		}
		if r.Capacity >= course.StudentCount {
			fits = append(fits, r)
		}
	}
	switch {
	case len(suits) > 0:
		return suits
	case len(fits) > 0:
		return fits
	default:
		return rooms
	}
}

func nextWorkingDay(d time.Time, constraints models.InstitutionalConstraints) time.Time {
	for !constraints.AllowWeekends && isWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
