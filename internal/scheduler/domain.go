package scheduler

import (
	"sort"
	"time"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// candidate is one admissible slot for a course.
type candidate struct {
	slot models.TimeSlot
	day  int
	room int
}

// domainSet holds the candidate slots of every course plus lookup indexes.
// Index i of every slice refers to problem.Courses[i].
type domainSet struct {
	problem     *models.SchedulingProblem
	constraints models.InstitutionalConstraints
	days        []time.Time
	values      [][]candidate
	byDayRoom   []map[int][]int
	byDay       []map[int][]int
	shareProf   [][]bool
	// wanted[i][v] caches whether value v satisfies every preference of course i.
	wanted [][]bool
}

func newDomainSet(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints) *domainSet {
	n := len(problem.Courses)
	ds := &domainSet{
		problem:     problem,
		constraints: constraints,
		days:        admissibleDays(problem.Period, constraints),
		values:      make([][]candidate, n),
		byDayRoom:   make([]map[int][]int, n),
		byDay:       make([]map[int][]int, n),
		shareProf:   make([][]bool, n),
		wanted:      make([][]bool, n),
	}

	rooms := roomsByCapacity(problem.Rooms)
	for i, course := range problem.Courses {
		ds.values[i] = ds.candidatesFor(course, rooms)
		ds.byDayRoom[i] = make(map[int][]int)
		ds.byDay[i] = make(map[int][]int)
		for v, c := range ds.values[i] {
			key := c.day*len(problem.Rooms) + c.room
			ds.byDayRoom[i][key] = append(ds.byDayRoom[i][key], v)
			ds.byDay[i][c.day] = append(ds.byDay[i][c.day], v)
		}
		ds.wanted[i] = wantedValues(problem.PreferencesFor(course.ID), ds.values[i])
		ds.shareProf[i] = make([]bool, n)
		for j, other := range problem.Courses {
			if i != j {
				ds.shareProf[i][j] = course.SharesProfessor(other)
			}
		}
	}
	return ds
}

type indexedRoom struct {
	index int
	room  models.Room
}

// roomsByCapacity orders rooms smallest first so tight fits are tried before large halls.
func roomsByCapacity(rooms []models.Room) []indexedRoom {
	out := make([]indexedRoom, 0, len(rooms))
	for i, r := range rooms {
		out = append(out, indexedRoom{index: i, room: r})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].room.Capacity != out[j].room.Capacity {
			return out[i].room.Capacity < out[j].room.Capacity
		}
		return out[i].room.ID < out[j].room.ID
	})
	return out
}

func admissibleDays(period models.ExamPeriod, constraints models.InstitutionalConstraints) []time.Time {
	var days []time.Time
	for _, d := range period.Days() {
		if !constraints.AllowWeekends && isWeekend(d) {
			continue
		}
		days = append(days, d)
	}
	return days
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (ds *domainSet) candidatesFor(course models.Course, rooms []indexedRoom) []candidate {
	cons := ds.constraints
	duration := cons.ExamDuration(course)
	prefs := ds.blockingPreferences(course)

	var out []candidate
	for dayIdx, date := range ds.days {
		for start := cons.WorkStart; start.Add(duration) <= cons.WorkEnd; start = start.Add(cons.SlotGranularity) {
			for _, r := range rooms {
				if !r.room.Suits(course) {
					continue
				}
				slot := models.TimeSlot{
					Date:         date,
					StartTime:    start,
					EndTime:      start.Add(duration),
					RoomID:       r.room.ID,
					RoomName:     r.room.Name,
					RoomCapacity: r.room.Capacity,
				}
				if excluded(prefs, slot) {
					continue
				}
				out = append(out, candidate{slot: slot, day: dayIdx, room: r.index})
			}
		}
	}
	return out
}

// blockingPreferences returns preferences whose unavailability binds the course:
// its own preferences and those of any of its professors.
func (ds *domainSet) blockingPreferences(course models.Course) []models.Preference {
	var out []models.Preference
	for _, p := range ds.problem.Preferences {
		if p.CourseID == course.ID {
			out = append(out, p)
			continue
		}
		for _, prof := range course.ProfessorIDs {
			if p.ProfessorID == prof {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func excluded(prefs []models.Preference, slot models.TimeSlot) bool {
	for _, p := range prefs {
		if p.Excludes(slot) {
			return true
		}
	}
	return false
}

// conflicts is the pairwise feasibility rule: same date, overlapping interval,
// and either the same room or a shared professor.
func (ds *domainSet) conflicts(i, vi, j, vj int) bool {
	a, b := ds.values[i][vi], ds.values[j][vj]
	if a.day != b.day {
		return false
	}
	if !a.slot.Overlaps(b.slot) {
		return false
	}
	return a.room == b.room || ds.shareProf[i][j]
}

// rivals lists values of course j that may conflict with value vi of course i.
func (ds *domainSet) rivals(i, vi, j int) []int {
	c := ds.values[i][vi]
	if ds.shareProf[i][j] {
		return ds.byDay[j][c.day]
	}
	return ds.byDayRoom[j][c.day*len(ds.problem.Rooms)+c.room]
}

func (ds *domainSet) preferred(i, v int) bool {
	return ds.wanted[i][v]
}

func wantedValues(prefs []models.Preference, values []candidate) []bool {
	wanted := make([]bool, len(values))
	if len(prefs) == 0 {
		return wanted
	}
	for v, c := range values {
		ok := true
		for _, p := range prefs {
			if !p.SatisfiedBy(c.slot, PreferenceFlexMinutes) {
				ok = false
				break
			}
		}
		wanted[v] = ok
	}
	return wanted
}

func (ds *domainSet) exam(i, v int) models.ScheduledExam {
	return models.NewScheduledExam(ds.problem.Courses[i], ds.values[i][v].slot)
}

// exams materialises an assignment; unassigned courses (-1) are skipped.
func (ds *domainSet) exams(assignment []int) []models.ScheduledExam {
	out := make([]models.ScheduledExam, 0, len(assignment))
	for i, v := range assignment {
		if v >= 0 {
			out = append(out, ds.exam(i, v))
		}
	}
	return out
}
