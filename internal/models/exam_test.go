package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestClockTextRoundTrip(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, c.Minutes())
	assert.Equal(t, "09:30", c.String())

	raw, err := json.Marshal(struct {
		At Clock `json:"at"`
	}{At: c})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"09:30"}`, string(raw))

	var decoded struct {
		At Clock `json:"at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"at":"14:05"}`), &decoded))
	assert.Equal(t, MustClock("14:05"), decoded.At)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestTimeSlotOverlapAndGap(t *testing.T) {
	a := TimeSlot{Date: day("2024-06-03"), StartTime: MustClock("09:00"), EndTime: MustClock("11:00")}
	b := TimeSlot{Date: day("2024-06-03"), StartTime: MustClock("10:00"), EndTime: MustClock("12:00")}
	c := TimeSlot{Date: day("2024-06-03"), StartTime: MustClock("11:15"), EndTime: MustClock("13:15")}
	d := TimeSlot{Date: day("2024-06-04"), StartTime: MustClock("09:00"), EndTime: MustClock("11:00")}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
	assert.False(t, a.Overlaps(d))
	assert.Equal(t, 15, a.GapTo(c))
	assert.Equal(t, 0, a.GapTo(b))
	assert.Equal(t, time.Monday, a.DayOfWeek())
}

func TestPreferenceSatisfiedWithFlexibility(t *testing.T) {
	pref := Preference{
		CourseID:       "c1",
		PreferredTimes: []TimeRange{{Start: MustClock("09:00"), End: MustClock("11:00")}},
		PreferredRooms: []string{"r1"},
	}
	slot := TimeSlot{Date: day("2024-06-03"), StartTime: MustClock("08:30"), EndTime: MustClock("10:30"), RoomID: "r1"}
	assert.True(t, pref.SatisfiedBy(slot, 30))
	assert.False(t, pref.SatisfiedBy(slot, 0))

	slot.RoomID = "r2"
	assert.False(t, pref.SatisfiedBy(slot, 30))
}

func TestPreferenceExcludes(t *testing.T) {
	pref := Preference{
		UnavailableDates: []time.Time{day("2024-06-04")},
		UnavailableTimes: []TimeRange{{Start: MustClock("14:00"), End: MustClock("16:00")}},
	}
	assert.True(t, pref.Excludes(TimeSlot{Date: day("2024-06-04"), StartTime: MustClock("08:00"), EndTime: MustClock("10:00")}))
	assert.True(t, pref.Excludes(TimeSlot{Date: day("2024-06-03"), StartTime: MustClock("13:00"), EndTime: MustClock("15:00")}))
	assert.False(t, pref.Excludes(TimeSlot{Date: day("2024-06-03"), StartTime: MustClock("10:00"), EndTime: MustClock("12:00")}))
}

func TestConstraintsWithDefaults(t *testing.T) {
	c := InstitutionalConstraints{MinGapMinutes: 45}.WithDefaults()
	assert.Equal(t, MustClock("08:00"), c.WorkStart)
	assert.Equal(t, MustClock("20:00"), c.WorkEnd)
	assert.Equal(t, 45, c.MinGapMinutes)
	assert.Equal(t, 120, c.MinExamDuration)
	assert.Equal(t, 180, c.ExamDuration(Course{EstimatedDuration: 180}))
	assert.Equal(t, 120, c.ExamDuration(Course{EstimatedDuration: 90}))
}

func TestSchedulingProblemValidate(t *testing.T) {
	valid := SchedulingProblem{
		Courses:     []Course{{ID: "c1", StudentCount: 10}},
		Rooms:       []Room{{ID: "r1", Capacity: 20}},
		Preferences: []Preference{{CourseID: "c1"}},
		Period:      ExamPeriod{Start: day("2024-06-03"), End: day("2024-06-07")},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(p *SchedulingProblem){
		"no courses":         func(p *SchedulingProblem) { p.Courses = nil },
		"no rooms":           func(p *SchedulingProblem) { p.Rooms = nil },
		"duplicate course":   func(p *SchedulingProblem) { p.Courses = append(p.Courses, p.Courses[0]) },
		"unknown preference": func(p *SchedulingProblem) { p.Preferences = []Preference{{CourseID: "ghost"}} },
		"reversed period":    func(p *SchedulingProblem) { p.Period.End = day("2024-06-01") },
		"bad strategy":       func(p *SchedulingProblem) { p.Strategy = "GENETIC" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := valid
			p.Courses = append([]Course(nil), valid.Courses...)
			mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProblem))
		})
	}
}

func TestRoomSuits(t *testing.T) {
	room := Room{Capacity: 50, Equipment: []string{"projector"}, Accessible: false}
	assert.True(t, room.Suits(Course{StudentCount: 50, RequiredEquipment: []string{"projector"}}))
	assert.False(t, room.Suits(Course{StudentCount: 51}))
	assert.False(t, room.Suits(Course{StudentCount: 10, RequiredEquipment: []string{"lab"}}))
	assert.False(t, room.Suits(Course{StudentCount: 10, RequiresAccessibility: true}))
}

func TestConflictIDIsStableAcrossExamOrder(t *testing.T) {
	a := ScheduleConflict{ScheduleID: "s1", Kind: ConflictTimeOverlap, ExamIDs: []string{"exam-a", "exam-b"}}
	b := ScheduleConflict{ScheduleID: "s1", Kind: ConflictTimeOverlap, ExamIDs: []string{"exam-b", "exam-a"}}
	a.AssignID()
	b.AssignID()
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, CategoryTime, a.Kind.Category())
}

func TestViolationKindsAreClassified(t *testing.T) {
	assert.True(t, ViolationRoomDoubleBooked.Hard())
	assert.False(t, ViolationPreferenceNotMet.Hard())
	assert.Equal(t, SeverityCritical, ViolationCapacityExceeded.DefaultSeverity())
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Panics(t, func() { ViolationKind("BOGUS").Hard() })
}

func TestMaxRoomCapacity(t *testing.T) {
	p := &SchedulingProblem{Rooms: []Room{{ID: "a", Capacity: 40}, {ID: "b", Capacity: 120}, {ID: "c", Capacity: 80}}}
	assert.Equal(t, 120, p.MaxRoomCapacity())
	assert.Zero(t, (&SchedulingProblem{}).MaxRoomCapacity())
}

func TestExamPairIgnoresKindAndOrder(t *testing.T) {
	overlap := ScheduleConflict{Kind: ConflictTimeOverlap, ExamIDs: []string{"exam-b", "exam-a"}}
	shortBreak := ScheduleConflict{Kind: ConflictInsufficientBreak, ExamIDs: []string{"exam-a", "exam-b"}}
	assert.Equal(t, overlap.ExamPair(), shortBreak.ExamPair())
	assert.NotEqual(t, overlap.PairKey(), shortBreak.PairKey())
}
