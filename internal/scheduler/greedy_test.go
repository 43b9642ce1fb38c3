package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

func TestFirstFitKeepsFixedExamsAndAvoidsClashes(t *testing.T) {
	problem := sampleProblem(models.StrategyBacktrackingFC)
	constraints := problem.Constraints.WithDefaults()
	fixed := []models.ScheduledExam{models.NewScheduledExam(problem.Courses[0], models.TimeSlot{
		Date: date("2024-06-03"), StartTime: models.MustClock("08:00"), EndTime: models.MustClock("10:00"),
		RoomID: "r-small", RoomCapacity: 40,
	})}

	placed, unplaced := FirstFit(context.Background(), problem, constraints, problem.Courses[1:], fixed)
	assert.Empty(t, unplaced)
	require.Len(t, placed, 5)
	assert.Equal(t, fixed[0], placed[0])
	assertSound(t, placed)

	for _, e := range placed[1:] {
		if e.CourseID == "c2" {
			// Shares p1 with c1, so it must start after c1 plus the minimum gap.
			assert.GreaterOrEqual(t, e.Slot.StartTime, models.MustClock("10:30"))
		}
	}
}

func TestFirstFitReportsUnplaceableCourses(t *testing.T) {
	problem := singleRoomProblem(4)
	placed, unplaced := FirstFit(context.Background(), problem, problem.Constraints, problem.Courses, nil)
	assert.Len(t, placed, 2)
	assert.Len(t, unplaced, 2)
}

func TestEmergencyAssignIsCompleteAndSequential(t *testing.T) {
	problem := singleRoomProblem(5)
	exams := EmergencyAssign(problem, problem.Constraints)

	require.Len(t, exams, 5)
	assertSound(t, exams)
	assert.Equal(t, models.MustClock("08:00"), exams[0].Slot.StartTime)
	assert.Equal(t, "2024-06-03", exams[0].Slot.Date.Format("2006-01-02"))
	// Three two-hour exams fill 08:00-14:00, the fourth rolls to the next day.
	assert.Equal(t, "2024-06-04", exams[3].Slot.Date.Format("2006-01-02"))
	assert.Equal(t, models.MustClock("08:00"), exams[3].Slot.StartTime)
}

func TestEmergencyAssignSkipsWeekends(t *testing.T) {
	problem := singleRoomProblem(4)
	problem.Period = models.ExamPeriod{Start: date("2024-06-07"), End: date("2024-06-07")}
	exams := EmergencyAssign(problem, problem.Constraints)
	require.Len(t, exams, 4)
	assert.Equal(t, "2024-06-10", exams[3].Slot.Date.Format("2006-01-02"))
}

func TestEvaluateFindsHardAndSoftViolations(t *testing.T) {
	problem := sampleProblem(models.StrategyBacktrackingFC)
	constraints := problem.Constraints.WithDefaults()
	slot := models.TimeSlot{Date: date("2024-06-03"), StartTime: models.MustClock("09:00"), EndTime: models.MustClock("11:00"), RoomID: "r-small", RoomCapacity: 40}
	exams := []models.ScheduledExam{
		models.NewScheduledExam(problem.Courses[0], slot),
		models.NewScheduledExam(problem.Courses[1], slot),
		models.NewScheduledExam(problem.Courses[2], slot),
	}

	violations := Evaluate(problem, constraints, exams)
	kinds := map[models.ViolationKind]int{}
	for _, v := range violations {
		kinds[v.Kind]++
	}
	assert.Equal(t, 3, kinds[models.ViolationRoomDoubleBooked])
	assert.Equal(t, 1, kinds[models.ViolationProfessorDoubleBooked])
	assert.Equal(t, 1, kinds[models.ViolationCapacityExceeded])
	assert.Equal(t, 2, kinds[models.ViolationUnscheduled])

	SortBySeverity(violations)
	assert.Equal(t, models.SeverityCritical, violations[0].Severity)
}

func TestQualityComponents(t *testing.T) {
	assert.Equal(t, 0.5, ResourceUtilization(nil))

	exams := []models.ScheduledExam{
		{StudentCount: 50, Slot: models.TimeSlot{Date: date("2024-06-03"), RoomCapacity: 100, StartTime: models.MustClock("08:00"), EndTime: models.MustClock("10:00")}},
		{StudentCount: 150, Slot: models.TimeSlot{Date: date("2024-06-03"), RoomCapacity: 100, StartTime: models.MustClock("19:00"), EndTime: models.MustClock("21:00")}},
		{StudentCount: 10, Slot: models.TimeSlot{Date: date("2024-06-04"), StartTime: models.MustClock("10:00"), EndTime: models.MustClock("11:00")}},
	}
	assert.InDelta(t, 0.75, ResourceUtilization(exams), 1e-9)
	assert.InDelta(t, 1.0, WorkloadDistribution(exams), 1e-9)
	assert.InDelta(t, 1.0/3.0, PolicyCompliance(exams), 1e-9)

	var crowded []models.ScheduledExam
	for i := 0; i < 5; i++ {
		crowded = append(crowded, models.ScheduledExam{Slot: models.TimeSlot{Date: date("2024-06-05")}})
	}
	assert.InDelta(t, 0.6, WorkloadDistribution(crowded), 1e-9)
}
