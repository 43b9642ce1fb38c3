package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

func fallbackProblem(courses int) *models.SchedulingProblem {
	p := &models.SchedulingProblem{
		ScheduleID:  "sched-fb",
		Rooms:       []models.Room{{ID: "r1", Name: "Room 1", Capacity: 50}},
		Constraints: models.DefaultConstraints(),
		Period:      models.ExamPeriod{Start: examDay, End: examDay.AddDate(0, 0, 1)},
		Strategy:    models.StrategyBacktrackingFC,
	}
	for i := 0; i < courses; i++ {
		id := string(rune('a' + i))
		p.Courses = append(p.Courses, models.Course{ID: id, Name: "Course " + id, StudentCount: 10, ProfessorIDs: []string{"p-" + id}})
	}
	return p
}

func assertNoOverlaps(t *testing.T, exams []models.ScheduledExam) {
	t.Helper()
	for i := range exams {
		for j := i + 1; j < len(exams); j++ {
			if exams[i].Slot.RoomID == exams[j].Slot.RoomID {
				assert.False(t, exams[i].Slot.Overlaps(exams[j].Slot), "%s overlaps %s", exams[i].ID, exams[j].ID)
			}
		}
	}
}

func TestFallbackCompletesEmptySolution(t *testing.T) {
	svc := NewFallbackService(nil, zap.NewNop(), FallbackConfig{})
	problem := fallbackProblem(3)
	original := &models.SchedulingSolution{Algorithm: "BACKTRACKING_FC"}

	repaired, err := svc.Repair(context.Background(), problem, original)
	require.NoError(t, err)

	assert.True(t, repaired.IsComplete)
	assert.Len(t, repaired.Exams, 3)
	assertNoOverlaps(t, repaired.Exams)
	assert.Equal(t, StepConstraintRelaxation, repaired.Stats.FallbackSteps[0])
	assert.NotContains(t, repaired.Stats.FallbackSteps, StepEmergency)
	assert.Equal(t, "BACKTRACKING_FC", repaired.Algorithm)
	assert.Empty(t, original.Exams, "input must not be modified")
}

func TestFallbackEmergencyWhenNothingFits(t *testing.T) {
	svc := NewFallbackService(nil, zap.NewNop(), FallbackConfig{})
	problem := fallbackProblem(4)
	for i := range problem.Courses {
		problem.Courses[i].RequiredEquipment = []string{"projector"}
	}

	repaired, err := svc.Repair(context.Background(), problem, &models.SchedulingSolution{})
	require.NoError(t, err)

	assert.True(t, repaired.IsComplete)
	assert.Len(t, repaired.Exams, 4)
	assertNoOverlaps(t, repaired.Exams)
	assert.Equal(t, models.AlgorithmEmergency, repaired.Algorithm)
	assert.Contains(t, repaired.Stats.FallbackSteps, StepEmergency)
	require.NotNil(t, repaired.FailureReason)

	var notice *models.ConstraintViolation
	for i := range repaired.Violations {
		if repaired.Violations[i].Kind == models.ViolationEmergencySchedule {
			notice = &repaired.Violations[i]
		}
	}
	require.NotNil(t, notice)
	assert.Equal(t, models.SeverityHigh, notice.Severity)
}

func TestFallbackEmergencyKeepsInstitutionalHours(t *testing.T) {
	svc := NewFallbackService(nil, zap.NewNop(), FallbackConfig{})
	problem := fallbackProblem(4)
	for i := range problem.Courses {
		problem.Courses[i].RequiredEquipment = []string{"projector"}
	}

	repaired, err := svc.Repair(context.Background(), problem, &models.SchedulingSolution{})
	require.NoError(t, err)

	require.Equal(t, StepConstraintRelaxation, repaired.Stats.FallbackSteps[0])
	require.Equal(t, models.AlgorithmEmergency, repaired.Algorithm)
	require.Len(t, repaired.Exams, 4)
	assert.Equal(t, models.MustClock("08:00"), repaired.Exams[0].Slot.StartTime)
	for _, e := range repaired.Exams {
		assert.GreaterOrEqual(t, e.Slot.StartTime, models.MustClock("08:00"), e.ID)
		assert.LessOrEqual(t, e.Slot.EndTime, models.MustClock("20:00"), e.ID)
	}
}

func TestFallbackRebuildsLowQualitySolution(t *testing.T) {
	svc := NewFallbackService(nil, zap.NewNop(), FallbackConfig{EnhancementPasses: 1})
	problem := fallbackProblem(2)
	slots := []models.ScheduledExam{
		buildExam(examSpec{course: "a", start: "08:00", end: "10:00", room: "r1", capacity: 50, students: 10}),
		buildExam(examSpec{course: "b", start: "11:00", end: "13:00", room: "r1", capacity: 50, students: 10}),
	}
	weak := &models.SchedulingSolution{Exams: slots, IsComplete: true, QualityScore: 0.2, Algorithm: "SIMULATED_ANNEALING"}

	repaired, err := svc.Repair(context.Background(), problem, weak)
	require.NoError(t, err)

	assert.Equal(t, []string{StepGreedyReconstruction, StepEnhancement}, repaired.Stats.FallbackSteps)
	assert.InDelta(t, 0.8, repaired.QualityScore, 1e-9)
	assert.True(t, repaired.IsComplete)
	assert.Nil(t, repaired.FailureReason)
}

func TestFallbackRejectsMalformedProblem(t *testing.T) {
	svc := NewFallbackService(nil, nil, FallbackConfig{})

	_, err := svc.Repair(context.Background(), &models.SchedulingProblem{}, nil)

	require.Error(t, err)
}

func TestRelaxConstraints(t *testing.T) {
	relaxed := relaxConstraints(models.DefaultConstraints())

	assert.Equal(t, 15, relaxed.MinGapMinutes)
	assert.Equal(t, 10, relaxed.MaxExamsPerDay)
	assert.Equal(t, 6, relaxed.MaxExamsPerRoom)
	assert.Equal(t, models.MustClock("07:30"), relaxed.WorkStart)
	assert.Equal(t, models.MustClock("20:30"), relaxed.WorkEnd)

	tight := models.DefaultConstraints()
	tight.MinGapMinutes = 10
	assert.Equal(t, 10, relaxConstraints(tight).MinGapMinutes)
}

func TestNeedsRepair(t *testing.T) {
	good := &models.SchedulingSolution{IsComplete: true, QualityScore: 0.9}
	assert.False(t, NeedsRepair(good, nil))
	assert.True(t, NeedsRepair(&models.SchedulingSolution{IsComplete: false, QualityScore: 0.9}, nil))
	assert.True(t, NeedsRepair(&models.SchedulingSolution{IsComplete: true, QualityScore: 0.5}, nil))

	critical := models.NewConflictAnalysisResult("s", []models.ScheduleConflict{{Kind: models.ConflictDoubleBooking, Severity: models.SeverityCritical}}, examDay)
	assert.True(t, NeedsRepair(good, critical))
}
