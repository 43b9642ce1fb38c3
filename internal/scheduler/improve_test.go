package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

func TestImproveNeverRaisesEnergy(t *testing.T) {
	problem := sampleProblem(models.StrategyBacktrackingFC)
	constraints := problem.Constraints.WithDefaults()
	start, unplaced := FirstFit(context.Background(), problem, constraints, problem.Courses, nil)
	require.Empty(t, unplaced)
	before := Energy(problem, constraints, start)

	improved, moved := Improve(context.Background(), problem, constraints, start, 3)

	after := Energy(problem, constraints, improved)
	assert.LessOrEqual(t, after, before)
	if moved > 0 {
		assert.Less(t, after, before)
	}
	assertSound(t, improved)
	require.Len(t, improved, len(start))
	for i := range start {
		assert.Equal(t, start[i].ID, improved[i].ID)
	}
}

func TestImproveLeavesInputUntouched(t *testing.T) {
	problem := sampleProblem(models.StrategyBacktrackingFC)
	constraints := problem.Constraints.WithDefaults()
	start, _ := FirstFit(context.Background(), problem, constraints, problem.Courses, nil)
	snapshot := append([]models.ScheduledExam(nil), start...)

	Improve(context.Background(), problem, constraints, start, 2)

	assert.Equal(t, snapshot, start)
}

func TestImproveWithoutPasses(t *testing.T) {
	problem := sampleProblem(models.StrategyBacktrackingFC)
	constraints := problem.Constraints.WithDefaults()
	start, _ := FirstFit(context.Background(), problem, constraints, problem.Courses, nil)

	out, moved := Improve(context.Background(), problem, constraints, start, 0)

	assert.Zero(t, moved)
	assert.Equal(t, start, out)
}

func TestImproveStopsOnCancelledContext(t *testing.T) {
	problem := sampleProblem(models.StrategyBacktrackingFC)
	constraints := problem.Constraints.WithDefaults()
	start, _ := FirstFit(context.Background(), problem, constraints, problem.Courses, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, moved := Improve(ctx, problem, constraints, start, 5)

	assert.Zero(t, moved)
	assert.Equal(t, start, out)
}

func TestSampleSlotsSpreadsEvenly(t *testing.T) {
	slots := make([]models.TimeSlot, 10)
	for i := range slots {
		slots[i] = models.TimeSlot{RoomID: string(rune('a' + i))}
	}

	assert.Len(t, sampleSlots(slots, 20), 10)
	sampled := sampleSlots(slots, 5)
	require.Len(t, sampled, 5)
	assert.Equal(t, []string{"a", "c", "e", "g", "i"}, []string{sampled[0].RoomID, sampled[1].RoomID, sampled[2].RoomID, sampled[3].RoomID, sampled[4].RoomID})
}
