package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// countdownContext reports cancellation once its Err budget is spent.
type countdownContext struct {
	context.Context
	checks int
}

func (c *countdownContext) Err() error {
	if c.checks <= 0 {
		return context.Canceled
	}
	c.checks--
	return nil
}

func stackedAssignment(ds *domainSet) []int {
	assignment := make([]int, len(ds.values))
	for i := range assignment {
		assignment[i] = 0
	}
	return assignment
}

func TestLocalRepairFixesStackedExams(t *testing.T) {
	problem := singleRoomProblem(3)
	ds := newDomainSet(problem, problem.Constraints)
	assignment := stackedAssignment(ds)

	passes, interrupted := localRepair(context.Background(), ds, assignment, 10)

	assert.False(t, interrupted)
	assert.Positive(t, passes)
	hard, _ := CountViolations(Evaluate(problem, problem.Constraints, ds.exams(assignment)))
	assert.Zero(t, hard)
}

func TestLocalRepairStopsInsidePass(t *testing.T) {
	problem := singleRoomProblem(3)
	ds := newDomainSet(problem, problem.Constraints)
	assignment := stackedAssignment(ds)
	ctx := &countdownContext{Context: context.Background(), checks: 1}

	passes, interrupted := localRepair(ctx, ds, assignment, 10)

	assert.True(t, interrupted)
	assert.Equal(t, 1, passes)
	assert.Equal(t, []int{0, 0, 0}, assignment, "no value was scored before cancellation")
}

func TestHybridHonoursDeadline(t *testing.T) {
	problem := &models.SchedulingProblem{
		ScheduleID:  "crowded",
		Rooms:       []models.Room{{ID: "r1", Capacity: 50}},
		Constraints: models.DefaultConstraints(),
		Period:      models.ExamPeriod{Start: date("2024-06-03"), End: date("2024-06-03")},
		Strategy:    models.StrategyHybrid,
	}
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("c%02d", i)
		problem.Courses = append(problem.Courses, models.Course{ID: id, StudentCount: 10, ProfessorIDs: []string{"p-" + id}})
	}
	deadline := 150 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	started := time.Now()
	solution, err := NewSolver(Options{}).Solve(ctx, problem)
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.True(t, solution.Stats.Interrupted)
	assert.Less(t, elapsed, deadline+time.Second)
}
