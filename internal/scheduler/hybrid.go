package scheduler

import (
	"context"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// localRepair tries to fix one outstanding violation per pass by moving one of
// its courses to the domain value that lowers energy the most. It stops when a
// pass makes no progress, the pass limit is hit, or ctx is done.
func localRepair(ctx context.Context, ds *domainSet, assignment []int, maxPasses int) (int, bool) {
	courseIndex := make(map[string]int, len(ds.problem.Courses))
	for i, c := range ds.problem.Courses {
		courseIndex[c.ID] = i
	}

	passes := 0
	for passes < maxPasses {
		if ctx.Err() != nil {
			return passes, true
		}
		exams := ds.exams(assignment)
		violations := Evaluate(ds.problem, ds.constraints, exams)
		if len(violations) == 0 {
			break
		}
		SortBySeverity(violations)
		current := energyOf(violations, exams)

		passes++
		progressed, interrupted := repairOne(ctx, ds, assignment, violations, courseIndex, current)
		if interrupted {
			return passes, true
		}
		if !progressed {
			break
		}
	}
	return passes, false
}

// repairOne moves the first course it can improve. On cancellation it keeps the
// best value seen so far for the course under inspection.
func repairOne(ctx context.Context, ds *domainSet, assignment []int, violations []models.ConstraintViolation, courseIndex map[string]int, current float64) (progressed, interrupted bool) {
	for _, v := range violations {
		for _, courseID := range v.CourseIDs {
			i, ok := courseIndex[courseID]
			if !ok || len(ds.values[i]) == 0 {
				continue
			}
			original := assignment[i]
			bestValue, bestEnergy := original, current
			for val := range ds.values[i] {
				if ctx.Err() != nil {
					assignment[i] = bestValue
					return bestValue != original, true
				}
				if val == original {
					continue
				}
				assignment[i] = val
				if e := Energy(ds.problem, ds.constraints, ds.exams(assignment)); e < bestEnergy {
					bestValue, bestEnergy = val, e
				}
			}
			assignment[i] = bestValue
			if bestValue != original {
				return true, false
			}
		}
	}
	return false, false
}
