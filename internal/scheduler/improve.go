package scheduler

import (
	"context"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// maxImproveCandidates bounds how many alternative slots are scored per exam and pass.
const maxImproveCandidates = 48

// Improve runs bounded local moves over an exam list: each exam may move to a
// clash-free candidate slot when that lowers energy. It returns the improved
// list and the number of moves made.
func Improve(ctx context.Context, problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, exams []models.ScheduledExam, passes int) ([]models.ScheduledExam, int) {
	current := append([]models.ScheduledExam(nil), exams...)
	if len(current) == 0 || passes <= 0 {
		return current, 0
	}
	courses := problem.CourseIndex()
	energy := Energy(problem, constraints, current)
	moved := 0

	for pass := 0; pass < passes; pass++ {
		improved := false
		for i := range current {
			if ctx.Err() != nil {
				return current, moved
			}
			course, ok := courses[current[i].CourseID]
			if !ok {
				continue
			}
			others := make([]models.ScheduledExam, 0, len(current)-1)
			others = append(others, current[:i]...)
			others = append(others, current[i+1:]...)

			original := current[i]
			best, bestEnergy := original, energy
			for _, slot := range sampleSlots(CandidateSlots(problem, constraints, course), maxImproveCandidates) {
				if ctx.Err() != nil {
					break
				}
				if slot.Key() == original.Slot.Key() {
					continue
				}
				candidate := models.NewScheduledExam(course, slot)
				candidate.ID = original.ID
				if clashesWithAny(constraints, candidate, others) {
					continue
				}
				current[i] = candidate
				if e := Energy(problem, constraints, current); e < bestEnergy {
					best, bestEnergy = candidate, e
				}
			}
			current[i] = best
			if bestEnergy < energy {
				energy = bestEnergy
				moved++
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return current, moved
}

// sampleSlots keeps at most limit slots spread evenly over the scan order.
func sampleSlots(slots []models.TimeSlot, limit int) []models.TimeSlot {
	if len(slots) <= limit {
		return slots
	}
	out := make([]models.TimeSlot, 0, limit)
	step := float64(len(slots)) / float64(limit)
	for k := 0; k < limit; k++ {
		out = append(out, slots[int(float64(k)*step)])
	}
	return out
}
