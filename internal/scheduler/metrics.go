package scheduler

import (
	"math"
	"sort"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// PreferenceFlexMinutes is the tolerance applied when matching preferred time windows.
const PreferenceFlexMinutes = 30

// Energy weights used by simulated annealing and solution comparison.
const (
	hardWeight        = 1000.0
	softWeight        = 10.0
	utilizationWeight = 50.0
	workloadWeight    = 50.0
)

// Policy bounds checked by PolicyCompliance independent of per-problem constraints.
var (
	policyDayStart    = models.MustClock("08:00")
	policyDayEnd      = models.MustClock("20:00")
	policyMinDuration = 120
)

// ResourceUtilization is the mean studentCount/roomCapacity over exams with a known capacity,
// capped at 1. Returns 0.5 when no exam has a known capacity.
func ResourceUtilization(exams []models.ScheduledExam) float64 {
	var sum float64
	n := 0
	for _, e := range exams {
		if e.Slot.RoomCapacity <= 0 {
			continue
		}
		sum += math.Min(1, float64(e.StudentCount)/float64(e.Slot.RoomCapacity))
		n++
	}
	if n == 0 {
		return 0.5
	}
	return math.Min(1, sum/float64(n))
}

// WorkloadDistribution averages a per-date density score bucketed by same-day exam count.
func WorkloadDistribution(exams []models.ScheduledExam) float64 {
	if len(exams) == 0 {
		return 1
	}
	perDay := make(map[string]int)
	for _, e := range exams {
		perDay[e.Slot.Date.Format("2006-01-02")]++
	}
	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)
	var sum float64
	for _, d := range days {
		sum += densityScore(perDay[d])
	}
	return sum / float64(len(perDay))
}

func densityScore(count int) float64 {
	switch {
	case count <= 2:
		return 1.0
	case count <= 4:
		return 0.8
	case count <= 6:
		return 0.6
	default:
		return 0.4
	}
}

// PreferenceSatisfaction counts preferences of scheduled courses and how many of them hold.
func PreferenceSatisfaction(preferences []models.Preference, exams []models.ScheduledExam) (satisfied, total int) {
	byCourse := make(map[string]models.ScheduledExam, len(exams))
	for _, e := range exams {
		byCourse[e.CourseID] = e
	}
	for _, p := range preferences {
		exam, ok := byCourse[p.CourseID]
		if !ok {
			continue
		}
		total++
		if p.SatisfiedBy(exam.Slot, PreferenceFlexMinutes) {
			satisfied++
		}
	}
	return satisfied, total
}

// PolicyCompliance is 1 minus the share of exams shorter than two hours or outside 08:00-20:00.
func PolicyCompliance(exams []models.ScheduledExam) float64 {
	if len(exams) == 0 {
		return 1
	}
	violating := 0
	for _, e := range exams {
		if e.Slot.Duration() < policyMinDuration || e.Slot.StartTime < policyDayStart || e.Slot.EndTime > policyDayEnd {
			violating++
		}
	}
	return 1 - float64(violating)/float64(len(exams))
}

// Energy scores an exam list for minimisation.
func Energy(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, exams []models.ScheduledExam) float64 {
	return energyOf(Evaluate(problem, constraints, exams), exams)
}

func energyOf(violations []models.ConstraintViolation, exams []models.ScheduledExam) float64 {
	hard, soft := CountViolations(violations)
	return hardWeight*float64(hard) +
		softWeight*float64(soft) +
		utilizationWeight*(1-ResourceUtilization(exams)) +
		workloadWeight*(1-WorkloadDistribution(exams))
}

// EstimateQuality gives a [0,1] quality estimate from the solver's own view of a solution.
func EstimateQuality(problem *models.SchedulingProblem, exams []models.ScheduledExam, violations []models.ConstraintViolation) float64 {
	prefScore := 1.0
	if sat, total := PreferenceSatisfaction(problem.Preferences, exams); total > 0 {
		prefScore = float64(sat) / float64(total)
	}

	clashes := 0
	for _, v := range violations {
		switch v.Kind {
		case models.ViolationRoomDoubleBooked, models.ViolationProfessorDoubleBooked, models.ViolationInsufficientGap:
			clashes++
		}
	}
	conflictScore := 1.0
	if n := len(exams); n > 1 {
		conflictScore = math.Max(0, 1-float64(clashes)/float64(n*(n-1)/2))
	}

	score := 0.35*prefScore +
		0.25*conflictScore +
		0.20*ResourceUtilization(exams) +
		0.15*WorkloadDistribution(exams) +
		0.05*PolicyCompliance(exams)

	if total := len(problem.Courses); total > 0 {
		score *= float64(len(exams)) / float64(total)
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
