package models

import (
	"sort"
	"time"
)

// SolvingStrategy selects the search algorithm.
type SolvingStrategy string

const (
	StrategyBacktrackingFC     SolvingStrategy = "BACKTRACKING_FC"
	StrategySimulatedAnnealing SolvingStrategy = "SIMULATED_ANNEALING"
	StrategyHybrid             SolvingStrategy = "HYBRID"
	StrategyGreedyBacktracking SolvingStrategy = "GREEDY_BACKTRACKING"
)

// Algorithm names reported for solutions not produced by a local strategy.
const (
	AlgorithmOptimizer = "EXTERNAL_OPTIMIZER"
	AlgorithmEmergency = "EMERGENCY_SEQUENTIAL"
)

// Valid reports whether s is a known strategy.
func (s SolvingStrategy) Valid() bool {
	switch s {
	case StrategyBacktrackingFC, StrategySimulatedAnnealing, StrategyHybrid, StrategyGreedyBacktracking:
		return true
	default:
		return false
	}
}

// OrDefault returns s, or the hybrid strategy when s is empty.
func (s SolvingStrategy) OrDefault() SolvingStrategy {
	if s == "" {
		return StrategyHybrid
	}
	return s
}

// SolverStats reports search effort for one solve.
type SolverStats struct {
	Nodes         int      `json:"nodes"`
	Backtracks    int      `json:"backtracks"`
	Iterations    int      `json:"iterations"`
	BestEnergy    float64  `json:"best_energy"`
	RepairPasses  int      `json:"repair_passes"`
	Interrupted   bool     `json:"interrupted"`
	FallbackSteps []string `json:"fallback_steps,omitempty"`
}

// SchedulingSolution is the immutable outcome of one solve or repair.
type SchedulingSolution struct {
	Exams          []ScheduledExam       `json:"exams"`
	Violations     []ConstraintViolation `json:"violations"`
	QualityScore   float64               `json:"quality_score"`
	IsComplete     bool                  `json:"is_complete"`
	Algorithm      string                `json:"algorithm"`
	ProcessingTime time.Duration         `json:"processing_time"`
	FailureReason  *string               `json:"failure_reason,omitempty"`
	Stats          SolverStats           `json:"stats"`
}

// HasCritical reports whether any violation is CRITICAL.
func (s *SchedulingSolution) HasCritical() bool {
	for _, v := range s.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ScheduledCourses returns the set of course ids that have an exam.
func (s *SchedulingSolution) ScheduledCourses() map[string]bool {
	out := make(map[string]bool, len(s.Exams))
	for _, e := range s.Exams {
		out[e.CourseID] = true
	}
	return out
}

// SortExams orders exams by date, start time and room.
func SortExams(exams []ScheduledExam) {
	sort.SliceStable(exams, func(i, j int) bool {
		a, b := exams[i].Slot, exams[j].Slot
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.RoomID < b.RoomID
	})
}

// ResultSource tells where the final solution came from.
type ResultSource string

const (
	SourceLocal     ResultSource = "LOCAL"
	SourceOptimizer ResultSource = "OPTIMIZER"
)

// SchedulingResult is what an orchestrated generation returns to callers.
type SchedulingResult struct {
	ScheduleID string                  `json:"schedule_id"`
	SessionID  string                  `json:"session_id"`
	Source     ResultSource            `json:"source"`
	Solution   SchedulingSolution      `json:"solution"`
	Conflicts  *ConflictAnalysisResult `json:"conflicts,omitempty"`
	Quality    *QualityScoreResult     `json:"quality,omitempty"`
	Version    int                     `json:"version,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
}
