package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

// Fallback chain step names, reported in SolverStats.FallbackSteps.
const (
	StepConstraintRelaxation = "constraint_relaxation"
	StepGreedyReconstruction = "greedy_reconstruction"
	StepPartialCompletion    = "partial_completion"
	StepEnhancement          = "enhancement"
	StepEmergency            = "emergency"
)

const (
	greedyThreshold      = 0.5
	greedyEstimate       = 0.6
	enhancementThreshold = 0.7
	enhancementBonus     = 0.2
	emergencyThreshold   = 0.3

	relaxedGapStep     = 15
	relaxedGapFloor    = 15
	relaxedDailyBonus  = 2
	relaxedHoursMargin = 30
)

// FallbackConfig tunes the repair chain.
type FallbackConfig struct {
	EnhancementPasses int
}

// FallbackService repairs weak or incomplete solutions through progressively
// stronger steps, ending with an emergency layout that always completes.
type FallbackService struct {
	metrics *MetricsService
	logger  *zap.Logger
	cfg     FallbackConfig
}

// NewFallbackService constructs the fallback chain.
func NewFallbackService(metrics *MetricsService, logger *zap.Logger, cfg FallbackConfig) *FallbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EnhancementPasses <= 0 {
		cfg.EnhancementPasses = 3
	}
	return &FallbackService{metrics: metrics, logger: logger, cfg: cfg}
}

// NeedsRepair reports whether a solution should go through the chain.
func NeedsRepair(solution *models.SchedulingSolution, conflicts *models.ConflictAnalysisResult) bool {
	if solution == nil {
		return true
	}
	return !solution.IsComplete ||
		solution.HasCritical() ||
		conflicts.CriticalCount() > 0 ||
		solution.QualityScore < enhancementThreshold
}

// Repair runs the chain over solution and returns a new, complete solution.
// The input is not modified.
func (s *FallbackService) Repair(ctx context.Context, problem *models.SchedulingProblem, solution *models.SchedulingSolution) (*models.SchedulingSolution, error) {
	if err := problem.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling problem")
	}
	start := time.Now()
	active := problem.Constraints.WithDefaults()

	current := &models.SchedulingSolution{Algorithm: string(problem.Strategy.OrDefault())}
	if solution != nil {
		clone := *solution
		clone.Exams = append([]models.ScheduledExam(nil), solution.Exams...)
		clone.Violations = append([]models.ConstraintViolation(nil), solution.Violations...)
		clone.Stats.FallbackSteps = append([]string(nil), solution.Stats.FallbackSteps...)
		current = &clone
	}

	if !current.IsComplete || current.HasCritical() {
		active = relaxConstraints(active)
		current = s.relax(ctx, problem, active, current)
	}

	if current.QualityScore < greedyThreshold {
		current = s.greedy(ctx, problem, active, current)
	}

	if !current.IsComplete {
		current = s.complete(ctx, problem, active, current)
	}

	if current.QualityScore < enhancementThreshold {
		current = s.enhance(ctx, problem, active, current)
	}

	if !current.IsComplete || current.QualityScore < emergencyThreshold {
		// The emergency layout follows institutional hours, not the relaxed window.
		current = s.emergency(problem, problem.Constraints.WithDefaults(), current)
	}

	current.ProcessingTime += time.Since(start)
	s.logger.Info("fallback chain finished",
		zap.String("schedule_id", problem.ScheduleID),
		zap.Strings("steps", current.Stats.FallbackSteps),
		zap.Float64("quality", current.QualityScore),
		zap.Bool("complete", current.IsComplete))
	return current, nil
}

// relaxConstraints loosens the gap, daily limit and working hours.
func relaxConstraints(c models.InstitutionalConstraints) models.InstitutionalConstraints {
	relaxed := c
	if c.MinGapMinutes > relaxedGapFloor {
		relaxed.MinGapMinutes = int(math.Max(relaxedGapFloor, float64(c.MinGapMinutes-relaxedGapStep)))
	}
	relaxed.MaxExamsPerDay = c.MaxExamsPerDay + relaxedDailyBonus
	relaxed.MaxExamsPerRoom = c.MaxExamsPerRoom + relaxedDailyBonus
	if c.WorkStart >= models.Clock(relaxedHoursMargin) {
		relaxed.WorkStart = c.WorkStart.Add(-relaxedHoursMargin)
	}
	if c.WorkEnd.Add(relaxedHoursMargin) <= models.Clock(24*60) {
		relaxed.WorkEnd = c.WorkEnd.Add(relaxedHoursMargin)
	}
	return relaxed
}

func (s *FallbackService) relax(ctx context.Context, problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, current *models.SchedulingSolution) *models.SchedulingSolution {
	problematic := make(map[string]bool)
	scheduled := current.ScheduledCourses()
	for _, c := range problem.Courses {
		if !scheduled[c.ID] {
			problematic[c.ID] = true
		}
	}
	for _, v := range current.Violations {
		if v.Severity == models.SeverityCritical {
			for _, id := range v.CourseIDs {
				problematic[id] = true
			}
		}
	}

	keep := make([]models.ScheduledExam, 0, len(current.Exams))
	for _, e := range current.Exams {
		if !problematic[e.CourseID] {
			keep = append(keep, e)
		}
	}
	order := make([]models.Course, 0, len(problematic))
	for _, c := range problem.Courses {
		if problematic[c.ID] {
			order = append(order, c)
		}
	}

	placed, unplaced := scheduler.FirstFit(ctx, problem, constraints, order, keep)
	s.logger.Debug("constraints relaxed",
		zap.Int("replaced", len(order)-len(unplaced)),
		zap.Int("unplaced", len(unplaced)))
	next := s.rebuild(problem, constraints, placed, current, StepConstraintRelaxation)
	next.QualityScore = scheduler.EstimateQuality(problem, next.Exams, next.Violations)
	return next
}

func (s *FallbackService) greedy(ctx context.Context, problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, current *models.SchedulingSolution) *models.SchedulingSolution {
	placed, _ := scheduler.FirstFit(ctx, problem, constraints, greedyOrder(problem.Courses), nil)
	next := s.rebuild(problem, constraints, placed, current, StepGreedyReconstruction)
	// Fixed estimate until the orchestrator re-scores the result.
	next.QualityScore = greedyEstimate
	return next
}

// greedyOrder puts mandatory courses first, then larger courses.
func greedyOrder(courses []models.Course) []models.Course {
	order := append([]models.Course(nil), courses...)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Mandatory() != order[j].Mandatory() {
			return order[i].Mandatory()
		}
		return order[i].StudentCount > order[j].StudentCount
	})
	return order
}

func (s *FallbackService) complete(ctx context.Context, problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, current *models.SchedulingSolution) *models.SchedulingSolution {
	scheduled := current.ScheduledCourses()
	var missing []models.Course
	for _, c := range greedyOrder(problem.Courses) {
		if !scheduled[c.ID] {
			missing = append(missing, c)
		}
	}
	placed, _ := scheduler.FirstFit(ctx, problem, constraints, missing, current.Exams)
	quality := current.QualityScore
	next := s.rebuild(problem, constraints, placed, current, StepPartialCompletion)
	next.QualityScore = quality
	return next
}

func (s *FallbackService) enhance(ctx context.Context, problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, current *models.SchedulingSolution) *models.SchedulingSolution {
	improved, moved := scheduler.Improve(ctx, problem, constraints, current.Exams, s.cfg.EnhancementPasses)
	quality := current.QualityScore
	next := s.rebuild(problem, constraints, improved, current, StepEnhancement)
	next.QualityScore = math.Min(1, quality+enhancementBonus)
	s.logger.Debug("schedule enhanced", zap.Int("moves", moved))
	return next
}

func (s *FallbackService) emergency(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, current *models.SchedulingSolution) *models.SchedulingSolution {
	exams := scheduler.EmergencyAssign(problem, constraints)
	next := s.rebuild(problem, constraints, exams, current, StepEmergency)
	next.Algorithm = models.AlgorithmEmergency

	notice := models.NewViolation(models.ViolationEmergencySchedule,
		"Emergency sequential schedule generated; optimisation was abandoned")
	notice.SuggestedResolution = "Review the schedule manually before publishing"
	next.Violations = append(next.Violations, notice)
	next.QualityScore = scheduler.EstimateQuality(problem, next.Exams, next.Violations)

	reason := fmt.Sprintf("emergency schedule generated for %d courses; manual review required", len(problem.Courses))
	next.FailureReason = &reason
	s.logger.Warn("emergency schedule generated",
		zap.String("schedule_id", problem.ScheduleID),
		zap.Int("max_room_capacity", problem.MaxRoomCapacity()),
		zap.Bool("complete", next.IsComplete),
	)
	return next
}

// rebuild derives a fresh solution from exams, carrying stats forward.
func (s *FallbackService) rebuild(problem *models.SchedulingProblem, constraints models.InstitutionalConstraints, exams []models.ScheduledExam, previous *models.SchedulingSolution, step string) *models.SchedulingSolution {
	s.metrics.RecordFallbackStep(step)
	exams = append([]models.ScheduledExam(nil), exams...)
	models.SortExams(exams)
	violations := scheduler.Evaluate(problem, constraints, exams)
	scheduler.SortBySeverity(violations)

	next := &models.SchedulingSolution{
		Exams:          exams,
		Violations:     violations,
		IsComplete:     len(exams) == len(problem.Courses),
		Algorithm:      previous.Algorithm,
		ProcessingTime: previous.ProcessingTime,
		Stats:          previous.Stats,
	}
	next.Stats.FallbackSteps = append(append([]string(nil), previous.Stats.FallbackSteps...), step)
	if !next.IsComplete {
		reason := fmt.Sprintf("%d of %d courses scheduled after %s", len(exams), len(problem.Courses), step)
		next.FailureReason = &reason
	}
	return next
}
