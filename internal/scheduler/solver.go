package scheduler

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

// Options tunes the solver.
type Options struct {
	// MaxNodes bounds backtracking search; zero means 50000.
	MaxNodes int
	// MaxRepairPasses bounds hybrid local repair; zero means 100.
	MaxRepairPasses int
	// Rand drives simulated annealing. A time-seeded source is used when nil.
	Rand     *rand.Rand
	Observer AnnealingObserver
	Logger   *zap.Logger

	annealing annealingParams
}

// Solver assigns exams to slots using the strategy named by the problem.
// A Solver is not safe for concurrent use when it owns a shared Rand.
type Solver struct {
	opts   Options
	logger *zap.Logger
}

// NewSolver builds a solver with defaults applied.
func NewSolver(opts Options) *Solver {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = 50000
	}
	if opts.MaxRepairPasses <= 0 {
		opts.MaxRepairPasses = 100
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.annealing.maxIterations == 0 {
		opts.annealing = defaultAnnealingParams()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{opts: opts, logger: logger}
}

// Solve validates the problem and searches for an assignment. Unsatisfiable or
// interrupted searches return the best partial solution with a failure reason;
// only malformed input yields an error.
func (s *Solver) Solve(ctx context.Context, problem *models.SchedulingProblem) (*models.SchedulingSolution, error) {
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	constraints := problem.Constraints.WithDefaults()
	ds := newDomainSet(problem, constraints)
	strategy := problem.Strategy.OrDefault()

	s.logger.Debug("solve started",
		zap.String("schedule_id", problem.ScheduleID),
		zap.String("strategy", string(strategy)),
		zap.Int("courses", len(problem.Courses)),
		zap.Int("rooms", len(problem.Rooms)),
	)

	var solution *models.SchedulingSolution
	switch strategy {
	case models.StrategySimulatedAnnealing:
		solution = s.annealing(ctx, ds)
	case models.StrategyHybrid:
		solution = s.hybrid(ctx, ds)
	default:
		solution = s.backtracking(ctx, ds)
	}
	solution.Algorithm = string(strategy)
	solution.ProcessingTime = time.Since(started)

	s.logger.Debug("solve finished",
		zap.String("schedule_id", problem.ScheduleID),
		zap.Bool("complete", solution.IsComplete),
		zap.Int("exams", len(solution.Exams)),
		zap.Int("violations", len(solution.Violations)),
		zap.Float64("quality", solution.QualityScore),
		zap.Duration("elapsed", solution.ProcessingTime),
	)
	return solution, nil
}

func (s *Solver) backtracking(ctx context.Context, ds *domainSet) *models.SchedulingSolution {
	outcome := runBacktracking(ctx, ds, s.opts.MaxNodes)
	exams := ds.exams(outcome.assignment)
	violations := Evaluate(ds.problem, ds.constraints, exams)
	hard, _ := CountViolations(violations)

	solution := s.finish(ds, exams, violations)
	solution.Stats.Nodes = outcome.nodes
	solution.Stats.Backtracks = outcome.backtracks
	solution.Stats.Interrupted = outcome.interrupted
	solution.Stats.BestEnergy = energyOf(violations, exams)

	solution.IsComplete = outcome.solved && hard == 0 && len(exams) == len(ds.problem.Courses)
	if !solution.IsComplete {
		reason := outcome.failureReason(len(ds.problem.Courses))
		solution.FailureReason = &reason
	}
	return solution
}

func (s *Solver) annealing(ctx context.Context, ds *domainSet) *models.SchedulingSolution {
	outcome := runAnnealing(ctx, ds, s.opts.Rand, s.opts.annealing, s.opts.Observer)
	exams := ds.exams(outcome.assignment)
	violations := Evaluate(ds.problem, ds.constraints, exams)

	solution := s.finish(ds, exams, violations)
	solution.Stats.Iterations = outcome.iterations
	solution.Stats.BestEnergy = outcome.energy
	solution.Stats.Interrupted = outcome.interrupted
	if !solution.IsComplete {
		reason := "annealing could not place every course"
		if outcome.interrupted {
			reason = "annealing interrupted before every course was placed"
		}
		solution.FailureReason = &reason
	}
	return solution
}

func (s *Solver) hybrid(ctx context.Context, ds *domainSet) *models.SchedulingSolution {
	bt := s.backtracking(ctx, ds)
	if bt.IsComplete && len(bt.Violations) == 0 {
		return bt
	}
	if ctx.Err() != nil {
		return bt
	}
	s.logger.Debug("hybrid escalating to annealing",
		zap.Bool("backtracking_complete", bt.IsComplete),
		zap.Int("violations", len(bt.Violations)),
	)

	outcome := runAnnealing(ctx, ds, s.opts.Rand, s.opts.annealing, s.opts.Observer)
	assignment := outcome.assignment
	passes, interrupted := localRepair(ctx, ds, assignment, s.opts.MaxRepairPasses)

	exams := ds.exams(assignment)
	violations := Evaluate(ds.problem, ds.constraints, exams)
	repaired := s.finish(ds, exams, violations)
	repaired.Stats.Nodes = bt.Stats.Nodes
	repaired.Stats.Backtracks = bt.Stats.Backtracks
	repaired.Stats.Iterations = outcome.iterations
	repaired.Stats.RepairPasses = passes
	repaired.Stats.Interrupted = outcome.interrupted || interrupted
	repaired.Stats.BestEnergy = energyOf(violations, exams)

	if bt.Stats.BestEnergy <= repaired.Stats.BestEnergy {
		bt.Stats.Iterations = repaired.Stats.Iterations
		bt.Stats.RepairPasses = passes
		return bt
	}
	if !repaired.IsComplete {
		reason := "hybrid search could not place every course"
		repaired.FailureReason = &reason
	}
	return repaired
}

func (s *Solver) finish(ds *domainSet, exams []models.ScheduledExam, violations []models.ConstraintViolation) *models.SchedulingSolution {
	models.SortExams(exams)
	if violations == nil {
		violations = []models.ConstraintViolation{}
	}
	return &models.SchedulingSolution{
		Exams:        exams,
		Violations:   violations,
		QualityScore: EstimateQuality(ds.problem, exams, violations),
		IsComplete:   len(exams) == len(ds.problem.Courses),
	}
}
