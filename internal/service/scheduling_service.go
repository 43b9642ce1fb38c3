package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
	"github.com/noah-isme/exam-scheduler/pkg/middleware/requestid"
)

type problemSolver interface {
	Solve(ctx context.Context, problem *models.SchedulingProblem) (*models.SchedulingSolution, error)
}

type optimizerDelegate interface {
	Optimize(ctx context.Context, problem *models.SchedulingProblem) (*models.SchedulingSolution, error)
}

type problemSource interface {
	Load(ctx context.Context, problem *models.SchedulingProblem) error
}

type conflictDetector interface {
	Detect(scheduleID string, exams []models.ScheduledExam, enrollment map[string]int) *models.ConflictAnalysisResult
	Save(ctx context.Context, result *models.ConflictAnalysisResult) error
}

type qualityScorer interface {
	Score(exams []models.ScheduledExam, preferences []models.Preference, conflicts *models.ConflictAnalysisResult) *models.QualityScoreResult
}

type solutionRepairer interface {
	Repair(ctx context.Context, problem *models.SchedulingProblem, solution *models.SchedulingSolution) (*models.SchedulingSolution, error)
}

type versionRecorder interface {
	CreateVersion(ctx context.Context, scheduleID, label string, snapshot models.VersionSnapshot) (*models.ScheduleVersion, error)
	RecordMetrics(ctx context.Context, scheduleID, algorithm string, quality *models.QualityScoreResult) (*models.QualityMetric, error)
}

type sessionRegistry interface {
	Start(sessionID, scheduleID string, strategy models.SolvingStrategy) models.SchedulingSession
	Complete(sessionID string, solution *models.SchedulingSolution)
	Fail(sessionID string, err error)
	Get(sessionID string) (*models.SchedulingSession, error)
}

// SchedulingConfig tunes the orchestration.
type SchedulingConfig struct {
	DefaultStrategy   models.SolvingStrategy
	SolveTimeout      time.Duration
	MaxBacktrackNodes int
	AnnealingSeed     int64
	MaxRepairPasses   int
}

// SchedulingService runs the end-to-end generation pipeline.
type SchedulingService struct {
	analyzer  conflictDetector
	scorer    qualityScorer
	fallback  solutionRepairer
	versions  versionRecorder
	optimizer optimizerDelegate
	loader    problemSource
	sessions  sessionRegistry
	events    eventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SchedulingConfig
	newSolver func() problemSolver
}

// NewSchedulingService wires the pipeline. optimizer, loader, versions and events may be nil.
func NewSchedulingService(
	analyzer conflictDetector,
	scorer qualityScorer,
	fallback solutionRepairer,
	versions versionRecorder,
	optimizer optimizerDelegate,
	loader problemSource,
	sessions sessionRegistry,
	events eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SchedulingConfig,
) *SchedulingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SolveTimeout <= 0 {
		cfg.SolveTimeout = 2 * time.Minute
	}
	if !cfg.DefaultStrategy.Valid() {
		cfg.DefaultStrategy = models.StrategyHybrid
	}
	svc := &SchedulingService{
		analyzer:  analyzer,
		scorer:    scorer,
		fallback:  fallback,
		versions:  versions,
		optimizer: optimizer,
		loader:    loader,
		sessions:  sessions,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	svc.newSolver = svc.localSolver
	return svc
}

// localSolver builds a solver per call; a seeded source is not safe to share across goroutines.
func (s *SchedulingService) localSolver() problemSolver {
	seed := s.cfg.AnnealingSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return scheduler.NewSolver(scheduler.Options{
		MaxNodes:        s.cfg.MaxBacktrackNodes,
		MaxRepairPasses: s.cfg.MaxRepairPasses,
		Rand:            rand.New(rand.NewSource(seed)),
		Logger:          s.logger,
	})
}

// Generate produces, repairs, scores and records a schedule.
func (s *SchedulingService) Generate(ctx context.Context, req dto.GenerateExamScheduleRequest) (*models.SchedulingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	problem, err := req.ToProblem()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	if problem.Strategy == "" {
		problem.Strategy = s.cfg.DefaultStrategy
	}

	start := time.Now()
	session := s.sessions.Start(req.SessionID, problem.ScheduleID, problem.Strategy)
	problem.SessionID = session.ID
	result := &models.SchedulingResult{ScheduleID: problem.ScheduleID, SessionID: session.ID, Source: models.SourceLocal}

	if req.UseUpstreamData && s.loader != nil {
		if err := s.loader.Load(ctx, problem); err != nil {
			s.logger.Warn("upstream data unavailable", zap.String("schedule_id", problem.ScheduleID), zap.Error(err))
			result.Warnings = append(result.Warnings, "upstream data unavailable: "+err.Error())
		}
	}
	if err := problem.Validate(); err != nil {
		s.sessions.Fail(session.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling problem")
	}

	solution, source := s.solve(ctx, problem, req.SkipOptimizer)
	if solution == nil {
		err := errors.New("solver produced no solution")
		s.sessions.Fail(session.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate schedule")
	}
	result.Source = source

	enrollment := enrollmentOf(problem)
	conflicts := s.analyzer.Detect(problem.ScheduleID, solution.Exams, enrollment)
	quality := s.scorer.Score(solution.Exams, problem.Preferences, conflicts)
	solution.QualityScore = quality.OverallScore

	if NeedsRepair(solution, conflicts) {
		repaired, err := s.fallback.Repair(ctx, problem, solution)
		if err != nil {
			s.logger.Warn("fallback chain failed", zap.String("schedule_id", problem.ScheduleID), zap.Error(err))
		} else {
			repairedConflicts := s.analyzer.Detect(problem.ScheduleID, repaired.Exams, enrollment)
			repairedQuality := s.scorer.Score(repaired.Exams, problem.Preferences, repairedConflicts)
			if !solution.IsComplete || repairedQuality.OverallScore >= quality.OverallScore {
				repaired.QualityScore = repairedQuality.OverallScore
				solution, conflicts, quality = repaired, repairedConflicts, repairedQuality
			} else {
				s.logger.Debug("keeping original solution over repaired one",
					zap.Float64("original", quality.OverallScore),
					zap.Float64("repaired", repairedQuality.OverallScore))
			}
		}
	}
	solution.ProcessingTime = time.Since(start)

	result.Solution = *solution
	result.Conflicts = conflicts
	result.Quality = quality
	result.Warnings = append(result.Warnings, s.persist(ctx, problem, req, result)...)

	s.publish(ctx, problem, result)
	s.sessions.Complete(session.ID, solution)
	s.metrics.ObserveSolve(solution.Algorithm, solution.ProcessingTime, solution.QualityScore)

	s.logger.Info("exam schedule generated",
		zap.String("schedule_id", problem.ScheduleID),
		zap.String("session_id", session.ID),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("algorithm", solution.Algorithm),
		zap.Int("exams", len(solution.Exams)),
		zap.Int("courses", len(problem.Courses)),
		zap.Float64("quality", solution.QualityScore),
		zap.Duration("elapsed", solution.ProcessingTime))
	return result, nil
}

// GetSession returns the tracked state of a generation run.
func (s *SchedulingService) GetSession(sessionID string) (*models.SchedulingSession, error) {
	return s.sessions.Get(sessionID)
}

// solve tries the optimizer delegate first and falls back to the local solver on any failure.
func (s *SchedulingService) solve(ctx context.Context, problem *models.SchedulingProblem, skipOptimizer bool) (*models.SchedulingSolution, models.ResultSource) {
	solveCtx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	defer cancel()

	if s.optimizer != nil && !skipOptimizer {
		started := time.Now()
		solution, err := s.optimizer.Optimize(solveCtx, problem)
		if err == nil {
			s.metrics.RecordOptimizerCall("success")
			constraints := problem.Constraints.WithDefaults()
			solution.Violations = scheduler.Evaluate(problem, constraints, solution.Exams)
			scheduler.SortBySeverity(solution.Violations)
			solution.IsComplete = len(solution.ScheduledCourses()) == len(problem.Courses)
			solution.ProcessingTime = time.Since(started)
			models.SortExams(solution.Exams)
			return solution, models.SourceOptimizer
		}
		s.metrics.RecordOptimizerCall("failure")
		s.logger.Warn("optimizer delegate failed; solving locally",
			zap.String("schedule_id", problem.ScheduleID),
			zap.Error(err))
	}

	solution, err := s.newSolver().Solve(solveCtx, problem)
	if err != nil {
		s.logger.Error("local solver rejected problem", zap.String("schedule_id", problem.ScheduleID), zap.Error(err))
		return nil, models.SourceLocal
	}
	return solution, models.SourceLocal
}

func (s *SchedulingService) persist(ctx context.Context, problem *models.SchedulingProblem, req dto.GenerateExamScheduleRequest, result *models.SchedulingResult) []string {
	var warnings []string
	if err := s.analyzer.Save(ctx, result.Conflicts); err != nil {
		s.logger.Warn("failed to store conflicts", zap.String("schedule_id", problem.ScheduleID), zap.Error(err))
		warnings = append(warnings, "conflicts were not stored")
	}
	if s.versions == nil {
		return warnings
	}
	if _, err := s.versions.RecordMetrics(ctx, problem.ScheduleID, result.Solution.Algorithm, result.Quality); err != nil {
		s.logger.Warn("failed to store quality metrics", zap.String("schedule_id", problem.ScheduleID), zap.Error(err))
		warnings = append(warnings, "quality metrics were not stored")
	}
	snapshot := models.VersionSnapshot{
		Schedule: models.ScheduleMetadata{
			ID:        problem.ScheduleID,
			Name:      req.Name,
			Status:    models.ScheduleStatusGenerated,
			StartDate: problem.Period.Start,
			EndDate:   problem.Period.End,
		},
		Exams: result.Solution.Exams,
	}
	version, err := s.versions.CreateVersion(ctx, problem.ScheduleID, fmt.Sprintf("generated by %s", result.Solution.Algorithm), snapshot)
	if err != nil {
		s.logger.Warn("failed to store schedule version", zap.String("schedule_id", problem.ScheduleID), zap.Error(err))
		warnings = append(warnings, "schedule version was not stored")
		return warnings
	}
	result.Version = version.Version
	return warnings
}

func (s *SchedulingService) publish(ctx context.Context, problem *models.SchedulingProblem, result *models.SchedulingResult) {
	if s.events == nil {
		return
	}
	payload := map[string]interface{}{
		"algorithm":     result.Solution.Algorithm,
		"quality_score": result.Solution.QualityScore,
		"exams":         len(result.Solution.Exams),
		"complete":      result.Solution.IsComplete,
		"source":        string(result.Source),
		"version":       result.Version,
	}
	s.events.Publish(ctx, models.ScheduleEvent{
		Type:       models.EventScheduleGenerated,
		ScheduleID: problem.ScheduleID,
		SessionID:  result.SessionID,
		Payload:    payload,
	})
	if result.Solution.Algorithm == models.AlgorithmEmergency {
		s.events.Publish(ctx, models.ScheduleEvent{
			Type:       models.EventEmergencyScheduleCreated,
			ScheduleID: problem.ScheduleID,
			SessionID:  result.SessionID,
			Payload:    payload,
		})
	}
}

func enrollmentOf(problem *models.SchedulingProblem) map[string]int {
	out := make(map[string]int, len(problem.Courses))
	for _, c := range problem.Courses {
		out[c.ID] = c.StudentCount
	}
	return out
}
