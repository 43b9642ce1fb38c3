package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

const (
	minBreakMinutes        = 30
	professorDailyExamCap  = 3
	capacityCriticalMargin = 20
)

type conflictRepository interface {
	ReplaceForSchedule(ctx context.Context, scheduleID string, conflicts []models.ScheduleConflict) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleConflict, error)
}

type conflictCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateSchedule(ctx context.Context, scheduleID string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event models.ScheduleEvent)
}

// ConflictAnalyzerService detects structural conflicts in committed exam schedules.
type ConflictAnalyzerService struct {
	repo      conflictRepository
	cache     conflictCache
	events    eventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewConflictAnalyzerService wires analyzer dependencies. repo, cache and events are optional.
func NewConflictAnalyzerService(repo conflictRepository, cache conflictCache, events eventPublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ConflictAnalyzerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictAnalyzerService{
		repo:      repo,
		cache:     cache,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Detect computes the conflict set without persisting it. Exams that cannot be
// analysed are reported in SkippedExams and do not abort the run.
func (s *ConflictAnalyzerService) Detect(scheduleID string, exams []models.ScheduledExam, enrollment map[string]int) *models.ConflictAnalysisResult {
	valid := make([]models.ScheduledExam, 0, len(exams))
	var skipped []string
	for _, e := range exams {
		if err := checkAnalyzable(e); err != nil {
			s.logger.Warn("skipping exam in conflict analysis",
				zap.String("schedule_id", scheduleID),
				zap.String("exam_id", e.ID),
				zap.Error(err))
			skipped = append(skipped, e.ID)
			continue
		}
		valid = append(valid, e)
	}

	students := func(e models.ScheduledExam) int {
		if n, ok := enrollment[e.CourseID]; ok {
			return n
		}
		return e.StudentCount
	}

	var conflicts []models.ScheduleConflict
	conflicts = append(conflicts, timeConflicts(valid, students)...)
	conflicts = append(conflicts, spaceConflicts(valid, students)...)
	conflicts = append(conflicts, professorConflicts(valid, students)...)

	at := s.now().UTC()
	for i := range conflicts {
		conflicts[i].ScheduleID = scheduleID
		conflicts[i].DetectedAt = at
		conflicts[i].AssignID()
	}

	result := models.NewConflictAnalysisResult(scheduleID, conflicts, at)
	result.SkippedExams = skipped
	return result
}

// Analyze detects conflicts and replaces the stored set for the schedule.
func (s *ConflictAnalyzerService) Analyze(ctx context.Context, scheduleID string, exams []models.ScheduledExam, enrollment map[string]int) (*models.ConflictAnalysisResult, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	result := s.Detect(scheduleID, exams, enrollment)
	if err := s.Save(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AnalyzeRequest validates an HTTP payload before analysing it.
func (s *ConflictAnalyzerService) AnalyzeRequest(ctx context.Context, scheduleID string, req dto.AnalyzeConflictsRequest) (*models.ConflictAnalysisResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict analysis payload")
	}
	return s.Analyze(ctx, scheduleID, req.Exams, req.Enrollment)
}

// Save persists a computed result atomically and drops stale cache entries.
func (s *ConflictAnalyzerService) Save(ctx context.Context, result *models.ConflictAnalysisResult) error {
	if result == nil {
		return nil
	}
	if s.repo != nil {
		if err := s.repo.ReplaceForSchedule(ctx, result.ScheduleID, result.Conflicts); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store conflicts")
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateSchedule(ctx, result.ScheduleID); err != nil {
			s.logger.Warn("conflict cache invalidation failed", zap.String("schedule_id", result.ScheduleID), zap.Error(err))
		}
	}
	s.metrics.RecordConflicts(result)
	if s.events != nil {
		s.events.Publish(ctx, models.ScheduleEvent{
			Type:       models.EventConflictsAnalyzed,
			ScheduleID: result.ScheduleID,
			Payload: map[string]interface{}{
				"total_conflicts":   result.TotalConflicts,
				"critical":          result.CriticalCount(),
				"affected_students": result.AffectedStudents,
			},
		})
	}
	return nil
}

// GetConflicts returns the stored analysis of a schedule.
func (s *ConflictAnalyzerService) GetConflicts(ctx context.Context, scheduleID string) (*models.ConflictAnalysisResult, error) {
	if s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "conflict storage is not configured")
	}
	key := ScheduleKey(scheduleID, "conflicts")
	if s.cache != nil {
		var cached models.ConflictAnalysisResult
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	conflicts, err := s.repo.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflicts")
	}
	analyzedAt := time.Time{}
	for _, c := range conflicts {
		if c.DetectedAt.After(analyzedAt) {
			analyzedAt = c.DetectedAt
		}
	}
	result := models.NewConflictAnalysisResult(scheduleID, conflicts, analyzedAt)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, result, 0)
	}
	return result, nil
}

// AnalyzeChangeImpact compares the conflict sets before and after a proposed edit.
func (s *ConflictAnalyzerService) AnalyzeChangeImpact(ctx context.Context, scheduleID string, req dto.ChangeImpactRequest) (*models.ChangeImpactResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change impact payload")
	}

	modified := make([]models.ScheduledExam, len(req.Exams))
	copy(modified, req.Exams)
	idx := -1
	for i := range modified {
		if modified[i].ID == req.ExamID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("exam %s not found in schedule", req.ExamID))
	}
	if err := applyChange(&modified[idx], req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposed value")
	}

	before := s.Detect(scheduleID, req.Exams, req.Enrollment)
	after := s.Detect(scheduleID, modified, req.Enrollment)

	result := &models.ChangeImpactResult{
		ExamID:   req.ExamID,
		Field:    req.Field,
		Resolved: []models.ScheduleConflict{},
		Created:  []models.ScheduleConflict{},
	}
	beforePairs := examPairs(before.Conflicts)
	afterPairs := examPairs(after.Conflicts)
	for _, c := range dedupePairs(before.Conflicts) {
		if !afterPairs[c.ExamPair()] {
			result.Resolved = append(result.Resolved, c)
		}
	}
	for _, c := range dedupePairs(after.Conflicts) {
		if !beforePairs[c.ExamPair()] {
			result.Created = append(result.Created, c)
		}
	}
	result.NetImpactedStudents = after.AffectedStudents - before.AffectedStudents
	result.RecommendationScore, result.Recommendation = recommendChange(len(result.Resolved), len(result.Created))
	return result, nil
}

func examPairs(conflicts []models.ScheduleConflict) map[string]bool {
	pairs := make(map[string]bool, len(conflicts))
	for _, c := range conflicts {
		pairs[c.ExamPair()] = true
	}
	return pairs
}

// dedupePairs keeps the first conflict reported for each exam pair.
func dedupePairs(conflicts []models.ScheduleConflict) []models.ScheduleConflict {
	seen := make(map[string]bool, len(conflicts))
	out := make([]models.ScheduleConflict, 0, len(conflicts))
	for _, c := range conflicts {
		if seen[c.ExamPair()] {
			continue
		}
		seen[c.ExamPair()] = true
		out = append(out, c)
	}
	return out
}

func recommendChange(resolved, created int) (float64, string) {
	switch {
	case created == 0 && resolved > 0:
		return 1.0, "Apply the change: it resolves conflicts without introducing new ones"
	case created == 0:
		return 0.8, "Change is neutral: no conflicts are resolved or introduced"
	case resolved > created:
		return 0.6, "Change is a net improvement but introduces new conflicts that need review"
	case resolved == created:
		return 0.4, "Change trades existing conflicts for an equal number of new ones"
	default:
		return 0.2, "Avoid the change: it introduces more conflicts than it resolves"
	}
}

func applyChange(e *models.ScheduledExam, req dto.ChangeImpactRequest) error {
	switch req.Field {
	case "date":
		d, err := time.Parse("2006-01-02", req.Value)
		if err != nil {
			return err
		}
		e.Slot.Date = d
	case "startTime":
		start, err := models.ParseClock(req.Value)
		if err != nil {
			return err
		}
		duration := e.Slot.Duration()
		e.Slot.StartTime = start
		e.Slot.EndTime = start.Add(duration)
	case "roomId":
		e.Slot.RoomID = req.Value
		e.Slot.RoomName = req.RoomName
		if req.RoomCapacity > 0 {
			e.Slot.RoomCapacity = req.RoomCapacity
		}
	default:
		return fmt.Errorf("unsupported field %q", req.Field)
	}
	return nil
}

func checkAnalyzable(e models.ScheduledExam) error {
	switch {
	case e.ID == "":
		return errors.New("exam id is empty")
	case e.CourseID == "":
		return errors.New("course id is empty")
	case e.Slot.Date.IsZero():
		return errors.New("exam date is missing")
	case e.Slot.EndTime <= e.Slot.StartTime:
		return errors.New("exam ends before it starts")
	}
	return nil
}

func timeConflicts(exams []models.ScheduledExam, students func(models.ScheduledExam) int) []models.ScheduleConflict {
	var out []models.ScheduleConflict
	for i := 0; i < len(exams); i++ {
		for j := i + 1; j < len(exams); j++ {
			a, b := exams[i], exams[j]
			if !models.SameDate(a.Slot.Date, b.Slot.Date) {
				continue
			}
			ids := []string{a.ID, b.ID}
			if a.Slot.Overlaps(b.Slot) {
				smaller := students(a)
				if n := students(b); n < smaller {
					smaller = n
				}
				rate := overlapRate(a, b)
				affected := int(math.Floor(float64(smaller)*rate + 1e-9))
				if affected <= 0 {
					continue
				}
				out = append(out, models.ScheduleConflict{
					Kind:                models.ConflictTimeOverlap,
					Severity:            overlapSeverity(affected),
					Description:         fmt.Sprintf("Exams %s and %s overlap on %s; an estimated %d students sit both", a.CourseName, b.CourseName, a.Slot.Date.Format("2006-01-02"), affected),
					ExamIDs:             ids,
					AffectedStudents:    affected,
					SuggestedResolution: "Move one exam to a non-overlapping time slot",
				})
				continue
			}
			if gap := a.Slot.GapTo(b.Slot); gap < minBreakMinutes {
				out = append(out, models.ScheduleConflict{
					Kind:                models.ConflictInsufficientBreak,
					Severity:            models.SeverityMedium,
					Description:         fmt.Sprintf("Only %d minutes between exams %s and %s", gap, a.CourseName, b.CourseName),
					ExamIDs:             ids,
					SuggestedResolution: fmt.Sprintf("Leave at least %d minutes between consecutive exams", minBreakMinutes),
				})
			}
		}
	}
	return out
}

// overlapRate estimates the share of students common to both exams.
func overlapRate(a, b models.ScheduledExam) float64 {
	switch {
	case a.Mandatory && b.Mandatory:
		return 0.7
	case a.Mandatory || b.Mandatory:
		return 0.4
	default:
		return 0.2
	}
}

func overlapSeverity(affected int) models.Severity {
	switch {
	case affected > 50:
		return models.SeverityCritical
	case affected > 20:
		return models.SeverityHigh
	case affected > 5:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func spaceConflicts(exams []models.ScheduledExam, students func(models.ScheduledExam) int) []models.ScheduleConflict {
	var out []models.ScheduleConflict
	for _, e := range exams {
		n := students(e)
		if e.Slot.RoomCapacity <= 0 || n <= e.Slot.RoomCapacity {
			continue
		}
		overflow := n - e.Slot.RoomCapacity
		severity := models.SeverityHigh
		if overflow > capacityCriticalMargin {
			severity = models.SeverityCritical
		}
		out = append(out, models.ScheduleConflict{
			Kind:                models.ConflictRoomCapacity,
			Severity:            severity,
			Description:         fmt.Sprintf("Exam %s seats %d students in room %s with capacity %d", e.CourseName, n, e.Slot.RoomID, e.Slot.RoomCapacity),
			ExamIDs:             []string{e.ID},
			AffectedStudents:    overflow,
			OverflowCount:       intPtr(overflow),
			SuggestedResolution: "Assign a larger room or split the exam across rooms",
		})
	}
	for i := 0; i < len(exams); i++ {
		for j := i + 1; j < len(exams); j++ {
			a, b := exams[i], exams[j]
			if a.Slot.RoomID == "" || a.Slot.RoomID != b.Slot.RoomID || !a.Slot.Overlaps(b.Slot) {
				continue
			}
			out = append(out, models.ScheduleConflict{
				Kind:                models.ConflictDoubleBooking,
				Severity:            models.SeverityCritical,
				Description:         fmt.Sprintf("Room %s is booked for %s and %s at the same time", a.Slot.RoomID, a.CourseName, b.CourseName),
				ExamIDs:             []string{a.ID, b.ID},
				AffectedStudents:    students(a) + students(b),
				OverflowCount:       intPtr(models.DoubleBookingOverflow),
				SuggestedResolution: "Move one exam to another room or time slot",
			})
		}
	}
	return out
}

func professorConflicts(exams []models.ScheduledExam, students func(models.ScheduledExam) int) []models.ScheduleConflict {
	byProfessor := make(map[string][]models.ScheduledExam)
	for _, e := range exams {
		for _, p := range e.ProfessorIDs {
			byProfessor[p] = append(byProfessor[p], e)
		}
	}
	professors := make([]string, 0, len(byProfessor))
	for p := range byProfessor {
		professors = append(professors, p)
	}
	sort.Strings(professors)

	var out []models.ScheduleConflict
	for _, prof := range professors {
		list := byProfessor[prof]
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				if !a.Slot.Overlaps(b.Slot) {
					continue
				}
				out = append(out, models.ScheduleConflict{
					Kind:                models.ConflictProfessorOverlap,
					Severity:            models.SeverityCritical,
					Description:         fmt.Sprintf("Professor %s supervises %s and %s at the same time", prof, a.CourseName, b.CourseName),
					ExamIDs:             []string{a.ID, b.ID},
					ProfessorID:         stringPtr(prof),
					AffectedStudents:    students(a) + students(b),
					SuggestedResolution: "Reschedule one exam or assign another supervisor",
				})
			}
		}

		perDay := make(map[string][]models.ScheduledExam)
		for _, e := range list {
			day := e.Slot.Date.Format("2006-01-02")
			perDay[day] = append(perDay[day], e)
		}
		days := make([]string, 0, len(perDay))
		for d := range perDay {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, day := range days {
			dayExams := perDay[day]
			if len(dayExams) <= professorDailyExamCap {
				continue
			}
			ids := make([]string, 0, len(dayExams))
			affected := 0
			for _, e := range dayExams {
				ids = append(ids, e.ID)
				affected += students(e)
			}
			out = append(out, models.ScheduleConflict{
				Kind:                models.ConflictProfessorOverload,
				Severity:            models.SeverityHigh,
				Description:         fmt.Sprintf("Professor %s has %d exams on %s", prof, len(dayExams), day),
				ExamIDs:             ids,
				ProfessorID:         stringPtr(prof),
				AffectedStudents:    affected,
				SuggestedResolution: fmt.Sprintf("Spread the professor's exams so no day has more than %d", professorDailyExamCap),
			})
		}
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

func stringPtr(v string) *string {
	return &v
}
