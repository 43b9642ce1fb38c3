package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

const (
	trendThreshold      = 0.05
	trendAlertThreshold = -0.1
	defaultVersionPage  = 20
)

type scheduleVersionRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.ScheduleVersion) error
	ListBySchedule(ctx context.Context, scheduleID string, limit, offset int) ([]models.ScheduleVersion, error)
	CountBySchedule(ctx context.Context, scheduleID string) (int, error)
	FindByVersion(ctx context.Context, scheduleID string, version int) (*models.ScheduleVersion, error)
}

type qualityMetricRepository interface {
	Create(ctx context.Context, metric *models.QualityMetric) error
	ListRecent(ctx context.Context, scheduleID string, limit int) ([]models.QualityMetric, error)
}

// ScheduleVersionService keeps immutable schedule snapshots and quality history.
type ScheduleVersionService struct {
	versions  scheduleVersionRepository
	metrics   qualityMetricRepository
	events    eventPublisher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleVersionService wires version persistence.
func NewScheduleVersionService(versions scheduleVersionRepository, metrics qualityMetricRepository, events eventPublisher, validate *validator.Validate, logger *zap.Logger) *ScheduleVersionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleVersionService{
		versions:  versions,
		metrics:   metrics,
		events:    events,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateVersion stores a new snapshot numbered after the latest one.
func (s *ScheduleVersionService) CreateVersion(ctx context.Context, scheduleID, label string, snapshot models.VersionSnapshot) (*models.ScheduleVersion, error) {
	if scheduleID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule id is required")
	}
	if snapshot.Schedule.ID == "" {
		snapshot.Schedule.ID = scheduleID
	}
	if snapshot.Exams == nil {
		snapshot.Exams = []models.ScheduledExam{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode version snapshot")
	}

	version := &models.ScheduleVersion{
		ID:         uuid.NewString(),
		ScheduleID: scheduleID,
		Label:      label,
		Payload:    types.JSONText(payload),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.versions.CreateVersioned(ctx, nil, version); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule version")
	}

	if s.events != nil {
		s.events.Publish(ctx, models.ScheduleEvent{
			Type:       models.EventScheduleVersionCreated,
			ScheduleID: scheduleID,
			Payload: map[string]interface{}{
				"version": version.Version,
				"label":   version.Label,
				"exams":   len(snapshot.Exams),
			},
		})
	}
	return version, nil
}

// CreateVersionFromRequest validates an HTTP payload and stores it as a version.
func (s *ScheduleVersionService) CreateVersionFromRequest(ctx context.Context, scheduleID string, req dto.CreateVersionRequest) (*models.ScheduleVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid version payload")
	}
	return s.CreateVersion(ctx, scheduleID, req.Label, models.VersionSnapshot{
		Schedule:        req.Schedule.ToMetadata(scheduleID),
		Exams:           req.Exams,
		CommentCount:    req.CommentCount,
		AdjustmentCount: req.AdjustmentCount,
	})
}

// ListVersions returns a page of versions, newest first.
func (s *ScheduleVersionService) ListVersions(ctx context.Context, scheduleID string, query dto.VersionListQuery) ([]models.ScheduleVersion, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pagination")
	}
	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultVersionPage
	}
	total, err := s.versions.CountBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count versions")
	}
	items, err := s.versions.ListBySchedule(ctx, scheduleID, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list versions")
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetVersion loads one version.
func (s *ScheduleVersionService) GetVersion(ctx context.Context, scheduleID string, version int) (*models.ScheduleVersion, error) {
	v, err := s.versions.FindByVersion(ctx, scheduleID, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("version %d of schedule %s not found", version, scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load version")
	}
	return v, nil
}

// Compare diffs two stored versions of a schedule.
func (s *ScheduleVersionService) Compare(ctx context.Context, scheduleID string, from, to int) (*models.VersionComparison, error) {
	fromSnap, err := s.snapshot(ctx, scheduleID, from)
	if err != nil {
		return nil, err
	}
	toSnap, err := s.snapshot(ctx, scheduleID, to)
	if err != nil {
		return nil, err
	}
	return &models.VersionComparison{
		ScheduleID:  scheduleID,
		FromVersion: from,
		ToVersion:   to,
		Differences: DiffSnapshots(fromSnap, toSnap),
	}, nil
}

func (s *ScheduleVersionService) snapshot(ctx context.Context, scheduleID string, version int) (*models.VersionSnapshot, error) {
	v, err := s.GetVersion(ctx, scheduleID, version)
	if err != nil {
		return nil, err
	}
	snap, err := v.Snapshot()
	if err != nil {
		s.logger.Error("corrupt schedule version", zap.String("schedule_id", scheduleID), zap.Int("version", version), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrCorruptSnapshot.Code, appErrors.ErrCorruptSnapshot.Status,
			fmt.Sprintf("version %d of schedule %s cannot be decoded", version, scheduleID))
	}
	return snap, nil
}

// DiffSnapshots lists what changed from a to b. Identical snapshots yield no differences.
func DiffSnapshots(a, b *models.VersionSnapshot) []models.VersionDifference {
	diffs := []models.VersionDifference{}

	prop := func(name, oldValue, newValue string) {
		if oldValue != newValue {
			diffs = append(diffs, models.VersionDifference{
				Type:     models.DiffSchedulePropertyChanged,
				Property: name,
				OldValue: oldValue,
				NewValue: newValue,
			})
		}
	}
	prop("status", string(a.Schedule.Status), string(b.Schedule.Status))
	prop("startDate", formatDate(a.Schedule.StartDate), formatDate(b.Schedule.StartDate))
	prop("endDate", formatDate(a.Schedule.EndDate), formatDate(b.Schedule.EndDate))

	oldExams := indexExams(a.Exams)
	newExams := indexExams(b.Exams)

	for _, id := range sortedExamIDs(oldExams) {
		if _, ok := newExams[id]; !ok {
			diffs = append(diffs, models.VersionDifference{Type: models.DiffExamRemoved, ExamID: id})
		}
	}
	for _, id := range sortedExamIDs(newExams) {
		oldExam, ok := oldExams[id]
		if !ok {
			diffs = append(diffs, models.VersionDifference{Type: models.DiffExamAdded, ExamID: id})
			continue
		}
		diffs = append(diffs, examDifferences(id, oldExam, newExams[id])...)
	}
	return diffs
}

func examDifferences(id string, a, b models.ScheduledExam) []models.VersionDifference {
	fields := []struct {
		name     string
		old, new string
	}{
		{"date", formatDate(a.Slot.Date), formatDate(b.Slot.Date)},
		{"startTime", a.Slot.StartTime.String(), b.Slot.StartTime.String()},
		{"endTime", a.Slot.EndTime.String(), b.Slot.EndTime.String()},
		{"roomId", a.Slot.RoomID, b.Slot.RoomID},
		{"roomCapacity", strconv.Itoa(a.Slot.RoomCapacity), strconv.Itoa(b.Slot.RoomCapacity)},
		{"studentCount", strconv.Itoa(a.StudentCount), strconv.Itoa(b.StudentCount)},
	}
	var out []models.VersionDifference
	for _, f := range fields {
		if f.old == f.new {
			continue
		}
		out = append(out, models.VersionDifference{
			Type:     models.DiffExamModified,
			ExamID:   id,
			Property: f.name,
			OldValue: f.old,
			NewValue: f.new,
		})
	}
	return out
}

func indexExams(exams []models.ScheduledExam) map[string]models.ScheduledExam {
	out := make(map[string]models.ScheduledExam, len(exams))
	for _, e := range exams {
		out[e.ID] = e
	}
	return out
}

func sortedExamIDs(m map[string]models.ScheduledExam) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// RecordMetrics stores a quality snapshot for trend analysis.
func (s *ScheduleVersionService) RecordMetrics(ctx context.Context, scheduleID, algorithm string, quality *models.QualityScoreResult) (*models.QualityMetric, error) {
	if quality == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quality score is required")
	}
	metric := &models.QualityMetric{
		ID:                     uuid.NewString(),
		ScheduleID:             scheduleID,
		OverallScore:           quality.OverallScore,
		PreferenceSatisfaction: quality.PreferenceSatisfaction,
		ConflictResolution:     quality.ConflictMinimization,
		ResourceUtilization:    quality.ResourceUtilization,
		WorkloadDistribution:   quality.WorkloadDistribution,
		PolicyCompliance:       quality.PolicyCompliance,
		TotalConflicts:         quality.Breakdown.TotalConflicts,
		Algorithm:              algorithm,
		RecordedAt:             s.now().UTC(),
	}
	if err := s.metrics.Create(ctx, metric); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store quality metrics")
	}
	return metric, nil
}

// AnalyzeTrends compares the two most recent quality snapshots.
func (s *ScheduleVersionService) AnalyzeTrends(ctx context.Context, scheduleID string) (*models.TrendAnalysis, error) {
	recent, err := s.metrics.ListRecent(ctx, scheduleID, 2)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quality history")
	}
	if len(recent) < 2 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "at least two quality snapshots are required for trend analysis")
	}
	latest, previous := recent[0], recent[1]

	analysis := &models.TrendAnalysis{
		ScheduleID:              scheduleID,
		QualityDelta:            latest.OverallScore - previous.OverallScore,
		PreferenceDelta:         latest.PreferenceSatisfaction - previous.PreferenceSatisfaction,
		ConflictResolutionDelta: latest.ConflictResolution - previous.ConflictResolution,
		Latest:                  latest,
		Previous:                previous,
		Recommendations:         []string{},
	}
	switch {
	case analysis.QualityDelta > trendThreshold:
		analysis.Trend = models.TrendImproving
	case analysis.QualityDelta < -trendThreshold:
		analysis.Trend = models.TrendDeclining
	default:
		analysis.Trend = models.TrendStable
	}

	if analysis.QualityDelta < trendAlertThreshold {
		analysis.Recommendations = append(analysis.Recommendations, "Overall quality dropped sharply; review recent adjustments")
	}
	if analysis.PreferenceDelta < trendAlertThreshold {
		analysis.Recommendations = append(analysis.Recommendations, "Preference satisfaction declined; re-check professor availability")
	}
	if analysis.ConflictResolutionDelta < trendAlertThreshold {
		analysis.Recommendations = append(analysis.Recommendations, "More conflicts than before; run conflict analysis and resolve critical items")
	}
	return analysis, nil
}
