package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

type versionRepoStub struct {
	items []models.ScheduleVersion
}

func (s *versionRepoStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, version *models.ScheduleVersion) error {
	next := 1
	for _, v := range s.items {
		if v.ScheduleID == version.ScheduleID && v.Version >= next {
			next = v.Version + 1
		}
	}
	version.Version = next
	s.items = append(s.items, *version)
	return nil
}

func (s *versionRepoStub) ListBySchedule(ctx context.Context, scheduleID string, limit, offset int) ([]models.ScheduleVersion, error) {
	var out []models.ScheduleVersion
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].ScheduleID == scheduleID {
			out = append(out, s.items[i])
		}
	}
	if offset >= len(out) {
		return []models.ScheduleVersion{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *versionRepoStub) CountBySchedule(ctx context.Context, scheduleID string) (int, error) {
	n := 0
	for _, v := range s.items {
		if v.ScheduleID == scheduleID {
			n++
		}
	}
	return n, nil
}

func (s *versionRepoStub) FindByVersion(ctx context.Context, scheduleID string, version int) (*models.ScheduleVersion, error) {
	for _, v := range s.items {
		if v.ScheduleID == scheduleID && v.Version == version {
			cp := v
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type metricRepoStub struct {
	items []models.QualityMetric
}

func (s *metricRepoStub) Create(ctx context.Context, metric *models.QualityMetric) error {
	s.items = append(s.items, *metric)
	return nil
}

func (s *metricRepoStub) ListRecent(ctx context.Context, scheduleID string, limit int) ([]models.QualityMetric, error) {
	var out []models.QualityMetric
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		if s.items[i].ScheduleID == scheduleID {
			out = append(out, s.items[i])
		}
	}
	return out, nil
}

func newVersionService(versions *versionRepoStub, metrics *metricRepoStub, events eventPublisher) *ScheduleVersionService {
	return NewScheduleVersionService(versions, metrics, events, validator.New(), zap.NewNop())
}

func sampleSnapshot() models.VersionSnapshot {
	return models.VersionSnapshot{
		Schedule: models.ScheduleMetadata{
			Name:      "Spring finals",
			Status:    models.ScheduleStatusDraft,
			StartDate: examDay,
			EndDate:   examDay.AddDate(0, 0, 4),
		},
		Exams: []models.ScheduledExam{
			buildExam(examSpec{course: "math", start: "09:00", end: "11:00", room: "hall", capacity: 200, students: 120}),
			buildExam(examSpec{course: "bio", day: 1, start: "09:00", end: "11:00", room: "lab", capacity: 40, students: 30}),
		},
	}
}

func TestScheduleVersionCreateNumbersSequentially(t *testing.T) {
	repo := &versionRepoStub{}
	events := &eventRecorder{}
	svc := newVersionService(repo, &metricRepoStub{}, events)

	first, err := svc.CreateVersion(context.Background(), "sched-1", "draft", sampleSnapshot())
	require.NoError(t, err)
	second, err := svc.CreateVersion(context.Background(), "sched-1", "", sampleSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	snap, err := second.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "sched-1", snap.Schedule.ID)
	assert.Len(t, snap.Exams, 2)
	assert.Equal(t, []models.EventType{models.EventScheduleVersionCreated, models.EventScheduleVersionCreated}, events.types())
}

func TestScheduleVersionCreateFromRequestValidates(t *testing.T) {
	svc := newVersionService(&versionRepoStub{}, &metricRepoStub{}, nil)

	_, err := svc.CreateVersionFromRequest(context.Background(), "sched-1", dto.CreateVersionRequest{
		Schedule:     dto.ScheduleMetadataRequest{Status: "ARCHIVED"},
		Exams:        []models.ScheduledExam{},
		CommentCount: -1,
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestScheduleVersionListPaginates(t *testing.T) {
	repo := &versionRepoStub{}
	svc := newVersionService(repo, &metricRepoStub{}, nil)
	for i := 0; i < 3; i++ {
		_, err := svc.CreateVersion(context.Background(), "sched-1", "", sampleSnapshot())
		require.NoError(t, err)
	}

	items, page, err := svc.ListVersions(context.Background(), "sched-1", dto.VersionListQuery{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Version)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 2, TotalCount: 3}, page)
}

func TestScheduleVersionCompareSelfHasNoDifferences(t *testing.T) {
	repo := &versionRepoStub{}
	svc := newVersionService(repo, &metricRepoStub{}, nil)
	_, err := svc.CreateVersion(context.Background(), "sched-1", "", sampleSnapshot())
	require.NoError(t, err)

	cmp, err := svc.Compare(context.Background(), "sched-1", 1, 1)
	require.NoError(t, err)
	assert.Empty(t, cmp.Differences)
}

func TestScheduleVersionCompareRoomChange(t *testing.T) {
	repo := &versionRepoStub{}
	svc := newVersionService(repo, &metricRepoStub{}, nil)
	base := sampleSnapshot()
	_, err := svc.CreateVersion(context.Background(), "sched-1", "", base)
	require.NoError(t, err)

	moved := sampleSnapshot()
	moved.Exams[1].Slot.RoomID = "lab-2"
	_, err = svc.CreateVersion(context.Background(), "sched-1", "", moved)
	require.NoError(t, err)

	cmp, err := svc.Compare(context.Background(), "sched-1", 1, 2)
	require.NoError(t, err)
	require.Len(t, cmp.Differences, 1)
	assert.Equal(t, models.VersionDifference{
		Type:     models.DiffExamModified,
		ExamID:   "exam-bio",
		Property: "roomId",
		OldValue: "lab",
		NewValue: "lab-2",
	}, cmp.Differences[0])
}

func TestDiffSnapshotsRoomCapacityChange(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.Exams[1].Slot.RoomCapacity = 60

	diffs := DiffSnapshots(&a, &b)
	require.Len(t, diffs, 1)
	assert.Equal(t, models.VersionDifference{
		Type:     models.DiffExamModified,
		ExamID:   "exam-bio",
		Property: "roomCapacity",
		OldValue: "40",
		NewValue: "60",
	}, diffs[0])
}

func TestDiffSnapshotsAddedRemovedAndProperties(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.Schedule.Status = models.ScheduleStatusPublished
	b.Exams = append(b.Exams[:1], buildExam(examSpec{course: "chem", day: 2, start: "13:00", end: "15:00", room: "lab"}))

	diffs := DiffSnapshots(&a, &b)

	require.Len(t, diffs, 3)
	assert.Equal(t, models.DiffSchedulePropertyChanged, diffs[0].Type)
	assert.Equal(t, "status", diffs[0].Property)
	assert.Equal(t, models.VersionDifference{Type: models.DiffExamRemoved, ExamID: "exam-bio"}, diffs[1])
	assert.Equal(t, models.VersionDifference{Type: models.DiffExamAdded, ExamID: "exam-chem"}, diffs[2])
}

func TestScheduleVersionCompareCorruptPayload(t *testing.T) {
	repo := &versionRepoStub{items: []models.ScheduleVersion{
		{ID: "v1", ScheduleID: "sched-1", Version: 1, Payload: types.JSONText(`{"schedule": "oops"`)},
	}}
	snap, err := json.Marshal(sampleSnapshot())
	require.NoError(t, err)
	repo.items = append(repo.items, models.ScheduleVersion{ID: "v2", ScheduleID: "sched-1", Version: 2, Payload: types.JSONText(snap)})
	svc := newVersionService(repo, &metricRepoStub{}, nil)

	_, err = svc.Compare(context.Background(), "sched-1", 1, 2)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrCorruptSnapshot.Code, appErr.Code)

	cmp, err := svc.Compare(context.Background(), "sched-1", 2, 2)
	require.NoError(t, err)
	assert.Empty(t, cmp.Differences)
}

func TestScheduleVersionCompareMissingVersion(t *testing.T) {
	svc := newVersionService(&versionRepoStub{}, &metricRepoStub{}, nil)

	_, err := svc.Compare(context.Background(), "sched-1", 1, 2)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestScheduleVersionTrendsNeedTwoSnapshots(t *testing.T) {
	metrics := &metricRepoStub{}
	svc := newVersionService(&versionRepoStub{}, metrics, nil)
	_, err := svc.RecordMetrics(context.Background(), "sched-1", "HYBRID", &models.QualityScoreResult{OverallScore: 0.8})
	require.NoError(t, err)

	_, err = svc.AnalyzeTrends(context.Background(), "sched-1")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestScheduleVersionTrendDirection(t *testing.T) {
	cases := []struct {
		name     string
		previous float64
		latest   float64
		trend    models.TrendDirection
		alerts   int
	}{
		{"improving", 0.60, 0.70, models.TrendImproving, 0},
		{"stable", 0.70, 0.73, models.TrendStable, 0},
		{"declining", 0.80, 0.60, models.TrendDeclining, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &metricRepoStub{}
			svc := newVersionService(&versionRepoStub{}, metrics, nil)
			svc.now = func() time.Time { return examDay }
			_, err := svc.RecordMetrics(context.Background(), "sched-1", "HYBRID", &models.QualityScoreResult{OverallScore: tc.previous, PreferenceSatisfaction: 0.5})
			require.NoError(t, err)
			_, err = svc.RecordMetrics(context.Background(), "sched-1", "HYBRID", &models.QualityScoreResult{OverallScore: tc.latest, PreferenceSatisfaction: 0.5})
			require.NoError(t, err)

			analysis, err := svc.AnalyzeTrends(context.Background(), "sched-1")
			require.NoError(t, err)
			assert.Equal(t, tc.trend, analysis.Trend)
			assert.InDelta(t, tc.latest-tc.previous, analysis.QualityDelta, 1e-9)
			assert.Len(t, analysis.Recommendations, tc.alerts)
		})
	}
}
