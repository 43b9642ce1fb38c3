package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

func sampleConflicts() []models.ScheduleConflict {
	overflow := 12
	return []models.ScheduleConflict{
		{Kind: models.ConflictTimeOverlap, Severity: models.SeverityHigh, Description: "overlap", ExamIDs: []string{"exam-a", "exam-b"}, AffectedStudents: 28},
		{Kind: models.ConflictRoomCapacity, Severity: models.SeverityHigh, Description: "capacity", ExamIDs: []string{"exam-c"}, OverflowCount: &overflow},
	}
}

func TestConflictRepositoryReplaceForSchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_conflicts WHERE schedule_id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_conflicts")).
		WithArgs(sqlmock.AnyArg(), "sched-1", "TIME_OVERLAP", "HIGH", "overlap", sqlmock.AnyArg(), nil, 28, nil, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_conflicts")).
		WithArgs(sqlmock.AnyArg(), "sched-1", "ROOM_CAPACITY", "HIGH", "capacity", sqlmock.AnyArg(), nil, 0, 12, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForSchedule(context.Background(), "sched-1", sampleConflicts()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_conflicts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_conflicts")).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.ReplaceForSchedule(context.Background(), "sched-1", sampleConflicts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert schedule conflict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryReplaceWithEmptySetClears(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_conflicts")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForSchedule(context.Background(), "sched-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	rows := sqlmock.NewRows([]string{"id", "schedule_id", "conflict_type", "severity", "description", "exam_ids", "professor_id", "affected_students", "overflow_count", "suggested_resolution", "detected_at"}).
		AddRow("c-1", "sched-1", "PROFESSOR_OVERLAP", "CRITICAL", "prof", "{exam-a,exam-b}", "prof-1", 0, nil, "move one exam", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_conflicts WHERE schedule_id = $1 ORDER BY detected_at, id")).
		WithArgs("sched-1").
		WillReturnRows(rows)

	conflicts, err := repo.ListBySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictProfessorOverlap, conflicts[0].Kind)
	assert.Equal(t, []string{"exam-a", "exam-b"}, []string(conflicts[0].ExamIDs))
	require.NotNil(t, conflicts[0].ProfessorID)
	assert.Equal(t, "prof-1", *conflicts[0].ProfessorID)
	assert.Nil(t, conflicts[0].OverflowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
