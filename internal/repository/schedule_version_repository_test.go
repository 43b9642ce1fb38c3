package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-scheduler/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var versionColumns = []string{"id", "schedule_id", "version", "label", "payload", "created_at"}

func TestScheduleVersionRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_versions WHERE schedule_id = $1")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_versions")).
		WithArgs(sqlmock.AnyArg(), "sched-1", 4, "v4", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	version := &models.ScheduleVersion{ScheduleID: "sched-1", Payload: types.JSONText(`{"exams":[]}`)}
	require.NoError(t, repo.CreateVersioned(context.Background(), nil, version))

	assert.Equal(t, 4, version.Version)
	assert.Equal(t, "v4", version.Label)
	assert.NotEmpty(t, version.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleVersionRepositoryCreateVersionedKeepsLabel(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedule_versions")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_versions")).
		WithArgs(sqlmock.AnyArg(), "sched-1", 1, "published", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	version := &models.ScheduleVersion{ScheduleID: "sched-1", Label: "published"}
	require.NoError(t, repo.CreateVersioned(context.Background(), nil, version))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleVersionRepositoryCreateVersionedRequiresSchedule(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleVersionRepository(db)

	assert.Error(t, repo.CreateVersioned(context.Background(), nil, &models.ScheduleVersion{}))
	assert.Error(t, repo.CreateVersioned(context.Background(), nil, nil))
}

func TestScheduleVersionRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleVersionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(versionColumns).
		AddRow("v-2", "sched-1", 2, "v2", []byte(`{}`), now).
		AddRow("v-1", "sched-1", 1, "v1", []byte(`{}`), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, version, label, payload, created_at FROM schedule_versions WHERE schedule_id = $1 ORDER BY version DESC LIMIT $2 OFFSET $3")).
		WithArgs("sched-1", 20, 0).
		WillReturnRows(rows)

	list, err := repo.ListBySchedule(context.Background(), "sched-1", 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleVersionRepositoryCountBySchedule(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedule_versions WHERE schedule_id = $1")).
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.CountBySchedule(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestScheduleVersionRepositoryFindByVersionNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleVersionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_versions WHERE schedule_id = $1 AND version = $2")).
		WithArgs("sched-1", 9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByVersion(context.Background(), "sched-1", 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
