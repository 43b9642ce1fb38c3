package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
	"github.com/noah-isme/exam-scheduler/pkg/storage"
)

type versionReaderStub struct {
	version *models.ScheduleVersion
	err     error
}

func (s *versionReaderStub) GetVersion(ctx context.Context, scheduleID string, version int) (*models.ScheduleVersion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.version, nil
}

func storedVersion(t *testing.T) *models.ScheduleVersion {
	t.Helper()
	payload, err := json.Marshal(sampleSnapshot())
	require.NoError(t, err)
	return &models.ScheduleVersion{
		ID:         "v-1",
		ScheduleID: "sched-1",
		Version:    3,
		Label:      "published",
		Payload:    types.JSONText(payload),
		CreatedAt:  time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestExportServiceCSV(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewExportService(&versionReaderStub{version: storedVersion(t)}, store, zap.NewNop(), nil, nil)

	resp, err := svc.ExportVersion(context.Background(), "sched-1", 3, "CSV")
	require.NoError(t, err)

	assert.Equal(t, "sched-1/v3.csv", resp.Key)
	assert.Equal(t, "csv", resp.Format)
	assert.True(t, strings.HasPrefix(resp.URL, "file://"))

	content, err := os.ReadFile(filepath.Join(dir, "sched-1", "v3.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "exam_id,course_id"))
	assert.Contains(t, lines[1], "exam-math")
	assert.Contains(t, lines[2], "exam-bio")
}

func TestExportServicePDF(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(&versionReaderStub{version: storedVersion(t)}, store, nil, nil, nil)

	resp, err := svc.ExportVersion(context.Background(), "sched-1", 3, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "sched-1/v3.pdf", resp.Key)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&versionReaderStub{version: storedVersion(t)}, nil, nil, nil, nil)

	_, err := svc.ExportVersion(context.Background(), "sched-1", 3, "xlsx")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportServicePropagatesMissingVersion(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(&versionReaderStub{err: appErrors.Clone(appErrors.ErrNotFound, "version 9 not found")}, store, nil, nil, nil)

	_, err = svc.ExportVersion(context.Background(), "sched-1", 9, "csv")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
