package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/pkg/export"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

const (
	exportFormatCSV = "csv"
	exportFormatPDF = "pdf"
)

type versionReader interface {
	GetVersion(ctx context.Context, scheduleID string, version int) (*models.ScheduleVersion, error)
}

type objectStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

type csvRenderer interface {
	Render(rows interface{}) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Table, title string) ([]byte, error)
}

// examRow is one CSV line of an exported schedule.
type examRow struct {
	ExamID       string `csv:"exam_id"`
	CourseID     string `csv:"course_id"`
	CourseName   string `csv:"course_name"`
	Date         string `csv:"date"`
	StartTime    string `csv:"start_time"`
	EndTime      string `csv:"end_time"`
	RoomID       string `csv:"room_id"`
	RoomName     string `csv:"room_name"`
	RoomCapacity int    `csv:"room_capacity"`
	StudentCount int    `csv:"student_count"`
	Professors   string `csv:"professors"`
}

// ExportService renders stored schedule versions and hands them to object storage.
type ExportService struct {
	versions versionReader
	store    objectStore
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(versions versionReader, store objectStore, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{versions: versions, store: store, csv: csv, pdf: pdf, logger: logger}
}

// ExportVersion renders one version as CSV or PDF and returns where it was stored.
func (s *ExportService) ExportVersion(ctx context.Context, scheduleID string, version int, format string) (*dto.ExportResponse, error) {
	format = strings.ToLower(format)
	if format == "" {
		format = exportFormatCSV
	}
	if format != exportFormatCSV && format != exportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if s.store == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export storage is not configured")
	}

	v, err := s.versions.GetVersion(ctx, scheduleID, version)
	if err != nil {
		return nil, err
	}
	snap, err := v.Snapshot()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCorruptSnapshot.Code, appErrors.ErrCorruptSnapshot.Status,
			fmt.Sprintf("version %d of schedule %s cannot be decoded", version, scheduleID))
	}
	exams := append([]models.ScheduledExam(nil), snap.Exams...)
	models.SortExams(exams)

	var (
		data        []byte
		contentType string
	)
	switch format {
	case exportFormatCSV:
		data, err = s.csv.Render(examRows(exams))
		contentType = "text/csv"
	default:
		title := snap.Schedule.Name
		if title == "" {
			title = "Exam schedule " + scheduleID
		}
		data, err = s.pdf.Render(examTable(exams, v), title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	key := fmt.Sprintf("%s/v%d.%s", scheduleID, v.Version, format)
	if _, err := s.store.Save(ctx, key, data, contentType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve export url")
	}
	s.logger.Info("schedule exported", zap.String("schedule_id", scheduleID), zap.Int("version", v.Version), zap.String("format", format))
	return &dto.ExportResponse{Key: key, URL: url, Format: format}, nil
}

func examRows(exams []models.ScheduledExam) []examRow {
	rows := make([]examRow, 0, len(exams))
	for _, e := range exams {
		rows = append(rows, examRow{
			ExamID:       e.ID,
			CourseID:     e.CourseID,
			CourseName:   e.CourseName,
			Date:         e.Slot.Date.Format("2006-01-02"),
			StartTime:    e.Slot.StartTime.String(),
			EndTime:      e.Slot.EndTime.String(),
			RoomID:       e.Slot.RoomID,
			RoomName:     e.Slot.RoomName,
			RoomCapacity: e.Slot.RoomCapacity,
			StudentCount: e.StudentCount,
			Professors:   strings.Join(e.ProfessorIDs, ";"),
		})
	}
	return rows
}

func examTable(exams []models.ScheduledExam, v *models.ScheduleVersion) export.Table {
	table := export.Table{
		Headers: []string{"Date", "Start", "End", "Course", "Room", "Students", "Professors"},
		Footer: []string{
			fmt.Sprintf("Version %d (%s)", v.Version, v.Label),
			"Created " + v.CreatedAt.Format("2006-01-02 15:04 MST"),
		},
	}
	for _, e := range exams {
		table.Rows = append(table.Rows, []string{
			e.Slot.Date.Format("Mon 2006-01-02"),
			e.Slot.StartTime.String(),
			e.Slot.EndTime.String(),
			e.CourseName,
			e.Slot.RoomName,
			strconv.Itoa(e.StudentCount),
			strings.Join(e.ProfessorIDs, ", "),
		})
	}
	return table
}
