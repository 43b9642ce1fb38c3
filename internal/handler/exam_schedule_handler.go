package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/middleware"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/internal/service"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
	"github.com/noah-isme/exam-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/exam-scheduler/pkg/response"
)

const maxCoursesPerRequest = 2000

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateExamScheduleRequest) (*models.SchedulingResult, error)
	GetSession(sessionID string) (*models.SchedulingSession, error)
}

type conflictAnalyzer interface {
	AnalyzeRequest(ctx context.Context, scheduleID string, req dto.AnalyzeConflictsRequest) (*models.ConflictAnalysisResult, error)
	GetConflicts(ctx context.Context, scheduleID string) (*models.ConflictAnalysisResult, error)
	AnalyzeChangeImpact(ctx context.Context, scheduleID string, req dto.ChangeImpactRequest) (*models.ChangeImpactResult, error)
}

type versionManager interface {
	CreateVersionFromRequest(ctx context.Context, scheduleID string, req dto.CreateVersionRequest) (*models.ScheduleVersion, error)
	ListVersions(ctx context.Context, scheduleID string, query dto.VersionListQuery) ([]models.ScheduleVersion, *models.Pagination, error)
	Compare(ctx context.Context, scheduleID string, from, to int) (*models.VersionComparison, error)
	AnalyzeTrends(ctx context.Context, scheduleID string) (*models.TrendAnalysis, error)
}

type scheduleExporter interface {
	ExportVersion(ctx context.Context, scheduleID string, version int, format string) (*dto.ExportResponse, error)
}

// ExamScheduleHandler exposes generation, conflict, version and export endpoints.
type ExamScheduleHandler struct {
	scheduler scheduleGenerator
	conflicts conflictAnalyzer
	versions  versionManager
	exports   scheduleExporter
}

// NewExamScheduleHandler constructs the handler.
func NewExamScheduleHandler(scheduler *service.SchedulingService, conflicts *service.ConflictAnalyzerService, versions *service.ScheduleVersionService, exports *service.ExportService) *ExamScheduleHandler {
	return &ExamScheduleHandler{scheduler: scheduler, conflicts: conflicts, versions: versions, exports: exports}
}

// Generate godoc
// @Summary Generate an exam schedule
// @Description Solves the submitted problem, repairs weak results through the fallback chain and stores a new version.
// @Tags ExamSchedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateExamScheduleRequest true "Scheduling problem"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exam-schedules/generate [post]
func (h *ExamScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateExamScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.Courses) > maxCoursesPerRequest {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses exceeds supported limit"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = requestid.Value(c)
	}
	result, err := h.scheduler.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "session_id", result.SessionID)
	middleware.SetMeta(c, "source", result.Source)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// AnalyzeConflicts godoc
// @Summary Analyze conflicts of a committed schedule
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Param payload body dto.AnalyzeConflictsRequest true "Committed exams"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/conflicts/analyze [post]
func (h *ExamScheduleHandler) AnalyzeConflicts(c *gin.Context) {
	var req dto.AnalyzeConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid analyze payload"))
		return
	}
	result, err := h.conflicts.AnalyzeRequest(c.Request.Context(), c.Param("scheduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Conflicts godoc
// @Summary Get stored conflicts of a schedule
// @Tags Conflicts
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/conflicts [get]
func (h *ExamScheduleHandler) Conflicts(c *gin.Context) {
	result, err := h.conflicts.GetConflicts(c.Request.Context(), c.Param("scheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ChangeImpact godoc
// @Summary Preview how one exam edit changes the conflict set
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Param payload body dto.ChangeImpactRequest true "Proposed change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/conflicts/impact [post]
func (h *ExamScheduleHandler) ChangeImpact(c *gin.Context) {
	var req dto.ChangeImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change payload"))
		return
	}
	result, err := h.conflicts.AnalyzeChangeImpact(c.Request.Context(), c.Param("scheduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CreateVersion godoc
// @Summary Snapshot a schedule into a new version
// @Tags Versions
// @Accept json
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Param payload body dto.CreateVersionRequest true "Snapshot"
// @Success 201 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/versions [post]
func (h *ExamScheduleHandler) CreateVersion(c *gin.Context) {
	var req dto.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid version payload"))
		return
	}
	version, err := h.versions.CreateVersionFromRequest(c.Request.Context(), c.Param("scheduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// ListVersions godoc
// @Summary List versions of a schedule
// @Tags Versions
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/versions [get]
func (h *ExamScheduleHandler) ListVersions(c *gin.Context) {
	var query dto.VersionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pagination"))
		return
	}
	versions, pagination, err := h.versions.ListVersions(c.Request.Context(), c.Param("scheduleId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, pagination)
}

// CompareVersions godoc
// @Summary Diff two versions of a schedule
// @Tags Versions
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Param from query int true "Base version"
// @Param to query int true "Target version"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/versions/compare [get]
func (h *ExamScheduleHandler) CompareVersions(c *gin.Context) {
	var query dto.CompareVersionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid compare query"))
		return
	}
	if query.From < 1 || query.To < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to must be positive version numbers"))
		return
	}
	result, err := h.versions.Compare(c.Request.Context(), c.Param("scheduleId"), query.From, query.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportVersion godoc
// @Summary Render a version as CSV or PDF
// @Tags Versions
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Param version path int true "Version number"
// @Param format query string false "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/versions/{version}/export [get]
func (h *ExamScheduleHandler) ExportVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must be a positive integer"))
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	result, err := h.exports.ExportVersion(c.Request.Context(), c.Param("scheduleId"), version, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Trends godoc
// @Summary Compare the two latest quality snapshots
// @Tags Quality
// @Produce json
// @Param scheduleId path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /exam-schedules/{scheduleId}/trends [get]
func (h *ExamScheduleHandler) Trends(c *gin.Context) {
	result, err := h.versions.AnalyzeTrends(c.Request.Context(), c.Param("scheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Session godoc
// @Summary Get the status of a scheduling session
// @Tags ExamSchedules
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exam-sessions/{sessionId} [get]
func (h *ExamScheduleHandler) Session(c *gin.Context) {
	session, err := h.scheduler.GetSession(c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Register mounts the routes on group.
func (h *ExamScheduleHandler) Register(group *gin.RouterGroup) {
	schedules := group.Group("/exam-schedules")
	schedules.POST("/generate", h.Generate)
	schedules.POST("/:scheduleId/conflicts/analyze", h.AnalyzeConflicts)
	schedules.GET("/:scheduleId/conflicts", h.Conflicts)
	schedules.POST("/:scheduleId/conflicts/impact", h.ChangeImpact)
	schedules.POST("/:scheduleId/versions", h.CreateVersion)
	schedules.GET("/:scheduleId/versions", h.ListVersions)
	schedules.GET("/:scheduleId/versions/compare", h.CompareVersions)
	schedules.GET("/:scheduleId/versions/:version/export", h.ExportVersion)
	schedules.GET("/:scheduleId/trends", h.Trends)
	group.GET("/exam-sessions/:sessionId", h.Session)
}
