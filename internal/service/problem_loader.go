package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/pkg/config"
)

// ProblemLoader fills scheduling problems with course, room and preference
// records fetched from the institution's data services. Records are validated
// before they reach the solver.
type ProblemLoader struct {
	caller    *resilientCaller
	baseURL   string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProblemLoader builds a loader for the configured data services.
func NewProblemLoader(cfg config.UpstreamConfig, httpClient *http.Client, validate *validator.Validate, logger *zap.Logger) *ProblemLoader {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProblemLoader{
		caller: newResilientCaller(httpClient, resilientConfig{
			Name:       "upstream",
			Timeout:    cfg.Timeout,
			MaxRetries: 1,
		}, logger),
		baseURL:   cfg.BaseURL,
		validator: validate,
		logger:    logger,
	}
}

// Load fetches the three record sets concurrently and fills the lists the
// problem does not already carry.
func (l *ProblemLoader) Load(ctx context.Context, problem *models.SchedulingProblem) error {
	var (
		courses []dto.CourseRequest
		rooms   []dto.RoomRequest
		prefs   []dto.PreferenceRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	if len(problem.Courses) == 0 {
		g.Go(func() error {
			return l.fetch(gctx, "courses", problem.ScheduleID, &courses)
		})
	}
	if len(problem.Rooms) == 0 {
		g.Go(func() error {
			return l.fetch(gctx, "rooms", problem.ScheduleID, &rooms)
		})
	}
	if len(problem.Preferences) == 0 {
		g.Go(func() error {
			return l.fetch(gctx, "preferences", problem.ScheduleID, &prefs)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range courses {
		if err := l.validator.Struct(c); err != nil {
			l.logger.Warn("dropping invalid upstream course", zap.String("course_id", c.ID), zap.Error(err))
			continue
		}
		problem.Courses = append(problem.Courses, c.ToModel())
	}
	for _, r := range rooms {
		if err := l.validator.Struct(r); err != nil {
			l.logger.Warn("dropping invalid upstream room", zap.String("room_id", r.ID), zap.Error(err))
			continue
		}
		problem.Rooms = append(problem.Rooms, r.ToModel())
	}
	for _, p := range prefs {
		if err := l.validator.Struct(p); err != nil {
			l.logger.Warn("dropping invalid upstream preference", zap.String("professor_id", p.ProfessorID), zap.Error(err))
			continue
		}
		pref, err := p.ToModel()
		if err != nil {
			l.logger.Warn("dropping unparsable upstream preference", zap.String("professor_id", p.ProfessorID), zap.Error(err))
			continue
		}
		problem.Preferences = append(problem.Preferences, pref)
	}

	l.logger.Info("upstream data loaded",
		zap.String("schedule_id", problem.ScheduleID),
		zap.Int("courses", len(problem.Courses)),
		zap.Int("rooms", len(problem.Rooms)),
		zap.Int("preferences", len(problem.Preferences)))
	return nil
}

func (l *ProblemLoader) fetch(ctx context.Context, resource, scheduleID string, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s?scheduleId=%s", l.baseURL, resource, url.QueryEscape(scheduleID))
	if err := l.caller.doJSON(ctx, http.MethodGet, endpoint, nil, out); err != nil {
		return fmt.Errorf("load %s: %w", resource, err)
	}
	return nil
}
