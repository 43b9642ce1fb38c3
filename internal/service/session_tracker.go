package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/noah-isme/exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

// SessionTracker keeps recent scheduling sessions in memory with expiry.
type SessionTracker struct {
	store   *gocache.Cache
	metrics *MetricsService
	now     func() time.Time
}

// NewSessionTracker constructs a tracker whose entries expire after ttl.
func NewSessionTracker(ttl, cleanup time.Duration, metrics *MetricsService) *SessionTracker {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &SessionTracker{store: gocache.New(ttl, cleanup), metrics: metrics, now: time.Now}
}

// Start records a running session. An empty id gets a generated one.
func (t *SessionTracker) Start(sessionID, scheduleID string, strategy models.SolvingStrategy) models.SchedulingSession {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	session := models.SchedulingSession{
		ID:         sessionID,
		ScheduleID: scheduleID,
		Status:     models.SessionRunning,
		Strategy:   strategy,
		StartedAt:  t.now().UTC(),
	}
	t.store.SetDefault(sessionID, session)
	t.publishActive()
	return session
}

// Complete marks the session finished with the solution's summary.
func (t *SessionTracker) Complete(sessionID string, solution *models.SchedulingSolution) {
	t.finish(sessionID, func(s *models.SchedulingSession) {
		s.Status = models.SessionCompleted
		if solution != nil {
			s.Algorithm = solution.Algorithm
			s.QualityScore = solution.QualityScore
			s.ExamCount = len(solution.Exams)
		}
	})
}

// Fail marks the session failed.
func (t *SessionTracker) Fail(sessionID string, err error) {
	t.finish(sessionID, func(s *models.SchedulingSession) {
		s.Status = models.SessionFailed
		if err != nil {
			s.Error = err.Error()
		}
	})
}

// Get returns a tracked session.
func (t *SessionTracker) Get(sessionID string) (*models.SchedulingSession, error) {
	item, ok := t.store.Get(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("session %s not found", sessionID))
	}
	session := item.(models.SchedulingSession)
	return &session, nil
}

func (t *SessionTracker) finish(sessionID string, mutate func(*models.SchedulingSession)) {
	item, ok := t.store.Get(sessionID)
	if !ok {
		return
	}
	session := item.(models.SchedulingSession)
	mutate(&session)
	finished := t.now().UTC()
	session.FinishedAt = &finished
	t.store.SetDefault(sessionID, session)
	t.publishActive()
}

func (t *SessionTracker) publishActive() {
	running := 0
	for _, item := range t.store.Items() {
		if s, ok := item.Object.(models.SchedulingSession); ok && s.Status == models.SessionRunning {
			running++
		}
	}
	t.metrics.SetActiveSessions(running)
}
