package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-scheduler/internal/dto"
	"github.com/noah-isme/exam-scheduler/internal/models"
	"github.com/noah-isme/exam-scheduler/pkg/config"
)

func upstreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sched-1", r.URL.Query().Get("scheduleId"))
		_ = json.NewEncoder(w).Encode([]dto.CourseRequest{
			{ID: "c1", Name: "Calculus", StudentCount: 30, Mandatory: true},
			{ID: "", Name: "nameless"},
		})
	})
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]dto.RoomRequest{{ID: "r1", Capacity: 40}})
	})
	mux.HandleFunc("/preferences", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]dto.PreferenceRequest{
			{ProfessorID: "p1", CourseID: "c1", PreferredDates: []string{"2025-03-03"}},
			{ProfessorID: "p2", CourseID: "c1", PreferredDates: []string{"03/03/2025"}},
		})
	})
	return httptest.NewServer(mux)
}

func TestProblemLoaderFillsMissingLists(t *testing.T) {
	server := upstreamServer(t)
	defer server.Close()
	loader := NewProblemLoader(config.UpstreamConfig{BaseURL: server.URL, Timeout: time.Second}, server.Client(), validator.New(), zap.NewNop())
	problem := &models.SchedulingProblem{ScheduleID: "sched-1"}

	require.NoError(t, loader.Load(context.Background(), problem))

	require.Len(t, problem.Courses, 1)
	assert.Equal(t, models.CourseTypeMandatory, problem.Courses[0].Type)
	require.Len(t, problem.Rooms, 1)
	assert.Equal(t, "r1", problem.Rooms[0].Name)
	require.Len(t, problem.Preferences, 1)
	assert.Equal(t, "p1", problem.Preferences[0].ProfessorID)
}

func TestProblemLoaderKeepsProvidedLists(t *testing.T) {
	server := upstreamServer(t)
	defer server.Close()
	loader := NewProblemLoader(config.UpstreamConfig{BaseURL: server.URL, Timeout: time.Second}, server.Client(), nil, nil)
	problem := &models.SchedulingProblem{
		ScheduleID: "sched-1",
		Rooms:      []models.Room{{ID: "own", Capacity: 10}},
	}

	require.NoError(t, loader.Load(context.Background(), problem))

	require.Len(t, problem.Rooms, 1)
	assert.Equal(t, "own", problem.Rooms[0].ID)
}

func TestProblemLoaderPropagatesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()
	loader := NewProblemLoader(config.UpstreamConfig{BaseURL: server.URL, Timeout: time.Second}, server.Client(), nil, nil)

	err := loader.Load(context.Background(), &models.SchedulingProblem{ScheduleID: "sched-1"})

	assert.Error(t, err)
}
