package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/exam-scheduler/pkg/errors"
)

type cacheRepoStub struct {
	values   map[string]interface{}
	patterns []string
	getErr   error
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*string) = v.(string)
	return nil
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.values == nil {
		s.values = make(map[string]interface{})
	}
	s.values[key] = value
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	key := ScheduleKey("sched-1", "conflicts")

	var out string
	hit, err := svc.Get(context.Background(), key, &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), key, "cached", 0))
	hit, err = svc.Get(context.Background(), key, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", out)

	require.NoError(t, svc.InvalidateSchedule(context.Background(), "sched-1"))
	assert.Equal(t, []string{"exam-scheduler:schedule:sched-1:*"}, repo.patterns)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, repo.values)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(&cacheRepoStub{getErr: errors.New("connection refused")}, nil, 0, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)

	assert.False(t, hit)
	assert.Error(t, err)
}
