package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/academic-results-api/pkg/errors"
)

type stubCacheRepo struct {
	getErr     error
	setTTL     time.Duration
	patterns   []string
	setCalls   int
	payloadSet interface{}
}

func (s *stubCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return s.getErr
}

func (s *stubCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.setCalls++
	s.setTTL = ttl
	s.payloadSet = value
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, 0, nil, false)

	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	require.NoError(t, svc.Invalidate(context.Background(), "*"))
	assert.Zero(t, repo.setCalls)
	assert.Empty(t, repo.patterns)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceMissAndHit(t *testing.T) {
	metrics := NewMetricsService()
	repo := &stubCacheRepo{getErr: appErrors.ErrCacheMiss}
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)

	repo.getErr = nil
	hit, err = svc.Get(context.Background(), "k", &struct{}{})
	require.NoError(t, err)
	assert.True(t, hit)

	repo.getErr = errors.New("connection refused")
	_, err = svc.Get(context.Background(), "k", &struct{}{})
	assert.Error(t, err)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
}

func TestCacheServiceDefaultTTL(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, 2*time.Minute, nil, true)

	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, 2*time.Minute, repo.setTTL)
	require.NoError(t, svc.Invalidate(context.Background(), "results:*"))
	assert.Equal(t, []string{"results:*"}, repo.patterns)
}
