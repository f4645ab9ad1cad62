package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/dispute-backend/internal/models"
)

type mockStatsRepo struct {
	mock.Mock
}

func (m *mockStatsRepo) CountByStatus(ctx context.Context) ([]models.CountRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CountRow), args.Error(1)
}

func (m *mockStatsRepo) CountByType(ctx context.Context) ([]models.CountRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CountRow), args.Error(1)
}

func (m *mockStatsRepo) CountByResult(ctx context.Context) ([]models.CountRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CountRow), args.Error(1)
}

func (m *mockStatsRepo) CountPendingExecutions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestStatsService_GetStatistics(t *testing.T) {
	repo := new(mockStatsRepo)
	svc := NewStatsService(repo, NewCacheService(), time.Minute)
	generated := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return generated }

	repo.On("CountByStatus", mock.Anything).Return([]models.CountRow{
		{Key: string(models.DisputeStatusNegotiating), Count: 2},
		{Key: string(models.DisputeStatusCompleted), Count: 5},
	}, nil).Once()
	repo.On("CountByType", mock.Anything).Return([]models.CountRow{
		{Key: string(models.DisputeTypeNotAsDescribed), Count: 7},
	}, nil).Once()
	repo.On("CountByResult", mock.Anything).Return([]models.CountRow{
		{Key: string(models.ArbitrationResultFullRefund), Count: 4},
		{Key: string(models.ArbitrationResultReject), Count: 1},
	}, nil).Once()
	repo.On("CountPendingExecutions", mock.Anything).Return(3, nil).Once()

	stats, err := svc.GetStatistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Len(t, stats.ByStatus, len(models.AllDisputeStatuses))
	assert.Equal(t, 0, stats.ByStatus[string(models.DisputeStatusSubmitted)])
	assert.Equal(t, 5, stats.ByStatus[string(models.DisputeStatusCompleted)])
	assert.Equal(t, 7, stats.ByType[string(models.DisputeTypeNotAsDescribed)])
	assert.Equal(t, 4, stats.ByResult[string(models.ArbitrationResultFullRefund)])
	assert.Equal(t, 3, stats.PendingExecutions)
	assert.Equal(t, generated, stats.GeneratedAt)

	cached, err := svc.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Same(t, stats, cached)
	repo.AssertExpectations(t)
}

func TestStatsService_InvalidateStatistics(t *testing.T) {
	repo := new(mockStatsRepo)
	svc := NewStatsService(repo, NewCacheService(), time.Hour)

	repo.On("CountByStatus", mock.Anything).Return([]models.CountRow{}, nil).Twice()
	repo.On("CountByType", mock.Anything).Return([]models.CountRow{}, nil).Twice()
	repo.On("CountByResult", mock.Anything).Return([]models.CountRow{}, nil).Twice()
	repo.On("CountPendingExecutions", mock.Anything).Return(0, nil).Twice()

	_, err := svc.GetStatistics(context.Background())
	require.NoError(t, err)
	svc.InvalidateStatistics()
	_, err = svc.GetStatistics(context.Background())
	require.NoError(t, err)

	repo.AssertNumberOfCalls(t, "CountByStatus", 2)
}

func TestStatsService_GetStatistics_Error(t *testing.T) {
	repo := new(mockStatsRepo)
	cache := NewCacheService()
	svc := NewStatsService(repo, cache, time.Minute)
	dbErr := errors.New("db down")

	repo.On("CountByStatus", mock.Anything).Return(nil, dbErr)
	repo.On("CountByType", mock.Anything).Return([]models.CountRow{}, nil).Maybe()
	repo.On("CountByResult", mock.Anything).Return([]models.CountRow{}, nil).Maybe()
	repo.On("CountPendingExecutions", mock.Anything).Return(0, nil).Maybe()

	stats, err := svc.GetStatistics(context.Background())

	assert.ErrorIs(t, err, dbErr)
	assert.Nil(t, stats)
	_, cached := cache.Get(StatisticsCacheKey)
	assert.False(t, cached)
}
