package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/dispute-backend/internal/models"
)

// StatsRepository описывает агрегирующие запросы.
type StatsRepository interface {
	CountByStatus(ctx context.Context) ([]models.CountRow, error)
	CountByType(ctx context.Context) ([]models.CountRow, error)
	CountByResult(ctx context.Context) ([]models.CountRow, error)
	CountPendingExecutions(ctx context.Context) (int, error)
}

// StatsService собирает статистику по спорам.
type StatsService struct {
	repo  StatsRepository
	cache *CacheService
	ttl   time.Duration
	now   func() time.Time
}

func NewStatsService(repo StatsRepository, cache *CacheService, ttl time.Duration) *StatsService {
	return &StatsService{repo: repo, cache: cache, ttl: ttl, now: time.Now}
}

// GetStatistics возвращает счётчики по статусам, типам и решениям.
// Результат кэшируется на ttl.
func (s *StatsService) GetStatistics(ctx context.Context) (*models.DisputeStatistics, error) {
	value, err := s.cache.GetOrSet(ctx, StatisticsCacheKey, s.ttl, func(ctx context.Context) (interface{}, error) {
		return s.collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*models.DisputeStatistics), nil
}

// InvalidateStatistics сбрасывает кэш, например после прохода планировщика.
func (s *StatsService) InvalidateStatistics() {
	s.cache.Delete(StatisticsCacheKey)
}

func (s *StatsService) collect(ctx context.Context) (*models.DisputeStatistics, error) {
	var (
		byStatus, byType, byResult []models.CountRow
		pending                    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byStatus, err = s.repo.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		byType, err = s.repo.CountByType(gctx)
		return err
	})
	g.Go(func() (err error) {
		byResult, err = s.repo.CountByResult(gctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.repo.CountPendingExecutions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &models.DisputeStatistics{
		ByStatus:          make(map[string]int, len(models.AllDisputeStatuses)),
		ByType:            toCountMap(byType),
		ByResult:          toCountMap(byResult),
		PendingExecutions: pending,
		GeneratedAt:       s.now(),
	}
	for _, status := range models.AllDisputeStatuses {
		stats.ByStatus[string(status)] = 0
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Key] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}

func toCountMap(rows []models.CountRow) map[string]int {
	m := make(map[string]int, len(rows))
	for _, row := range rows {
		m[row.Key] = row.Count
	}
	return m
}
