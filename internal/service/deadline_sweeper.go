package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/dispute-backend/internal/lock"
	"github.com/ignatzorin/dispute-backend/internal/logger"
)

const sweepLockKey = "dispute-deadline-sweeper"

// ExpiryMarker операции менеджера споров, которые вызывает планировщик.
type ExpiryMarker interface {
	MarkExpiredNegotiations(ctx context.Context) (int, error)
	MarkExpiredArbitrations(ctx context.Context) (int, error)
}

// SweepResult итог одного прохода.
type SweepResult struct {
	Escalated int       `json:"escalated"`
	Closed    int       `json:"closed"`
	Skipped   bool      `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
}

// DeadlineSweeper переводит споры с истёкшими сроками.
// Одновременно работает только один экземпляр: проход идёт под блокировкой.
type DeadlineSweeper struct {
	disputes ExpiryMarker
	locker   lock.Locker
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

func NewDeadlineSweeper(disputes ExpiryMarker, locker lock.Locker, interval, lockTTL time.Duration) *DeadlineSweeper {
	return &DeadlineSweeper{
		disputes: disputes,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

// RunOnce выполняет один проход. Если блокировку держит другой экземпляр,
// проход пропускается без ошибки.
func (s *DeadlineSweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartedAt: s.now()}

	release, err := s.locker.Acquire(ctx, sweepLockKey, s.lockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		result.Skipped = true
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("sweeper: acquire lock: %w", err)
	}
	defer release()

	if result.Escalated, err = s.disputes.MarkExpiredNegotiations(ctx); err != nil {
		return result, fmt.Errorf("sweeper: expired negotiations: %w", err)
	}
	if result.Closed, err = s.disputes.MarkExpiredArbitrations(ctx); err != nil {
		return result, fmt.Errorf("sweeper: expired arbitrations: %w", err)
	}

	if result.Escalated > 0 || result.Closed > 0 {
		logger.Log.WithFields(logrus.Fields{
			"escalated": result.Escalated,
			"closed":    result.Closed,
		}).Info("deadline sweep finished")
	}
	return result, nil
}

// Run запускает проходы с заданным интервалом до отмены контекста.
func (s *DeadlineSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Log.WithField("interval", s.interval.String()).Info("deadline sweeper started")
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Error("deadline sweep failed")
		}

		select {
		case <-ctx.Done():
			logger.Log.Info("deadline sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
