package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/dispute-backend/internal/config"
	"github.com/ignatzorin/dispute-backend/internal/db"
	"github.com/ignatzorin/dispute-backend/internal/goroutine"
	"github.com/ignatzorin/dispute-backend/internal/lock"
	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/repository"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
	"github.com/ignatzorin/dispute-backend/internal/service"
)

// Один проход обработчика сроков для запуска из cron.
// Уведомления сохраняются в базе, websocket push в этом режиме не выполняется.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("sweeper: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.LogLevel)

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolOptions{MaxOpenConns: 4, MaxIdleConns: 1, ConnMaxLifetime: db.DefaultPool.ConnMaxLifetime})
	if err != nil {
		logger.Log.WithError(err).Fatal("sweeper: ошибка подключения к базе")
	}
	defer dbConn.Close()

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		client := lock.NewRedisClient(lock.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		locker = lock.NewRedisLocker(client)
	}

	publisher := service.NewPublisher(
		service.NewAuditService(repository.NewAuditRepository(dbConn)),
		service.NewNotificationService(repository.NewNotificationRepository(dbConn), nil),
		goroutine.Inline{Logger: logger.Log},
	)
	disputes := service.NewDisputeService(
		common.NewTransactor(dbConn),
		repository.NewDisputeRepository(dbConn),
		repository.NewOrderContextRepository(dbConn),
		publisher,
		service.Windows{Negotiation: cfg.NegotiationWindow, Arbitration: cfg.ArbitrationWindow},
	)

	result, err := service.NewDeadlineSweeper(disputes, locker, cfg.SweepInterval, cfg.SweepLockTTL).RunOnce(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("sweeper: проход завершился с ошибкой")
	}

	logger.Log.WithFields(logrus.Fields{
		"escalated": result.Escalated,
		"closed":    result.Closed,
		"skipped":   result.Skipped,
	}).Info("sweeper: проход завершён")
}
