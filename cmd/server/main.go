package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/dispute-backend/internal/config"
	"github.com/ignatzorin/dispute-backend/internal/db"
	"github.com/ignatzorin/dispute-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/dispute-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/dispute-backend/internal/http/router"
	"github.com/ignatzorin/dispute-backend/internal/lock"
	"github.com/ignatzorin/dispute-backend/internal/logger"
	"github.com/ignatzorin/dispute-backend/internal/repository"
	"github.com/ignatzorin/dispute-backend/internal/repository/common"
	"github.com/ignatzorin/dispute-backend/internal/service"
	"github.com/ignatzorin/dispute-backend/internal/storage"
	"github.com/ignatzorin/dispute-backend/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.IsProduction() {
		logger.Init(cfg.LogLevel)
	} else {
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.WithError(err).Fatal("main: ошибка миграций")
	}

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidenceStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось подготовить файловое хранилище")
	}

	background := goroutine.NewRecoveryHandler(logger.Log)
	tokenManager := service.NewTokenManager(cfg.JWTSecret, 0)
	windows := service.Windows{Negotiation: cfg.NegotiationWindow, Arbitration: cfg.ArbitrationWindow}

	tx := common.NewTransactor(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	negotiationRepo := repository.NewNegotiationRepository(dbConn)
	evidenceRepo := repository.NewEvidenceRepository(dbConn)
	arbitrationRepo := repository.NewArbitrationRepository(dbConn)
	orderRepo := repository.NewOrderContextRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)
	statsRepo := repository.NewStatsRepository(dbConn)

	hub := ws.NewHub()
	background.GoWithContext(ctx, hub.Run)

	notificationService := service.NewNotificationService(notificationRepo, hub)
	auditService := service.NewAuditService(auditRepo)
	publisher := service.NewPublisher(auditService, notificationService, background)

	disputeService := service.NewDisputeService(tx, disputeRepo, orderRepo, publisher, windows)
	negotiationService := service.NewNegotiationService(tx, disputeRepo, negotiationRepo, publisher)
	evidenceService := service.NewEvidenceService(tx, disputeRepo, evidenceRepo, evidenceStorage, publisher)
	arbitrationService := service.NewArbitrationService(tx, disputeRepo, arbitrationRepo, publisher, windows)

	cache := service.NewCacheService()
	background.GoWithContext(ctx, func(ctx context.Context) { cache.RunCleanup(ctx, time.Minute) })
	statsService := service.NewStatsService(statsRepo, cache, cfg.StatsCacheTTL)

	var (
		locker      lock.Locker
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = lock.NewRedisClient(lock.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient)
	} else {
		logger.Log.Warn("main: REDIS_ADDR не задан, блокировка обработчика сроков локальная")
		locker = lock.NewLocalLocker()
	}

	sweeper := service.NewDeadlineSweeper(disputeService, locker, cfg.SweepInterval, cfg.SweepLockTTL)
	background.GoWithContext(ctx, sweeper.Run)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Health:       httpHandlers.NewHealthHandler(dbConn, redisClient),
		Dispute:      httpHandlers.NewDisputeHandler(disputeService, auditService),
		Negotiation:  httpHandlers.NewNegotiationHandler(negotiationService, disputeService),
		Evidence:     httpHandlers.NewEvidenceHandler(evidenceService, disputeService, evidenceStorage),
		Arbitration:  httpHandlers.NewArbitrationHandler(arbitrationService, disputeService),
		Admin:        httpHandlers.NewAdminHandler(statsService, sweeper),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager, background, cfg.AllowedOrigins),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось открыть порт")
	}

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := serve(ctx, server, ln, 10*time.Second); err != nil {
		logger.Log.WithError(err).Error("main: ошибка работы http сервера")
	}

	// Запросы завершены, новых публикаций эффектов из хэндлеров не будет.
	stop()
	background.Wait()
	logger.Log.Info("main: сервер остановлен")
}

// serve обслуживает HTTP до отмены ctx. Возвращается только после Shutdown,
// то есть когда активные запросы уже обработаны.
func serve(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}

func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
