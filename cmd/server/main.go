package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/prolink-backend/internal/config"
	"github.com/ignatzorin/prolink-backend/internal/db"
	"github.com/ignatzorin/prolink-backend/internal/gateway"
	httpHandlers "github.com/ignatzorin/prolink-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/prolink-backend/internal/http/router"
	"github.com/ignatzorin/prolink-backend/internal/logger"
	"github.com/ignatzorin/prolink-backend/internal/repository"
	"github.com/ignatzorin/prolink-backend/internal/service"
	"github.com/ignatzorin/prolink-backend/internal/storage"
	"github.com/ignatzorin/prolink-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := cfg.LogLevel
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.FileStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	paymentGateway := gateway.NewClient(cfg.PayMongoBaseURL, cfg.PayMongoSecretKey, cfg.PayMongoWebhookSecret)

	// Репозитории.
	engagementRepo := repository.NewEngagementRepository(dbConn)
	transactionRepo := repository.NewTransactionRepository(dbConn)
	withdrawalRepo := repository.NewWithdrawalRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, hub)
	engagementService := service.NewEngagementService(engagementRepo, paymentGateway, notificationService, service.Policy{
		MaxRevisions:    cfg.MaxRevisions,
		AutoApproveDays: cfg.AutoApproveDays,
	})
	disputeService := service.NewDisputeService(engagementRepo, notificationService, engagementService)
	withdrawalService := service.NewWithdrawalService(withdrawalRepo, transactionRepo, notificationService, engagementService)

	// Фоновое автоподтверждение работ.
	sweeper := service.NewAutoApproveSweeper(engagementService, cfg.AutoApproveSweep)
	go sweeper.Run(ctx)

	// HTTP хэндлеры.
	requestHandler := httpHandlers.NewRequestHandler(engagementService)
	paymentHandler := httpHandlers.NewPaymentHandler(engagementService, paymentGateway, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	withdrawalHandler := httpHandlers.NewWithdrawalHandler(withdrawalService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	attachmentHandler := httpHandlers.NewAttachmentHandler(fileStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg,
		requestHandler, paymentHandler, disputeHandler, withdrawalHandler,
		notificationHandler, attachmentHandler, wsHandler, healthHandler,
		tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
