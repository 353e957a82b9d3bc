package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-overtime-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/webhook"
	"github.com/cmlabs-hris/hris-overtime-go/internal/repository/postgresql"
	dispatchService "github.com/cmlabs-hris/hris-overtime-go/internal/service/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/service/file"
	notificationService "github.com/cmlabs-hris/hris-overtime-go/internal/service/notification"
	overtimeService "github.com/cmlabs-hris/hris-overtime-go/internal/service/overtime"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	overtimeRepo := postgresql.NewOvertimeRepository(db)
	settingsRepo := postgresql.NewSettingsRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	workScheduleRepo := postgresql.NewWorkScheduleRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)
	dispatchRepo := postgresql.NewDispatchRepository(db)
	txManager := postgresql.NewTxManager(db)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("init jwt: %w", err)
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("init local storage: %w", err)
	}
	fileService := file.NewFileService(fileStorage)

	hub := sse.NewHub()
	notifSvc := notificationService.NewNotificationService(notificationRepo, hub, notificationService.Config{
		BatchSize:     cfg.Notification.BatchSize,
		FlushInterval: cfg.Notification.FlushInterval,
		WorkerCount:   cfg.Notification.WorkerCount,
		QueueSize:     cfg.Notification.QueueSize,
	})

	dispatcher := dispatchService.NewDispatcher(dispatchRepo,
		dispatchService.Config{
			WorkerCount: cfg.Dispatch.WorkerCount,
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			ReplayAfter: cfg.Dispatch.ReplayAfter,
			Retention:   cfg.Dispatch.Retention,
		},
		dispatchService.NewNotifier(notifSvc, employeeRepo),
		dispatchService.NewExternalNotifier(
			webhook.NewClient(cfg.Dispatch.NotifyWebhookURL, cfg.Dispatch.WebhookSecret, cfg.Dispatch.WebhookTimeout)),
		dispatchService.NewGamificationTrigger(
			webhook.NewClient(cfg.Dispatch.GamificationWebhookURL, cfg.Dispatch.WebhookSecret, cfg.Dispatch.WebhookTimeout)),
	)
	dispatcher.Start()

	otSvc := overtimeService.NewOvertimeService(
		txManager,
		overtimeRepo,
		settingsRepo,
		employeeRepo,
		workScheduleRepo,
		holidayRepo,
		dispatchRepo,
		fileService,
		dispatcher,
	)

	var idempotencyStore *idempotency.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		idempotencyStore = idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		slog.Warn("REDIS_ADDR not set, Idempotency-Key replay is disabled")
	}

	overtimeHandler := appHTTP.NewOvertimeHandler(otSvc)
	notificationHandler := appHTTP.NewNotificationHandler(notifSvc, JWTService)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Env:            cfg.App.Env,
		LogLevel:       cfg.LogLevel(),
		AllowedOrigins: cfg.App.AllowedOrigins,
		StoragePath:    cfg.Storage.BasePath,
		Idempotency:    idempotencyStore,
	}, JWTService, overtimeHandler, notificationHandler)

	scheduler := cron.NewScheduler()
	cron.NewDispatchJobs(dispatcher, cfg.Dispatch.ReplayInterval, cfg.Dispatch.PurgeInterval).RegisterJobs(scheduler)
	scheduler.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	// Outbox rows left pending are picked up by the replay job on the next start.
	scheduler.Stop()
	dispatcher.Stop()
	notifSvc.Stop()

	slog.Info("Server stopped")
	return nil
}
