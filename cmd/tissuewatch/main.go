package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tissuewatch/internal/config"
	"tissuewatch/internal/database"
	"tissuewatch/internal/dispatch"
	"tissuewatch/internal/httpapi"
	"tissuewatch/internal/logger"
	"tissuewatch/internal/mqttin"
	"tissuewatch/internal/push"
	"tissuewatch/internal/repository"
	"tissuewatch/internal/service"
	"tissuewatch/internal/store"
	"tissuewatch/internal/ws"
)

func main() {
	// .env 可选，容器部署直接用环境变量
	_ = godotenv.Load()

	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			panic(err)
		}
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "tissuewatch")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	// DB 未就绪时退回内存 repo，本地 go run 也能跑全部页面
	var (
		db                *sql.DB
		devicesRepo       repository.DevicesRepository
		readingsRepo      repository.ReadingsRepository
		notificationsRepo repository.NotificationsRepository
		pushTokensRepo    repository.PushTokensRepository
		usersRepo         repository.UsersRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for tissuewatch")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}
	if db != nil {
		devicesRepo = repository.NewPostgresDevicesRepo(db)
		readingsRepo = repository.NewPostgresReadingsRepo(db)
		notificationsRepo = repository.NewPostgresNotificationsRepo(db)
		pushTokensRepo = repository.NewPostgresPushTokensRepo(db)
		usersRepo = repository.NewPostgresUsersRepo(db)
	} else {
		memDevices := repository.NewMemoryDevicesRepo()
		devicesRepo = memDevices
		readingsRepo = repository.NewMemoryReadingsRepo(memDevices)
		notificationsRepo = repository.NewMemoryNotificationsRepo(memDevices)
		pushTokensRepo = repository.NewMemoryPushTokensRepo()
		usersRepo = repository.NewMemoryUsersRepo()
	}

	mailer := service.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, log)
	authSvc := service.NewAuthService(usersRepo, kv, mailer, cfg.JWT.Secret, cfg.JWT.TTL, log)

	registry := ws.NewRegistry()
	pushClient := push.NewClient(cfg.Push.Endpoint, cfg.Push.Timeout, log)
	dispatcher := dispatch.NewDispatcher(registry, pushTokensRepo, pushClient, cfg.Dispatch.SendTimeout, log)

	ingestSvc := service.NewIngestService(devicesRepo, readingsRepo, notificationsRepo, usersRepo, dispatcher, log)
	readingSvc := service.NewReadingService(readingsRepo, log)
	deviceSvc := service.NewDeviceService(devicesRepo, log)
	notificationSvc := service.NewNotificationService(notificationsRepo, pushTokensRepo, log)

	mw := httpapi.NewAuthMiddleware(authSvc, log)
	router := httpapi.NewRouter(log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(authSvc, log), mw)
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(deviceSvc, log), mw)
	router.RegisterDataRoutes(httpapi.NewDataHandler(ingestSvc, readingSvc, log), mw)
	router.RegisterNotificationRoutes(httpapi.NewNotificationHandler(notificationSvc, log), mw)
	router.RegisterWebSocketRoutes(ws.NewHandler(registry, authSvc, cfg.Dispatch.SendTimeout, log))

	var consumer *mqttin.Consumer
	if cfg.MQTT.Enabled {
		consumer = mqttin.NewConsumer(cfg, ingestSvc, log)
		if err := consumer.Start(); err != nil {
			log.Error("MQTT ingestion unavailable, HTTP ingestion still serving", zap.Error(err))
			consumer = nil
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if consumer != nil {
		consumer.Stop()
	}
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
