package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sejinpark/posportal-backend/internal/notifications"
	"github.com/sejinpark/posportal-backend/internal/posstatus"
	"github.com/sejinpark/posportal-backend/pkg/config"
	"github.com/sejinpark/posportal-backend/pkg/db"
	"github.com/sejinpark/posportal-backend/pkg/instance"
	"github.com/sejinpark/posportal-backend/pkg/logger"
	"github.com/sejinpark/posportal-backend/pkg/metrics"
	"github.com/sejinpark/posportal-backend/pkg/migrate"
	"github.com/sejinpark/posportal-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "scheduler-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "scheduler-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	posRepo := posstatus.NewRepository(dbClient.DB())

	posService, err := posstatus.NewService(posstatus.ServiceParams{
		Repo:          posRepo,
		Notifications: notifications.NewRepository(dbClient.DB()),
		Tx:            dbClient,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pos service", err)
		os.Exit(1)
	}

	schedulerMetrics := metrics.NewSchedulerMetrics(prometheus.DefaultRegisterer)

	manager, err := posstatus.NewManager(posstatus.ManagerParams{
		Transitions: posService,
		Logger:      logg,
		Metrics:     schedulerMetrics,
		MinWait:     cfg.Scheduler.MinBoundaryWait,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler manager", err)
		os.Exit(1)
	}

	lock, err := posstatus.NewRedisWorkerLock(redisClient, cfg.Scheduler.LockKey, cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler lock", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger:         logg,
		Records:        posRepo,
		Manager:        manager,
		Lock:           lock,
		ReloadInterval: cfg.Scheduler.ReloadInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting scheduler worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scheduler worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "scheduler worker shutting down gracefully")
}
