package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/printflow-erp/printflow-erp/internal/app"
	"github.com/printflow-erp/printflow-erp/internal/inventory"
	jobmetrics "github.com/printflow-erp/printflow-erp/internal/jobs"
	"github.com/printflow-erp/printflow-erp/internal/notifications"
	"github.com/printflow-erp/printflow-erp/internal/platform/db"
	"github.com/printflow-erp/printflow-erp/internal/users"
	"github.com/printflow-erp/printflow-erp/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	usersRepo := users.NewRepository(pool)
	notificationRepo := notifications.NewRepository(pool)
	notificationService := notifications.NewService(notificationRepo, usersRepo, nil, logger, nil)

	inventoryRepo := inventory.NewRepository(pool)
	metrics := jobmetrics.NewMetrics(nil)
	lowStockHandler := jobs.NewLowStockScanHandler(inventoryRepo, notificationService, logger, metrics)

	lowStockTask, err := jobs.NewLowStockScanTask(time.Now().UTC())
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.CronLowStockScan, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
