package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/printflow-erp/printflow-erp/internal/app"
	"github.com/printflow-erp/printflow-erp/internal/inventory"
	"github.com/printflow-erp/printflow-erp/internal/notifications"
	"github.com/printflow-erp/printflow-erp/internal/observability"
	"github.com/printflow-erp/printflow-erp/internal/orderfeed"
	"github.com/printflow-erp/printflow-erp/internal/orders"
	"github.com/printflow-erp/printflow-erp/internal/orderview"
	"github.com/printflow-erp/printflow-erp/internal/platform/cache"
	"github.com/printflow-erp/printflow-erp/internal/platform/db"
	"github.com/printflow-erp/printflow-erp/internal/procurement"
	"github.com/printflow-erp/printflow-erp/internal/sequence"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)

	seqRepo := sequence.NewRepository(dbpool)
	seqService := sequence.NewService(seqRepo)

	notificationRepo := notifications.NewRepository(dbpool)
	notificationService := notifications.NewService(notificationRepo, usersRepo, asynqClient, logger, metrics)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, notificationService, logger, metrics)

	feed := orderfeed.New(redisClient, logger)

	orderRepo := orders.NewRepository(dbpool)
	orderService := orders.NewService(orderRepo, seqService, usersRepo, notificationService, feed, logger, metrics)
	viewService := orderview.NewService(orderRepo)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, seqService, inventoryService, notificationService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		ActorResolver:        usersRepo,
		OrdersHandler:        orders.NewHandler(logger, orderService, viewService),
		InventoryHandler:     inventory.NewHandler(logger, inventoryService),
		ProcurementHandler:   procurement.NewHandler(logger, procurementService),
		NotificationsHandler: notifications.NewHandler(logger, notificationService),
		FeedHandler:          orderfeed.NewHandler(logger, feed),
		JobHandler:           jobs.NewHandler(inspector, logger),
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
