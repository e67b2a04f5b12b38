package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/rutero-app/rutero/internal/app"
	"github.com/rutero-app/rutero/internal/customers"
	"github.com/rutero-app/rutero/internal/distributors"
	"github.com/rutero-app/rutero/internal/observability"
	"github.com/rutero-app/rutero/internal/orders"
	"github.com/rutero-app/rutero/internal/payments"
	"github.com/rutero-app/rutero/internal/routes"
	"github.com/rutero-app/rutero/internal/routes/optimizer"
	"github.com/rutero-app/rutero/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validate := validator.New()
	metrics := observability.NewMetrics()

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo)
	ordersHandler := orders.NewHandler(logger, ordersService, validate)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo)
	paymentsHandler := payments.NewHandler(logger, paymentsService, validate)

	customersRepo := customers.NewRepository(dbpool)
	customersHandler := customers.NewHandler(logger, customersRepo)

	distributorsRepo := distributors.NewRepository(dbpool)
	optimizerClient := optimizer.NewClient(cfg.OptimizerURL, optimizer.WithTimeout(cfg.OptimizerTimeout))

	routesRepo := routes.NewRepository(dbpool)
	routesService := routes.NewService(routesRepo, optimizerClient, distributorsRepo)
	routesService.SetSettlementCache(routes.NewRedisSettlementCache(redisClient, cfg.SettlementCacheTTL))
	routesHandler := routes.NewHandler(logger, routesService, validate)
	routesHandler.SetMetrics(metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		OrdersHandler:    ordersHandler,
		PaymentsHandler:  paymentsHandler,
		RoutesHandler:    routesHandler,
		CustomersHandler: customersHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
